package session

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/domain/entity"
)

const helpText = `chain - list chains
    chain show <chain> - show chain details
    chain enable|disable|toggle <chain> - switch a chain on or off
    chain toggle-all <family> [on|off] - switch every chain of a family
    chain set-rpc <chain> <url> - use a custom RPC endpoint
    chain reset-rpc <chain> - restore the built-in RPC endpoint
    chain key <chain> [token] - set or clear the API key (TON API bearer token)
account - list accounts
    account add <family|chain> <address> [alias] - track an address, optionally with an alias
    account rm [family|chain] <address|alias> - stop tracking an address
    account import <family> <file> - track every address listed in a file
token - list tokens
    token list [chain] - list tokens of one chain
    token add <chain> <address> [symbol decimals] - track a token
    token rm <chain> <address|symbol> - stop tracking a token
    token scan <chain> <address|alias> - add the tokens an account holds (Solana, TON)
    token import <chain> <file> - track every token of a JSON token list
balance - fetch balances and prices
export - print the data in plain text
password - set, change or remove the password
save - write changes to the data file
reload - discard unsaved changes
status - show the data file state
exit - leave, asking to save unsaved changes (exit! discards them)
!! - repeat the previous command`

func (s *Session) help(_ context.Context, _ []string) error {
	s.printf("Commands\n%s\n", helpText)
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

// renderSnapshot prints holdings by USD value. Priced holdings below minValue are
// counted in the total but left out of the table; unpriced ones are always shown.
func renderSnapshot(w io.Writer, snap entity.PortfolioSnapshot, minValue float64) {
	threshold := decimal.NewFromFloat(minValue)

	holdings := make([]entity.Holding, 0, len(snap.Holdings))
	hidden := 0
	for _, h := range snap.Holdings {
		if h.Value != nil && h.Value.LessThan(threshold) {
			hidden++
			continue
		}
		holdings = append(holdings, h)
	}
	sort.SliceStable(holdings, func(i, j int) bool {
		a, b := holdings[i].Value, holdings[j].Value
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.GreaterThan(*b)
	})

	if len(holdings) > 0 {
		t := newTable(w, "Account", "Chain", "Token", "Balance", "Price (USD)", "Balance (USD)")
		t.SetColumnAlignment([]int{
			tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
			tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		})
		for _, h := range holdings {
			t.Append([]string{
				accountLabel(h.AccountAlias, h.Account),
				h.ChainName,
				h.Symbol,
				h.FormattedAmount(),
				usd(h.Price, 6),
				usd(h.Value, 2),
			})
		}
		t.Render()
	} else {
		fmt.Fprintln(w, "No holdings to show.")
	}

	fmt.Fprintf(w, "Holdings: %d", len(holdings))
	if hidden > 0 {
		fmt.Fprintf(w, " (%d below %s USD hidden)", hidden, threshold.String())
	}
	fmt.Fprintf(w, "\nBalance: %s USD\n", snap.Total.StringFixed(2))
	if snap.Unpriced > 0 {
		fmt.Fprintf(w, "%d holdings have no price, the balance is a lower bound.\n", snap.Unpriced)
	}

	var failures []entity.EntryError
	for _, e := range snap.Errors {
		if e.Kind != entity.EntryPrice {
			failures = append(failures, e)
		}
	}
	if len(failures) > 0 {
		fmt.Fprintf(w, "%d entries could not be fetched:\n", len(failures))
		for _, e := range failures {
			target := string(e.Kind)
			if e.TokenAddress != "" {
				target += " " + e.TokenAddress
			}
			fmt.Fprintf(w, "  %s %s (%s): %s\n", e.ChainID, accountLabel("", e.Account), target, strings.TrimSpace(e.Message))
		}
	}
}

func usd(d *decimal.Decimal, places int32) string {
	if d == nil {
		return "-"
	}
	if places > 2 {
		return d.Round(places).String()
	}
	return d.StringFixed(places)
}
