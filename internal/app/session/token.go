package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

func (s *Session) token(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s.listTokens("")
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "list":
		switch len(args) {
		case 1:
			s.listTokens("")
			return nil
		case 2:
			c, err := s.chainArg(args[1])
			if err != nil {
				return err
			}
			s.listTokens(c.ID)
			return nil
		}
		return usage("token list [chain]")
	case "add":
		switch len(args) {
		case 3:
			return s.addToken(ctx, args[1], args[2], "", "")
		case 5:
			return s.addToken(ctx, args[1], args[2], args[3], args[4])
		}
		return usage("token add <chain> <address> [symbol decimals]")
	case "rm":
		if len(args) != 3 {
			return usage("token rm <chain> <address|symbol>")
		}
		c, err := s.chainArg(args[1])
		if err != nil {
			return err
		}
		removed, err := s.state.RemoveToken(c.ID, args[2])
		if err != nil {
			return err
		}
		s.markDirty()
		s.printf("Removed %s on %s.\n", removed.Symbol, c.Name)
		return nil
	case "scan":
		if len(args) != 3 {
			return usage("token scan <chain> <address|alias>")
		}
		return s.scanTokens(ctx, args[1], args[2])
	case "import":
		if len(args) != 3 {
			return usage("token import <chain> <file>")
		}
		return s.importTokens(args[1], args[2])
	}
	return usage("token [list | add | rm | scan | import]")
}

func (s *Session) chainAdapter(id string) (entity.Chain, port.ChainAdapter, error) {
	c, err := s.chainArg(id)
	if err != nil {
		return c, nil, err
	}
	adapter, err := s.Adapters.For(c.Family)
	if err != nil {
		return c, nil, err
	}
	return c, adapter, nil
}

func (s *Session) addToken(ctx context.Context, chainID, address, symbol, decimals string) error {
	c, adapter, err := s.chainAdapter(chainID)
	if err != nil {
		return err
	}
	addr, err := adapter.NormalizeTokenAddress(address)
	if err != nil {
		return err
	}
	if s.state.HasToken(c.ID, addr) {
		return fmt.Errorf("token %s on %s: %w", addr, c.ID, entity.ErrDuplicate)
	}

	tok := entity.Token{ChainID: c.ID, Address: addr, Symbol: symbol}
	if symbol != "" {
		d, err := strconv.ParseUint(decimals, 10, 8)
		if err != nil {
			return &entity.ValidationError{Field: "decimals", Value: decimals, Reason: "expected an integer between 0 and 255"}
		}
		tok.Decimals = uint8(d)
	} else {
		ref, err := adapter.ResolveToken(ctx, c.Endpoint(), addr)
		if err != nil {
			return fmt.Errorf("could not fetch token info, pass symbol and decimals manually: %w", err)
		}
		tok.Decimals = ref.Decimals
		tok.Symbol = s.symbolFor(ctx, c, ref)
		if tok.Symbol == "" {
			return &entity.ValidationError{Field: "symbol", Value: addr, Reason: "not reported by the chain, pass symbol and decimals manually"}
		}
	}

	if err := s.state.AddToken(tok); err != nil {
		return err
	}
	s.markDirty()
	s.Logger.Info("Token added", "chain", c.ID, "address", addr, "symbol", tok.Symbol)
	s.printf("Tracking %s (%d decimals) on %s.\n", tok.Symbol, tok.Decimals, c.Name)
	return nil
}

// symbolFor falls back to the price source listing when the chain has no symbol.
func (s *Session) symbolFor(ctx context.Context, c entity.Chain, ref entity.TokenRef) string {
	if sym := strings.TrimSpace(ref.Symbol); sym != "" {
		return sym
	}
	if s.Prices == nil || c.DEXScreenerID == "" {
		return ""
	}
	sym, err := s.Prices.LookupSymbol(ctx, c.DEXScreenerID, ref.Address)
	if err != nil {
		s.Logger.Debug("Symbol lookup failed", "chain", c.ID, "token", ref.Address, "error", err)
		return ""
	}
	return sym
}

func (s *Session) scanTokens(ctx context.Context, chainID, accountRef string) error {
	c, adapter, err := s.chainAdapter(chainID)
	if err != nil {
		return err
	}

	address := ""
	if i, ok := s.state.FindAccount(string(c.Family), accountRef); ok {
		address = s.state.Accounts[i].Address
	} else if address, err = adapter.NormalizeAddress(accountRef); err != nil {
		return &entity.ValidationError{Field: "account", Value: accountRef, Reason: "neither a tracked alias nor a valid address"}
	}

	s.printf("Scanning %s on %s...\n", accountRef, c.Name)
	refs, err := adapter.DiscoverTokens(ctx, c.Endpoint(), address)
	if errors.Is(err, entity.ErrUnsupported) {
		return fmt.Errorf("token scan is not available on %s chains, add tokens with `token add`: %w", c.Family, err)
	}
	if err != nil {
		return err
	}

	var added []string
	skipped := 0
	for _, ref := range refs {
		if s.state.HasToken(c.ID, ref.Address) {
			continue
		}
		tok := entity.Token{ChainID: c.ID, Address: ref.Address, Symbol: s.symbolFor(ctx, c, ref), Decimals: ref.Decimals, Discovered: true}
		if err := s.state.AddToken(tok); err != nil {
			s.Logger.Debug("Skipping discovered token", "chain", c.ID, "token", ref.Address, "error", err)
			skipped++
			continue
		}
		added = append(added, tok.Symbol)
	}
	if len(added) > 0 {
		s.markDirty()
	}
	s.printf("Found %s, added %d new", plural(len(refs), "token"), len(added))
	if len(added) > 0 {
		s.printf(": %s", strings.Join(added, ", "))
	}
	if skipped > 0 {
		s.printf(" (%d without a symbol skipped)", skipped)
	}
	s.printf(".\n")
	return nil
}

func (s *Session) importTokens(chainID, path string) error {
	c, adapter, err := s.chainAdapter(chainID)
	if err != nil {
		return err
	}
	tokens, skipped, err := s.Tokens.LoadTokens(path, c, adapter)
	if err != nil {
		return err
	}

	added := 0
	for _, tok := range tokens {
		if err := s.state.AddToken(tok); err != nil {
			if !errors.Is(err, entity.ErrValidation) {
				return err
			}
			skipped++
			continue
		}
		added++
	}
	if added > 0 {
		s.markDirty()
	}
	s.printf("Imported %s on %s, skipped %d.\n", plural(added, "token"), c.Name, skipped)
	return nil
}

func (s *Session) listTokens(chainID string) {
	t := newTable(s.out(), "Chain", "Symbol", "Decimals", "Address", "Source")
	n := 0
	for _, tok := range s.state.Tokens {
		if chainID != "" && tok.ChainID != chainID {
			continue
		}
		source := "manual"
		if tok.Discovered {
			source = "scan"
		}
		t.Append([]string{tok.ChainID, tok.Symbol, strconv.Itoa(int(tok.Decimals)), tok.Address, source})
		n++
	}
	if n == 0 {
		s.printf("No tokens tracked. Add one with `token add <chain> <address>`.\n")
		return
	}
	t.Render()
}
