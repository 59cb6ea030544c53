package session

import (
	"context"
	"errors"
	"strings"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"
)

func (s *Session) account(_ context.Context, args []string) error {
	if len(args) == 0 || (len(args) == 1 && args[0] == "list") {
		s.listAccounts()
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) != 3 && len(args) != 4 {
			return usage("account add <family|chain> <address> [alias]")
		}
		alias := ""
		if len(args) == 4 {
			alias = args[3]
		}
		return s.addAccount(args[1], args[2], alias)
	case "rm":
		switch len(args) {
		case 2:
			return s.removeAccount("", args[1])
		case 3:
			return s.removeAccount(args[1], args[2])
		}
		return usage("account rm [family|chain] <address|alias>")
	case "import":
		if len(args) != 3 {
			return usage("account import <family> <file>")
		}
		return s.importAccounts(args[1], args[2])
	}
	return usage("account [list | add | rm | import]")
}

func (s *Session) addAccount(scope, address, alias string) error {
	family, chainID, err := s.resolveScope(scope)
	if err != nil {
		return err
	}
	adapter, err := s.Adapters.For(family)
	if err != nil {
		return err
	}
	addr, err := adapter.NormalizeAddress(address)
	if err != nil {
		return err
	}

	acc := entity.Account{Family: family, ChainID: chainID, Address: addr, Alias: alias}
	if err := s.state.AddAccount(acc); err != nil {
		return err
	}
	s.markDirty()
	s.Logger.Info("Account added", "scope", acc.Scope(), "address", addr)
	s.printf("Tracking %s on %s.\n", acc.Label(), acc.Scope())
	return nil
}

func (s *Session) removeAccount(scope, ref string) error {
	if scope != "" {
		if _, _, err := s.resolveScope(scope); err != nil {
			return err
		}
		scope = entity.ChainIDFromName(scope)
		if family, err := entity.ParseChainFamily(scope); err == nil {
			scope = string(family)
		}
	}
	removed, err := s.state.RemoveAccount(scope, ref)
	if err != nil {
		return err
	}
	s.markDirty()
	s.printf("Stopped tracking %s on %s.\n", removed.Label(), removed.Scope())
	return nil
}

func (s *Session) importAccounts(familyArg, path string) error {
	family, err := entity.ParseChainFamily(familyArg)
	if err != nil {
		return err
	}
	adapter, err := s.Adapters.For(family)
	if err != nil {
		return err
	}
	accounts, skipped, err := s.Accounts.LoadAccounts(path, family, adapter)
	if err != nil {
		return err
	}

	added := 0
	for _, acc := range accounts {
		if err := s.state.AddAccount(acc); err != nil {
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
	s.printf("Imported %s, skipped %d.\n", plural(added, "account"), skipped)
	return nil
}

func (s *Session) listAccounts() {
	if len(s.state.Accounts) == 0 {
		s.printf("No accounts tracked. Add one with `account add <family|chain> <address> [alias]`.\n")
		return
	}
	t := newTable(s.out(), "Scope", "Alias", "Address")
	for _, a := range s.state.Accounts {
		t.Append([]string{a.Scope(), a.Alias, a.Address})
	}
	t.Render()
}

// accountLabel is the short form used in the balance table.
func accountLabel(alias, address string) string {
	if alias != "" {
		return alias
	}
	return utils.ShortAddress(address)
}
