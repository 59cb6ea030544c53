package session

import (
	"context"
	"fmt"
	"strings"

	"portfolio_tracker/internal/domain/entity"
)

func (s *Session) chain(_ context.Context, args []string) error {
	if len(args) == 0 || (len(args) == 1 && args[0] == "list") {
		s.listChains()
		return nil
	}
	if len(args) == 1 {
		return s.showChain(args[0])
	}

	sub, id := strings.ToLower(args[0]), args[1]
	switch sub {
	case "show":
		if len(args) != 2 {
			return usage("chain show <chain>")
		}
		return s.showChain(id)
	case "enable", "disable", "toggle":
		if len(args) != 2 {
			return usage("chain " + sub + " <chain>")
		}
		c, ok := s.state.Chain(id)
		if !ok {
			return unknownChain(id)
		}
		enabled := sub == "enable" || (sub == "toggle" && !c.Enabled)
		if err := s.state.SetChainEnabled(c.ID, enabled); err != nil {
			return err
		}
		s.markDirty()
		s.printf("%s is now %s.\n", c.Name, onOff(enabled))
		return nil
	case "toggle-all":
		return s.toggleFamily(args[1:])
	case "set-rpc", "set":
		if len(args) != 3 {
			return usage("chain set-rpc <chain> <url>")
		}
		if err := s.state.SetChainRPC(id, args[2]); err != nil {
			return err
		}
		s.markDirty()
		s.printf("RPC of %s set to %s.\n", id, args[2])
		return nil
	case "reset-rpc", "rm":
		if len(args) != 2 {
			return usage("chain reset-rpc <chain>")
		}
		def, ok := s.catalogChain(id)
		if !ok {
			return &entity.ValidationError{Field: "chain", Value: id, Reason: "no built-in RPC to restore"}
		}
		if err := s.state.SetChainRPC(def.ID, def.RPCURL); err != nil {
			return err
		}
		s.markDirty()
		s.printf("RPC of %s restored to %s.\n", def.Name, def.RPCURL)
		return nil
	case "key":
		if len(args) != 2 && len(args) != 3 {
			return usage("chain key <chain> [token]")
		}
		key := ""
		if len(args) == 3 {
			key = args[2]
		}
		if err := s.state.SetChainAPIKey(id, key); err != nil {
			return err
		}
		s.markDirty()
		if key == "" {
			s.printf("API key of %s cleared.\n", id)
		} else {
			s.printf("API key of %s set.\n", id)
		}
		return nil
	}
	return usage("chain [list | show | enable | disable | toggle | toggle-all | set-rpc | reset-rpc | key]")
}

func (s *Session) toggleFamily(args []string) error {
	if len(args) != 1 && len(args) != 2 {
		return usage("chain toggle-all <family> [on|off]")
	}
	family, err := entity.ParseChainFamily(args[0])
	if err != nil {
		return err
	}

	var enabled bool
	if len(args) == 2 {
		switch strings.ToLower(args[1]) {
		case "on":
			enabled = true
		case "off":
		default:
			return usage("chain toggle-all <family> [on|off]")
		}
	} else {
		// без аргумента: выключаем, если хоть одна сеть включена
		enabled = true
		for _, c := range s.state.ChainsByFamily(family) {
			if c.Enabled {
				enabled = false
				break
			}
		}
	}

	n := s.state.SetFamilyEnabled(family, enabled)
	if n > 0 {
		s.markDirty()
	}
	s.printf("%d %s chains turned %s.\n", n, family, onOff(enabled))
	return nil
}

func (s *Session) listChains() {
	t := newTable(s.out(), "ID", "Name", "Family", "Native", "Enabled", "RPC")
	for _, c := range s.state.Chains {
		t.Append([]string{c.ID, c.Name, string(c.Family), c.Native.Symbol, onOff(c.Enabled), s.rpcLabel(c)})
	}
	t.Render()
}

func (s *Session) showChain(id string) error {
	c, ok := s.state.Chain(id)
	if !ok {
		return unknownChain(id)
	}
	key := "not set"
	if c.APIKey != "" {
		key = "set"
	}
	s.printf("%s\n  id: %s\n  family: %s\n  native: %s (%d decimals)\n  enabled: %s\n  rpc: %s\n  api key: %s\n  accounts: %d, tokens: %d\n",
		c.Name, c.ID, c.Family, c.Native.Symbol, c.Native.Decimals, onOff(c.Enabled), s.rpcLabel(*c), key,
		len(s.state.AccountsFor(*c)), len(s.state.TokensForChain(c.ID)))
	return nil
}

func (s *Session) rpcLabel(c entity.Chain) string {
	if def, ok := s.catalogChain(c.ID); ok && def.RPCURL != c.RPCURL {
		return c.RPCURL + " (custom)"
	}
	return c.RPCURL
}

func (s *Session) catalogChain(id string) (entity.Chain, bool) {
	id = entity.ChainIDFromName(id)
	for _, c := range s.Catalog {
		if c.ID == id {
			return c, true
		}
	}
	return entity.Chain{}, false
}

func unknownChain(id string) error {
	return &entity.ValidationError{Field: "chain", Value: id, Reason: "unknown chain, see `chain list`"}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// resolveScope accepts a family name or a chain id.
func (s *Session) resolveScope(scope string) (entity.ChainFamily, string, error) {
	if family, err := entity.ParseChainFamily(scope); err == nil {
		return family, "", nil
	}
	c, ok := s.state.Chain(scope)
	if !ok {
		return "", "", &entity.ValidationError{Field: "scope", Value: scope, Reason: "expected a family (evm, sol, ton) or a chain id"}
	}
	return c.Family, c.ID, nil
}

func (s *Session) chainArg(id string) (entity.Chain, error) {
	c, ok := s.state.Chain(id)
	if !ok {
		return entity.Chain{}, unknownChain(id)
	}
	return *c, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
