package entity

import (
	"fmt"
	"strings"
)

// Settings are global, user-level options stored with the state.
type Settings struct {
	// PasswordEnabled mirrors the file envelope: the store sets it on every load and save.
	PasswordEnabled bool `json:"passwordEnabled"`
}

// State is the canonical model persisted by the store and edited by the session.
type State struct {
	Chains   []Chain   `json:"chains"`
	Accounts []Account `json:"accounts"`
	Tokens   []Token   `json:"tokens"`
	Settings Settings  `json:"settings"`
}

// NewState seeds a state with the given chain catalog.
func NewState(catalog []Chain) *State {
	s := &State{
		Chains:   make([]Chain, len(catalog)),
		Accounts: []Account{},
		Tokens:   []Token{},
	}
	copy(s.Chains, catalog)
	return s
}

// Clone returns a deep copy. None of the nested types hold pointers, so copying slices is enough.
func (s *State) Clone() *State {
	c := &State{
		Chains:   make([]Chain, len(s.Chains)),
		Accounts: make([]Account, len(s.Accounts)),
		Tokens:   make([]Token, len(s.Tokens)),
		Settings: s.Settings,
	}
	copy(c.Chains, s.Chains)
	copy(c.Accounts, s.Accounts)
	copy(c.Tokens, s.Tokens)
	return c
}

// Chain looks a chain up by id.
func (s *State) Chain(id string) (*Chain, bool) {
	id = ChainIDFromName(id)
	for i := range s.Chains {
		if s.Chains[i].ID == id {
			return &s.Chains[i], true
		}
	}
	return nil, false
}

// EnabledChains returns enabled chains in catalog order.
func (s *State) EnabledChains() []Chain {
	out := make([]Chain, 0, len(s.Chains))
	for _, c := range s.Chains {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// ChainsByFamily returns every chain of a family in catalog order.
func (s *State) ChainsByFamily(f ChainFamily) []Chain {
	var out []Chain
	for _, c := range s.Chains {
		if c.Family == f {
			out = append(out, c)
		}
	}
	return out
}

// AccountsFor returns the accounts queried on a chain, in insertion order.
func (s *State) AccountsFor(c Chain) []Account {
	var out []Account
	for _, a := range s.Accounts {
		if a.AppliesTo(c) {
			out = append(out, a)
		}
	}
	return out
}

// TokensForChain returns the tokens tracked on a chain, in insertion order.
func (s *State) TokensForChain(chainID string) []Token {
	var out []Token
	for _, t := range s.Tokens {
		if t.ChainID == chainID {
			out = append(out, t)
		}
	}
	return out
}

// FindAccount resolves an account by alias or address within a scope (family name or chain id).
func (s *State) FindAccount(scope, ref string) (int, bool) {
	scope = strings.ToLower(scope)
	for i, a := range s.Accounts {
		if scope != "" && a.Scope() != scope && string(a.Family) != scope {
			continue
		}
		if (a.Alias != "" && strings.EqualFold(a.Alias, ref)) || SameAddress(a.Family, a.Address, ref) {
			return i, true
		}
	}
	return -1, false
}

// AddAccount appends an account whose address was already validated and normalized.
// An address may be tracked once per chain: a family-wide entry overlaps every chain of the family.
func (s *State) AddAccount(a Account) error {
	if err := ValidateAlias(a.Alias); err != nil {
		return err
	}
	if a.ChainID != "" {
		c, ok := s.Chain(a.ChainID)
		if !ok {
			return &ValidationError{Field: "chain", Value: a.ChainID, Reason: "unknown chain"}
		}
		if c.Family != a.Family {
			return &ValidationError{Field: "chain", Value: a.ChainID, Reason: fmt.Sprintf("is not a %s chain", a.Family)}
		}
	}
	for _, existing := range s.Accounts {
		if existing.Family != a.Family || !SameAddress(a.Family, existing.Address, a.Address) {
			continue
		}
		if existing.ChainID == "" || a.ChainID == "" || existing.ChainID == a.ChainID {
			return fmt.Errorf("account %s on %s: %w", a.Address, existing.Scope(), ErrDuplicate)
		}
	}
	if a.Alias != "" {
		for _, existing := range s.Accounts {
			if strings.EqualFold(existing.Alias, a.Alias) {
				return fmt.Errorf("alias %q: %w", a.Alias, ErrDuplicate)
			}
		}
	}
	s.Accounts = append(s.Accounts, a)
	return nil
}

// RemoveAccount deletes the account matching ref (alias or address) in scope.
func (s *State) RemoveAccount(scope, ref string) (Account, error) {
	i, ok := s.FindAccount(scope, ref)
	if !ok {
		return Account{}, &ValidationError{Field: "account", Value: ref, Reason: "not tracked"}
	}
	removed := s.Accounts[i]
	s.Accounts = append(s.Accounts[:i], s.Accounts[i+1:]...)
	return removed, nil
}

// FindToken resolves a token on a chain by address or symbol.
func (s *State) FindToken(chainID, ref string) (int, bool) {
	family := FamilyEVM
	if c, ok := s.Chain(chainID); ok {
		family = c.Family
	}
	for i, t := range s.Tokens {
		if t.ChainID != chainID {
			continue
		}
		if SameAddress(family, t.Address, ref) || strings.EqualFold(t.Symbol, ref) {
			return i, true
		}
	}
	return -1, false
}

// HasToken reports whether (chain, address) is already tracked.
func (s *State) HasToken(chainID, address string) bool {
	c, ok := s.Chain(chainID)
	if !ok {
		return false
	}
	for _, t := range s.Tokens {
		if t.ChainID == c.ID && SameAddress(c.Family, t.Address, address) {
			return true
		}
	}
	return false
}

// AddToken appends a token; (chain, address) must be unique.
func (s *State) AddToken(t Token) error {
	c, ok := s.Chain(t.ChainID)
	if !ok {
		return &ValidationError{Field: "chain", Value: t.ChainID, Reason: "unknown chain"}
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return &ValidationError{Field: "symbol", Value: t.Address, Reason: "empty symbol"}
	}
	if s.HasToken(c.ID, t.Address) {
		return fmt.Errorf("token %s on %s: %w", t.Address, c.ID, ErrDuplicate)
	}
	t.ChainID = c.ID
	s.Tokens = append(s.Tokens, t)
	return nil
}

// RemoveToken deletes a token by address or symbol.
func (s *State) RemoveToken(chainID, ref string) (Token, error) {
	i, ok := s.FindToken(ChainIDFromName(chainID), ref)
	if !ok {
		return Token{}, &ValidationError{Field: "token", Value: ref, Reason: "not tracked on " + chainID}
	}
	removed := s.Tokens[i]
	s.Tokens = append(s.Tokens[:i], s.Tokens[i+1:]...)
	return removed, nil
}

// SetChainEnabled flips one chain.
func (s *State) SetChainEnabled(id string, enabled bool) error {
	c, ok := s.Chain(id)
	if !ok {
		return &ValidationError{Field: "chain", Value: id, Reason: "unknown chain"}
	}
	c.Enabled = enabled
	return nil
}

// SetFamilyEnabled flips every chain of a family and returns how many changed.
func (s *State) SetFamilyEnabled(f ChainFamily, enabled bool) int {
	n := 0
	for i := range s.Chains {
		if s.Chains[i].Family == f && s.Chains[i].Enabled != enabled {
			s.Chains[i].Enabled = enabled
			n++
		}
	}
	return n
}

// SetChainRPC overrides the RPC endpoint after validating it.
func (s *State) SetChainRPC(id, rawURL string) error {
	c, ok := s.Chain(id)
	if !ok {
		return &ValidationError{Field: "chain", Value: id, Reason: "unknown chain"}
	}
	if err := ValidateRPCURL(rawURL); err != nil {
		return err
	}
	c.RPCURL = strings.TrimSpace(rawURL)
	return nil
}

// SetChainAPIKey stores an API key sent with every request to the chain. Empty clears it.
func (s *State) SetChainAPIKey(id, key string) error {
	c, ok := s.Chain(id)
	if !ok {
		return &ValidationError{Field: "chain", Value: id, Reason: "unknown chain"}
	}
	c.APIKey = strings.TrimSpace(key)
	return nil
}

// MergeCatalog adds built-in chains missing from a loaded state and refreshes
// the metadata users cannot edit. RPC endpoints, keys and enabled flags are kept.
func (s *State) MergeCatalog(catalog []Chain) {
	for _, def := range catalog {
		c, ok := s.Chain(def.ID)
		if !ok {
			s.Chains = append(s.Chains, def)
			continue
		}
		c.Name = def.Name
		c.Family = def.Family
		c.DEXScreenerID = def.DEXScreenerID
		c.Native = def.Native
	}
}

// Validate checks every invariant that must hold before the state is written.
func (s *State) Validate() error {
	seen := make(map[string]struct{}, len(s.Chains))
	for _, c := range s.Chains {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("chain %s: %w", c.ID, err)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("chain %s: %w", c.ID, ErrDuplicate)
		}
		seen[c.ID] = struct{}{}
	}
	for _, a := range s.Accounts {
		if a.Address == "" {
			return &ValidationError{Field: "account", Reason: "empty address"}
		}
		if err := ValidateAlias(a.Alias); err != nil {
			return err
		}
		if a.ChainID != "" {
			if _, ok := seen[a.ChainID]; !ok {
				return &ValidationError{Field: "account.chain", Value: a.ChainID, Reason: "unknown chain"}
			}
		}
	}
	for i, a := range s.Accounts {
		for _, prev := range s.Accounts[:i] {
			if prev.Family != a.Family || !SameAddress(a.Family, prev.Address, a.Address) {
				continue
			}
			if prev.ChainID == "" || a.ChainID == "" || prev.ChainID == a.ChainID {
				return fmt.Errorf("account %s on %s: %w", a.Address, a.Scope(), ErrDuplicate)
			}
		}
	}
	for i, t := range s.Tokens {
		if _, ok := seen[t.ChainID]; !ok {
			return &ValidationError{Field: "token.chain", Value: t.ChainID, Reason: "unknown chain"}
		}
		if t.Address == "" {
			return &ValidationError{Field: "token", Value: t.Symbol, Reason: "empty address"}
		}
		family := FamilyEVM
		if c, ok := s.Chain(t.ChainID); ok {
			family = c.Family
		}
		for _, prev := range s.Tokens[:i] {
			if prev.ChainID == t.ChainID && SameAddress(family, prev.Address, t.Address) {
				return fmt.Errorf("token %s on %s: %w", t.Address, t.ChainID, ErrDuplicate)
			}
		}
	}
	return nil
}
