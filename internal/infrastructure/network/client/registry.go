package client

import (
	"fmt"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

// Registry selects the chain adapter for a family.
type Registry struct {
	adapters map[entity.ChainFamily]port.ChainAdapter
}

// NewRegistry indexes adapters by their family. A later adapter replaces an earlier one.
func NewRegistry(adapters ...port.ChainAdapter) *Registry {
	r := &Registry{adapters: make(map[entity.ChainFamily]port.ChainAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Family()] = a
	}
	return r
}

// NewDefaultRegistry wires the EVM, Solana and TON adapters over one transport.
func NewDefaultRegistry(t port.Transport, logger port.Logger) *Registry {
	return NewRegistry(
		NewEVMClient(t, logger),
		NewSolanaClient(t, logger),
		NewTONClient(t, logger),
	)
}

var _ port.AdapterRegistry = (*Registry)(nil)

// For implements port.AdapterRegistry.
func (r *Registry) For(family entity.ChainFamily) (port.ChainAdapter, error) {
	a, ok := r.adapters[family]
	if !ok {
		return nil, fmt.Errorf("no adapter for chain family %q: %w", family, entity.ErrUnsupported)
	}
	return a, nil
}
