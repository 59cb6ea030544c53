package port

import "portfolio_tracker/internal/domain/entity"

// StoreFileInfo is what can be learned from a store file without the password.
type StoreFileInfo struct {
	Version   int
	Encrypted bool
}

// StateStore owns the on-disk representation of the state.
type StateStore interface {
	Inspect(path string) (StoreFileInfo, error)
	Load(path, password string) (*entity.State, error)
	// Persist replaces the file atomically; on error the previous file is untouched.
	Persist(state *entity.State, path, password string) error
	ExportRaw(state *entity.State) ([]byte, error)
}
