package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	jsoniter "github.com/json-iterator/go"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FormatVersion is the only envelope version this build reads and writes.
const FormatVersion = 1

// envelope is the on-disk document. Exactly one of Crypto and State is set.
type envelope struct {
	Version   int                  `json:"version"`
	Encrypted bool                 `json:"encrypted"`
	Crypto    *keystore.CryptoJSON `json:"crypto,omitempty"`
	State     *entity.State        `json:"state,omitempty"`
}

// FileStore implements port.StateStore as a single JSON file. Encrypted payloads use the
// Web3 Secret Storage cipher suite: scrypt, AES-128-CTR and a keccak MAC.
type FileStore struct {
	scryptN int
	scryptP int
	logger  port.Logger

	// beforeRename runs after the temp file is complete and before it replaces the target.
	beforeRename func(tmpPath string) error
}

// New creates the store with the scrypt cost from cfg.
func New(cfg configloader.StoreConfig, logger port.Logger) *FileStore {
	n, p := cfg.ScryptN, cfg.ScryptP
	if n <= 0 {
		n = keystore.StandardScryptN
	}
	if p <= 0 {
		p = keystore.StandardScryptP
	}
	return &FileStore{scryptN: n, scryptP: p, logger: logger}
}

var _ port.StateStore = (*FileStore)(nil)

func (s *FileStore) read(path string) (envelope, error) {
	var env envelope
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return env, fmt.Errorf("%s: %w", path, entity.ErrNotFound)
	}
	if err != nil {
		return env, &entity.IOError{Op: "read", Path: path, Err: err}
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%s: %w: %v", path, entity.ErrCorruption, err)
	}
	if env.Version != FormatVersion {
		return env, fmt.Errorf("%s has version %d: %w", path, env.Version, entity.ErrVersion)
	}
	return env, nil
}

// Inspect implements port.StateStore.
func (s *FileStore) Inspect(path string) (port.StoreFileInfo, error) {
	env, err := s.read(path)
	if err != nil {
		return port.StoreFileInfo{}, err
	}
	return port.StoreFileInfo{Version: env.Version, Encrypted: env.Encrypted}, nil
}

// Load implements port.StateStore. A wrong password is ErrAuth, anything unreadable ErrCorruption.
func (s *FileStore) Load(path, password string) (*entity.State, error) {
	env, err := s.read(path)
	if err != nil {
		return nil, err
	}

	var st *entity.State
	if env.Encrypted {
		if env.Crypto == nil {
			return nil, fmt.Errorf("%s: %w: encrypted file without crypto section", path, entity.ErrCorruption)
		}
		if password == "" {
			return nil, fmt.Errorf("password required: %w", entity.ErrAuth)
		}
		payload, err := keystore.DecryptDataV3(*env.Crypto, password)
		if errors.Is(err, keystore.ErrDecrypt) {
			return nil, fmt.Errorf("wrong password: %w", entity.ErrAuth)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", path, entity.ErrCorruption, err)
		}
		st = new(entity.State)
		if err := json.Unmarshal(payload, st); err != nil {
			return nil, fmt.Errorf("%s: %w: decrypted payload: %v", path, entity.ErrCorruption, err)
		}
	} else {
		if env.State == nil {
			return nil, fmt.Errorf("%s: %w: missing state", path, entity.ErrCorruption)
		}
		st = env.State
	}

	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, entity.ErrCorruption, err)
	}
	st.Settings.PasswordEnabled = env.Encrypted
	s.logger.Debug("State loaded", "path", path, "encrypted", env.Encrypted,
		"chains", len(st.Chains), "accounts", len(st.Accounts), "tokens", len(st.Tokens))
	return st, nil
}

// Persist implements port.StateStore. An empty password writes plaintext.
func (s *FileStore) Persist(state *entity.State, path, password string) error {
	if err := state.Validate(); err != nil {
		return err
	}
	st := state.Clone()
	st.Settings.PasswordEnabled = password != ""

	env := envelope{Version: FormatVersion, Encrypted: password != ""}
	if env.Encrypted {
		payload, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("failed to encode state: %w", err)
		}
		crypto, err := keystore.EncryptDataV3(payload, []byte(password), s.scryptN, s.scryptP)
		if err != nil {
			return fmt.Errorf("failed to encrypt state: %w", err)
		}
		env.Crypto = &crypto
	} else {
		env.State = st
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store file: %w", err)
	}
	if err := s.writeAtomic(path, data); err != nil {
		return err
	}
	s.logger.Info("State saved", "path", path, "encrypted", env.Encrypted)
	return nil
}

// ExportRaw implements port.StateStore: indented plaintext, whatever the file encryption.
func (s *FileStore) ExportRaw(state *entity.State) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

// writeAtomic writes data next to path and renames it over path.
// Until the rename the previous file stays intact; on failure the temp file is removed.
func (s *FileStore) writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return &entity.IOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return &entity.IOError{Op: "create", Path: dir, Err: err}
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return &entity.IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err = tmp.Sync(); err != nil {
		return &entity.IOError{Op: "sync", Path: tmpPath, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &entity.IOError{Op: "close", Path: tmpPath, Err: err}
	}
	if err = os.Chmod(tmpPath, 0o600); err != nil {
		return &entity.IOError{Op: "chmod", Path: tmpPath, Err: err}
	}
	if s.beforeRename != nil {
		if err = s.beforeRename(tmpPath); err != nil {
			return &entity.IOError{Op: "write", Path: tmpPath, Err: err}
		}
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return &entity.IOError{Op: "rename", Path: path, Err: err}
	}

	// the rename is durable once the directory entry is flushed
	if d, derr := os.Open(dir); derr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
