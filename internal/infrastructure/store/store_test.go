package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/pkg/logger"
)

func newTestStore() *FileStore {
	return New(configloader.StoreConfig{ScryptN: keystore.LightScryptN, ScryptP: keystore.LightScryptP}, logger.NewSlogAdapter())
}

func sampleState(t *testing.T) *entity.State {
	t.Helper()
	st := entity.NewState([]entity.Chain{
		{
			ID: "ethereum", Family: entity.FamilyEVM, Name: "Ethereum", RPCURL: "https://eth.llamarpc.com", Enabled: true,
			DEXScreenerID: "ethereum",
			Native:        entity.NativeCurrency{Symbol: "ETH", Decimals: 18, PriceChainID: "ethereum", PriceAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
		},
		{
			ID: "solana", Family: entity.FamilySolana, Name: "Solana", RPCURL: "https://api.mainnet-beta.solana.com",
			DEXScreenerID: "solana",
			Native:        entity.NativeCurrency{Symbol: "SOL", Decimals: 9},
		},
	})
	require.NoError(t, st.AddAccount(entity.Account{Family: entity.FamilyEVM, Address: "0x000000000000000000000000000000000000dEaD", Alias: "burn"}))
	require.NoError(t, st.AddToken(entity.Token{ChainID: "ethereum", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6}))
	require.NoError(t, st.SetChainAPIKey("ethereum", "secret-key"))
	return st
}

func TestRoundTripPlaintext(t *testing.T) {
	s := newTestStore()
	path := filepath.Join(t.TempDir(), "nested", ".bop-data")
	st := sampleState(t)

	require.NoError(t, s.Persist(st, path, ""))

	info, err := s.Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, info.Version)
	assert.False(t, info.Encrypted)

	loaded, err := s.Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, st, loaded)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

func TestRoundTripEncrypted(t *testing.T) {
	s := newTestStore()
	path := filepath.Join(t.TempDir(), ".bop-data")
	st := sampleState(t)

	require.NoError(t, s.Persist(st, path, "correct horse"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-key")
	assert.NotContains(t, string(raw), "USDC")

	info, err := s.Inspect(path)
	require.NoError(t, err)
	assert.True(t, info.Encrypted)

	loaded, err := s.Load(path, "correct horse")
	require.NoError(t, err)
	assert.True(t, loaded.Settings.PasswordEnabled)
	loaded.Settings.PasswordEnabled = false
	assert.Equal(t, st, loaded)
}

func TestPasswordFlagFollowsEnvelope(t *testing.T) {
	s := newTestStore()
	path := filepath.Join(t.TempDir(), ".bop-data")

	st := sampleState(t)
	st.Settings.PasswordEnabled = true
	require.NoError(t, s.Persist(st, path, ""))
	loaded, err := s.Load(path, "")
	require.NoError(t, err)
	assert.False(t, loaded.Settings.PasswordEnabled)
	// the caller's state is not touched
	assert.True(t, st.Settings.PasswordEnabled)

	st.Settings.PasswordEnabled = false
	require.NoError(t, s.Persist(st, path, "pw"))
	loaded, err = s.Load(path, "pw")
	require.NoError(t, err)
	assert.True(t, loaded.Settings.PasswordEnabled)

	loaded.Settings.PasswordEnabled = false
	assert.Equal(t, st, loaded)
}

func TestLoadRejectsDuplicateEntries(t *testing.T) {
	s := newTestStore()
	dir := t.TempDir()

	dupAccount := sampleState(t)
	dupAccount.Accounts = append(dupAccount.Accounts, entity.Account{Family: entity.FamilyEVM, Address: "0x000000000000000000000000000000000000dead"})
	dupToken := sampleState(t)
	dupToken.Tokens = append(dupToken.Tokens, dupToken.Tokens[0])

	for name, st := range map[string]*entity.State{"account": dupAccount, "token": dupToken} {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(envelope{Version: FormatVersion, State: st})
			require.NoError(t, err)
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, data, 0o600))

			_, err = s.Load(path, "")
			assert.ErrorIs(t, err, entity.ErrCorruption)
			assert.ErrorIs(t, s.Persist(st, path, ""), entity.ErrDuplicate)
		})
	}
}

func TestWrongPassword(t *testing.T) {
	s := newTestStore()
	path := filepath.Join(t.TempDir(), ".bop-data")
	require.NoError(t, s.Persist(sampleState(t), path, "right"))

	_, err := s.Load(path, "wrong")
	assert.ErrorIs(t, err, entity.ErrAuth)
	assert.NotErrorIs(t, err, entity.ErrCorruption)

	_, err = s.Load(path, "")
	assert.ErrorIs(t, err, entity.ErrAuth)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := newTestStore().Load(filepath.Join(t.TempDir(), "absent"), "")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestLoadCorruptionAndVersion(t *testing.T) {
	s := newTestStore()
	dir := t.TempDir()

	cases := map[string]struct {
		body string
		want error
	}{
		"garbage":        {"not json at all", entity.ErrCorruption},
		"future version": {`{"version":2,"encrypted":false,"state":{}}`, entity.ErrVersion},
		"no state":       {`{"version":1,"encrypted":false}`, entity.ErrCorruption},
		"no crypto":      {`{"version":1,"encrypted":true}`, entity.ErrCorruption},
		"invalid state":  {`{"version":1,"encrypted":false,"state":{"chains":[{"id":"x","family":"btc"}]}}`, entity.ErrCorruption},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_"))
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o600))
			_, err := s.Load(path, "pw")
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// ErrVersion is a kind of corruption
	assert.ErrorIs(t, entity.ErrVersion, entity.ErrCorruption)
}

func TestTamperedCiphertextIsAuthFailure(t *testing.T) {
	s := newTestStore()
	path := filepath.Join(t.TempDir(), ".bop-data")
	require.NoError(t, s.Persist(sampleState(t), path, "pw"))

	env, err := s.read(path)
	require.NoError(t, err)
	ct := []byte(env.Crypto.CipherText)
	if ct[0] == 'a' {
		ct[0] = 'b'
	} else {
		ct[0] = 'a'
	}
	env.Crypto.CipherText = string(ct)
	data, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = s.Load(path, "pw")
	assert.ErrorIs(t, err, entity.ErrAuth)
}

func TestInterruptedWriteKeepsPreviousFile(t *testing.T) {
	s := newTestStore()
	dir := t.TempDir()
	path := filepath.Join(dir, ".bop-data")

	first := sampleState(t)
	require.NoError(t, s.Persist(first, path, "pw"))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	second := first.Clone()
	require.NoError(t, second.SetChainRPC("ethereum", "https://example.org/rpc"))

	s.beforeRename = func(string) error { return errors.New("power loss") }
	err = s.Persist(second, path, "pw")
	var ioErr *entity.IOError
	require.ErrorAs(t, err, &ioErr)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be removed")

	s.beforeRename = nil
	loaded, err := s.Load(path, "pw")
	require.NoError(t, err)
	assert.Equal(t, "https://eth.llamarpc.com", loaded.Chains[0].RPCURL)
}

func TestPersistRejectsInvalidState(t *testing.T) {
	s := newTestStore()
	path := filepath.Join(t.TempDir(), ".bop-data")
	st := sampleState(t)
	st.Chains[0].RPCURL = "ftp://nope"

	err := s.Persist(st, path, "")
	assert.ErrorIs(t, err, entity.ErrValidation)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExportRawIsPlaintext(t *testing.T) {
	s := newTestStore()
	st := sampleState(t)
	st.Settings.PasswordEnabled = true

	data, err := s.ExportRaw(st)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"secret-key"`)
	assert.Contains(t, string(data), "\n  ")
}
