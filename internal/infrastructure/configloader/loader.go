package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// AppDirName is the directory created under the user config dir.
	AppDirName = "portfolio_tracker"
	// DataFileName is the store file name inside AppDirName.
	DataFileName = ".bop-data"
	// EnvPrefix prefixes every environment override, e.g. BOP_DATA_PATH.
	EnvPrefix = "BOP"
)

// StoreConfig holds store-specific configurations.
type StoreConfig struct {
	Path    string `yaml:"path"`
	ScryptN int    `yaml:"scryptN"`
	ScryptP int    `yaml:"scryptP"`
	// PasswordEnv names the variable consulted before prompting for the password.
	PasswordEnv string `yaml:"passwordEnv"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// TransportConfig holds network client configurations.
type TransportConfig struct {
	RequestTimeoutSeconds int     `yaml:"requestTimeoutSeconds"`
	MaxRetries            int     `yaml:"maxRetries"`
	BackoffBaseMillis     int     `yaml:"backoffBaseMillis"`
	RatePerSecond         float64 `yaml:"ratePerSecond"`
	Burst                 int     `yaml:"burst"`
	ClientIdleMinutes     int     `yaml:"clientIdleMinutes"`
}

// EngineConfig holds aggregation settings.
type EngineConfig struct {
	MaxConcurrency      int  `yaml:"maxConcurrency"`
	ExcludeDiscovered   bool `yaml:"excludeDiscovered"`
	IncludeZeroBalances bool `yaml:"includeZeroBalances"`
}

// PriceConfig holds DEXScreener API specific configurations.
type PriceConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	MaxTokensPerRequest  int    `yaml:"maxTokensPerRequest"`
	MaxConcurrency       int    `yaml:"maxConcurrency"`
	// StableTokens maps a DEXScreener chain id to token addresses priced at 1 USD without a lookup.
	StableTokens map[string][]string `yaml:"stableTokens"`
}

// SessionConfig holds interactive session settings.
type SessionConfig struct {
	Prompt              string  `yaml:"prompt"`
	MinDisplayValue     float64 `yaml:"minDisplayValue"`
	SkipPasswordConfirm bool    `yaml:"skipPasswordConfirm"`
}

// StatusConfig holds the optional local status server settings. Empty ListenAddr disables it.
type StatusConfig struct {
	ListenAddr  string   `yaml:"listenAddr"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// Config is the top-level configuration structure.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`
	Transport TransportConfig `yaml:"transport"`
	Engine    EngineConfig    `yaml:"engine"`
	Price     PriceConfig     `yaml:"price"`
	Session   SessionConfig   `yaml:"session"`
	Status    StatusConfig    `yaml:"status"`
}

// envOverrides are applied on top of the YAML file. Nil fields were not set.
type envOverrides struct {
	DataPath       *string `envconfig:"DATA_PATH"`
	LogLevel       *string `envconfig:"LOG_LEVEL"`
	LogFile        *string `envconfig:"LOG_FILE"`
	StatusAddr     *string `envconfig:"STATUS_ADDR"`
	MaxConcurrency *int    `envconfig:"MAX_CONCURRENCY"`
	RequestTimeout *int    `envconfig:"REQUEST_TIMEOUT_SECONDS"`
	DEXScreenerURL *string `envconfig:"DEXSCREENER_URL"`
}

// DefaultDir returns the application directory under the user config dir.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, AppDirName)
}

// DefaultConfigPath is where Load looks when no path is given.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "config.yml")
}

// Load reads the YAML configuration file, applies environment overrides and fills defaults.
// A missing file is not an error: the defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
		}
	}

	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to read %s_* environment: %w", EnvPrefix, err)
	}
	env.apply(&cfg)

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (e envOverrides) apply(cfg *Config) {
	if e.DataPath != nil {
		cfg.Store.Path = *e.DataPath
	}
	if e.LogLevel != nil {
		cfg.Logging.Level = *e.LogLevel
	}
	if e.LogFile != nil {
		cfg.Logging.File = *e.LogFile
	}
	if e.StatusAddr != nil {
		cfg.Status.ListenAddr = *e.StatusAddr
	}
	if e.MaxConcurrency != nil {
		cfg.Engine.MaxConcurrency = *e.MaxConcurrency
	}
	if e.RequestTimeout != nil {
		cfg.Transport.RequestTimeoutSeconds = *e.RequestTimeout
	}
	if e.DEXScreenerURL != nil {
		cfg.Price.BaseURL = *e.DEXScreenerURL
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(DefaultDir(), DataFileName)
	}
	if cfg.Store.ScryptN <= 0 {
		cfg.Store.ScryptN = keystore.StandardScryptN
	}
	if cfg.Store.ScryptP <= 0 {
		cfg.Store.ScryptP = keystore.StandardScryptP
	}
	if cfg.Store.PasswordEnv == "" {
		cfg.Store.PasswordEnv = EnvPrefix + "_PASSWORD"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(DefaultDir(), AppDirName+".log")
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 10
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 3
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = 28
	}

	if cfg.Transport.RequestTimeoutSeconds <= 0 {
		cfg.Transport.RequestTimeoutSeconds = 15
	}
	if cfg.Transport.MaxRetries < 0 {
		cfg.Transport.MaxRetries = 0
	} else if cfg.Transport.MaxRetries == 0 {
		cfg.Transport.MaxRetries = 3
	}
	if cfg.Transport.BackoffBaseMillis <= 0 {
		cfg.Transport.BackoffBaseMillis = 500
	}
	if cfg.Transport.RatePerSecond <= 0 {
		cfg.Transport.RatePerSecond = 10
	}
	if cfg.Transport.Burst <= 0 {
		cfg.Transport.Burst = 5
	}
	if cfg.Transport.ClientIdleMinutes <= 0 {
		cfg.Transport.ClientIdleMinutes = 10
	}

	if cfg.Engine.MaxConcurrency <= 0 {
		cfg.Engine.MaxConcurrency = 16
	}

	if cfg.Price.BaseURL == "" {
		cfg.Price.BaseURL = "https://api.dexscreener.com"
	}
	cfg.Price.BaseURL = strings.TrimRight(cfg.Price.BaseURL, "/")
	if cfg.Price.RequestTimeoutMillis <= 0 {
		cfg.Price.RequestTimeoutMillis = 10000
	}
	if cfg.Price.MaxTokensPerRequest <= 0 {
		cfg.Price.MaxTokensPerRequest = 30 // DEXScreener limit
	}
	if cfg.Price.MaxConcurrency <= 0 {
		cfg.Price.MaxConcurrency = 4
	}

	if cfg.Session.Prompt == "" {
		cfg.Session.Prompt = "bop> "
	}
	if cfg.Session.MinDisplayValue < 0 {
		cfg.Session.MinDisplayValue = 0
	} else if cfg.Session.MinDisplayValue == 0 {
		cfg.Session.MinDisplayValue = 0.1
	}
}

// Validate rejects values no default can repair.
func (c *Config) Validate() error {
	if c.Price.MaxTokensPerRequest > 30 {
		return fmt.Errorf("price.maxTokensPerRequest %d exceeds the DEXScreener limit of 30", c.Price.MaxTokensPerRequest)
	}
	if c.Store.ScryptP < 1 || c.Store.ScryptN < 2 || c.Store.ScryptN&(c.Store.ScryptN-1) != 0 {
		return fmt.Errorf("store.scryptN must be a power of two > 1 and scryptP >= 1")
	}
	return nil
}

// RequestTimeout is the per-request transport timeout.
func (c TransportConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// BackoffBase is the first retry delay.
func (c TransportConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMillis) * time.Millisecond
}

// ClientIdle is how long an unused RPC client stays pooled.
func (c TransportConfig) ClientIdle() time.Duration {
	return time.Duration(c.ClientIdleMinutes) * time.Minute
}

// RequestTimeout is the DEXScreener request timeout.
func (c PriceConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMillis) * time.Millisecond
}
