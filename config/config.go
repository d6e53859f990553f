package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"payledger/crypto"
)

const (
	// EnvEnvironment overrides Config.Env.
	EnvEnvironment = "PAYLEDGER_ENV"
	// EnvJWTSecret overrides Auth.HMACSecret so the secret can stay out of
	// the config file.
	EnvJWTSecret = "PAYLEDGER_JWT_SECRET"
)

// Config is the daemon configuration.
type Config struct {
	ListenAddress   string `toml:"ListenAddress"`
	DataDir         string `toml:"DataDir"`
	ChainID         uint64 `toml:"ChainID"`
	LedgerAddress   string `toml:"LedgerAddress"`
	GenesisFile     string `toml:"GenesisFile"`
	EventLogPath    string `toml:"EventLogPath"`
	Env             string `toml:"Env"`
	LogFile         string `toml:"LogFile"`
	LogMaxSizeMB    int    `toml:"LogMaxSizeMB"`
	LogMaxBackups   int    `toml:"LogMaxBackups"`
	ReadTimeout     int    `toml:"ReadTimeout"`
	WriteTimeout    int    `toml:"WriteTimeout"`
	ShutdownTimeout int    `toml:"ShutdownTimeout"`

	OTel      OTelConfig      `toml:"otel"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Auth      AuthConfig      `toml:"auth"`
}

// OTelConfig controls OpenTelemetry export. An empty endpoint disables it.
type OTelConfig struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}

// RateLimitConfig throttles RPC requests per source address. A zero rate
// disables throttling.
type RateLimitConfig struct {
	RatePerSecond float64 `toml:"RatePerSecond"`
	Burst         int     `toml:"Burst"`
}

// AuthConfig configures the optional operator bearer token check.
type AuthConfig struct {
	Enabled          bool     `toml:"Enabled"`
	HMACSecret       string   `toml:"HMACSecret"`
	Issuer           string   `toml:"Issuer"`
	Audience         string   `toml:"Audience"`
	ScopeClaim       string   `toml:"ScopeClaim"`
	RequiredScopes   []string `toml:"RequiredScopes"`
	OptionalPaths    []string `toml:"OptionalPaths"`
	ClockSkewSeconds int      `toml:"ClockSkewSeconds"`
}

// ClockSkew returns the tolerated token clock drift.
func (a AuthConfig) ClockSkew() time.Duration {
	return time.Duration(a.ClockSkewSeconds) * time.Second
}

// Load loads the configuration from the given path, writing a default file
// first when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err = createDefault(path)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() {
	if env := strings.TrimSpace(os.Getenv(EnvEnvironment)); env != "" {
		cfg.Env = env
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.Auth.HMACSecret = secret
	}
}

func (cfg *Config) applyDefaults() {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8545"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./payledger-data"
	}
	if strings.TrimSpace(cfg.EventLogPath) == "" {
		cfg.EventLogPath = filepath.Join(cfg.DataDir, "events.db")
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 15
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10
	}
	if cfg.LogMaxSizeMB <= 0 {
		cfg.LogMaxSizeMB = 100
	}
	if strings.TrimSpace(cfg.Auth.ScopeClaim) == "" {
		cfg.Auth.ScopeClaim = "scope"
	}
	if cfg.Auth.ClockSkewSeconds <= 0 {
		cfg.Auth.ClockSkewSeconds = 120
	}
	if cfg.RateLimit.RatePerSecond > 0 && cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = int(cfg.RateLimit.RatePerSecond)
		if cfg.RateLimit.Burst < 1 {
			cfg.RateLimit.Burst = 1
		}
	}
}

// Validate reports the first invalid setting.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.ChainID == 0 {
		return fmt.Errorf("ChainID must be positive")
	}
	if _, err := cfg.Ledger(); err != nil {
		return err
	}
	if cfg.RateLimit.RatePerSecond < 0 {
		return fmt.Errorf("rate_limit.RatePerSecond must not be negative")
	}
	if cfg.Auth.Enabled && strings.TrimSpace(cfg.Auth.HMACSecret) == "" {
		return fmt.Errorf("auth.HMACSecret (or %s) required when auth is enabled", EnvJWTSecret)
	}
	for i, path := range cfg.Auth.OptionalPaths {
		if !strings.HasPrefix(strings.TrimSpace(path), "/") {
			return fmt.Errorf("auth.OptionalPaths[%d] must start with '/'", i)
		}
	}
	return nil
}

// Ledger parses the configured ledger custody address.
func (cfg *Config) Ledger() (common.Address, error) {
	addr, err := crypto.ParseAddress(cfg.LedgerAddress)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid LedgerAddress: %w", err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("LedgerAddress must not be zero")
	}
	return addr, nil
}

// ChainIDBig returns the chain id as a big integer.
func (cfg *Config) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(cfg.ChainID)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: ":8545",
		DataDir:       "./payledger-data",
		ChainID:       31337,
		LedgerAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		GenesisFile:   "genesis.yaml",
		Env:           "local",
		RateLimit:     RateLimitConfig{RatePerSecond: 20, Burst: 40},
		Auth:          AuthConfig{ScopeClaim: "scope", ClockSkewSeconds: 120},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
