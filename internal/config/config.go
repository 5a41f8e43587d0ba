package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/GregMSThompson/treasury-backend/internal/dto"
)

type Config struct {
	ProjectID        string               `koanf:"projectid"`
	Region           string               `koanf:"region"`
	LogLevel         string               `koanf:"loglevel"`
	Port             string               `koanf:"port"`
	PlaidClientID    string               `koanf:"plaidclientid"`
	PlaidSecret      string               `koanf:"plaidsecret"`
	PlaidEnvironment dto.PlaidEnvironment `koanf:"plaidenvironment"`

	// Vault: KMSKeyName wins; otherwise the local AES key is derived from
	// VaultSecret, or from the Secret Manager secret VaultSecretName.
	KMSKeyName      string `koanf:"kmskeyname"`
	VaultSecret     string `koanf:"vault_secret"`
	VaultSecretName string `koanf:"vault_secret_name"`

	SyncCallTimeout  time.Duration `koanf:"sync_call_timeout"`
	SyncFetchTimeout time.Duration `koanf:"sync_fetch_timeout"`
	SyncMaxRetries   int           `koanf:"sync_max_retries"`
	SyncConcurrency  int           `koanf:"sync_concurrency"`
	SchedulerEnabled bool          `koanf:"scheduler_enabled"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`

	PayPalBaseURL      string `koanf:"paypal_base_url"`
	OrangeMoneyBaseURL string `koanf:"orange_money_base_url"`
	MTNMoneyBaseURL    string `koanf:"mtn_money_base_url"`
	WaveBaseURL        string `koanf:"wave_base_url"`
}

func defaults() *Config {
	return &Config{
		LogLevel:         "info",
		Port:             "8080",
		PlaidEnvironment: dto.PlaidProduction,
		SyncCallTimeout:  30 * time.Second,
		SyncFetchTimeout: 5 * time.Minute,
		SyncMaxRetries:   2,
		SyncConcurrency:  4,
		SchedulerEnabled: true,
		ShutdownTimeout:  20 * time.Second,
	}
}

// New loads defaults, then the YAML file named by CONFIG_FILE (if any), then
// the environment. Variable names are matched case-insensitively against the
// koanf tags, e.g. PROJECTID or SYNC_CALL_TIMEOUT.
func New() (*Config, error) {
	return load(os.Getenv("CONFIG_FILE"))
}

func load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.PlaidEnvironment = getPlaidEnvironment(string(cfg.PlaidEnvironment))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SyncCallTimeout <= 0 {
		return fmt.Errorf("sync_call_timeout must be positive, got %s", c.SyncCallTimeout)
	}
	if c.SyncFetchTimeout < c.SyncCallTimeout {
		return fmt.Errorf("sync_fetch_timeout %s is shorter than sync_call_timeout %s", c.SyncFetchTimeout, c.SyncCallTimeout)
	}
	if c.SyncMaxRetries < 0 {
		return fmt.Errorf("sync_max_retries must not be negative, got %d", c.SyncMaxRetries)
	}
	if c.SyncConcurrency < 1 {
		return fmt.Errorf("sync_concurrency must be at least 1, got %d", c.SyncConcurrency)
	}
	return nil
}

func getPlaidEnvironment(env string) dto.PlaidEnvironment {
	switch strings.ToLower(env) {
	case "sandbox":
		return dto.PlaidSandbox
	case "development":
		return dto.PlaidDevelopment
	default: // "production"
		return dto.PlaidProduction
	}
}
