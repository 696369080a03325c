// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProviderOverride adjusts one registry entry. Empty fields keep the catalog value.
type ProviderOverride struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type AIConfig struct {
	DefaultProvider string                      `yaml:"default_provider"`
	Timeout         time.Duration               `yaml:"timeout"`
	Providers       map[string]ProviderOverride `yaml:"providers"`
}

type StorageConfig struct {
	Backend    string `yaml:"backend"` // memory|redis
	UsageKey   string `yaml:"usage_key"`
	SecretsKey string `yaml:"secrets_key"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Storage  StorageConfig  `yaml:"storage"`
	Security SecurityConfig `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

const envPrefix = "VOICECODER_"

// LoadConfig reads the YAML file at path (a missing file yields defaults),
// applies .env and VOICECODER_* environment overrides, then validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg, os.Getenv)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if cfg.AI.Providers == nil {
		cfg.AI.Providers = map[string]ProviderOverride{}
	}
	for _, id := range []string{"anthropic", "openai", "google", "ollama"} {
		key := getenv(envPrefix + strings.ToUpper(id) + "_API_KEY")
		url := getenv(envPrefix + strings.ToUpper(id) + "_BASE_URL")
		if key == "" && url == "" {
			continue
		}
		o := cfg.AI.Providers[id]
		if key != "" {
			o.APIKey = key
		}
		if url != "" {
			o.BaseURL = url
		}
		cfg.AI.Providers[id] = o
	}
	if v := getenv(envPrefix + "REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := getenv(envPrefix + "ENCRYPTION_KEY"); v != "" {
		cfg.Security.EncryptionKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8765
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 5 * time.Minute
	}
	if cfg.AI.DefaultProvider == "" {
		cfg.AI.DefaultProvider = "anthropic"
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 2 * time.Minute
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.UsageKey == "" {
		cfg.Storage.UsageKey = "voicecoder.usage"
	}
	if cfg.Storage.SecretsKey == "" {
		cfg.Storage.SecretsKey = "voicecoder.apiKeys"
	}
}

// Validate checks cross-field constraints after defaults are applied.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("redis.url is required when storage.backend is redis")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	if n := len(c.Security.EncryptionKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return fmt.Errorf("security.encryption_key must be 16, 24, or 32 bytes; got %d", n)
	}
	return nil
}
