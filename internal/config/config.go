package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/muniops/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`
	Gateway  GatewayConfig  `yaml:"gateway" mapstructure:"gateway"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// IdentityConfig selects how the session's organization and plan are found.
//
// static uses OrganizationID and Plan as given; store reads the membership
// tables for UserID; http asks the identity service at BaseURL.
type IdentityConfig struct {
	Provider       string  `yaml:"provider" mapstructure:"provider"`
	UserID         string  `yaml:"user_id" mapstructure:"user_id"`
	OrganizationID string  `yaml:"organization_id" mapstructure:"organization_id"`
	Plan           string  `yaml:"plan" mapstructure:"plan"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Token          string  `yaml:"token" mapstructure:"token"`
	RatePerSec     float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GatewayConfig tunes plan resolution.
type GatewayConfig struct {
	LookupAttempts    int `yaml:"lookup_attempts" mapstructure:"lookup_attempts"`
	RetryDelayMs      int `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	LookupTimeoutSecs int `yaml:"lookup_timeout_secs" mapstructure:"lookup_timeout_secs"`
	// FixturesDir replaces the embedded sample datasets when set.
	FixturesDir string `yaml:"fixtures_dir" mapstructure:"fixtures_dir"`
}

// RetryDelay returns the retry delay as a duration.
func (g GatewayConfig) RetryDelay() time.Duration {
	return time.Duration(g.RetryDelayMs) * time.Millisecond
}

// LookupTimeout returns the per-attempt lookup timeout as a duration.
func (g GatewayConfig) LookupTimeout() time.Duration {
	return time.Duration(g.LookupTimeoutSecs) * time.Second
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Identity providers.
const (
	ProviderStatic = "static"
	ProviderStore  = "store"
	ProviderHTTP   = "http"
)

// Load reads configuration from .env, file, and environment.
func Load() (*Config, error) {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MUNIOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "muniops.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("identity.provider", ProviderStatic)
	v.SetDefault("identity.user_id", "")
	v.SetDefault("identity.organization_id", "")
	v.SetDefault("identity.plan", string(model.TierFree))
	v.SetDefault("identity.base_url", "")
	v.SetDefault("identity.token", "")
	v.SetDefault("identity.rate_per_sec", 5)
	v.SetDefault("identity.timeout_secs", 10)
	v.SetDefault("gateway.lookup_attempts", 2)
	v.SetDefault("gateway.retry_delay_ms", 500)
	v.SetDefault("gateway.lookup_timeout_secs", 10)
	v.SetDefault("gateway.fixtures_dir", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
	default:
		errs = append(errs, "store.driver must be postgres or sqlite, got "+quote(c.Store.Driver))
	}

	switch c.Identity.Provider {
	case ProviderStatic:
		if c.Identity.Plan != "" && !model.Tier(strings.ToLower(strings.TrimSpace(c.Identity.Plan))).Valid() {
			errs = append(errs, "identity.plan must be one of "+tierList()+", got "+quote(c.Identity.Plan))
		}
	case ProviderStore:
		if c.Identity.UserID == "" {
			errs = append(errs, "identity.user_id is required for the store provider")
		}
	case ProviderHTTP:
		if c.Identity.BaseURL == "" {
			errs = append(errs, "identity.base_url is required for the http provider")
		}
	default:
		errs = append(errs, "identity.provider must be static, store or http, got "+quote(c.Identity.Provider))
	}

	if c.Gateway.LookupAttempts < 1 {
		errs = append(errs, "gateway.lookup_attempts must be at least 1")
	}
	if c.Gateway.RetryDelayMs < 0 {
		errs = append(errs, "gateway.retry_delay_ms must not be negative")
	}
	if c.Gateway.LookupTimeoutSecs < 1 {
		errs = append(errs, "gateway.lookup_timeout_secs must be at least 1")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func quote(s string) string { return `"` + s + `"` }

func tierList() string {
	tiers := model.Tiers()
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

