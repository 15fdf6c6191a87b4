// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "COINTOOLS"

type Config struct {
	RPCURL            string        `mapstructure:"rpc_url"`
	DBPath            string        `mapstructure:"db_path"`
	EncKey            string        `mapstructure:"enc_key"`
	DebugLogging      bool          `mapstructure:"debug_logging"`
	LogFile           string        `mapstructure:"log_file"`
	RPCRateLimit      float64       `mapstructure:"rpc_rate_limit"`
	RPCBurst          int           `mapstructure:"rpc_burst"`
	MetadataCacheSize int           `mapstructure:"metadata_cache_size"`
	ComputeUnitLimit  uint32        `mapstructure:"compute_unit_limit"`
	ComputeUnitPrice  uint64        `mapstructure:"compute_unit_price"`
	SlippagePercent   float64       `mapstructure:"slippage_percent"`
	SendMaxElapsed    time.Duration `mapstructure:"send_max_elapsed"`
	ConfirmTimeout    time.Duration `mapstructure:"confirm_timeout"`
	SkipPreflight     bool          `mapstructure:"skip_preflight"`
}

const (
	DefaultRPCURL            = "https://api.mainnet-beta.solana.com"
	DefaultDBPath            = "wallets.db"
	DefaultRPCRateLimit      = 10.0
	DefaultRPCBurst          = 5
	DefaultMetadataCacheSize = 1024
	DefaultComputeUnitLimit  = 100_000
	DefaultComputeUnitPrice  = 1_000_000
	DefaultSlippagePercent   = 5.0
	DefaultSendMaxElapsed    = 15 * time.Second
	DefaultConfirmTimeout    = 30 * time.Second
)

var keys = []string{
	"rpc_url", "db_path", "enc_key", "debug_logging", "log_file",
	"rpc_rate_limit", "rpc_burst", "metadata_cache_size",
	"compute_unit_limit", "compute_unit_price", "slippage_percent",
	"send_max_elapsed", "confirm_timeout", "skip_preflight",
}

// New returns a viper instance with defaults and environment binding. The
// CLI binds its persistent flags into it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	defaults := map[string]interface{}{
		"rpc_url":             DefaultRPCURL,
		"db_path":             DefaultDBPath,
		"rpc_rate_limit":      DefaultRPCRateLimit,
		"rpc_burst":           DefaultRPCBurst,
		"metadata_cache_size": DefaultMetadataCacheSize,
		"compute_unit_limit":  DefaultComputeUnitLimit,
		"compute_unit_price":  DefaultComputeUnitPrice,
		"slippage_percent":    DefaultSlippagePercent,
		"send_max_elapsed":    DefaultSendMaxElapsed,
		"confirm_timeout":     DefaultConfirmTimeout,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads .env (if present), then the config file at path (optional when
// empty), then unmarshals and validates.
func Load(v *viper.Viper, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("cointools")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, validateConfig(&cfg)
}

// LoadConfig loads configuration without CLI flag overrides.
func LoadConfig(path string) (*Config, error) {
	return Load(New(), path)
}

func validateConfig(cfg *Config) error {
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("db_path is empty")
	}
	if cfg.SlippagePercent < 0 || cfg.SlippagePercent > 100 {
		return fmt.Errorf("slippage_percent must be within 0-100, got %g", cfg.SlippagePercent)
	}
	if cfg.RPCRateLimit < 0 {
		return errors.New("invalid rpc_rate_limit")
	}
	if cfg.RPCBurst < 0 {
		return errors.New("invalid rpc_burst")
	}
	if cfg.MetadataCacheSize < 0 {
		return errors.New("invalid metadata_cache_size")
	}
	if cfg.ComputeUnitLimit == 0 {
		return errors.New("compute_unit_limit must be positive")
	}
	if cfg.SendMaxElapsed <= 0 || cfg.ConfirmTimeout <= 0 {
		return errors.New("send_max_elapsed and confirm_timeout must be positive")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	return nil
}
