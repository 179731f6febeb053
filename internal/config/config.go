// Package config loads advisor configuration from config files and the
// environment using viper. Every knob has a default from pkg/constants so
// the binary runs with no configuration at all.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/finopshub/advisor/pkg/constants"
	"github.com/finopshub/advisor/pkg/errors"
)

// SourceConfig holds the per-source connection settings. The API contracts
// themselves (pagination, schema) live in the source clients; only endpoint
// and credentials are configurable.
type SourceConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	APIKeyEnv string `mapstructure:"api_key_env"`
	Disabled  bool   `mapstructure:"disabled"`
}

// ScoringConfig holds the priority scorer weights and normalization caps.
// Weights should sum to 1; Validate enforces it.
type ScoringConfig struct {
	SavingsWeight  float64 `mapstructure:"savings_weight"`
	EffortWeight   float64 `mapstructure:"effort_weight"`
	RiskWeight     float64 `mapstructure:"risk_weight"`
	SavingsCeiling float64 `mapstructure:"savings_ceiling"`
	MaxRiskCount   int     `mapstructure:"max_risk_count"`
}

// Config is the full advisor configuration.
type Config struct {
	Regions []string `mapstructure:"regions"`

	CollectionDeadline time.Duration `mapstructure:"collection_deadline"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RetryBackoff       time.Duration `mapstructure:"retry_backoff"`
	MaxRetryBackoff    time.Duration `mapstructure:"max_retry_backoff"`
	RegionConcurrency  int           `mapstructure:"region_concurrency"`
	MaxPages           int           `mapstructure:"max_pages"`
	PageSize           int           `mapstructure:"page_size"`

	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerWindow    time.Duration `mapstructure:"breaker_window"`

	Scoring       ScoringConfig `mapstructure:"scoring"`
	TopCategories int           `mapstructure:"top_categories"`

	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	MappingFile string `mapstructure:"mapping_file"`
	DataDir     string `mapstructure:"data_dir"`

	ListenAddr   string `mapstructure:"listen_addr"`
	CronSchedule string `mapstructure:"cron_schedule"`

	Sources map[string]SourceConfig `mapstructure:"sources"`
}

// Load reads configuration from the optional config file, a .env file if
// present, and ADVISOR_* environment variables, in increasing precedence.
func Load(configFile string) (*Config, error) {
	// .env is optional; ignore absence.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "failed to read config file", err)
		}
	} else {
		v.SetConfigName("advisor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.advisor")
		// Missing default config file is fine.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.NewConfigError("config", "failed to read config file", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError("config", "failed to unmarshal config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with all defaults applied and no file
// or environment input. Useful in tests.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Unmarshal of defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("regions", []string{"us-east-1"})

	v.SetDefault("collection_deadline", constants.DefaultCollectionDeadline)
	v.SetDefault("max_retries", constants.MaxRetries)
	v.SetDefault("retry_backoff", constants.RetryBackoff)
	v.SetDefault("max_retry_backoff", constants.MaxRetryBackoff)
	v.SetDefault("region_concurrency", constants.MaxConcurrentRegions)
	v.SetDefault("max_pages", constants.MaxPages)
	v.SetDefault("page_size", constants.DefaultPageSize)

	v.SetDefault("breaker_threshold", constants.BreakerFailureThreshold)
	v.SetDefault("breaker_window", constants.BreakerFailureWindow)

	v.SetDefault("scoring.savings_weight", constants.SavingsWeight)
	v.SetDefault("scoring.effort_weight", constants.EffortWeight)
	v.SetDefault("scoring.risk_weight", constants.RiskWeight)
	v.SetDefault("scoring.savings_ceiling", constants.SavingsCeiling)
	v.SetDefault("scoring.max_risk_count", constants.MaxRiskCount)
	v.SetDefault("top_categories", constants.DefaultTopCategories)

	v.SetDefault("cache_ttl", constants.CacheTTL)

	v.SetDefault("mapping_file", "")
	v.SetDefault("data_dir", ".advisor")

	v.SetDefault("listen_addr", constants.DefaultListenAddr)
	v.SetDefault("cron_schedule", constants.DefaultCronSchedule)

	v.SetDefault("sources", map[string]SourceConfig{
		"hub":              {Endpoint: "https://hub.cloudopt.example.com/v1", APIKeyEnv: "HUB_API_KEY"},
		"cost-analysis":    {Endpoint: "https://costs.cloudopt.example.com/v2", APIKeyEnv: "COST_ANALYSIS_API_KEY"},
		"commitment-plans": {Endpoint: "https://commitments.cloudopt.example.com/v1", APIKeyEnv: "COMMITMENT_PLANS_API_KEY"},
	})
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	if len(c.Regions) == 0 {
		return errors.NewValidationError("regions", c.Regions, "at least one region is required")
	}
	if c.CollectionDeadline <= 0 {
		return errors.NewValidationError("collection_deadline", c.CollectionDeadline, "must be positive")
	}
	if c.RegionConcurrency <= 0 {
		return errors.NewValidationError("region_concurrency", c.RegionConcurrency, "must be positive")
	}
	sum := c.Scoring.SavingsWeight + c.Scoring.EffortWeight + c.Scoring.RiskWeight
	if sum < 0.999 || sum > 1.001 {
		return errors.NewValidationError("scoring", sum, "weights must sum to 1")
	}
	if c.Scoring.SavingsCeiling <= 0 {
		return errors.NewValidationError("scoring.savings_ceiling", c.Scoring.SavingsCeiling, "must be positive")
	}
	if c.Scoring.MaxRiskCount <= 0 {
		return errors.NewValidationError("scoring.max_risk_count", c.Scoring.MaxRiskCount, "must be positive")
	}
	if c.TopCategories <= 0 {
		return errors.NewValidationError("top_categories", c.TopCategories, "must be positive")
	}
	return nil
}

// Source returns the configuration for a source, or a zero value when the
// source is not configured.
func (c *Config) Source(name string) SourceConfig {
	return c.Sources[name]
}
