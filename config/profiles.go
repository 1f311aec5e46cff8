package config

import (
	"fmt"
	"time"
)

// LoadProfile returns the built-in configuration for a deployment profile,
// with environment overrides applied and validated.
func LoadProfile(name string) (*Config, error) {
	cfg, err := profileConfig(name)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s profile: %w", name, err)
	}
	return cfg, nil
}

func profileConfig(name string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Profile = name

	switch name {
	case "development", "default":
		cfg.Environment = EnvDevelopment
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"

	case "testing":
		cfg.Environment = EnvTesting
		cfg.Logging.Level = "warn"
		cfg.Analytics.Enabled = false
		cfg.Rules.MinPlayers = 0
		cfg.Storage.FlushInterval = time.Second

	case "staging":
		cfg.Environment = EnvStaging
		cfg.Storage.Adapter = "redis"
		cfg.Security.EnableRateLimit = true

	case "production":
		cfg.Environment = EnvProduction
		cfg.Server.CORSOrigin = ""
		cfg.Storage.Adapter = "sql"
		cfg.Storage.SQL.Migrate = false
		cfg.Storage.PurgeAfter = 90 * 24 * time.Hour
		cfg.Security.EnableRateLimit = true
		cfg.Security.RateLimit.RequestsPerMinute = 120
		cfg.Security.RateLimit.BurstSize = 20

	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return cfg, nil
}
