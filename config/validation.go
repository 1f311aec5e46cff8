package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"levelranks/adapters/sqlx"
	"levelranks/core"
)

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	var errs []string

	if s.Address == "" {
		errs = append(errs, "address cannot be empty")
	}

	if s.ReadTimeout <= 0 {
		errs = append(errs, "read_timeout must be positive")
	}

	if s.WriteTimeout <= 0 {
		errs = append(errs, "write_timeout must be positive")
	}

	if s.IdleTimeout <= 0 {
		errs = append(errs, "idle_timeout must be positive")
	}

	if s.ReadHeaderTimeout <= 0 {
		errs = append(errs, "read_header_timeout must be positive")
	}

	if s.ShutdownTimeout <= 0 {
		errs = append(errs, "shutdown_timeout must be positive")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	var errs []string

	validAdapters := []string{"memory", "redis", "sql", "file"}
	isValidAdapter := false
	for _, adapter := range validAdapters {
		if s.Adapter == adapter {
			isValidAdapter = true
			break
		}
	}

	if !isValidAdapter {
		errs = append(errs, fmt.Sprintf("adapter must be one of: %s", strings.Join(validAdapters, ", ")))
	}

	// Validate adapter-specific configs
	switch s.Adapter {
	case "file":
		if err := s.File.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("file config: %v", err))
		}
	case "redis":
		if s.Redis.Addr == "" {
			errs = append(errs, "redis config: addr cannot be empty")
		}
	case "sql":
		if s.SQL.Driver != sqlx.DriverMySQL && s.SQL.Driver != sqlx.DriverPostgres {
			errs = append(errs, fmt.Sprintf("sql config: driver must be one of: %s, %s", sqlx.DriverMySQL, sqlx.DriverPostgres))
		}
		if s.SQL.DSN == "" {
			errs = append(errs, "sql config: dsn cannot be empty")
		}
	}

	if s.FlushInterval <= 0 {
		errs = append(errs, "flush_interval must be positive")
	}
	if s.WriteTimeout <= 0 {
		errs = append(errs, "write_timeout must be positive")
	}
	if s.LoadTimeout <= 0 {
		errs = append(errs, "load_timeout must be positive")
	}
	if s.PurgeAfter < 0 {
		errs = append(errs, "purge_after cannot be negative")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// Validate validates file storage configuration
func (f *FileConfig) Validate() error {
	if f.Path == "" {
		return errors.New("path cannot be empty")
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	var errs []string

	validLevels := []string{"debug", "info", "warn", "error"}
	isValidLevel := false
	for _, level := range validLevels {
		if l.Level == level {
			isValidLevel = true
			break
		}
	}

	if !isValidLevel {
		errs = append(errs, fmt.Sprintf("level must be one of: %s", strings.Join(validLevels, ", ")))
	}

	validFormats := []string{"json", "text"}
	isValidFormat := false
	for _, format := range validFormats {
		if l.Format == format {
			isValidFormat = true
			break
		}
	}

	if !isValidFormat {
		errs = append(errs, fmt.Sprintf("format must be one of: %s", strings.Join(validFormats, ", ")))
	}

	validOutputs := []string{"stdout", "stderr"}
	isValidOutput := false
	for _, output := range validOutputs {
		if l.Output == output {
			isValidOutput = true
			break
		}
	}

	if !isValidOutput {
		errs = append(errs, fmt.Sprintf("output must be one of: %s", strings.Join(validOutputs, ", ")))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// Validate validates analytics configuration
func (a *AnalyticsConfig) Validate() error {
	if a.Enabled && a.Interval <= 0 {
		return errors.New("interval must be positive when analytics are enabled")
	}
	return nil
}

// Validate validates the rank table and presentation settings
func (r *RankingConfig) Validate() error {
	var errs []string

	for i, rank := range r.Ranks {
		if strings.TrimSpace(rank.Name) == "" {
			errs = append(errs, fmt.Sprintf("ranks[%d].name is empty", i))
		}
	}
	if r.Vip.Multiplier < 0 {
		errs = append(errs, "vip.multiplier cannot be negative")
	}
	if r.CacheSize < 0 || r.CacheTTL < 0 {
		errs = append(errs, "cache_size and cache_ttl cannot be negative")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate validates the point rules
func (r *RulesConfig) Validate() error {
	var errs []string

	if r.MinPlayers < 0 {
		errs = append(errs, "min_players cannot be negative")
	}
	if r.Dynamic.Enabled {
		if r.Dynamic.Min <= 0 || r.Dynamic.Max < r.Dynamic.Min {
			errs = append(errs, "dynamic multiplier needs 0 < min <= max")
		}
	}
	if r.StreakGap < 0 {
		errs = append(errs, "streak_gap cannot be negative")
	}
	if r.PlaytimeInterval < 0 {
		errs = append(errs, "playtime_interval cannot be negative")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate validates webhook endpoints and event filters
func (w *WebhookConfig) Validate() error {
	var errs []string

	for i, endpoint := range w.Endpoints {
		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("endpoints[%d] must be an http(s) url", i))
		}
	}
	for _, ev := range w.Events {
		switch core.EventType(ev) {
		case core.EventPointsChanged, core.EventRankChanged, core.EventRoundSummary, core.EventPlayerLoaded:
		default:
			errs = append(errs, fmt.Sprintf("unknown event type %q", ev))
		}
	}
	if len(w.Endpoints) > 0 && w.Timeout <= 0 {
		errs = append(errs, "timeout must be positive when endpoints are set")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
