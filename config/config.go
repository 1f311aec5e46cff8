package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"levelranks/adapters/redis"
	"levelranks/adapters/sqlx"
	"levelranks/core"
	"levelranks/scoring"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" toml:"environment" env:"LEVELRANKS_ENV"`
	Profile     string      `json:"profile" toml:"profile" env:"LEVELRANKS_PROFILE"`

	Server    ServerConfig    `json:"server" toml:"server"`
	Storage   StorageConfig   `json:"storage" toml:"storage"`
	Logging   LoggingConfig   `json:"logging" toml:"logging"`
	Analytics AnalyticsConfig `json:"analytics" toml:"analytics"`
	Security  SecurityConfig  `json:"security" toml:"security"`
	Ranking   RankingConfig   `json:"ranking" toml:"ranking"`
	Rules     RulesConfig     `json:"rules" toml:"rules"`
	Webhooks  WebhookConfig   `json:"webhooks" toml:"webhooks"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" toml:"address" env:"LEVELRANKS_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" toml:"path_prefix" env:"LEVELRANKS_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" toml:"cors_origin" env:"LEVELRANKS_SERVER_CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" toml:"read_timeout" env:"LEVELRANKS_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" toml:"write_timeout" env:"LEVELRANKS_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" toml:"idle_timeout" env:"LEVELRANKS_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" toml:"read_header_timeout" env:"LEVELRANKS_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" toml:"shutdown_timeout" env:"LEVELRANKS_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig holds storage adapter configuration and the write-behind
// timings of the progression store.
type StorageConfig struct {
	Adapter string       `json:"adapter" toml:"adapter" env:"LEVELRANKS_STORAGE_ADAPTER"`
	Redis   redis.Config `json:"redis,omitempty" toml:"redis"`
	SQL     sqlx.Config  `json:"sql,omitempty" toml:"sql"`
	File    FileConfig   `json:"file,omitempty" toml:"file"`

	FlushInterval time.Duration `json:"flush_interval" toml:"flush_interval" env:"LEVELRANKS_STORAGE_FLUSH_INTERVAL"`
	WriteTimeout  time.Duration `json:"write_timeout" toml:"write_timeout" env:"LEVELRANKS_STORAGE_WRITE_TIMEOUT"`
	LoadTimeout   time.Duration `json:"load_timeout" toml:"load_timeout" env:"LEVELRANKS_STORAGE_LOAD_TIMEOUT"`
	// PurgeAfter deletes players inactive for longer; zero keeps everyone.
	PurgeAfter time.Duration `json:"purge_after" toml:"purge_after" env:"LEVELRANKS_STORAGE_PURGE_AFTER"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" toml:"path" env:"LEVELRANKS_STORAGE_FILE_PATH"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" toml:"level" env:"LEVELRANKS_LOG_LEVEL"`
	Format     string            `json:"format" toml:"format" env:"LEVELRANKS_LOG_FORMAT"`
	Output     string            `json:"output" toml:"output" env:"LEVELRANKS_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" toml:"attributes" env:"LEVELRANKS_LOG_ATTRIBUTES"`
}

// AnalyticsConfig controls KPI aggregation.
type AnalyticsConfig struct {
	Enabled  bool          `json:"enabled" toml:"enabled" env:"LEVELRANKS_ANALYTICS_ENABLED"`
	Interval time.Duration `json:"interval" toml:"interval" env:"LEVELRANKS_ANALYTICS_INTERVAL"`
	// ExportDir, if set, receives a JSON export per period on shutdown.
	ExportDir string `json:"export_dir" toml:"export_dir" env:"LEVELRANKS_ANALYTICS_EXPORT_DIR"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" toml:"enable_rate_limit" env:"LEVELRANKS_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty" toml:"rate_limit"`
	APIKeys         []string        `json:"api_keys,omitempty" toml:"api_keys" env:"LEVELRANKS_SECURITY_API_KEYS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" toml:"requests_per_minute" env:"LEVELRANKS_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int `json:"burst_size" toml:"burst_size" env:"LEVELRANKS_SECURITY_RATE_LIMIT_BURST"`
}

// RankingConfig holds the rank table and the presentation switches.
type RankingConfig struct {
	// Ranks overrides the stock table when non-empty.
	Ranks       []core.Rank `json:"ranks,omitempty" toml:"ranks"`
	StartPoints int64       `json:"start_points" toml:"start_points" env:"LEVELRANKS_RANKING_START_POINTS"`

	Clantags        bool `json:"clantags" toml:"clantags" env:"LEVELRANKS_RANKING_CLANTAGS"`
	ScoreSync       bool `json:"score_sync" toml:"score_sync" env:"LEVELRANKS_RANKING_SCORE_SYNC"`
	ShowPlayerNames bool `json:"show_player_names" toml:"show_player_names" env:"LEVELRANKS_RANKING_SHOW_PLAYER_NAMES"`

	Vip core.VipPolicy `json:"vip" toml:"vip"`

	CacheSize int           `json:"cache_size" toml:"cache_size" env:"LEVELRANKS_RANKING_CACHE_SIZE"`
	CacheTTL  time.Duration `json:"cache_ttl" toml:"cache_ttl" env:"LEVELRANKS_RANKING_CACHE_TTL"`
}

// RulesConfig holds point values and the award gates.
type RulesConfig struct {
	Points  scoring.Points         `json:"points" toml:"points"`
	Special core.SpecialKillPoints `json:"special" toml:"special"`
	Streaks core.StreakBonuses     `json:"streaks" toml:"streaks"`
	Dynamic core.DynamicPolicy     `json:"dynamic" toml:"dynamic"`

	StreakGap             time.Duration `json:"streak_gap" toml:"streak_gap" env:"LEVELRANKS_RULES_STREAK_GAP"`
	StreakResetOnRoundEnd bool          `json:"streak_reset_on_round_end" toml:"streak_reset_on_round_end" env:"LEVELRANKS_RULES_STREAK_RESET"`
	RoundEndSummary       bool          `json:"round_end_summary" toml:"round_end_summary" env:"LEVELRANKS_RULES_ROUND_END_SUMMARY"`

	MinPlayers    int  `json:"min_players" toml:"min_players" env:"LEVELRANKS_RULES_MIN_PLAYERS"`
	WarmupPoints  bool `json:"warmup_points" toml:"warmup_points" env:"LEVELRANKS_RULES_WARMUP_POINTS"`
	PointsForBots bool `json:"points_for_bots" toml:"points_for_bots" env:"LEVELRANKS_RULES_POINTS_FOR_BOTS"`
	FFA           bool `json:"ffa" toml:"ffa" env:"LEVELRANKS_RULES_FFA"`
	WeaponStats   bool `json:"weapon_stats" toml:"weapon_stats" env:"LEVELRANKS_RULES_WEAPON_STATS"`
	HitStats      bool `json:"hit_stats" toml:"hit_stats" env:"LEVELRANKS_RULES_HIT_STATS"`

	PlaytimeInterval time.Duration `json:"playtime_interval" toml:"playtime_interval" env:"LEVELRANKS_RULES_PLAYTIME_INTERVAL"`
}

// Scoring converts the section into the rule engine configuration.
func (r RulesConfig) Scoring() scoring.Config {
	return scoring.Config{
		Points:                r.Points,
		Special:               r.Special,
		Streaks:               r.Streaks,
		Dynamic:               r.Dynamic,
		StreakGap:             r.StreakGap,
		StreakResetOnRoundEnd: r.StreakResetOnRoundEnd,
		RoundEndSummary:       r.RoundEndSummary,
		MinPlayers:            r.MinPlayers,
		WarmupPoints:          r.WarmupPoints,
		PointsForBots:         r.PointsForBots,
		FFA:                   r.FFA,
		WeaponStats:           r.WeaponStats,
		HitStats:              r.HitStats,
		PlaytimeInterval:      r.PlaytimeInterval,
	}
}

func rulesFrom(c scoring.Config) RulesConfig {
	return RulesConfig{
		Points:                c.Points,
		Special:               c.Special,
		Streaks:               c.Streaks,
		Dynamic:               c.Dynamic,
		StreakGap:             c.StreakGap,
		StreakResetOnRoundEnd: c.StreakResetOnRoundEnd,
		RoundEndSummary:       c.RoundEndSummary,
		MinPlayers:            c.MinPlayers,
		WarmupPoints:          c.WarmupPoints,
		PointsForBots:         c.PointsForBots,
		FFA:                   c.FFA,
		WeaponStats:           c.WeaponStats,
		HitStats:              c.HitStats,
		PlaytimeInterval:      c.PlaytimeInterval,
	}
}

// WebhookConfig lists endpoints that receive engine events as JSON.
type WebhookConfig struct {
	Endpoints []string      `json:"endpoints,omitempty" toml:"endpoints" env:"LEVELRANKS_WEBHOOK_ENDPOINTS"`
	Events    []string      `json:"events,omitempty" toml:"events" env:"LEVELRANKS_WEBHOOK_EVENTS"`
	Timeout   time.Duration `json:"timeout" toml:"timeout" env:"LEVELRANKS_WEBHOOK_TIMEOUT"`
}

// Validate validates security settings.
func (s SecurityConfig) Validate() error {
	var errs []string
	if s.EnableRateLimit {
		if s.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, "rate_limit.requests_per_minute must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.BurstSize <= 0 {
			errs = append(errs, "rate_limit.burst_size must be > 0 when rate limiting is enabled")
		}
	}
	for i, key := range s.APIKeys {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, fmt.Sprintf("api_keys[%d] is empty", i))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load loads configuration from environment variables and validates it.
// LEVELRANKS_CONFIG, when set, names a JSON or TOML file read first;
// otherwise LEVELRANKS_PROFILE selects a built-in profile.
func Load() (*Config, error) {
	if path := os.Getenv("LEVELRANKS_CONFIG"); path != "" {
		return LoadFromFile(path)
	}

	cfg := DefaultConfig()
	if name := os.Getenv("LEVELRANKS_PROFILE"); name != "" {
		profile, err := profileConfig(name)
		if err != nil {
			return nil, err
		}
		cfg = profile
	}

	// Load from environment variables
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".json", ".toml":
	default:
		return errors.New("config file must have .json or .toml extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or TOML file, chosen by
// extension. Environment variables override file values.
func LoadFromFile(path string) (*Config, error) {
	// Validate the path for security
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	// Open the file safely after validation
	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Environment variables override file values
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "memory",
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverMySQL),
			File: FileConfig{
				Path: "./data/levelranks.json",
			},
			FlushInterval: time.Minute,
			WriteTimeout:  10 * time.Second,
			LoadTimeout:   10 * time.Second,
			PurgeAfter:    30 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Analytics: AnalyticsConfig{
			Enabled:  true,
			Interval: 5 * time.Minute,
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
			},
			APIKeys: []string{},
		},
		Ranking: RankingConfig{
			Clantags:  true,
			Vip:       core.VipPolicy{Multiplier: 1.25, Flags: []string{"k4-levelranks.vip"}},
			CacheSize: 1024,
			CacheTTL:  5 * time.Second,
		},
		Rules: rulesFrom(scoring.DefaultConfig()),
		Webhooks: WebhookConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// RankTable builds the configured rank table, falling back to the stock
// ranks. The names of definitions dropped for duplicate thresholds are
// returned alongside.
func (c *Config) RankTable() (*core.RankTable, []string) {
	defs := c.Ranking.Ranks
	if len(defs) == 0 {
		defs = core.DefaultRanks()
	}
	return core.NewRankTable(defs)
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Analytics.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("analytics config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Ranking.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("ranking config: %v", err))
	}

	if err := c.Rules.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rules config: %v", err))
	}

	if err := c.Webhooks.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("webhooks config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}
	if len(cfg.Security.APIKeys) > 0 {
		cfg.Security.APIKeys = []string{"[REDACTED]"}
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
