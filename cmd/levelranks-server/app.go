package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"levelranks/analytics"
	"levelranks/api/httpapi"
	"levelranks/config"
	"levelranks/core"
	"levelranks/engine"
	"levelranks/integrations/webhook"
	"levelranks/realtime"
	"levelranks/session"
)

// App aggregates the assembled server components.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Hub       *realtime.Hub
	Storage   engine.Persistence
	Session   *session.Session
	Analytics *analytics.AggregationEngine
	Handler   http.Handler
	Server    *http.Server
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Environment == config.EnvProduction {
		if err := cfg.LoadSecretsFromEnv(ctx); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideStorage(ctx context.Context, cfg *config.Config) (engine.Persistence, error) {
	return setupStorage(ctx, cfg)
}

// provideAnalytics returns nil when aggregation is disabled.
func provideAnalytics(cfg *config.Config, log *slog.Logger) *analytics.AggregationEngine {
	if !cfg.Analytics.Enabled {
		return nil
	}
	return analytics.NewAggregationEngine(analytics.NewMetrics(), cfg.Analytics.Interval, log)
}

func provideWebhooks(cfg *config.Config, log *slog.Logger) *webhook.Sink {
	if len(cfg.Webhooks.Endpoints) == 0 {
		return nil
	}
	types := make([]core.EventType, 0, len(cfg.Webhooks.Events))
	for _, ev := range cfg.Webhooks.Events {
		types = append(types, core.EventType(ev))
	}
	opts := []webhook.Option{
		webhook.WithClient(&http.Client{Timeout: cfg.Webhooks.Timeout}),
		webhook.WithLogger(log),
	}
	if len(types) > 0 {
		opts = append(opts, webhook.WithEventTypes(types...))
	}
	return webhook.New(cfg.Webhooks.Endpoints, opts...)
}

func provideSession(cfg *config.Config, log *slog.Logger, hub *realtime.Hub, storage engine.Persistence, agg *analytics.AggregationEngine, hooks *webhook.Sink) *session.Session {
	opts := append(cfg.SessionOptions(log),
		session.WithPersistence(storage),
		session.WithRealtime(hub),
		session.WithDispatchMode(engine.DispatchAsync),
	)
	sess := session.New(opts...)
	if agg != nil {
		sess.Bus().SubscribeAll(analytics.Bridge(agg))
	}
	if hooks != nil {
		sess.Bus().SubscribeAll(hooks.OnEvent)
	}
	return sess
}

func provideHandler(sess *session.Session, hub *realtime.Hub, agg *analytics.AggregationEngine, log *slog.Logger, cfg *config.Config) http.Handler {
	return httpapi.NewMux(sess, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		Analytics:        agg,
		Logger:           log,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	var out io.Writer = os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func convertAttributes(attrs map[string]string) []slog.Attr {
	result := make([]slog.Attr, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the storage adapter named by the configuration.
func setupStorage(_ context.Context, cfg *config.Config) (engine.Persistence, error) {
	store, err := cfg.Storage.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Adapter, err)
	}
	return store, nil
}

// exportAnalytics writes one JSON file per aggregation period.
func exportAnalytics(agg *analytics.AggregationEngine, dir string) error {
	if agg == nil || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	agg.AggregateNow()
	for _, period := range []analytics.AggregationPeriod{analytics.PeriodDaily, analytics.PeriodWeekly, analytics.PeriodMonthly} {
		if err := agg.ExportToFile(period, filepath.Join(dir, string(period)+".json")); err != nil {
			return err
		}
	}
	return nil
}

func closeStorage(p engine.Persistence) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
