package session

import (
	"log/slog"
	"time"

	"levelranks/core"
	"levelranks/engine"
	"levelranks/realtime"
	"levelranks/scoring"
)

// Option configures a Session.
type Option func(*config)

type config struct {
	persistence engine.Persistence
	ranks       *core.RankTable
	rules       scoring.Config
	modifier    engine.ModifierConfig
	notifiers   []engine.Notifier
	display     engine.Display
	members     engine.Membership
	log         *slog.Logger
	mode        engine.DispatchMode
	hub         *realtime.Hub
	now         func() time.Time

	startPoints   int64
	flushInterval time.Duration
	tickInterval  time.Duration
	writeTimeout  time.Duration
	loadTimeout   time.Duration
	purgeAfter    time.Duration
	cacheSize     int
	cacheTTL      time.Duration
}

func defaultConfig() *config {
	ranks, _ := core.NewRankTable(core.DefaultRanks())
	return &config{
		ranks:         ranks,
		rules:         scoring.DefaultConfig(),
		modifier:      engine.ModifierConfig{Clantags: true},
		log:           slog.Default(),
		mode:          engine.DispatchAsync,
		now:           time.Now,
		flushInterval: time.Minute,
		tickInterval:  30 * time.Second,
		writeTimeout:  10 * time.Second,
		loadTimeout:   10 * time.Second,
		cacheSize:     1024,
		cacheTTL:      5 * time.Second,
	}
}

// WithPersistence sets the storage adapter. Defaults to in-memory storage.
func WithPersistence(p engine.Persistence) Option { return func(c *config) { c.persistence = p } }

// WithRanks sets the rank table.
func WithRanks(t *core.RankTable) Option {
	return func(c *config) {
		if t != nil {
			c.ranks = t
		}
	}
}

// WithRules sets the point rules.
func WithRules(r scoring.Config) Option { return func(c *config) { c.rules = r } }

// WithModifier sets the scoreboard and messaging switches.
func WithModifier(m engine.ModifierConfig) Option { return func(c *config) { c.modifier = m } }

// WithNotifier adds a messaging collaborator next to the event bus.
func WithNotifier(n engine.Notifier) Option {
	return func(c *config) {
		if n != nil {
			c.notifiers = append(c.notifiers, n)
		}
	}
}

func WithDisplay(d engine.Display) Option { return func(c *config) { c.display = d } }
func WithMembership(m engine.Membership) Option { return func(c *config) { c.members = m } }
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all engine events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithStartPoints sets the points of players without stored data.
func WithStartPoints(p int64) Option { return func(c *config) { c.startPoints = p } }

// WithFlushInterval sets how often Run writes dirty players.
func WithFlushInterval(d time.Duration) Option { return func(c *config) { c.flushInterval = d } }

// WithTickInterval sets how often Run emits playtime ticks.
func WithTickInterval(d time.Duration) Option { return func(c *config) { c.tickInterval = d } }

func WithWriteTimeout(d time.Duration) Option { return func(c *config) { c.writeTimeout = d } }
func WithLoadTimeout(d time.Duration) Option { return func(c *config) { c.loadTimeout = d } }

// WithPurgeAfter drops stored players inactive for longer than d when Run
// starts. Zero disables purging.
func WithPurgeAfter(d time.Duration) Option { return func(c *config) { c.purgeAfter = d } }

// WithPositionCache sizes the cache in front of Position, TotalPlayers and
// Top. A size of zero disables caching.
func WithPositionCache(size int, ttl time.Duration) Option {
	return func(c *config) {
		c.cacheSize = size
		c.cacheTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}
