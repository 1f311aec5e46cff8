// Package session owns the live state of one game session: the roster, the
// progression store and the rules that score gameplay events.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"
	"golang.org/x/sync/singleflight"

	"levelranks/adapters/memory"
	"levelranks/core"
	"levelranks/engine"
	"levelranks/identity"
	"levelranks/progression"
	"levelranks/scoring"
)

// ErrPlayerNotLoaded is returned for players without a live record.
var ErrPlayerNotLoaded = errors.New("player not loaded")

// Session is the single in-process authority for one game session.
//
// Handle and the point mutating API run under the simulation lock, so rules
// never observe concurrent mutation. Persistence I/O happens in background
// goroutines owned by the progression store.
type Session struct {
	cfg     *config
	persist engine.Persistence
	store   *progression.Store
	mod     *engine.Modifier
	rules   *scoring.Rules
	bus     *engine.EventBus

	sim sync.Mutex

	rosterMu sync.RWMutex
	roster   map[core.PlayerID]scoring.Participant
	order    []core.PlayerID
	warmup   bool

	cache  *lru.Cache
	flight singleflight.Group

	loads     sync.WaitGroup
	closeOnce sync.Once
}

type cachedValue struct {
	value any
	at    time.Time
}

// New builds a session. Without WithPersistence it keeps players in memory.
func New(opts ...Option) *Session {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	if cfg.persistence == nil {
		cfg.persistence = memory.New()
	}

	bus := engine.NewEventBus(cfg.mode)
	if cfg.hub != nil {
		bus.SubscribeAll(func(ctx context.Context, e core.Event) { cfg.hub.Broadcast(ctx, e) })
	}
	notifier := fanout(append([]engine.Notifier{engine.NewBusNotifier(bus)}, cfg.notifiers...))

	s := &Session{
		cfg:     cfg,
		persist: cfg.persistence,
		bus:     bus,
		roster:  map[core.PlayerID]scoring.Participant{},
	}
	s.store = progression.New(cfg.persistence,
		progression.WithRanks(cfg.ranks),
		progression.WithLogger(cfg.log),
		progression.WithWriteTimeout(cfg.writeTimeout),
		progression.WithClock(cfg.now),
	)
	s.mod = engine.NewModifier(cfg.ranks, cfg.modifier, notifier, cfg.display, cfg.members, cfg.log)
	s.rules = scoring.New(cfg.rules, s.mod, s, s.store,
		scoring.WithNotifier(notifier),
		scoring.WithLogger(cfg.log),
		scoring.WithClock(cfg.now),
	)
	if cfg.cacheSize > 0 && cfg.cacheTTL > 0 {
		s.cache, _ = lru.New(cfg.cacheSize)
	}
	return s
}

// Bus exposes the event bus for additional subscribers.
func (s *Session) Bus() *engine.EventBus { return s.bus }

// Ranks returns the rank table in use.
func (s *Session) Ranks() *core.RankTable { return s.cfg.ranks }

// Join adds a participant to the roster and loads its progression in the
// background. The returned channel closes once the player is loaded; bots
// are never loaded and get a closed channel.
func (s *Session) Join(ctx context.Context, p scoring.Participant) (<-chan struct{}, error) {
	id, err := identity.Normalize(string(p.ID))
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	p.ID = id

	s.rosterMu.Lock()
	if _, ok := s.roster[id]; !ok {
		s.order = append(s.order, id)
	}
	s.roster[id] = p
	s.rosterMu.Unlock()

	done := make(chan struct{})
	if p.Bot {
		close(done)
		return done, nil
	}
	s.loads.Add(1)
	go func() {
		defer s.loads.Done()
		defer close(done)
		s.load(context.WithoutCancel(ctx), p)
	}()
	return done, nil
}

func (s *Session) load(ctx context.Context, p scoring.Participant) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.loadTimeout)
	defer cancel()

	stored, ok, err := s.persist.Load(ctx, p.ID)
	if err != nil {
		s.cfg.log.Error("failed to load player, using defaults", "player_id", p.ID, "error", err)
		ok = false
	}

	// The roster check and the insert share the simulation lock with Leave.
	s.sim.Lock()
	s.rosterMu.RLock()
	_, present := s.roster[p.ID]
	s.rosterMu.RUnlock()
	if !present {
		s.sim.Unlock()
		s.cfg.log.Debug("player left before load finished", "player_id", p.ID)
		return
	}

	var rec *progression.Record
	if ok {
		rec = s.store.Insert(stored)
		if p.Name != "" && stored.Name != p.Name {
			rec.Update(func(pr *core.Progression) { pr.Name = p.Name })
		}
	} else {
		rec = s.store.Create(p.ID, p.Name, s.cfg.startPoints)
	}
	now := s.cfg.now()
	rec.Touch(func(pr *core.Progression) { pr.JoinedAt = now })
	s.mod.RefreshDisplay(rec)
	points := rec.Points()
	s.sim.Unlock()

	s.bus.Publish(ctx, core.NewPlayerLoaded(p.ID, points, ok))
	s.cfg.log.Debug("player loaded", "player_id", p.ID, "stored", ok, "points", points)
}

// Leave accrues playtime, issues the final flush and drops the live record.
func (s *Session) Leave(_ context.Context, id core.PlayerID) *progression.Flush {
	s.sim.Lock()
	defer s.sim.Unlock()

	s.rosterMu.Lock()
	delete(s.roster, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.rosterMu.Unlock()

	if rec, ok := s.store.Get(id); ok {
		s.accruePlaytime(rec)
	}
	h := s.store.Flush(id)
	s.store.Remove(id)
	s.invalidate()
	return h
}

func (s *Session) accruePlaytime(rec *progression.Record) {
	now := s.cfg.now()
	rec.Update(func(p *core.Progression) {
		if !p.JoinedAt.IsZero() && now.After(p.JoinedAt) {
			p.Playtime += int64(now.Sub(p.JoinedAt) / time.Second)
		}
		p.JoinedAt = now
	})
}

// SetTeam moves a participant to another side.
func (s *Session) SetTeam(id core.PlayerID, team common.Team) {
	s.rosterMu.Lock()
	defer s.rosterMu.Unlock()
	if p, ok := s.roster[id]; ok {
		p.Team = team
		s.roster[id] = p
	}
}

func (s *Session) SetWarmup(on bool) {
	s.rosterMu.Lock()
	defer s.rosterMu.Unlock()
	s.warmup = on
}

func (s *Session) Warmup() bool {
	s.rosterMu.RLock()
	defer s.rosterMu.RUnlock()
	return s.warmup
}

// Players returns the roster in join order.
func (s *Session) Players() []scoring.Participant {
	s.rosterMu.RLock()
	defer s.rosterMu.RUnlock()
	out := make([]scoring.Participant, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.roster[id])
	}
	return out
}

func (s *Session) Participant(id core.PlayerID) (scoring.Participant, bool) {
	s.rosterMu.RLock()
	defer s.rosterMu.RUnlock()
	p, ok := s.roster[id]
	return p, ok
}

// Handle scores one gameplay event. A round end also writes every dirty
// player in one batch.
func (s *Session) Handle(ctx context.Context, ev scoring.Event) {
	s.sim.Lock()
	s.rules.Handle(ctx, ev)
	s.sim.Unlock()

	if _, ok := ev.(scoring.RoundEnd); ok {
		s.store.FlushAll()
		s.invalidate()
	}
}

// ModifyPoints applies an external point change and returns the amount
// applied after VIP scaling.
func (s *Session) ModifyPoints(ctx context.Context, id core.PlayerID, amount int64, reason core.Reason, showMessage bool) (int64, error) {
	s.sim.Lock()
	defer s.sim.Unlock()
	rec, ok := s.store.Get(id)
	if !ok {
		return 0, ErrPlayerNotLoaded
	}
	if reason == "" {
		reason = core.ReasonExternal
	}
	return s.mod.Apply(ctx, rec, amount, reason, showMessage, ""), nil
}

// SetPoints overwrites a player's cumulative points.
func (s *Session) SetPoints(ctx context.Context, id core.PlayerID, points int64) error {
	s.sim.Lock()
	defer s.sim.Unlock()
	rec, ok := s.store.Get(id)
	if !ok {
		return ErrPlayerNotLoaded
	}
	s.mod.Set(ctx, rec, points)
	return nil
}

// SetSettings replaces a player's message preferences.
func (s *Session) SetSettings(_ context.Context, id core.PlayerID, settings core.Settings) error {
	s.sim.Lock()
	defer s.sim.Unlock()
	rec, ok := s.store.Get(id)
	if !ok {
		return ErrPlayerNotLoaded
	}
	rec.Update(func(p *core.Progression) { p.Settings = settings })
	return nil
}

// Reset wipes a player's statistics back to the start points and
// re-resolves the rank. Settings are kept.
func (s *Session) Reset(ctx context.Context, id core.PlayerID) error {
	s.sim.Lock()
	defer s.sim.Unlock()
	rec, ok := s.store.Get(id)
	if !ok {
		return ErrPlayerNotLoaded
	}
	s.mod.Set(ctx, rec, s.cfg.startPoints)
	now := s.cfg.now()
	rec.Update(func(p *core.Progression) {
		p.ResetStats(s.cfg.startPoints)
		p.JoinedAt = now
	})
	s.invalidate()
	s.cfg.log.Info("player reset", "player_id", id, "points", s.cfg.startPoints)
	return nil
}

// Flush writes one player in the background.
func (s *Session) Flush(id core.PlayerID) *progression.Flush { return s.store.Flush(id) }

// FlushAll writes every dirty player and waits for the result.
func (s *Session) FlushAll(ctx context.Context) error {
	err := s.store.FlushAll().Wait(ctx)
	s.invalidate()
	return err
}

// Position returns the stored rank position of a player, 0 when unranked.
func (s *Session) Position(ctx context.Context, id core.PlayerID) (int, error) {
	v, err := s.cached(ctx, "position:"+string(id), func(ctx context.Context) (any, error) {
		return s.persist.Position(ctx, id)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// TotalPlayers returns the number of stored players.
func (s *Session) TotalPlayers(ctx context.Context) (int, error) {
	v, err := s.cached(ctx, "total", func(ctx context.Context) (any, error) {
		return s.persist.TotalPlayers(ctx)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Top returns the n best stored players.
func (s *Session) Top(ctx context.Context, n int) ([]core.Standing, error) {
	if n <= 0 {
		return nil, nil
	}
	v, err := s.cached(ctx, fmt.Sprintf("top:%d", n), func(ctx context.Context) (any, error) {
		return s.persist.Top(ctx, n)
	})
	if err != nil {
		return nil, err
	}
	return append([]core.Standing(nil), v.([]core.Standing)...), nil
}

func (s *Session) cached(ctx context.Context, key string, fill func(context.Context) (any, error)) (any, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if c, ok := v.(cachedValue); ok && s.cfg.now().Sub(c.at) < s.cfg.cacheTTL {
				return c.value, nil
			}
		}
	}
	v, err, _ := s.flight.Do(key, func() (any, error) {
		v, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Add(key, cachedValue{value: v, at: s.cfg.now()})
		}
		return v, nil
	})
	return v, err
}

func (s *Session) invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// Purge drops stored players inactive for the configured purge window.
// Persistence that cannot purge reports zero.
func (s *Session) Purge(ctx context.Context) (int64, error) {
	purger, ok := s.persist.(engine.Purger)
	if !ok || s.cfg.purgeAfter <= 0 {
		return 0, nil
	}
	n, err := purger.Purge(ctx, s.cfg.now().Add(-s.cfg.purgeAfter))
	if err != nil {
		return 0, fmt.Errorf("purge inactive players: %w", err)
	}
	if n > 0 {
		s.cfg.log.Info("purged inactive players", "count", n)
		s.invalidate()
	}
	return n, nil
}

// Run purges inactive players, then flushes dirty players and emits
// playtime ticks on their intervals until ctx ends.
func (s *Session) Run(ctx context.Context) error {
	if _, err := s.Purge(ctx); err != nil {
		s.cfg.log.Error("purge failed", "error", err)
	}

	flush := time.NewTicker(positive(s.cfg.flushInterval, time.Minute))
	defer flush.Stop()
	tick := time.NewTicker(positive(s.cfg.tickInterval, 30*time.Second))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-flush.C:
			s.store.FlushAll()
			s.invalidate()
		case <-tick.C:
			s.Handle(ctx, scoring.PlaytimeTick{Now: s.cfg.now()})
		}
	}
}

// Close waits for pending loads, writes every player and stops the bus.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.loads.Wait()
		s.sim.Lock()
		for _, rec := range s.store.AllLoaded() {
			s.accruePlaytime(rec)
		}
		s.sim.Unlock()
		err = errors.Join(s.store.FlushAll().Wait(ctx), s.store.Close(ctx))
		s.bus.Close()
	})
	return err
}

func positive(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// fanout delivers notifications to several collaborators in order.
type fanout []engine.Notifier

func (f fanout) Notify(ctx context.Context, n engine.PointNotice) {
	for _, x := range f {
		x.Notify(ctx, n)
	}
}

func (f fanout) NotifyRankChange(ctx context.Context, c engine.RankChange) {
	for _, x := range f {
		x.NotifyRankChange(ctx, c)
	}
}

func (f fanout) NotifySummary(ctx context.Context, r engine.RoundSummary) {
	for _, x := range f {
		x.NotifySummary(ctx, r)
	}
}

var _ scoring.Roster = (*Session)(nil)
