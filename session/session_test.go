package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelranks/adapters/memory"
	"levelranks/core"
	"levelranks/engine"
	"levelranks/progression"
	"levelranks/scoring"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func openRules() scoring.Config {
	cfg := scoring.DefaultConfig()
	cfg.MinPlayers = 0
	return cfg
}

func newSession(t *testing.T, store *memory.Store, opts ...Option) *Session {
	t.Helper()
	base := []Option{
		WithPersistence(store),
		WithRules(openRules()),
		WithDispatchMode(engine.DispatchSync),
	}
	s := New(append(base, opts...)...)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func join(t *testing.T, s *Session, id core.PlayerID, team common.Team) {
	t.Helper()
	done, err := s.Join(context.Background(), scoring.Participant{ID: id, Name: string(id), Team: team})
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("player %s not loaded", id)
	}
}

func TestJoinLoadsStoredPlayer(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	stored := core.NewProgression("vet", "Veteran", 1200, time.Now())
	stored.Kills = 40
	require.NoError(t, store.Save(ctx, stored))

	s := newSession(t, store)
	var loaded []core.Event
	s.Bus().Subscribe(core.EventPlayerLoaded, func(_ context.Context, e core.Event) { loaded = append(loaded, e) })

	join(t, s, "vet", common.TeamTerrorists)
	join(t, s, "fresh", common.TeamCounterTerrorists)

	pts, ok := s.Stat("vet", "Points")
	require.True(t, ok)
	assert.Equal(t, int64(1200), pts)
	kills, _ := s.Stat("vet", "kills")
	assert.Equal(t, int64(40), kills)
	name, _ := s.Stat("vet", "rankname")
	assert.Equal(t, "Gold Nova I", name)

	pts, _ = s.Stat("fresh", "value")
	assert.Equal(t, int64(0), pts)

	require.Len(t, loaded, 2)
	assert.Equal(t, true, loaded[0].Metadata["stored"])
	assert.Equal(t, false, loaded[1].Metadata["stored"])
}

func TestJoinRejectsEmptyID(t *testing.T) {
	s := newSession(t, memory.New())
	_, err := s.Join(context.Background(), scoring.Participant{ID: "  "})
	require.Error(t, err)
}

func TestBotsAreNeverLoaded(t *testing.T) {
	s := newSession(t, memory.New())
	done, err := s.Join(context.Background(), scoring.Participant{ID: "bot", Bot: true, Team: common.TeamTerrorists})
	require.NoError(t, err)
	<-done

	_, ok := s.Stat("bot", "points")
	assert.False(t, ok)
	assert.Len(t, s.Players(), 1)
}

func TestHeadshotKillEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Save(ctx, core.NewProgression("attacker", "attacker", 1000, time.Now())))

	s := newSession(t, store)
	join(t, s, "attacker", common.TeamTerrorists)
	join(t, s, "victim", common.TeamCounterTerrorists)

	s.Handle(ctx, scoring.Kill{Attacker: "attacker", Victim: "victim", Weapon: "ak47", Headshot: true})

	a, _ := s.Stat("attacker", "points")
	v, _ := s.Stat("victim", "points")
	assert.Equal(t, int64(1013), a)
	assert.Equal(t, int64(-15), v)
	hs, _ := s.Stat("attacker", "weapon.ak47.headshots")
	assert.Equal(t, int64(1), hs)

	require.NoError(t, s.FlushAll(ctx))
	stored, ok, err := store.Load(ctx, "victim")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(-15), stored.Points)

	pos, err := s.Position(ctx, "victim")
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
	total, err := s.TotalPlayers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestLeaveFlushesAndDropsRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clk := newClock()
	s := newSession(t, store, WithClock(clk.Now))
	join(t, s, "p", common.TeamTerrorists)

	clk.Advance(90 * time.Second)
	require.NoError(t, s.Leave(ctx, "p").Wait(ctx))

	_, ok := s.Stat("p", "points")
	assert.False(t, ok)
	assert.Empty(t, s.Players())

	stored, ok, err := store.Load(ctx, "p")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(90), stored.Playtime)
}

func TestModifyAndSetPoints(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, memory.New())
	join(t, s, "p", common.TeamTerrorists)

	applied, err := s.ModifyPoints(ctx, "p", 25, "", true)
	require.NoError(t, err)
	assert.Equal(t, int64(25), applied)

	require.NoError(t, s.SetPoints(ctx, "p", 2000))
	pts, _ := s.Stat("p", "points")
	assert.Equal(t, int64(2000), pts)
	next, _ := s.Stat("p", "pointstonext")
	assert.Positive(t, next.(int64))

	_, err = s.ModifyPoints(ctx, "ghost", 5, core.ReasonExternal, false)
	assert.ErrorIs(t, err, ErrPlayerNotLoaded)
	assert.ErrorIs(t, s.SetPoints(ctx, "ghost", 1), ErrPlayerNotLoaded)
}

func TestStatKeys(t *testing.T) {
	s := newSession(t, memory.New())
	join(t, s, "p", common.TeamTerrorists)

	_, ok := s.Stat("p", "unknown")
	assert.False(t, ok)
	_, ok = s.Stat("p", "weapon.ak47")
	assert.False(t, ok)
	_, ok = s.Stat("p", "weapon.ak47.bogus")
	assert.False(t, ok)

	v, ok := s.Stat("p", "weapon.weapon_awp.kills")
	require.True(t, ok)
	assert.Equal(t, int64(0), v)

	kdr, ok := s.Stat("p", "KDR")
	require.True(t, ok)
	assert.Equal(t, float64(0), kdr)
	id, _ := s.Stat("p", "rankid")
	assert.Equal(t, 1, id)
}

func TestPositionIsCachedUntilTTL(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clk := newClock()
	require.NoError(t, store.Save(ctx, core.NewProgression("a", "a", 100, time.Now())))

	s := newSession(t, store, WithClock(clk.Now), WithPositionCache(16, 5*time.Second))

	pos, err := s.Position(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	require.NoError(t, store.Save(ctx, core.NewProgression("b", "b", 500, time.Now())))
	pos, _ = s.Position(ctx, "a")
	assert.Equal(t, 1, pos, "served from cache")

	clk.Advance(6 * time.Second)
	pos, _ = s.Position(ctx, "a")
	assert.Equal(t, 2, pos)

	top, err := s.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, core.PlayerID("b"), top[0].ID)
}

func TestRoundEndFlushesDirtyPlayers(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := newSession(t, store)
	join(t, s, "t", common.TeamTerrorists)
	join(t, s, "ct", common.TeamCounterTerrorists)

	s.Handle(ctx, scoring.RoundEnd{Winner: common.TeamTerrorists})
	require.NoError(t, s.FlushAll(ctx))

	stored, ok, err := store.Load(ctx, "t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5), stored.Points)
	assert.Equal(t, int64(1), stored.RoundsWon)
}

func TestWarmupBlocksAwards(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, memory.New())
	join(t, s, "p", common.TeamTerrorists)
	s.SetWarmup(true)
	assert.True(t, s.Warmup())

	s.Handle(ctx, scoring.BombPlanted{Player: "p"})
	pts, _ := s.Stat("p", "points")
	assert.Equal(t, int64(0), pts)

	s.SetWarmup(false)
	s.Handle(ctx, scoring.BombPlanted{Player: "p"})
	pts, _ = s.Stat("p", "points")
	assert.Equal(t, int64(10), pts)
}

func TestSetTeamMovesParticipant(t *testing.T) {
	s := newSession(t, memory.New())
	join(t, s, "p", common.TeamTerrorists)
	s.SetTeam("p", common.TeamSpectators)
	p, ok := s.Participant("p")
	require.True(t, ok)
	assert.Equal(t, common.TeamSpectators, p.Team)
}

func TestCloseAccruesPlaytime(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clk := newClock()
	s := New(WithPersistence(store), WithRules(openRules()), WithDispatchMode(engine.DispatchSync), WithClock(clk.Now))
	join(t, s, "p", common.TeamTerrorists)

	clk.Advance(2 * time.Minute)
	require.NoError(t, s.Close(ctx))

	stored, ok, err := store.Load(ctx, "p")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(120), stored.Playtime)
}

func TestPurgeDropsInactivePlayers(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clk := newClock()
	old := core.NewProgression("old", "old", 10, clk.Now().Add(-60*24*time.Hour))
	old.LastSeen = clk.Now().Add(-60 * 24 * time.Hour)
	recent := core.NewProgression("recent", "recent", 10, clk.Now())
	recent.LastSeen = clk.Now()
	require.NoError(t, store.SaveBatch(ctx, []core.Progression{old, recent}))

	s := newSession(t, store, WithClock(clk.Now), WithPurgeAfter(30*24*time.Hour))
	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	total, _ := s.TotalPlayers(ctx)
	assert.Equal(t, 1, total)
}

// slowStore holds every Load until release is closed.
type slowStore struct {
	*memory.Store
	started chan struct{}
	release chan struct{}
}

func (s *slowStore) Load(ctx context.Context, id core.PlayerID) (core.Progression, bool, error) {
	s.started <- struct{}{}
	<-s.release
	return s.Store.Load(ctx, id)
}

func TestLeaveDuringLoadDropsPlayer(t *testing.T) {
	ctx := context.Background()
	store := &slowStore{Store: memory.New(), started: make(chan struct{}, 1), release: make(chan struct{})}
	s := New(WithPersistence(store), WithRules(openRules()), WithDispatchMode(engine.DispatchSync))
	released := false
	t.Cleanup(func() {
		if !released {
			close(store.release)
		}
		_ = s.Close(ctx)
	})

	done, err := s.Join(ctx, scoring.Participant{ID: "p", Name: "p", Team: common.TeamTerrorists})
	require.NoError(t, err)
	select {
	case <-store.started:
	case <-time.After(time.Second):
		t.Fatal("load did not start")
	}

	assert.ErrorIs(t, s.Leave(ctx, "p").Wait(ctx), progression.ErrNotLoaded, "nothing to flush yet")
	close(store.release)
	released = true
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("load did not finish")
	}

	_, ok := s.Snapshot("p")
	assert.False(t, ok)
	assert.Empty(t, s.Players())
}

func TestSetSettings(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := newSession(t, store)
	join(t, s, "p", common.TeamTerrorists)

	want := core.Settings{Messages: false, Summary: true, RankChanges: false}
	require.NoError(t, s.SetSettings(ctx, "p", want))
	p, ok := s.Snapshot("p")
	require.True(t, ok)
	assert.Equal(t, want, p.Settings)

	require.NoError(t, s.FlushAll(ctx))
	stored, _, err := store.Load(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, want, stored.Settings)

	assert.ErrorIs(t, s.SetSettings(ctx, "ghost", want), ErrPlayerNotLoaded)
}

func TestResetRestoresStartState(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := newSession(t, store, WithStartPoints(100))
	join(t, s, "a", common.TeamTerrorists)
	join(t, s, "v", common.TeamCounterTerrorists)

	s.Handle(ctx, scoring.Kill{Attacker: "a", Victim: "v", Weapon: "ak47", Headshot: true})
	s.Handle(ctx, scoring.Hurt{Attacker: "a", Victim: "v", Weapon: "ak47", HealthDamage: 90, HitGroup: core.HitGroupHead})
	require.NoError(t, s.SetPoints(ctx, "a", 5000))
	require.NoError(t, s.SetSettings(ctx, "a", core.Settings{Messages: false, RankChanges: true}))

	require.NoError(t, s.Reset(ctx, "a"))

	p, ok := s.Snapshot("a")
	require.True(t, ok)
	assert.Equal(t, int64(100), p.Points)
	assert.Equal(t, s.Ranks().ResolveIndex(100), p.RankIndex)
	assert.Zero(t, p.Kills)
	assert.Zero(t, p.Headshots)
	assert.Zero(t, p.Hits)
	assert.Empty(t, p.Weapons)
	assert.Zero(t, p.HitGroups)
	assert.Zero(t, p.Streak.Count)
	assert.False(t, p.Settings.Messages, "settings survive a reset")

	require.NoError(t, s.FlushAll(ctx))
	stored, _, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.Points)
	assert.Empty(t, stored.Weapons)

	assert.ErrorIs(t, s.Reset(ctx, "ghost"), ErrPlayerNotLoaded)
}

func TestHitGroupStatKeys(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, memory.New())
	join(t, s, "a", common.TeamTerrorists)
	join(t, s, "v", common.TeamCounterTerrorists)

	s.Handle(ctx, scoring.Hurt{Attacker: "a", Victim: "v", Weapon: "ak47", HealthDamage: 100, ArmorDamage: 12, HitGroup: core.HitGroupHead})
	s.Handle(ctx, scoring.Hurt{Attacker: "a", Victim: "v", Weapon: "ak47", HealthDamage: 20, HitGroup: core.HitGroupStomach})

	for key, want := range map[string]int64{
		"hits.head":      1,
		"Hits.Belly":     1,
		"hits.stomach":   1,
		"hits.chest":     0,
		"hits.dmghealth": 120,
		"hits.dmgarmor":  12,
		"hits.total":     2,
	} {
		v, ok := s.Stat("a", key)
		require.True(t, ok, key)
		assert.Equal(t, want, v, key)
	}
	_, ok := s.Stat("a", "hits.elbow")
	assert.False(t, ok)
	hits, _ := s.Stat("a", "hits")
	assert.Equal(t, int64(2), hits)
}
