package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelranks/core"
	"levelranks/progression"
)

type recordingNotifier struct {
	notices   []PointNotice
	changes   []RankChange
	summaries []RoundSummary
}

func (r *recordingNotifier) Notify(_ context.Context, n PointNotice) { r.notices = append(r.notices, n) }
func (r *recordingNotifier) NotifyRankChange(_ context.Context, c RankChange) {
	r.changes = append(r.changes, c)
}
func (r *recordingNotifier) NotifySummary(_ context.Context, s RoundSummary) {
	r.summaries = append(r.summaries, s)
}

type recordingDisplay struct {
	tags   []string
	scores []int64
}

func (d *recordingDisplay) SetRankTag(_ core.PlayerID, tag string) { d.tags = append(d.tags, tag) }
func (d *recordingDisplay) SetScore(_ core.PlayerID, p int64) { d.scores = append(d.scores, p) }

type flagSet map[core.PlayerID][]string

func (f flagSet) HasFlag(id core.PlayerID, flag string) bool {
	for _, fl := range f[id] {
		if fl == flag {
			return true
		}
	}
	return false
}

type nopSaver struct{}

func (nopSaver) Save(context.Context, core.Progression) error        { return nil }
func (nopSaver) SaveBatch(context.Context, []core.Progression) error { return nil }

func testRanks(t *testing.T) *core.RankTable {
	t.Helper()
	table, _ := core.NewRankTable([]core.Rank{
		{Name: "Bronze", Tag: "B", Points: 0},
		{Name: "Silver", Tag: "S", Points: 100},
	})
	return table
}

func newTestModifier(t *testing.T, cfg ModifierConfig, members Membership) (*Modifier, *recordingNotifier, *recordingDisplay, *progression.Store) {
	t.Helper()
	n := &recordingNotifier{}
	d := &recordingDisplay{}
	ranks := testRanks(t)
	return NewModifier(ranks, cfg, n, d, members, nil), n, d, progression.New(nopSaver{}, progression.WithRanks(ranks))
}

func TestApplyZeroIsNoop(t *testing.T) {
	m, n, d, store := newTestModifier(t, ModifierConfig{Clantags: true, ScoreSync: true}, nil)
	rec := store.Insert(core.Progression{ID: "p1", Settings: core.DefaultSettings()})

	assert.Equal(t, int64(0), m.Apply(context.Background(), rec, 0, core.ReasonKill, true, ""))
	assert.False(t, rec.Dirty())
	assert.Empty(t, n.notices)
	assert.Empty(t, d.scores)
}

func TestApplyOverflowLeavesRecordClean(t *testing.T) {
	m, n, d, store := newTestModifier(t, ModifierConfig{ScoreSync: true}, nil)
	ctx := context.Background()

	rec := store.Insert(core.Progression{ID: "p1", Points: math.MaxInt64 - 1, Settings: core.DefaultSettings()})
	assert.Zero(t, m.Apply(ctx, rec, 5, core.ReasonKill, true, ""))
	assert.False(t, rec.Dirty())
	assert.Equal(t, int64(math.MaxInt64-1), rec.Points())

	round := store.Insert(core.Progression{ID: "p2", Points: 10, RoundPoints: math.MaxInt64, Settings: core.DefaultSettings()})
	assert.Zero(t, m.Apply(ctx, round, 1, core.ReasonKill, true, ""))
	assert.False(t, round.Dirty())
	p := round.View()
	assert.Equal(t, int64(10), p.Points)
	assert.Equal(t, int64(math.MaxInt64), p.RoundPoints)

	assert.Empty(t, n.notices)
	assert.Empty(t, d.scores)
}

func TestApplyAddsAndNotifies(t *testing.T) {
	m, n, d, store := newTestModifier(t, ModifierConfig{Clantags: true, ScoreSync: true}, nil)
	rec := store.Insert(core.Progression{ID: "p1", Points: 95, Settings: core.DefaultSettings()})

	applied := m.Apply(context.Background(), rec, 8, core.ReasonKill, true, "Bob")
	assert.Equal(t, int64(8), applied)

	p := rec.View()
	assert.Equal(t, int64(103), p.Points)
	assert.Equal(t, int64(8), p.RoundPoints)
	assert.Equal(t, 2, p.RankIndex)
	assert.True(t, rec.Dirty())

	assert.Equal(t, []string{"S"}, d.tags)
	assert.Equal(t, []int64{103}, d.scores)
	require.Len(t, n.notices, 1)
	assert.Equal(t, core.ReasonKill, n.notices[0].Reason)
	assert.Empty(t, n.notices[0].Context, "names are hidden unless enabled")
	require.Len(t, n.changes, 1)
	assert.True(t, n.changes[0].Promoted)
	assert.Equal(t, "Bronze", n.changes[0].Old.Name)
	assert.Equal(t, "Silver", n.changes[0].New.Name)
}

func TestApplyDemotion(t *testing.T) {
	m, n, _, store := newTestModifier(t, ModifierConfig{}, nil)
	rec := store.Insert(core.Progression{ID: "p1", Points: 102, Settings: core.DefaultSettings()})

	m.Apply(context.Background(), rec, -5, core.ReasonDeath, true, "")
	assert.Equal(t, 1, rec.View().RankIndex)
	require.Len(t, n.changes, 1)
	assert.False(t, n.changes[0].Promoted)
}

func TestApplyMessageToggles(t *testing.T) {
	m, n, _, store := newTestModifier(t, ModifierConfig{ShowPlayerNames: true}, nil)
	quiet := core.DefaultSettings()
	quiet.Messages = false
	quiet.RankChanges = false
	rec := store.Insert(core.Progression{ID: "p1", Settings: quiet})

	m.Apply(context.Background(), rec, 200, core.ReasonKill, true, "Bob")
	assert.Empty(t, n.notices)
	assert.Empty(t, n.changes)

	loud := store.Insert(core.Progression{ID: "p2", Settings: core.DefaultSettings()})
	m.Apply(context.Background(), loud, 5, core.ReasonKill, false, "Bob")
	assert.Empty(t, n.notices, "showMessage false suppresses the message")
	m.Apply(context.Background(), loud, 5, core.ReasonKill, true, "Bob")
	require.Len(t, n.notices, 1)
	assert.Equal(t, "Bob", n.notices[0].Context)
}

func TestApplyRoundEndSummarySuppressesMessages(t *testing.T) {
	m, n, _, store := newTestModifier(t, ModifierConfig{RoundEndSummary: true}, nil)
	rec := store.Insert(core.Progression{ID: "p1", Settings: core.DefaultSettings()})
	m.Apply(context.Background(), rec, 150, core.ReasonKill, true, "")
	assert.Empty(t, n.notices)
	assert.Len(t, n.changes, 1, "rank changes are still announced")
}

func TestApplyVip(t *testing.T) {
	cfg := ModifierConfig{Vip: core.VipPolicy{Multiplier: 1.25, Flags: []string{"vip"}}}
	m, _, _, store := newTestModifier(t, cfg, flagSet{"vip1": {"vip"}})
	vip := store.Insert(core.Progression{ID: "vip1", Settings: core.DefaultSettings()})
	regular := store.Insert(core.Progression{ID: "p2", Settings: core.DefaultSettings()})

	assert.Equal(t, int64(10), m.Apply(context.Background(), vip, 8, core.ReasonKill, false, ""))
	assert.Equal(t, int64(-5), m.Apply(context.Background(), vip, -5, core.ReasonDeath, false, ""))
	assert.Equal(t, int64(8), m.Apply(context.Background(), regular, 8, core.ReasonKill, false, ""))
	assert.Equal(t, int64(5), vip.Points())
}

func TestSetKeepsRankIndex(t *testing.T) {
	m, _, d, store := newTestModifier(t, ModifierConfig{Clantags: true, ScoreSync: true}, nil)
	rec := store.Insert(core.Progression{ID: "p1", Settings: core.DefaultSettings()})

	m.Set(context.Background(), rec, 250)
	p := rec.View()
	assert.Equal(t, int64(250), p.Points)
	assert.Equal(t, 2, p.RankIndex)
	assert.Equal(t, []string{"S"}, d.tags)
	assert.Equal(t, []int64{250}, d.scores)
}

func TestBusNotifierPublishes(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	var got []core.Event
	bus.SubscribeAll(func(_ context.Context, e core.Event) { got = append(got, e) })
	n := NewBusNotifier(bus)

	n.Notify(context.Background(), PointNotice{Player: "p1", Amount: 8, Reason: core.ReasonKill, Total: 8})
	n.NotifyRankChange(context.Background(), RankChange{Player: "p1", Old: core.Rank{Name: "A"}, New: core.Rank{Name: "B"}, Promoted: true})
	n.NotifySummary(context.Background(), RoundSummary{Player: "p1", RoundPoints: 8, Total: 8})

	require.Len(t, got, 3)
	assert.Equal(t, core.EventPointsChanged, got[0].Type)
	assert.Equal(t, core.EventRankChanged, got[1].Type)
	assert.Equal(t, "B", got[1].NewRank)
	assert.Equal(t, core.EventRoundSummary, got[2].Type)
}
