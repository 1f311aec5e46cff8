package progression

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelranks/core"
)

// gatedSaver blocks each write until the test releases it.
type gatedSaver struct {
	mu      sync.Mutex
	saved   []core.Progression
	batches int
	started chan core.PlayerID
	release chan error
}

func newGatedSaver() *gatedSaver {
	return &gatedSaver{started: make(chan core.PlayerID, 16), release: make(chan error, 16)}
}

func (g *gatedSaver) Save(_ context.Context, p core.Progression) error {
	g.started <- p.ID
	if err := <-g.release; err != nil {
		return err
	}
	g.mu.Lock()
	g.saved = append(g.saved, p)
	g.mu.Unlock()
	return nil
}

func (g *gatedSaver) SaveBatch(_ context.Context, ps []core.Progression) error {
	for _, p := range ps {
		g.started <- p.ID
	}
	if err := <-g.release; err != nil {
		return err
	}
	g.mu.Lock()
	g.saved = append(g.saved, ps...)
	g.batches++
	g.mu.Unlock()
	return nil
}

func (g *gatedSaver) savedPoints() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int64, 0, len(g.saved))
	for _, p := range g.saved {
		out = append(out, p.Points)
	}
	return out
}

func waitStarted(t *testing.T, g *gatedSaver) core.PlayerID {
	t.Helper()
	select {
	case id := <-g.started:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("write did not start")
		return ""
	}
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStoreCreateGetRemove(t *testing.T) {
	ranks, _ := core.NewRankTable(core.DefaultRanks())
	store := New(newGatedSaver(), WithRanks(ranks))

	rec := store.Create("p1", "Alice", 1000)
	assert.True(t, rec.Dirty())
	assert.Equal(t, 7, rec.View().RankIndex)

	got, ok := store.Get("p1")
	require.True(t, ok)
	assert.Same(t, rec, got)
	assert.Same(t, rec, store.Create("p1", "Other", 0), "existing record is kept")

	loaded := store.Insert(core.Progression{ID: "p2", Points: 150})
	assert.False(t, loaded.Dirty())
	assert.Equal(t, 2, loaded.View().RankIndex)
	assert.Equal(t, 2, store.Len())

	store.Remove("p1")
	_, ok = store.Get("p1")
	assert.False(t, ok)
	assert.Len(t, store.AllLoaded(), 1)
}

func TestRecordUpdateIf(t *testing.T) {
	store := New(newGatedSaver())
	rec := store.Insert(core.Progression{ID: "p1", Points: 10})

	assert.False(t, rec.UpdateIf(func(*core.Progression) bool { return false }))
	assert.False(t, rec.Dirty())

	assert.True(t, rec.UpdateIf(func(p *core.Progression) bool {
		p.Points = 20
		return true
	}))
	assert.True(t, rec.Dirty())
	assert.Equal(t, int64(20), rec.Points())
}

func TestFlushClearsDirty(t *testing.T) {
	saver := newGatedSaver()
	store := New(saver)
	rec := store.Create("p1", "Alice", 0)
	rec.Update(func(p *core.Progression) { p.Points += 5 })

	h := store.Flush("p1")
	waitStarted(t, saver)
	assert.True(t, store.InFlight("p1"))
	saver.release <- nil

	require.NoError(t, h.Wait(testCtx(t)))
	assert.False(t, rec.Dirty())
	assert.Equal(t, []int64{5}, saver.savedPoints())
}

func TestFlushKeepsDirtyWhenMutatedInFlight(t *testing.T) {
	saver := newGatedSaver()
	store := New(saver)
	rec := store.Create("p1", "Alice", 0)

	h := store.Flush("p1")
	waitStarted(t, saver)
	rec.Update(func(p *core.Progression) { p.Points += 3 })
	saver.release <- nil

	require.NoError(t, h.Wait(testCtx(t)))
	assert.True(t, rec.Dirty(), "mutation after snapshot must keep the record dirty")
	assert.Equal(t, []int64{0}, saver.savedPoints())
}

func TestFlushFailureKeepsDirty(t *testing.T) {
	saver := newGatedSaver()
	store := New(saver)
	rec := store.Create("p1", "Alice", 0)

	h := store.Flush("p1")
	waitStarted(t, saver)
	saver.release <- errors.New("db down")

	assert.Error(t, h.Wait(testCtx(t)))
	assert.True(t, rec.Dirty())
}

func TestFlushCoalescesWhileInFlight(t *testing.T) {
	saver := newGatedSaver()
	store := New(saver)
	rec := store.Create("p1", "Alice", 0)

	first := store.Flush("p1")
	waitStarted(t, saver)

	rec.Update(func(p *core.Progression) { p.Points = 10 })
	second := store.Flush("p1")
	rec.Update(func(p *core.Progression) { p.Points = 20 })
	third := store.Flush("p1")
	assert.Same(t, second, third)

	saver.release <- nil
	require.NoError(t, first.Wait(testCtx(t)))

	// the follow-up snapshots the record after the first write completed
	waitStarted(t, saver)
	saver.release <- nil
	require.NoError(t, second.Wait(testCtx(t)))

	assert.Equal(t, []int64{0, 20}, saver.savedPoints())
	assert.False(t, rec.Dirty())
	assert.False(t, store.InFlight("p1"))
}

func TestFlushUnknownPlayer(t *testing.T) {
	store := New(newGatedSaver())
	h := store.Flush("ghost")
	assert.ErrorIs(t, h.Wait(testCtx(t)), ErrNotLoaded)
}

func TestFlushAfterRemoveUsesSnapshot(t *testing.T) {
	saver := newGatedSaver()
	store := New(saver)
	rec := store.Create("p1", "Alice", 0)
	rec.Update(func(p *core.Progression) { p.Points = 42 })

	h := store.Flush("p1")
	store.Remove("p1")
	waitStarted(t, saver)
	saver.release <- nil
	require.NoError(t, h.Wait(testCtx(t)))
	assert.Equal(t, []int64{42}, saver.savedPoints())
}

func TestFlushAllBatchesDirtyRecords(t *testing.T) {
	saver := newGatedSaver()
	store := New(saver)
	a := store.Create("a", "A", 0)
	store.Insert(core.Progression{ID: "clean", Points: 7})
	b := store.Create("b", "B", 0)

	h := store.FlushAll()
	waitStarted(t, saver)
	waitStarted(t, saver)
	saver.release <- nil
	require.NoError(t, h.Wait(testCtx(t)))

	assert.False(t, a.Dirty())
	assert.False(t, b.Dirty())
	assert.Len(t, saver.savedPoints(), 2)
	assert.Equal(t, 1, saver.batches)
}

func TestFlushAllQueuesBusyPlayers(t *testing.T) {
	saver := newGatedSaver()
	store := New(saver)
	rec := store.Create("p1", "Alice", 0)

	single := store.Flush("p1")
	waitStarted(t, saver)
	rec.Update(func(p *core.Progression) { p.Points = 9 })

	all := store.FlushAll()
	saver.release <- nil
	require.NoError(t, single.Wait(testCtx(t)))

	waitStarted(t, saver)
	saver.release <- nil
	require.NoError(t, all.Wait(testCtx(t)))

	assert.Equal(t, []int64{0, 9}, saver.savedPoints())
	assert.Equal(t, 0, saver.batches)
}

func TestFlushAllNothingDirty(t *testing.T) {
	store := New(newGatedSaver())
	store.Insert(core.Progression{ID: "p1"})
	assert.NoError(t, store.FlushAll().Wait(testCtx(t)))
}

func TestCloseWaitsForWrites(t *testing.T) {
	saver := newGatedSaver()
	store := New(saver)
	store.Create("p1", "Alice", 0)
	store.Flush("p1")
	waitStarted(t, saver)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, store.Close(ctx), context.DeadlineExceeded)

	saver.release <- nil
	assert.NoError(t, store.Close(testCtx(t)))
	assert.Len(t, saver.savedPoints(), 1)
}

func TestFlushStampsLastSeen(t *testing.T) {
	saver := newGatedSaver()
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := New(saver, WithClock(func() time.Time { return stamp }))
	store.Create("p1", "Alice", 0)

	h := store.Flush("p1")
	waitStarted(t, saver)
	saver.release <- nil
	require.NoError(t, h.Wait(testCtx(t)))

	saver.mu.Lock()
	defer saver.mu.Unlock()
	assert.Equal(t, stamp, saver.saved[0].LastSeen)
}
