package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelranks/core"
)

// newTestClient spins up a miniredis server and returns a client plus cleanup.
func newTestClient(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}
	return client, cleanup
}

func player(id core.PlayerID, points int64, seen time.Time) core.Progression {
	p := core.NewProgression(id, "name-"+string(id), points, seen)
	p.LastSeen = seen
	return p
}

func TestStore_LoadMissing(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client, "test:")
	_, ok, err := store.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SaveAndLoad(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client, "test:")
	ctx := context.Background()

	p := player("STEAM_1:0:1", 420, time.Now())
	p.Kills = 12
	p.UpdateWeapon("weapon_ak47", func(w *core.WeaponStat) { w.Kills = 12 })
	p.HitGroups.Record(core.HitGroupNeck, 40, 5)
	require.NoError(t, store.Save(ctx, p))

	got, ok, err := store.Load(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(420), got.Points)
	assert.Equal(t, int64(12), got.Kills)
	assert.Equal(t, int64(12), got.Weapons["weapon_ak47"].Kills)
	assert.Equal(t, core.HitStats{DmgHealth: 40, DmgArmor: 5, Neck: 1}, got.HitGroups)

	score, err := client.ZScore(ctx, "test:leaderboard:points", string(p.ID)).Result()
	require.NoError(t, err)
	assert.Equal(t, float64(420), score)
}

func TestStore_Ranking(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client, "test:")
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.SaveBatch(ctx, []core.Progression{
		player("a", 100, now),
		player("b", 300, now),
		player("c", 300, now),
		player("d", -20, now),
	}))

	pos, err := store.Position(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, pos)

	pos, err = store.Position(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 1, pos, "tied players share a position")

	pos, err = store.Position(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 4, pos)

	pos, err = store.Position(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	total, err := store.TotalPlayers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	top, err := store.Top(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, int64(300), top[0].Points)
	assert.Equal(t, int64(100), top[2].Points)
	assert.Equal(t, "name-a", top[2].Name)
}

func TestStore_SaveOverwritesScore(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client, "test:")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, player("a", 10, time.Now())))
	require.NoError(t, store.Save(ctx, player("a", 50, time.Now())))

	total, err := store.TotalPlayers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	got, _, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.Points)
}

func TestStore_Purge(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client, "test:")
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.SaveBatch(ctx, []core.Progression{
		player("old", 100, now.Add(-40*24*time.Hour)),
		player("new", 50, now),
	}))

	n, err := store.Purge(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := store.Load(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)

	pos, err := store.Position(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
}

func TestStore_TopEmpty(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client, "test:")
	top, err := store.Top(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}
