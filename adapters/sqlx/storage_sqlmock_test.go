package sqlx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	storage "levelranks/adapters/sqlx"
	"levelranks/core"
)

var hitsCols = []string{
	"steam", "dmg_health", "dmg_armor", "head", "chest", "belly", "left_arm", "right_arm", "left_leg", "right_leg", "neck",
}

var playerCols = []string{
	"steam", "name", "value", "rank", "kills", "deaths", "shoots", "hits", "headshots", "assists",
	"round_win", "round_lose", "playtime", "lastconnect", "game_wins", "game_losses", "games_played", "rounds_played", "damage",
}

func newMockStore(t *testing.T, driver storage.Driver) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, string(driver)), driver)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

func TestSQLMock_Load(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	ctx := context.Background()
	mock.ExpectQuery(`SELECT steam, name, value, rank, .* FROM lvl_base WHERE steam = \$1`).
		WithArgs("STEAM_1:0:1").
		WillReturnRows(sqlmock.NewRows(playerCols).
			AddRow("STEAM_1:0:1", "alice", 1200, 7, 40, 20, 900, 300, 15, 6, 10, 8, 3600, 1700000000, 2, 1, 3, 18, 5000))
	mock.ExpectQuery(`SELECT steam, messages, summary, rankchanges FROM lvl_base_settings WHERE steam = \$1`).
		WithArgs("STEAM_1:0:1").
		WillReturnRows(sqlmock.NewRows([]string{"steam", "messages", "summary", "rankchanges"}).
			AddRow("STEAM_1:0:1", false, true, true))
	mock.ExpectQuery(`FROM lvl_base_weapons WHERE steam = \$1`).
		WithArgs("STEAM_1:0:1").
		WillReturnRows(sqlmock.NewRows([]string{"steam", "classname", "kills", "deaths", "headshots", "hits", "shots", "damage"}).
			AddRow("STEAM_1:0:1", "weapon_ak47", 30, 10, 12, 200, 600, 4000))
	mock.ExpectQuery(`SELECT steam, dmg_health, dmg_armor, head, .* FROM lvl_base_hits WHERE steam = \$1`).
		WithArgs("STEAM_1:0:1").
		WillReturnRows(sqlmock.NewRows(hitsCols).
			AddRow("STEAM_1:0:1", 4000, 300, 12, 90, 40, 10, 11, 7, 8, 3))

	p, ok, err := store.Load(ctx, "STEAM_1:0:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1200), p.Points)
	require.Equal(t, int64(900), p.Shots)
	require.Equal(t, int64(3), p.GamesPlayed)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), p.LastSeen)
	require.Equal(t, core.Settings{Messages: false, Summary: true, RankChanges: true}, p.Settings)
	require.Equal(t, int64(30), p.Weapons["weapon_ak47"].Kills)
	require.Equal(t, core.HitStats{
		DmgHealth: 4000, DmgArmor: 300, Head: 12, Chest: 90, Stomach: 40,
		LeftArm: 10, RightArm: 11, LeftLeg: 7, RightLeg: 8, Neck: 3,
	}, p.HitGroups)
	require.Equal(t, int64(181), p.HitGroups.Total())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_LoadWithoutHitRow(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	mock.ExpectQuery(`FROM lvl_base WHERE steam = \?`).
		WithArgs("p").
		WillReturnRows(sqlmock.NewRows(playerCols).
			AddRow("p", "p", 10, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0))
	mock.ExpectQuery(`FROM lvl_base_settings WHERE steam = \?`).
		WithArgs("p").
		WillReturnRows(sqlmock.NewRows([]string{"steam", "messages", "summary", "rankchanges"}))
	mock.ExpectQuery(`FROM lvl_base_weapons WHERE steam = \?`).
		WithArgs("p").
		WillReturnRows(sqlmock.NewRows([]string{"steam", "classname", "kills", "deaths", "headshots", "hits", "shots", "damage"}))
	mock.ExpectQuery(`FROM lvl_base_hits WHERE steam = \?`).
		WithArgs("p").
		WillReturnRows(sqlmock.NewRows(hitsCols))

	p, ok, err := store.Load(context.Background(), "p")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, core.DefaultSettings(), p.Settings)
	require.Zero(t, p.HitGroups)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_LoadMissing(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	mock.ExpectQuery(`FROM lvl_base WHERE steam = \$1`).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(playerCols))

	_, ok, err := store.Load(context.Background(), "nobody")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SaveBatch(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	p := core.NewProgression("STEAM_1:0:1", "alice", 50, time.Now())
	p.UpdateWeapon("weapon_awp", func(w *core.WeaponStat) { w.Kills = 1 })
	p.HitGroups.Record(core.HitGroupHead, 100, 0)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO lvl_base \(.*\) VALUES \(\$1, .*\) ON CONFLICT \(steam\) DO UPDATE SET name = EXCLUDED.name`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO lvl_base_settings .* ON CONFLICT \(steam\)`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM lvl_base_weapons WHERE steam = \$1`).
		WithArgs("STEAM_1:0:1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO lvl_base_weapons .* ON CONFLICT \(steam, classname\)`).
		WithArgs("STEAM_1:0:1", "weapon_awp", int64(1), int64(0), int64(0), int64(0), int64(0), int64(0)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO lvl_base_hits \(steam, dmg_health, .*\) VALUES .* ON CONFLICT \(steam\) DO UPDATE SET dmg_health = EXCLUDED.dmg_health`).
		WithArgs("STEAM_1:0:1", int64(100), int64(0), int64(1), int64(0), int64(0), int64(0), int64(0), int64(0), int64(0), int64(0)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SaveBatch(context.Background(), []core.Progression{p}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SaveClearsDroppedWeapons(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	p := core.NewProgression("p", "p", 0, time.Now())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO lvl_base \(`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO lvl_base_settings`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM lvl_base_weapons WHERE steam = \?`).
		WithArgs("p").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`INSERT INTO lvl_base_hits .* ON DUPLICATE KEY UPDATE`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SaveRollsBackOnError(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lvl_base \\(.*`rank`.*\\) VALUES .* ON DUPLICATE KEY UPDATE").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.Save(context.Background(), core.NewProgression("p", "p", 0, time.Now()))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Position(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	ctx := context.Background()
	mock.ExpectQuery(`SELECT value FROM lvl_base WHERE steam = \?`).
		WithArgs("p").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(50))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM lvl_base WHERE value > \?`).
		WithArgs(int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	pos, err := store.Position(ctx, "p")
	require.NoError(t, err)
	require.Equal(t, 3, pos)

	mock.ExpectQuery(`SELECT value FROM lvl_base WHERE steam = \?`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	pos, err = store.Position(ctx, "ghost")
	require.NoError(t, err)
	require.Equal(t, 0, pos)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_TotalAndTop(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	ctx := context.Background()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM lvl_base`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(`SELECT steam, name, value FROM lvl_base ORDER BY value DESC, steam ASC LIMIT \$1`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"steam", "name", "value"}).
			AddRow("a", "alice", 900).
			AddRow("b", "bob", 800))

	total, err := store.TotalPlayers(ctx)
	require.NoError(t, err)
	require.Equal(t, 42, total)

	top, err := store.Top(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []core.Standing{{ID: "a", Name: "alice", Points: 900}, {ID: "b", Name: "bob", Points: 800}}, top)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Purge(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	cutoff := time.Unix(1700000000, 0)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM lvl_base WHERE lastconnect < \$1 AND lastconnect > 0`).
		WithArgs(cutoff.Unix()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM lvl_base_settings WHERE steam NOT IN`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM lvl_base_weapons WHERE steam NOT IN`).
		WillReturnResult(sqlmock.NewResult(0, 9))
	mock.ExpectExec(`DELETE FROM lvl_base_hits WHERE steam NOT IN`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := store.Purge(context.Background(), cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Migrate(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	for _, table := range []string{"lvl_base", "lvl_base_settings", "lvl_base_weapons", "lvl_base_hits"} {
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ` + table + ` \(`).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
