// Package sqlx persists player progression in SQL databases using the
// lvl_base compatible schema.
package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"levelranks/core"
	"levelranks/engine"
)

// Driver selects the SQL dialect.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
)

const (
	playersTable  = "lvl_base"
	settingsTable = "lvl_base_settings"
	weaponsTable  = "lvl_base_weapons"
	hitsTable     = "lvl_base_hits"
)

// Config holds SQL connection configuration.
type Config struct {
	Driver          Driver        `json:"driver" toml:"driver" env:"LEVELRANKS_SQL_DRIVER"`
	DSN             string        `json:"dsn,omitempty" toml:"dsn" env:"LEVELRANKS_SQL_DSN"`
	MaxOpenConns    int           `json:"max_open_conns" toml:"max_open_conns" env:"LEVELRANKS_SQL_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" toml:"max_idle_conns" env:"LEVELRANKS_SQL_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" toml:"conn_max_lifetime" env:"LEVELRANKS_SQL_CONN_MAX_LIFETIME"`
	// Migrate creates missing tables on startup.
	Migrate bool `json:"migrate" toml:"migrate" env:"LEVELRANKS_SQL_MIGRATE"`
}

// DefaultConfig returns pool defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Migrate:         true,
	}
}

// Store implements engine.Persistence on top of sqlx.
type Store struct {
	db      *sqlx.DB
	dialect dialect
}

// New opens a connection pool and, when configured, creates the schema.
func New(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("sql dsn is required")
	}
	db, err := sqlx.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	s := NewWithDB(db, cfg.Driver)
	if cfg.Migrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewWithDB wraps an existing handle (useful for testing).
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, dialect: dialectFor(driver)}
}

func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the player, settings, weapon and hit tables if missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

type playerRow struct {
	Steam        string `db:"steam"`
	Name         string `db:"name"`
	Value        int64  `db:"value"`
	Rank         int    `db:"rank"`
	Kills        int64  `db:"kills"`
	Deaths       int64  `db:"deaths"`
	Shoots       int64  `db:"shoots"`
	Hits         int64  `db:"hits"`
	Headshots    int64  `db:"headshots"`
	Assists      int64  `db:"assists"`
	RoundWin     int64  `db:"round_win"`
	RoundLose    int64  `db:"round_lose"`
	Playtime     int64  `db:"playtime"`
	LastConnect  int64  `db:"lastconnect"`
	GameWins     int64  `db:"game_wins"`
	GameLosses   int64  `db:"game_losses"`
	GamesPlayed  int64  `db:"games_played"`
	RoundsPlayed int64  `db:"rounds_played"`
	Damage       int64  `db:"damage"`
}

type settingsRow struct {
	Steam       string `db:"steam"`
	Messages    bool   `db:"messages"`
	Summary     bool   `db:"summary"`
	RankChanges bool   `db:"rankchanges"`
}

type weaponRow struct {
	Steam     string `db:"steam"`
	Classname string `db:"classname"`
	Kills     int64  `db:"kills"`
	Deaths    int64  `db:"deaths"`
	Headshots int64  `db:"headshots"`
	Hits      int64  `db:"hits"`
	Shots     int64  `db:"shots"`
	Damage    int64  `db:"damage"`
}

type hitsRow struct {
	Steam     string `db:"steam"`
	DmgHealth int64  `db:"dmg_health"`
	DmgArmor  int64  `db:"dmg_armor"`
	Head      int64  `db:"head"`
	Chest     int64  `db:"chest"`
	Belly     int64  `db:"belly"`
	LeftArm   int64  `db:"left_arm"`
	RightArm  int64  `db:"right_arm"`
	LeftLeg   int64  `db:"left_leg"`
	RightLeg  int64  `db:"right_leg"`
	Neck      int64  `db:"neck"`
}

func toHitsRow(id core.PlayerID, h core.HitStats) hitsRow {
	return hitsRow{
		Steam: string(id), DmgHealth: h.DmgHealth, DmgArmor: h.DmgArmor,
		Head: h.Head, Chest: h.Chest, Belly: h.Stomach,
		LeftArm: h.LeftArm, RightArm: h.RightArm, LeftLeg: h.LeftLeg, RightLeg: h.RightLeg, Neck: h.Neck,
	}
}

func (r hitsRow) stats() core.HitStats {
	return core.HitStats{
		DmgHealth: r.DmgHealth, DmgArmor: r.DmgArmor,
		Head: r.Head, Chest: r.Chest, Stomach: r.Belly,
		LeftArm: r.LeftArm, RightArm: r.RightArm, LeftLeg: r.LeftLeg, RightLeg: r.RightLeg, Neck: r.Neck,
	}
}

const playerColumns = "steam, name, value, rank, kills, deaths, shoots, hits, headshots, assists, " +
	"round_win, round_lose, playtime, lastconnect, game_wins, game_losses, games_played, rounds_played, damage"

func toRow(p core.Progression) playerRow {
	var seen int64
	if !p.LastSeen.IsZero() {
		seen = p.LastSeen.Unix()
	}
	return playerRow{
		Steam: string(p.ID), Name: p.Name, Value: p.Points, Rank: p.RankIndex,
		Kills: p.Kills, Deaths: p.Deaths, Shoots: p.Shots, Hits: p.Hits,
		Headshots: p.Headshots, Assists: p.Assists,
		RoundWin: p.RoundsWon, RoundLose: p.RoundsLost, Playtime: p.Playtime, LastConnect: seen,
		GameWins: p.GamesWon, GameLosses: p.GamesLost, GamesPlayed: p.GamesPlayed,
		RoundsPlayed: p.RoundsPlayed, Damage: p.Damage,
	}
}

func (r playerRow) progression() core.Progression {
	p := core.Progression{
		ID: core.PlayerID(r.Steam), Name: r.Name, Points: r.Value, RankIndex: r.Rank,
		Kills: r.Kills, Deaths: r.Deaths, Shots: r.Shoots, Hits: r.Hits,
		Headshots: r.Headshots, Assists: r.Assists,
		RoundsWon: r.RoundWin, RoundsLost: r.RoundLose, RoundsPlayed: r.RoundsPlayed,
		GamesWon: r.GameWins, GamesLost: r.GameLosses, GamesPlayed: r.GamesPlayed,
		Playtime: r.Playtime, Damage: r.Damage,
		Settings: core.DefaultSettings(),
		Weapons:  map[string]core.WeaponStat{},
	}
	if r.LastConnect > 0 {
		p.LastSeen = time.Unix(r.LastConnect, 0).UTC()
	}
	return p
}

func (s *Store) Load(ctx context.Context, id core.PlayerID) (core.Progression, bool, error) {
	var row playerRow
	q := s.db.Rebind("SELECT " + s.dialect.columns + " FROM " + playersTable + " WHERE steam = ?")
	if err := s.db.GetContext(ctx, &row, q, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Progression{}, false, nil
		}
		return core.Progression{}, false, fmt.Errorf("failed to load player %s: %w", id, err)
	}
	p := row.progression()

	var set settingsRow
	q = s.db.Rebind("SELECT steam, messages, summary, rankchanges FROM " + settingsTable + " WHERE steam = ?")
	switch err := s.db.GetContext(ctx, &set, q, string(id)); {
	case err == nil:
		p.Settings = core.Settings{Messages: set.Messages, Summary: set.Summary, RankChanges: set.RankChanges}
	case !errors.Is(err, sql.ErrNoRows):
		return core.Progression{}, false, fmt.Errorf("failed to load settings of %s: %w", id, err)
	}

	var weapons []weaponRow
	q = s.db.Rebind("SELECT steam, classname, kills, deaths, headshots, hits, shots, damage FROM " + weaponsTable + " WHERE steam = ?")
	if err := s.db.SelectContext(ctx, &weapons, q, string(id)); err != nil {
		return core.Progression{}, false, fmt.Errorf("failed to load weapon stats of %s: %w", id, err)
	}
	for _, w := range weapons {
		p.Weapons[w.Classname] = core.WeaponStat{
			Kills: w.Kills, Deaths: w.Deaths, Headshots: w.Headshots,
			Hits: w.Hits, Shots: w.Shots, Damage: w.Damage,
		}
	}

	var hits hitsRow
	q = s.db.Rebind("SELECT " + hitsColumns + " FROM " + hitsTable + " WHERE steam = ?")
	switch err := s.db.GetContext(ctx, &hits, q, string(id)); {
	case err == nil:
		p.HitGroups = hits.stats()
	case !errors.Is(err, sql.ErrNoRows):
		return core.Progression{}, false, fmt.Errorf("failed to load hit stats of %s: %w", id, err)
	}
	return p, true, nil
}

func (s *Store) Save(ctx context.Context, p core.Progression) error {
	return s.SaveBatch(ctx, []core.Progression{p})
}

// SaveBatch upserts every snapshot in one transaction. Weapon rows missing
// from a snapshot are deleted so a reset player loses them.
func (s *Store) SaveBatch(ctx context.Context, ps []core.Progression) error {
	if len(ps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range ps {
		if _, err := tx.NamedExecContext(ctx, s.dialect.upsertPlayer, toRow(p)); err != nil {
			return fmt.Errorf("failed to save player %s: %w", p.ID, err)
		}
		set := settingsRow{Steam: string(p.ID), Messages: p.Settings.Messages, Summary: p.Settings.Summary, RankChanges: p.Settings.RankChanges}
		if _, err := tx.NamedExecContext(ctx, s.dialect.upsertSettings, set); err != nil {
			return fmt.Errorf("failed to save settings of %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+weaponsTable+" WHERE steam = ?"), string(p.ID)); err != nil {
			return fmt.Errorf("failed to clear weapon stats of %s: %w", p.ID, err)
		}
		for _, name := range sortedWeapons(p.Weapons) {
			w := p.Weapons[name]
			row := weaponRow{
				Steam: string(p.ID), Classname: name,
				Kills: w.Kills, Deaths: w.Deaths, Headshots: w.Headshots,
				Hits: w.Hits, Shots: w.Shots, Damage: w.Damage,
			}
			if _, err := tx.NamedExecContext(ctx, s.dialect.upsertWeapon, row); err != nil {
				return fmt.Errorf("failed to save weapon stats of %s: %w", p.ID, err)
			}
		}
		if _, err := tx.NamedExecContext(ctx, s.dialect.upsertHits, toHitsRow(p.ID, p.HitGroups)); err != nil {
			return fmt.Errorf("failed to save hit stats of %s: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func sortedWeapons(m map[string]core.WeaponStat) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Position is 1 + the number of players with strictly more points, or 0
// when the player has no row.
func (s *Store) Position(ctx context.Context, id core.PlayerID) (int, error) {
	var value int64
	q := s.db.Rebind("SELECT value FROM " + playersTable + " WHERE steam = ?")
	if err := s.db.GetContext(ctx, &value, q, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read points of %s: %w", id, err)
	}
	var above int
	q = s.db.Rebind("SELECT COUNT(*) FROM " + playersTable + " WHERE value > ?")
	if err := s.db.GetContext(ctx, &above, q, value); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return above + 1, nil
}

func (s *Store) TotalPlayers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+playersTable); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return n, nil
}

func (s *Store) Top(ctx context.Context, n int) ([]core.Standing, error) {
	if n <= 0 {
		return nil, nil
	}
	var out []core.Standing
	q := s.db.Rebind("SELECT steam, name, value FROM " + playersTable + " ORDER BY value DESC, steam ASC LIMIT ?")
	if err := s.db.SelectContext(ctx, &out, q, n); err != nil {
		return nil, fmt.Errorf("failed to read top players: %w", err)
	}
	return out, nil
}

// Purge deletes players last seen before inactiveSince along with their
// settings, weapon and hit rows. Rows that never recorded a connect are kept.
func (s *Store) Purge(ctx context.Context, inactiveSince time.Time) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+playersTable+" WHERE lastconnect < ? AND lastconnect > 0"), inactiveSince.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge players: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to purge players: %w", err)
	}
	for _, table := range []string{settingsTable, weaponsTable, hitsTable} {
		stmt := "DELETE FROM " + table + " WHERE steam NOT IN (SELECT steam FROM " + playersTable + ")"
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to purge %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

type dialect struct {
	columns        string
	schema         []string
	upsertPlayer   string
	upsertSettings string
	upsertWeapon   string
	upsertHits     string
}

func dialectFor(driver Driver) dialect {
	if driver == DriverPostgres {
		return postgresDialect
	}
	return mysqlDialect
}

func namedValues(cols string) string {
	parts := strings.Split(cols, ", ")
	for i, c := range parts {
		parts[i] = ":" + c
	}
	return strings.Join(parts, ", ")
}

func assignments(cols string, key int, format string) string {
	parts := strings.Split(cols, ", ")[key:]
	for i, c := range parts {
		parts[i] = fmt.Sprintf(format, c, c)
	}
	return strings.Join(parts, ", ")
}

const (
	settingsColumns = "steam, messages, summary, rankchanges"
	weaponColumns   = "steam, classname, kills, deaths, headshots, hits, shots, damage"
	hitsColumns     = "steam, dmg_health, dmg_armor, head, chest, belly, left_arm, right_arm, left_leg, right_leg, neck"
)

// rank is reserved in MySQL 8.
var mysqlColumns = strings.Replace(playerColumns, "rank", "`rank`", 1)

var mysqlDialect = dialect{
	columns: mysqlColumns,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS lvl_base (
			steam VARCHAR(32) NOT NULL PRIMARY KEY,
			name VARCHAR(64) NOT NULL DEFAULT '',
			value INT NOT NULL DEFAULT 0,
			` + "`rank`" + ` INT NOT NULL DEFAULT 0,
			kills INT NOT NULL DEFAULT 0,
			deaths INT NOT NULL DEFAULT 0,
			shoots BIGINT NOT NULL DEFAULT 0,
			hits BIGINT NOT NULL DEFAULT 0,
			headshots INT NOT NULL DEFAULT 0,
			assists INT NOT NULL DEFAULT 0,
			round_win INT NOT NULL DEFAULT 0,
			round_lose INT NOT NULL DEFAULT 0,
			playtime BIGINT NOT NULL DEFAULT 0,
			lastconnect INT NOT NULL DEFAULT 0,
			game_wins INT NOT NULL DEFAULT 0,
			game_losses INT NOT NULL DEFAULT 0,
			games_played INT NOT NULL DEFAULT 0,
			rounds_played INT NOT NULL DEFAULT 0,
			damage BIGINT NOT NULL DEFAULT 0,
			INDEX idx_value (value DESC),
			INDEX idx_lastconnect (lastconnect)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
		`CREATE TABLE IF NOT EXISTS lvl_base_settings (
			steam VARCHAR(32) NOT NULL PRIMARY KEY,
			messages TINYINT(1) NOT NULL DEFAULT 1,
			summary TINYINT(1) NOT NULL DEFAULT 0,
			rankchanges TINYINT(1) NOT NULL DEFAULT 1
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
		`CREATE TABLE IF NOT EXISTS lvl_base_weapons (
			steam VARCHAR(32) NOT NULL DEFAULT '',
			classname VARCHAR(64) NOT NULL DEFAULT '',
			kills INT NOT NULL DEFAULT 0,
			deaths INT NOT NULL DEFAULT 0,
			headshots INT NOT NULL DEFAULT 0,
			hits BIGINT NOT NULL DEFAULT 0,
			shots BIGINT NOT NULL DEFAULT 0,
			damage BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (steam, classname)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
		`CREATE TABLE IF NOT EXISTS lvl_base_hits (
			steam VARCHAR(32) NOT NULL PRIMARY KEY,
			dmg_health BIGINT NOT NULL DEFAULT 0,
			dmg_armor BIGINT NOT NULL DEFAULT 0,
			head INT NOT NULL DEFAULT 0,
			chest INT NOT NULL DEFAULT 0,
			belly INT NOT NULL DEFAULT 0,
			left_arm INT NOT NULL DEFAULT 0,
			right_arm INT NOT NULL DEFAULT 0,
			left_leg INT NOT NULL DEFAULT 0,
			right_leg INT NOT NULL DEFAULT 0,
			neck INT NOT NULL DEFAULT 0
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	},
	upsertPlayer: "INSERT INTO " + playersTable + " (" + mysqlColumns + ") VALUES (" + namedValues(playerColumns) +
		") ON DUPLICATE KEY UPDATE " + strings.Replace(assignments(playerColumns, 1, "%s = VALUES(%s)"), "rank = VALUES(rank)", "`rank` = VALUES(`rank`)", 1),
	upsertSettings: "INSERT INTO " + settingsTable + " (" + settingsColumns + ") VALUES (" + namedValues(settingsColumns) +
		") ON DUPLICATE KEY UPDATE " + assignments(settingsColumns, 1, "%s = VALUES(%s)"),
	upsertWeapon: "INSERT INTO " + weaponsTable + " (" + weaponColumns + ") VALUES (" + namedValues(weaponColumns) +
		") ON DUPLICATE KEY UPDATE " + assignments(weaponColumns, 2, "%s = VALUES(%s)"),
	upsertHits: "INSERT INTO " + hitsTable + " (" + hitsColumns + ") VALUES (" + namedValues(hitsColumns) +
		") ON DUPLICATE KEY UPDATE " + assignments(hitsColumns, 1, "%s = VALUES(%s)"),
}

var postgresDialect = dialect{
	columns: playerColumns,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS lvl_base (
			steam VARCHAR(32) NOT NULL PRIMARY KEY,
			name VARCHAR(64) NOT NULL DEFAULT '',
			value BIGINT NOT NULL DEFAULT 0,
			rank INT NOT NULL DEFAULT 0,
			kills BIGINT NOT NULL DEFAULT 0,
			deaths BIGINT NOT NULL DEFAULT 0,
			shoots BIGINT NOT NULL DEFAULT 0,
			hits BIGINT NOT NULL DEFAULT 0,
			headshots BIGINT NOT NULL DEFAULT 0,
			assists BIGINT NOT NULL DEFAULT 0,
			round_win BIGINT NOT NULL DEFAULT 0,
			round_lose BIGINT NOT NULL DEFAULT 0,
			playtime BIGINT NOT NULL DEFAULT 0,
			lastconnect BIGINT NOT NULL DEFAULT 0,
			game_wins BIGINT NOT NULL DEFAULT 0,
			game_losses BIGINT NOT NULL DEFAULT 0,
			games_played BIGINT NOT NULL DEFAULT 0,
			rounds_played BIGINT NOT NULL DEFAULT 0,
			damage BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lvl_base_value ON lvl_base (value DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_lvl_base_lastconnect ON lvl_base (lastconnect)`,
		`CREATE TABLE IF NOT EXISTS lvl_base_settings (
			steam VARCHAR(32) NOT NULL PRIMARY KEY,
			messages BOOLEAN NOT NULL DEFAULT TRUE,
			summary BOOLEAN NOT NULL DEFAULT FALSE,
			rankchanges BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS lvl_base_weapons (
			steam VARCHAR(32) NOT NULL DEFAULT '',
			classname VARCHAR(64) NOT NULL DEFAULT '',
			kills BIGINT NOT NULL DEFAULT 0,
			deaths BIGINT NOT NULL DEFAULT 0,
			headshots BIGINT NOT NULL DEFAULT 0,
			hits BIGINT NOT NULL DEFAULT 0,
			shots BIGINT NOT NULL DEFAULT 0,
			damage BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (steam, classname)
		)`,
		`CREATE TABLE IF NOT EXISTS lvl_base_hits (
			steam VARCHAR(32) NOT NULL PRIMARY KEY,
			dmg_health BIGINT NOT NULL DEFAULT 0,
			dmg_armor BIGINT NOT NULL DEFAULT 0,
			head BIGINT NOT NULL DEFAULT 0,
			chest BIGINT NOT NULL DEFAULT 0,
			belly BIGINT NOT NULL DEFAULT 0,
			left_arm BIGINT NOT NULL DEFAULT 0,
			right_arm BIGINT NOT NULL DEFAULT 0,
			left_leg BIGINT NOT NULL DEFAULT 0,
			right_leg BIGINT NOT NULL DEFAULT 0,
			neck BIGINT NOT NULL DEFAULT 0
		)`,
	},
	upsertPlayer: "INSERT INTO " + playersTable + " (" + playerColumns + ") VALUES (" + namedValues(playerColumns) +
		") ON CONFLICT (steam) DO UPDATE SET " + assignments(playerColumns, 1, "%s = EXCLUDED.%s"),
	upsertSettings: "INSERT INTO " + settingsTable + " (" + settingsColumns + ") VALUES (" + namedValues(settingsColumns) +
		") ON CONFLICT (steam) DO UPDATE SET " + assignments(settingsColumns, 1, "%s = EXCLUDED.%s"),
	upsertWeapon: "INSERT INTO " + weaponsTable + " (" + weaponColumns + ") VALUES (" + namedValues(weaponColumns) +
		") ON CONFLICT (steam, classname) DO UPDATE SET " + assignments(weaponColumns, 2, "%s = EXCLUDED.%s"),
	upsertHits: "INSERT INTO " + hitsTable + " (" + hitsColumns + ") VALUES (" + namedValues(hitsColumns) +
		") ON CONFLICT (steam) DO UPDATE SET " + assignments(hitsColumns, 1, "%s = EXCLUDED.%s"),
}

var (
	_ engine.Persistence = (*Store)(nil)
	_ engine.Purger      = (*Store)(nil)
)
