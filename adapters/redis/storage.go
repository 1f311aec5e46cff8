package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"levelranks/core"
	"levelranks/engine"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" toml:"addr" env:"LEVELRANKS_REDIS_ADDR"`
	Password     string        `json:"password,omitempty" toml:"password" env:"LEVELRANKS_REDIS_PASSWORD"`
	DB           int           `json:"db" toml:"db" env:"LEVELRANKS_REDIS_DB"`
	PoolSize     int           `json:"pool_size" toml:"pool_size" env:"LEVELRANKS_REDIS_POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" toml:"min_idle_conns" env:"LEVELRANKS_REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `json:"dial_timeout" toml:"dial_timeout" env:"LEVELRANKS_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" toml:"read_timeout" env:"LEVELRANKS_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" toml:"write_timeout" env:"LEVELRANKS_REDIS_WRITE_TIMEOUT"`
	// Prefix namespaces every key written by the store.
	Prefix string `json:"prefix" toml:"prefix" env:"LEVELRANKS_REDIS_PREFIX"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		Prefix:       "levelranks:",
	}
}

// Store implements engine.Persistence using Redis as the backend.
// Data structure:
// - {prefix}player:{id} -> JSON blob of the progression
// - {prefix}leaderboard:points -> sorted set of points by player id
// - {prefix}leaderboard:seen -> sorted set of last seen unix seconds
// - {prefix}players:names -> hash of display names used by Top
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, prefix: config.Prefix}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) playerKey(id core.PlayerID) string { return s.prefix + "player:" + string(id) }
func (s *Store) pointsKey() string                 { return s.prefix + "leaderboard:points" }
func (s *Store) seenKey() string                   { return s.prefix + "leaderboard:seen" }
func (s *Store) namesKey() string                  { return s.prefix + "players:names" }

// purgeScript removes every player last seen before ARGV[1] atomically.
var purgeScript = redis.NewScript(`
	local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
	for _, id in ipairs(ids) do
		redis.call('DEL', ARGV[2] .. id)
		redis.call('ZREM', KEYS[1], id)
		redis.call('ZREM', KEYS[2], id)
		redis.call('HDEL', KEYS[3], id)
	end
	return #ids
`)

func (s *Store) Load(ctx context.Context, id core.PlayerID) (core.Progression, bool, error) {
	data, err := s.client.Get(ctx, s.playerKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Progression{}, false, nil
	}
	if err != nil {
		return core.Progression{}, false, fmt.Errorf("failed to load player: %w", err)
	}
	var p core.Progression
	if err := json.Unmarshal(data, &p); err != nil {
		return core.Progression{}, false, fmt.Errorf("failed to decode player %s: %w", id, err)
	}
	if p.Weapons == nil {
		p.Weapons = map[string]core.WeaponStat{}
	}
	return p, true, nil
}

func (s *Store) Save(ctx context.Context, p core.Progression) error {
	return s.SaveBatch(ctx, []core.Progression{p})
}

// SaveBatch writes all snapshots in one MULTI/EXEC round trip.
func (s *Store) SaveBatch(ctx context.Context, ps []core.Progression) error {
	if len(ps) == 0 {
		return nil
	}
	blobs := make([][]byte, len(ps))
	for i, p := range ps {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode player %s: %w", p.ID, err)
		}
		blobs[i] = data
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, p := range ps {
			seen := p.LastSeen
			if seen.IsZero() {
				seen = time.Now()
			}
			pipe.Set(ctx, s.playerKey(p.ID), blobs[i], 0)
			pipe.ZAdd(ctx, s.pointsKey(), redis.Z{Score: float64(p.Points), Member: string(p.ID)})
			pipe.ZAdd(ctx, s.seenKey(), redis.Z{Score: float64(seen.Unix()), Member: string(p.ID)})
			pipe.HSet(ctx, s.namesKey(), string(p.ID), p.Name)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save %d players: %w", len(ps), err)
	}
	return nil
}

// Position counts the players with strictly more points.
func (s *Store) Position(ctx context.Context, id core.PlayerID) (int, error) {
	score, err := s.client.ZScore(ctx, s.pointsKey(), string(id)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read score: %w", err)
	}
	above, err := s.client.ZCount(ctx, s.pointsKey(), "("+strconv.FormatFloat(score, 'f', -1, 64), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return int(above) + 1, nil
}

func (s *Store) TotalPlayers(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.pointsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return int(n), nil
}

func (s *Store) Top(ctx context.Context, n int) ([]core.Standing, error) {
	if n <= 0 {
		return nil, nil
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, s.pointsKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	if len(zs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(zs))
	for i, z := range zs {
		ids[i], _ = z.Member.(string)
	}
	names, err := s.client.HMGet(ctx, s.namesKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read names: %w", err)
	}
	out := make([]core.Standing, len(zs))
	for i, z := range zs {
		out[i] = core.Standing{ID: core.PlayerID(ids[i]), Points: int64(z.Score)}
		if name, ok := names[i].(string); ok {
			out[i].Name = name
		}
	}
	return out, nil
}

// Purge removes players whose last seen time is before inactiveSince.
func (s *Store) Purge(ctx context.Context, inactiveSince time.Time) (int64, error) {
	keys := []string{s.seenKey(), s.pointsKey(), s.namesKey()}
	n, err := purgeScript.Run(ctx, s.client, keys, inactiveSince.Unix(), s.prefix+"player:").Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to purge players: %w", err)
	}
	return n, nil
}

var (
	_ engine.Persistence = (*Store)(nil)
	_ engine.Purger      = (*Store)(nil)
)
