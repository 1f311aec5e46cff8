package config

import (
	"fmt"

	"levelranks/adapters/jsonfile"
	"levelranks/adapters/memory"
	"levelranks/adapters/redis"
	"levelranks/adapters/sqlx"
	"levelranks/engine"
)

// Open creates the storage adapter named by Adapter.
func (s *StorageConfig) Open() (engine.Persistence, error) {
	switch s.Adapter {
	case "memory":
		return memory.New(), nil
	case "redis":
		return redis.New(s.Redis)
	case "sql":
		return sqlx.New(s.SQL)
	case "file":
		return jsonfile.New(s.File.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", s.Adapter)
	}
}
