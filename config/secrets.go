package config

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// SecretStore resolves secrets by key.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
}

// EnvironmentSecretStore reads secrets from process environment variables.
// A KEY_FILE variable pointing at a file takes precedence over KEY, which
// suits mounted container secrets.
type EnvironmentSecretStore struct{}

func NewEnvironmentSecretStore() *EnvironmentSecretStore { return &EnvironmentSecretStore{} }

func (s *EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	if path := os.Getenv(key + "_FILE"); path != "" {
		b, err := os.ReadFile(path) // #nosec G304 - operator supplied path
		if err != nil {
			return "", fmt.Errorf("read secret %s: %w", key, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("secret %s not set", key)
}

// GetWithDefault returns def when the secret is missing.
func (s *EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	v, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	return v
}

// LoadSecretsFromEnv fills credentials from the environment secret store.
// Storage credentials are required for the adapter in use.
func (c *Config) LoadSecretsFromEnv(ctx context.Context) error {
	return c.LoadSecrets(ctx, NewEnvironmentSecretStore())
}

// LoadSecrets fills credentials from store.
func (c *Config) LoadSecrets(ctx context.Context, store SecretStore) error {
	switch c.Storage.Adapter {
	case "sql":
		dsn, err := store.Get(ctx, "LEVELRANKS_SQL_DSN")
		if err != nil && c.Storage.SQL.DSN == "" {
			return fmt.Errorf("sql storage: %w", err)
		}
		if err == nil {
			c.Storage.SQL.DSN = dsn
		}
	case "redis":
		if pw, err := store.Get(ctx, "LEVELRANKS_REDIS_PASSWORD"); err == nil {
			c.Storage.Redis.Password = pw
		}
	}
	if keys, err := store.Get(ctx, "LEVELRANKS_SECURITY_API_KEYS"); err == nil {
		c.Security.APIKeys = c.Security.APIKeys[:0]
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.Security.APIKeys = append(c.Security.APIKeys, k)
			}
		}
	}
	return nil
}
