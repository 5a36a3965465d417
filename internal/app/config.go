package app

import (
	"time"

	"github.com/dojolist/dojolist-engine/internal/platform/envutil"
	"github.com/dojolist/dojolist-engine/internal/services"
)

// StoreBackend selects which Client implementation backs a store role.
type StoreBackend string

const (
	BackendMemory   StoreBackend = "memory"
	BackendRedis    StoreBackend = "redis"
	BackendPostgres StoreBackend = "postgres"
	BackendSQLite   StoreBackend = "sqlite"
)

type StoreConfig struct {
	Backend StoreBackend
	// RedisAddr / RedisPrefix apply to the redis backend.
	RedisAddr   string
	RedisPrefix string
	// DSN is the postgres connection string or the sqlite file path.
	DSN string
}

type Config struct {
	LogMode string

	// Primary is the user-private store (profiles, composite cache);
	// Secondary is the shared multi-tenant store (programs, enrollments,
	// progress, memberships, subscriptions).
	Primary   StoreConfig
	Secondary StoreConfig

	NotifierBuffer int
	Reconciler     services.ReconcilerConfig
}

func LoadConfig() Config {
	return Config{
		LogMode: envutil.String("LOG_MODE", "development"),
		Primary: StoreConfig{
			Backend:     StoreBackend(envutil.String("PRIMARY_STORE_BACKEND", string(BackendMemory))),
			RedisAddr:   envutil.String("PRIMARY_REDIS_ADDR", ""),
			RedisPrefix: envutil.String("PRIMARY_REDIS_PREFIX", "private"),
			DSN:         envutil.String("PRIMARY_STORE_DSN", ""),
		},
		Secondary: StoreConfig{
			Backend:     StoreBackend(envutil.String("SECONDARY_STORE_BACKEND", string(BackendMemory))),
			RedisAddr:   envutil.String("SECONDARY_REDIS_ADDR", ""),
			RedisPrefix: envutil.String("SECONDARY_REDIS_PREFIX", "shared"),
			DSN:         envutil.String("SECONDARY_STORE_DSN", ""),
		},
		NotifierBuffer: envutil.Int("NOTIFIER_BUFFER", 64),
		Reconciler: services.ReconcilerConfig{
			CreationPollAttempts: envutil.Int("PROFILE_CREATION_POLL_ATTEMPTS", 3),
			CreationPollBackoff:  envutil.Duration("PROFILE_CREATION_POLL_BACKOFF", 2*time.Second),
		},
	}
}
