package app

import (
	"fmt"

	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/store"
)

func openStore(cfg StoreConfig, log *logger.Logger) (store.Client, error) {
	switch cfg.Backend {
	case BackendMemory:
		return store.NewMemClient(), nil
	case BackendRedis:
		return store.NewRedisClient(log, cfg.RedisAddr, cfg.RedisPrefix)
	case BackendPostgres:
		return store.NewGormPostgresClient(log, cfg.DSN)
	case BackendSQLite:
		return store.NewGormSQLiteClient(log, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
