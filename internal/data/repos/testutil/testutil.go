package testutil

import (
	"sync"
	"testing"

	"github.com/dojolist/dojolist-engine/internal/notify"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/store"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg = logger.NewNop()
	})
	return logg
}

// Stores returns a fresh (primary, secondary) pair of in-memory store
// clients for one test.
func Stores(tb testing.TB) (*store.MemClient, *store.MemClient) {
	tb.Helper()
	return store.NewMemClient(), store.NewMemClient()
}

func Notifier(tb testing.TB) *notify.Notifier {
	tb.Helper()
	n := notify.New(Logger(tb))
	tb.Cleanup(n.Close)
	return n
}
