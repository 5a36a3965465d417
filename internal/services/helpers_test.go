package services

import (
	"context"
	"sync"
	"testing"

	"github.com/dojolist/dojolist-engine/internal/data/repos"
	"github.com/dojolist/dojolist-engine/internal/data/repos/testutil"
	"github.com/dojolist/dojolist-engine/internal/notify"
	"github.com/dojolist/dojolist-engine/internal/store"
)

// engine bundles one test's store pair and repositories. Tests needing a
// cold cache over the same stores call freshRepos.
type engine struct {
	primary   *store.MemClient
	secondary *store.MemClient
	notifier  *notify.Notifier
	repos     repos.Repos
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	primary, secondary := testutil.Stores(t)
	notifier := testutil.Notifier(t)
	return &engine{
		primary:   primary,
		secondary: secondary,
		notifier:  notifier,
		repos:     repos.New(primary, secondary, notifier, testutil.Logger(t)),
	}
}

// freshRepos simulates a new process over the same backing stores: same
// documents, empty in-process caches.
func (e *engine) freshRepos(t *testing.T) repos.Repos {
	t.Helper()
	return repos.New(e.primary, e.secondary, testutil.Notifier(t), testutil.Logger(t))
}

type fakeOnboarder struct {
	mu    sync.Mutex
	calls int
	begin func(ctx context.Context, identity SessionIdentity) error
}

func (f *fakeOnboarder) BeginOnboarding(ctx context.Context, identity SessionIdentity) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.begin == nil {
		return nil
	}
	return f.begin(ctx, identity)
}

func (f *fakeOnboarder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
