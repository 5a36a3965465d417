package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dojolist/dojolist-engine/internal/data/repos"
	"github.com/dojolist/dojolist-engine/internal/data/repos/testutil"
	types "github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
	"github.com/dojolist/dojolist-engine/internal/store"
)

func shortPoll() ReconcilerConfig {
	return ReconcilerConfig{CreationPollAttempts: 3, CreationPollBackoff: 5 * time.Millisecond}
}

func TestLoadResolvesByAuthID(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	prof, err := eng.repos.Profile.Create(ctx, testutil.FixtureProfile(t, "auth-123"))
	if err != nil {
		t.Fatalf("Create profile: %v", err)
	}

	rec := NewProfileReconciler(eng.repos, nil, shortPoll(), testutil.Logger(t))
	composite, err := rec.Load(ctx, SessionIdentity{AuthID: "auth-123"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if composite.Profile.ID != prof.ID {
		t.Fatalf("Load resolved wrong profile: %+v", composite.Profile)
	}
	if rec.State() != StateReady {
		t.Fatalf("state after load: %s", rec.State())
	}
	if composite.PartiallyStale {
		t.Fatal("healthy load must not be marked partially stale")
	}
}

func TestLoadFallsBackToDirectProfileID(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	// Legacy record: no auth id on the profile.
	legacy := testutil.FixtureProfile(t, "")
	legacy.Email = "legacy@example.com"
	prof, err := eng.repos.Profile.Create(ctx, legacy)
	if err != nil {
		t.Fatalf("Create profile: %v", err)
	}

	rec := NewProfileReconciler(eng.repos, nil, shortPoll(), testutil.Logger(t))
	composite, err := rec.Load(ctx, SessionIdentity{AuthID: "auth-unknown", ProfileID: prof.ID})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if composite.Profile.ID != prof.ID {
		t.Fatalf("Load did not fall back to direct id: %+v", composite.Profile)
	}
}

func TestLoadOnboardsMissingProfile(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	onboarder := &fakeOnboarder{
		begin: func(ctx context.Context, identity SessionIdentity) error {
			p := testutil.FixtureProfile(t, identity.AuthID)
			_, err := eng.repos.Profile.Create(ctx, p)
			return err
		},
	}

	rec := NewProfileReconciler(eng.repos, onboarder, shortPoll(), testutil.Logger(t))
	composite, err := rec.Load(ctx, SessionIdentity{AuthID: "auth-new", Email: "new@example.com"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if composite.Profile.AuthID != "auth-new" {
		t.Fatalf("Load returned wrong profile: %+v", composite.Profile)
	}
	if onboarder.callCount() != 1 {
		t.Fatalf("onboarder invoked %d times", onboarder.callCount())
	}
}

func TestLoadFailsWhenOnboardingNeverLands(t *testing.T) {
	eng := newEngine(t)

	rec := NewProfileReconciler(eng.repos, &fakeOnboarder{}, shortPoll(), testutil.Logger(t))
	_, err := rec.Load(context.Background(), SessionIdentity{AuthID: "auth-ghost"})
	if !apperr.IsNotFound(err) {
		t.Fatalf("Load: expected not-found after poll budget, got %v", err)
	}
	if rec.State() != StateFailed {
		t.Fatalf("state after exhausted poll: %s", rec.State())
	}
}

func TestRefreshRequiresLoadedSession(t *testing.T) {
	eng := newEngine(t)

	rec := NewProfileReconciler(eng.repos, nil, shortPoll(), testutil.Logger(t))
	if _, err := rec.Refresh(context.Background()); !apperr.IsConflict(err) {
		t.Fatalf("Refresh before Load: expected conflict, got %v", err)
	}
}

func TestRefreshKeepsFragmentsWhenSecondaryDown(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	prof, err := eng.repos.Profile.Create(ctx, testutil.FixtureProfile(t, "auth-123"))
	if err != nil {
		t.Fatalf("Create profile: %v", err)
	}
	p, err := eng.repos.Program.Create(ctx, testutil.FixtureProgram(t, "Karate"))
	if err != nil {
		t.Fatalf("Create program: %v", err)
	}
	if _, err := eng.repos.Enrollment.Create(ctx, testutil.FixtureEnrollment(t, prof.ID, p)); err != nil {
		t.Fatalf("Create enrollment: %v", err)
	}

	rec := NewProfileReconciler(eng.repos, nil, shortPoll(), testutil.Logger(t))
	first, err := rec.Load(ctx, SessionIdentity{AuthID: "auth-123"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(first.Enrollments) != 1 {
		t.Fatalf("Load: expected 1 enrollment, got %d", len(first.Enrollments))
	}

	eng.secondary.FailCollection(repos.CollectionEnrollments, store.CodeUnavailable)
	second, err := rec.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh with secondary down: %v", err)
	}
	if !second.PartiallyStale {
		t.Fatal("refresh under secondary failure must be marked partially stale")
	}
	if len(second.Enrollments) != 1 {
		t.Fatalf("refresh erased enrollments: %+v", second.Enrollments)
	}
	if _, ok := second.Enrollments[p.ID.String()]; !ok {
		t.Fatalf("refresh lost enrollment for program %s", p.ID)
	}
	if rec.State() != StateReady {
		t.Fatalf("state after degraded refresh: %s", rec.State())
	}
}

func TestFreshSessionSeedsFromPersistedComposite(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	prof, err := eng.repos.Profile.Create(ctx, testutil.FixtureProfile(t, "auth-123"))
	if err != nil {
		t.Fatalf("Create profile: %v", err)
	}
	p, err := eng.repos.Program.Create(ctx, testutil.FixtureProgram(t, "Karate"))
	if err != nil {
		t.Fatalf("Create program: %v", err)
	}
	if _, err := eng.repos.Enrollment.Create(ctx, testutil.FixtureEnrollment(t, prof.ID, p)); err != nil {
		t.Fatalf("Create enrollment: %v", err)
	}
	if _, err := eng.repos.Subscription.Upsert(ctx, &types.Subscription{
		UserID: prof.ID, Plan: "premium", Status: "active",
	}); err != nil {
		t.Fatalf("Upsert subscription: %v", err)
	}

	// First session reconciles cleanly and persists the composite copy.
	warm := NewProfileReconciler(eng.repos, nil, shortPoll(), testutil.Logger(t))
	if _, err := warm.Load(ctx, SessionIdentity{AuthID: "auth-123"}); err != nil {
		t.Fatalf("Load (warm): %v", err)
	}

	// Second session starts in a fresh process with the secondary store
	// unreachable. The persisted composite supplies the known-good
	// fragments.
	for _, col := range []string{repos.CollectionEnrollments, repos.CollectionMemberships, repos.CollectionSubscriptions} {
		eng.secondary.FailCollection(col, store.CodeUnavailable)
	}
	cold := NewProfileReconciler(eng.freshRepos(t), nil, shortPoll(), testutil.Logger(t))
	composite, err := cold.Load(ctx, SessionIdentity{AuthID: "auth-123"})
	if err != nil {
		t.Fatalf("Load (cold): %v", err)
	}
	if !composite.PartiallyStale {
		t.Fatal("cold load under secondary failure must be marked partially stale")
	}
	if len(composite.Enrollments) != 1 {
		t.Fatalf("cold load lost enrollments: %+v", composite.Enrollments)
	}
	if composite.Subscription == nil || composite.Subscription.Plan != "premium" {
		t.Fatalf("cold load lost subscription: %+v", composite.Subscription)
	}
	if composite.Membership == nil {
		t.Fatal("cold load lost membership")
	}
}

func TestMembershipBackfilledFromEnrollments(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	prof, err := eng.repos.Profile.Create(ctx, testutil.FixtureProfile(t, "auth-123"))
	if err != nil {
		t.Fatalf("Create profile: %v", err)
	}
	p, err := eng.repos.Program.Create(ctx, testutil.FixtureProgram(t, "Karate"))
	if err != nil {
		t.Fatalf("Create program: %v", err)
	}
	if _, err := eng.repos.Enrollment.Create(ctx, testutil.FixtureEnrollment(t, prof.ID, p)); err != nil {
		t.Fatalf("Create enrollment: %v", err)
	}

	rec := NewProfileReconciler(eng.repos, nil, shortPoll(), testutil.Logger(t))
	composite, err := rec.Load(ctx, SessionIdentity{AuthID: "auth-123"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if composite.Membership == nil || composite.Membership.Source != "enrollment_backfill" {
		t.Fatalf("membership not backfilled: %+v", composite.Membership)
	}

	// A later session over the same stores must find the record rather
	// than writing a second one.
	again := NewProfileReconciler(eng.freshRepos(t), nil, shortPoll(), testutil.Logger(t))
	if _, err := again.Load(ctx, SessionIdentity{AuthID: "auth-123"}); err != nil {
		t.Fatalf("Load (second session): %v", err)
	}
	docs, err := eng.secondary.Query(ctx, repos.CollectionMemberships, []store.Predicate{
		store.Eq("user_id", prof.ID.String()),
	}, nil, 0)
	if err != nil {
		t.Fatalf("Query memberships: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("backfill not idempotent: %d membership rows", len(docs))
	}
}

func TestNoBackfillWithoutEnrollments(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	if _, err := eng.repos.Profile.Create(ctx, testutil.FixtureProfile(t, "auth-123")); err != nil {
		t.Fatalf("Create profile: %v", err)
	}

	rec := NewProfileReconciler(eng.repos, nil, shortPoll(), testutil.Logger(t))
	composite, err := rec.Load(ctx, SessionIdentity{AuthID: "auth-123"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if composite.Membership != nil {
		t.Fatalf("membership must not be synthesized for a user with no enrollments: %+v", composite.Membership)
	}
	if eng.secondary.Len(repos.CollectionMemberships) != 0 {
		t.Fatal("backfill wrote a membership row for a user with no enrollments")
	}
}

func TestRefreshIsIdempotentWithoutChanges(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	prof, err := eng.repos.Profile.Create(ctx, testutil.FixtureProfile(t, "auth-123"))
	if err != nil {
		t.Fatalf("Create profile: %v", err)
	}
	p, err := eng.repos.Program.Create(ctx, testutil.FixtureProgram(t, "Karate"))
	if err != nil {
		t.Fatalf("Create program: %v", err)
	}
	if _, err := eng.repos.Enrollment.Create(ctx, testutil.FixtureEnrollment(t, prof.ID, p)); err != nil {
		t.Fatalf("Create enrollment: %v", err)
	}

	rec := NewProfileReconciler(eng.repos, nil, shortPoll(), testutil.Logger(t))
	first, err := rec.Load(ctx, SessionIdentity{AuthID: "auth-123"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := rec.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(first.Enrollments) != len(second.Enrollments) {
		t.Fatalf("refresh changed enrollment set: %d vs %d", len(first.Enrollments), len(second.Enrollments))
	}
	if first.PartiallyStale || second.PartiallyStale {
		t.Fatal("clean passes must not be partially stale")
	}
	if second.Membership == nil || first.Membership == nil || second.Membership.ID != first.Membership.ID {
		t.Fatalf("refresh produced a different membership: %+v vs %+v", first.Membership, second.Membership)
	}
}

func TestCurrentReturnsACopy(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()

	if _, err := eng.repos.Profile.Create(ctx, testutil.FixtureProfile(t, "auth-123")); err != nil {
		t.Fatalf("Create profile: %v", err)
	}
	rec := NewProfileReconciler(eng.repos, nil, shortPoll(), testutil.Logger(t))
	if _, err := rec.Load(ctx, SessionIdentity{AuthID: "auth-123"}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	held := rec.Current()
	held.Profile.DisplayName = "mutated"
	if rec.Current().Profile.DisplayName == "mutated" {
		t.Fatal("Current must hand out an isolated copy")
	}
	if uuid.Nil == held.Profile.ID {
		t.Fatal("Current returned an empty composite")
	}
}
