package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/dojolist/dojolist-engine/internal/data/repos/testutil"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
)

func newEnrollmentService(t *testing.T, eng *engine) EnrollmentService {
	t.Helper()
	return NewEnrollmentService(eng.repos.Enrollment, eng.repos.Program, eng.repos.Profile, testutil.Logger(t))
}

func TestEnrollAssignsFirstRank(t *testing.T) {
	eng := newEngine(t)
	svc := newEnrollmentService(t, eng)
	ctx := context.Background()

	p, err := eng.repos.Program.Create(ctx, testutil.FixtureProgram(t, "Karate"))
	if err != nil {
		t.Fatalf("Create program: %v", err)
	}
	userID := uuid.New()

	e, err := svc.Enroll(ctx, userID, p.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if !e.Enrolled || e.CurrentRankID == nil {
		t.Fatalf("Enroll: unexpected state %+v", e)
	}
	ordered := p.RanksInOrder()
	if *e.CurrentRankID != ordered[0].ID {
		t.Fatalf("Enroll: expected first rank %s, got %s", ordered[0].ID, *e.CurrentRankID)
	}
}

func TestEnrollRejectsInactiveProgram(t *testing.T) {
	eng := newEngine(t)
	svc := newEnrollmentService(t, eng)
	ctx := context.Background()

	p := testutil.FixtureProgram(t, "Retired Style")
	p.Active = false
	created, err := eng.repos.Program.Create(ctx, p)
	if err != nil {
		t.Fatalf("Create program: %v", err)
	}

	if _, err := svc.Enroll(ctx, uuid.New(), created.ID); !apperr.IsConflict(err) {
		t.Fatalf("Enroll (inactive): expected conflict, got %v", err)
	}
}

func TestEnrollMissingProgram(t *testing.T) {
	eng := newEngine(t)
	svc := newEnrollmentService(t, eng)

	if _, err := svc.Enroll(context.Background(), uuid.New(), uuid.New()); !apperr.IsNotFound(err) {
		t.Fatalf("Enroll (no program): expected not-found, got %v", err)
	}
}

func TestEnrollTwiceFails(t *testing.T) {
	eng := newEngine(t)
	svc := newEnrollmentService(t, eng)
	ctx := context.Background()

	p, err := eng.repos.Program.Create(ctx, testutil.FixtureProgram(t, "Karate"))
	if err != nil {
		t.Fatalf("Create program: %v", err)
	}
	userID := uuid.New()

	if _, err := svc.Enroll(ctx, userID, p.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, err := svc.Enroll(ctx, userID, p.ID); !apperr.IsDuplicate(err) {
		t.Fatalf("Enroll (again): expected duplicate, got %v", err)
	}
}

func TestEnrollConcurrentSamePairYieldsOneRecord(t *testing.T) {
	eng := newEngine(t)
	svc := newEnrollmentService(t, eng)
	ctx := context.Background()

	p, err := eng.repos.Program.Create(ctx, testutil.FixtureProgram(t, "Karate"))
	if err != nil {
		t.Fatalf("Create program: %v", err)
	}
	userID := uuid.New()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Enroll(ctx, userID, p.ID)
		}()
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperr.IsDuplicate(err):
		default:
			t.Fatalf("unexpected enroll error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning enroll, got %d", wins)
	}
	all, err := svc.ListUserEnrollments(ctx, userID)
	if err != nil {
		t.Fatalf("ListUserEnrollments: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one enrollment record, got %d", len(all))
	}
}

func TestDeactivateThenReenroll(t *testing.T) {
	eng := newEngine(t)
	svc := newEnrollmentService(t, eng)
	ctx := context.Background()

	p, err := eng.repos.Program.Create(ctx, testutil.FixtureProgram(t, "Karate"))
	if err != nil {
		t.Fatalf("Create program: %v", err)
	}
	userID := uuid.New()

	first, err := svc.Enroll(ctx, userID, p.ID)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	deactivated, err := svc.Deactivate(ctx, userID, p.ID)
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if deactivated.Enrolled || deactivated.Active {
		t.Fatalf("Deactivate: unexpected state %+v", deactivated)
	}

	// Re-enrolling reactivates the historical record instead of creating
	// a new one.
	again, err := svc.Enroll(ctx, userID, p.ID)
	if err != nil {
		t.Fatalf("Enroll (again): %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("re-enroll created a new record: %s vs %s", again.ID, first.ID)
	}
	if !again.Enrolled {
		t.Fatalf("re-enroll did not reactivate: %+v", again)
	}
}

func TestAdvanceRankRequiresExistingRank(t *testing.T) {
	eng := newEngine(t)
	svc := newEnrollmentService(t, eng)
	ctx := context.Background()

	p, err := eng.repos.Program.Create(ctx, testutil.FixtureProgram(t, "Karate"))
	if err != nil {
		t.Fatalf("Create program: %v", err)
	}
	userID := uuid.New()
	if _, err := svc.Enroll(ctx, userID, p.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	if _, err := svc.AdvanceRank(ctx, userID, p.ID, uuid.New()); !apperr.IsNotFound(err) {
		t.Fatalf("AdvanceRank (unknown rank): expected not-found, got %v", err)
	}

	target := p.RanksInOrder()[1]
	advanced, err := svc.AdvanceRank(ctx, userID, p.ID, target.ID)
	if err != nil {
		t.Fatalf("AdvanceRank: %v", err)
	}
	if advanced.CurrentRankID == nil || *advanced.CurrentRankID != target.ID {
		t.Fatalf("AdvanceRank: unexpected rank %+v", advanced.CurrentRankID)
	}
	if advanced.RankChangedAt == nil {
		t.Fatal("AdvanceRank: rank change time not recorded")
	}
}

func TestEnrollMirrorsProfileEnrollmentMap(t *testing.T) {
	eng := newEngine(t)
	svc := newEnrollmentService(t, eng)
	ctx := context.Background()

	prof, err := eng.repos.Profile.Create(ctx, testutil.FixtureProfile(t, "auth-123"))
	if err != nil {
		t.Fatalf("Create profile: %v", err)
	}
	p, err := eng.repos.Program.Create(ctx, testutil.FixtureProgram(t, "Karate"))
	if err != nil {
		t.Fatalf("Create program: %v", err)
	}

	if _, err := svc.Enroll(ctx, prof.ID, p.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	updated, err := eng.repos.Profile.GetByID(ctx, prof.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !updated.ProgramEnrollments[p.ID.String()] {
		t.Fatalf("profile enrollment map not mirrored: %+v", updated.ProgramEnrollments)
	}

	if _, err := svc.Deactivate(ctx, prof.ID, p.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	updated, err = eng.repos.Profile.GetByID(ctx, prof.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.ProgramEnrollments[p.ID.String()] {
		t.Fatalf("profile enrollment map not cleared: %+v", updated.ProgramEnrollments)
	}
}
