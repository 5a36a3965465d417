package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/dojolist/dojolist-engine/internal/data/repos/testutil"
	"github.com/dojolist/dojolist-engine/internal/domain/training"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
)

func TestProgressAppendIsImmutable(t *testing.T) {
	_, secondary := testutil.Stores(t)
	repo := NewProgramProgressRepo(secondary, testutil.Notifier(t), testutil.Logger(t))
	ctx := context.Background()

	userID, programID := uuid.New(), uuid.New()

	rec := fixtureProgressRecord(userID, programID)
	first, err := repo.Append(ctx, rec)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	firstID := first.ID

	// Appending the same value again is a second journal event, never an
	// overwrite of the first.
	rec.Notes = "corrected entry"
	second, err := repo.Append(ctx, rec)
	if err != nil {
		t.Fatalf("Append (second): %v", err)
	}
	if second.ID == firstID {
		t.Fatal("append reused the previous record id")
	}

	all, err := repo.List(ctx, ProgressFilter{UserID: userID, ProgramID: programID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List: expected 2 records, got %d", len(all))
	}
}

func TestProgressAppendValidation(t *testing.T) {
	_, secondary := testutil.Stores(t)
	repo := NewProgramProgressRepo(secondary, testutil.Notifier(t), testutil.Logger(t))
	ctx := context.Background()

	rec := fixtureProgressRecord(uuid.Nil, uuid.New())
	if _, err := repo.Append(ctx, rec); !apperr.IsValidation(err) {
		t.Fatalf("Append (no user): expected validation error, got %v", err)
	}

	rec = fixtureProgressRecord(uuid.New(), uuid.New())
	rec.ProgressType = ""
	if _, err := repo.Append(ctx, rec); !apperr.IsValidation(err) {
		t.Fatalf("Append (no type): expected validation error, got %v", err)
	}
}

func TestProgressListFiltersByType(t *testing.T) {
	_, secondary := testutil.Stores(t)
	repo := NewProgramProgressRepo(secondary, testutil.Notifier(t), testutil.Logger(t))
	ctx := context.Background()

	userID, programID := uuid.New(), uuid.New()

	session := fixtureProgressRecord(userID, programID)
	if _, err := repo.Append(ctx, session); err != nil {
		t.Fatalf("Append: %v", err)
	}
	sparring := fixtureProgressRecord(userID, programID)
	sparring.ProgressType = training.ProgressTypeSparring
	if _, err := repo.Append(ctx, sparring); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := repo.List(ctx, ProgressFilter{UserID: userID, ProgressType: training.ProgressTypeSparring})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ProgressType != training.ProgressTypeSparring {
		t.Fatalf("List by type: unexpected %+v", got)
	}
}
