package repos

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/notify"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
	"github.com/dojolist/dojolist-engine/internal/store"
)

type ProgressFilter struct {
	UserID       uuid.UUID
	ProgramID    uuid.UUID
	ProgressType string
	Limit        int
}

// ProgramProgressRepo is append-only: journal events are immutable once
// written. There is no update method; a correction is a new record.
type ProgramProgressRepo interface {
	Append(ctx context.Context, rec *types.ProgramProgress) (*types.ProgramProgress, error)
	GetByID(ctx context.Context, recordID uuid.UUID) (*types.ProgramProgress, error)
	List(ctx context.Context, filter ProgressFilter) ([]*types.ProgramProgress, error)
}

type programProgressRepo struct {
	base[types.ProgramProgress, *types.ProgramProgress]
}

func NewProgramProgressRepo(client store.Client, notifier *notify.Notifier, baseLog *logger.Logger) ProgramProgressRepo {
	return &programProgressRepo{
		base: newBase[types.ProgramProgress, *types.ProgramProgress](
			types.KindProgramProgress, CollectionProgramProgress, client, notifier, baseLog),
	}
}

func (r *programProgressRepo) Append(ctx context.Context, rec *types.ProgramProgress) (*types.ProgramProgress, error) {
	if rec.UserID == uuid.Nil {
		return nil, apperr.Validation("user_id", "must not be empty")
	}
	if rec.ProgramID == uuid.Nil {
		return nil, apperr.Validation("program_id", "must not be empty")
	}
	if rec.ProgressType == "" {
		return nil, apperr.Validation("progress_type", "must not be empty")
	}

	// Always a fresh id: appends never overwrite, even when the caller
	// reuses a record value.
	rec.ID = uuid.New()
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	if err := r.save(ctx, rec, false, notify.EventCreated); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *programProgressRepo) GetByID(ctx context.Context, recordID uuid.UUID) (*types.ProgramProgress, error) {
	return r.getByID(ctx, recordID.String())
}

func (r *programProgressRepo) List(ctx context.Context, filter ProgressFilter) ([]*types.ProgramProgress, error) {
	var preds []store.Predicate
	if filter.UserID != uuid.Nil {
		preds = append(preds, store.Eq("user_id", filter.UserID.String()))
	}
	if filter.ProgramID != uuid.Nil {
		preds = append(preds, store.Eq("program_id", filter.ProgramID.String()))
	}
	if filter.ProgressType != "" {
		preds = append(preds, store.Eq("progress_type", filter.ProgressType))
	}
	return r.list(ctx, preds, &store.OrderBy{Field: "recorded_at", Desc: true}, filter.Limit)
}
