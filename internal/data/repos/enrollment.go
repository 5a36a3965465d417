package repos

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/domain/training"
	"github.com/dojolist/dojolist-engine/internal/notify"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
	"github.com/dojolist/dojolist-engine/internal/store"
)

type EnrollmentRepo interface {
	// Create enforces at-most-one enrolled record per (user, program)
	// by query-then-write; callers wanting safety under concurrency must
	// serialize per pair (the enrollment service does).
	Create(ctx context.Context, e *types.Enrollment) (*types.Enrollment, error)
	GetByID(ctx context.Context, enrollmentID uuid.UUID) (*types.Enrollment, error)
	GetByUserProgram(ctx context.Context, userID, programID uuid.UUID) (*types.Enrollment, error)
	Update(ctx context.Context, e *types.Enrollment) (*types.Enrollment, error)
	// Delete is the explicit administrative removal; lifecycle changes go
	// through Update with Enrolled/Active flags.
	Delete(ctx context.Context, enrollmentID uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Enrollment, error)
	ListForProgram(ctx context.Context, programID uuid.UUID, enrolledOnly bool) ([]*types.Enrollment, error)
}

type enrollmentRepo struct {
	base[types.Enrollment, *types.Enrollment]
}

func NewEnrollmentRepo(client store.Client, notifier *notify.Notifier, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{
		base: newBase[types.Enrollment, *types.Enrollment](
			types.KindEnrollment, CollectionEnrollments, client, notifier, baseLog),
	}
}

func (r *enrollmentRepo) Create(ctx context.Context, e *types.Enrollment) (*types.Enrollment, error) {
	if e.UserID == uuid.Nil {
		return nil, apperr.Validation("user_id", "must not be empty")
	}
	if e.ProgramID == uuid.Nil {
		return nil, apperr.Validation("program_id", "must not be empty")
	}

	key := training.EnrollmentKey(e.UserID, e.ProgramID)
	if cached, ok := r.cache.ByNaturalKey(key); ok && cached.Enrolled {
		return nil, apperr.Duplicate(string(types.KindEnrollment), key)
	}
	exists, err := r.existsRemote(ctx, []store.Predicate{
		store.Eq("user_id", e.UserID.String()),
		store.Eq("program_id", e.ProgramID.String()),
		store.Eq("enrolled", true),
	})
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Duplicate(string(types.KindEnrollment), key)
	}

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now().UTC()
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = now
	}
	e.CreatedAt = now
	e.UpdatedAt = now

	if err := r.save(ctx, e, false, notify.EventCreated); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *enrollmentRepo) GetByID(ctx context.Context, enrollmentID uuid.UUID) (*types.Enrollment, error) {
	return r.getByID(ctx, enrollmentID.String())
}

func (r *enrollmentRepo) GetByUserProgram(ctx context.Context, userID, programID uuid.UUID) (*types.Enrollment, error) {
	if cached, ok := r.cache.ByNaturalKey(training.EnrollmentKey(userID, programID)); ok {
		return cached, nil
	}
	found, err := r.list(ctx, []store.Predicate{
		store.Eq("user_id", userID.String()),
		store.Eq("program_id", programID.String()),
	}, &store.OrderBy{Field: "updated_at", Desc: true}, 1)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *enrollmentRepo) Update(ctx context.Context, e *types.Enrollment) (*types.Enrollment, error) {
	if _, err := r.client.GetDocument(ctx, r.collection, e.ID.String()); err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NotFound(string(types.KindEnrollment), e.ID.String())
		}
		return nil, r.mapStoreErr(err)
	}
	e.UpdatedAt = time.Now().UTC()
	if err := r.save(ctx, e, false, notify.EventUpdated); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *enrollmentRepo) Delete(ctx context.Context, enrollmentID uuid.UUID) error {
	id := enrollmentID.String()
	deleted, _ := r.cache.Get(id)
	if err := r.remove(ctx, id); err != nil {
		return err
	}
	if deleted != nil {
		r.publish(notify.EventDeleted, deleted)
	}
	return nil
}

func (r *enrollmentRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Enrollment, error) {
	return r.list(ctx, []store.Predicate{
		store.Eq("user_id", userID.String()),
	}, &store.OrderBy{Field: "enrolled_at"}, 0)
}

func (r *enrollmentRepo) ListForProgram(ctx context.Context, programID uuid.UUID, enrolledOnly bool) ([]*types.Enrollment, error) {
	preds := []store.Predicate{store.Eq("program_id", programID.String())}
	if enrolledOnly {
		preds = append(preds, store.Eq("enrolled", true))
	}
	return r.list(ctx, preds, &store.OrderBy{Field: "enrolled_at"}, 0)
}
