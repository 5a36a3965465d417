package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dojolist/dojolist-engine/internal/data/repos"
	types "github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/domain/training"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
)

// EnrollmentService drives the enrollment lifecycle. The store has no
// uniqueness constraint on (user, program), so writes for one pair are
// serialized through an in-process key lock; the repository's
// query-then-write check then holds for callers going through this
// service.
type EnrollmentService interface {
	Enroll(ctx context.Context, userID, programID uuid.UUID) (*types.Enrollment, error)
	// AdvanceRank moves the enrollment to the given rank, which must exist
	// in the program at assignment time.
	AdvanceRank(ctx context.Context, userID, programID, toRankID uuid.UUID) (*types.Enrollment, error)
	Deactivate(ctx context.Context, userID, programID uuid.UUID) (*types.Enrollment, error)
	GetEnrollment(ctx context.Context, userID, programID uuid.UUID) (*types.Enrollment, error)
	ListUserEnrollments(ctx context.Context, userID uuid.UUID) ([]*types.Enrollment, error)
}

// keyMutex hands out refcounted per-key locks.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*keyLock)}
}

func (km *keyMutex) lock(key string) func() {
	km.mu.Lock()
	l, ok := km.locks[key]
	if !ok {
		l = &keyLock{}
		km.locks[key] = l
	}
	l.refs++
	km.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		km.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}

type enrollmentService struct {
	enrollments repos.EnrollmentRepo
	programs    repos.ProgramRepo
	profiles    repos.ProfileRepo
	log         *logger.Logger
	pairLocks   *keyMutex
}

func NewEnrollmentService(enrollments repos.EnrollmentRepo, programs repos.ProgramRepo, profiles repos.ProfileRepo, baseLog *logger.Logger) EnrollmentService {
	return &enrollmentService{
		enrollments: enrollments,
		programs:    programs,
		profiles:    profiles,
		log:         baseLog.With("service", "EnrollmentService"),
		pairLocks:   newKeyMutex(),
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, userID, programID uuid.UUID) (*types.Enrollment, error) {
	unlock := s.pairLocks.lock(training.EnrollmentKey(userID, programID))
	defer unlock()

	p, err := s.programs.GetByID(ctx, programID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound(string(types.KindProgram), programID.String())
	}
	if !p.Active {
		return nil, apperr.Conflict(string(types.KindProgram), programID.String(), "program is inactive")
	}

	existing, err := s.enrollments.GetByUserProgram(ctx, userID, programID)
	if err != nil {
		return nil, err
	}

	var result *types.Enrollment
	now := time.Now().UTC()
	switch {
	case existing != nil && existing.Enrolled:
		return nil, apperr.Duplicate(string(types.KindEnrollment), training.EnrollmentKey(userID, programID))
	case existing != nil:
		// Re-enrollment reactivates the historical record.
		existing.Enrolled = true
		existing.Active = true
		existing.EnrolledAt = now
		result, err = s.enrollments.Update(ctx, existing)
	default:
		e := &types.Enrollment{
			UserID:     userID,
			ProgramID:  programID,
			Enrolled:   true,
			Active:     true,
			EnrolledAt: now,
		}
		if ordered := p.RanksInOrder(); len(ordered) > 0 {
			first := ordered[0].ID
			e.CurrentRankID = &first
			e.RankChangedAt = &now
		}
		result, err = s.enrollments.Create(ctx, e)
	}
	if err != nil {
		return nil, err
	}

	s.markProfileEnrollment(ctx, userID, programID, true)
	s.log.Info("user enrolled", "userID", userID, "programID", programID)
	return result, nil
}

func (s *enrollmentService) AdvanceRank(ctx context.Context, userID, programID, toRankID uuid.UUID) (*types.Enrollment, error) {
	unlock := s.pairLocks.lock(training.EnrollmentKey(userID, programID))
	defer unlock()

	p, err := s.programs.GetByID(ctx, programID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound(string(types.KindProgram), programID.String())
	}
	if _, ok := p.RankByID(toRankID); !ok {
		return nil, apperr.NotFound("rank", toRankID.String())
	}

	e, err := s.enrollments.GetByUserProgram(ctx, userID, programID)
	if err != nil {
		return nil, err
	}
	if e == nil || !e.Enrolled {
		return nil, apperr.NotFound(string(types.KindEnrollment), training.EnrollmentKey(userID, programID))
	}

	now := time.Now().UTC()
	e.CurrentRankID = &toRankID
	e.RankChangedAt = &now
	updated, err := s.enrollments.Update(ctx, e)
	if err != nil {
		return nil, err
	}
	s.log.Info("rank advanced", "userID", userID, "programID", programID, "rankID", toRankID)
	return updated, nil
}

func (s *enrollmentService) Deactivate(ctx context.Context, userID, programID uuid.UUID) (*types.Enrollment, error) {
	unlock := s.pairLocks.lock(training.EnrollmentKey(userID, programID))
	defer unlock()

	e, err := s.enrollments.GetByUserProgram(ctx, userID, programID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.NotFound(string(types.KindEnrollment), training.EnrollmentKey(userID, programID))
	}
	e.Enrolled = false
	e.Active = false
	updated, err := s.enrollments.Update(ctx, e)
	if err != nil {
		return nil, err
	}
	s.markProfileEnrollment(ctx, userID, programID, false)
	s.log.Info("enrollment deactivated", "userID", userID, "programID", programID)
	return updated, nil
}

func (s *enrollmentService) GetEnrollment(ctx context.Context, userID, programID uuid.UUID) (*types.Enrollment, error) {
	return s.enrollments.GetByUserProgram(ctx, userID, programID)
}

func (s *enrollmentService) ListUserEnrollments(ctx context.Context, userID uuid.UUID) ([]*types.Enrollment, error) {
	return s.enrollments.ListForUser(ctx, userID)
}

// markProfileEnrollment mirrors the enrollment flag onto the primary-store
// profile map the reconciler uses to scope secondary fetches. Best effort:
// the reconciler also repairs the map on its next pass.
func (s *enrollmentService) markProfileEnrollment(ctx context.Context, userID, programID uuid.UUID, enrolled bool) {
	prof, err := s.profiles.GetByID(ctx, userID)
	if err != nil || prof == nil {
		if err != nil {
			s.log.Warn("profile enrollment map update skipped", "userID", userID, "error", err)
		}
		return
	}
	if prof.ProgramEnrollments == nil {
		prof.ProgramEnrollments = make(map[string]bool)
	}
	prof.ProgramEnrollments[programID.String()] = enrolled
	if _, err := s.profiles.Update(ctx, prof); err != nil {
		s.log.Warn("profile enrollment map update failed", "userID", userID, "error", err)
	}
}
