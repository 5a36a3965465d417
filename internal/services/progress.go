package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/dojolist/dojolist-engine/internal/data/repos"
	types "github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
)

// ProgressService is the practice-journal surface: append-only session
// events plus per-rank completion tracking.
type ProgressService interface {
	RecordProgress(ctx context.Context, rec *types.ProgramProgress) (*types.ProgramProgress, error)
	// UpdateProgress exists for API symmetry with the mobile client, but
	// journal records are immutable: it appends a fresh record.
	UpdateProgress(ctx context.Context, rec *types.ProgramProgress) (*types.ProgramProgress, error)
	ListProgress(ctx context.Context, filter repos.ProgressFilter) ([]*types.ProgramProgress, error)

	UpsertRankProgress(ctx context.Context, rp *types.RankProgress) (*types.RankProgress, error)
	GetRankProgress(ctx context.Context, userID, programID, rankID uuid.UUID) (*types.RankProgress, error)
	ListRankProgress(ctx context.Context, userID, programID uuid.UUID) ([]*types.RankProgress, error)
}

type progressService struct {
	progress     repos.ProgramProgressRepo
	rankProgress repos.RankProgressRepo
	programs     repos.ProgramRepo
	log          *logger.Logger
}

func NewProgressService(progress repos.ProgramProgressRepo, rankProgress repos.RankProgressRepo, programs repos.ProgramRepo, baseLog *logger.Logger) ProgressService {
	return &progressService{
		progress:     progress,
		rankProgress: rankProgress,
		programs:     programs,
		log:          baseLog.With("service", "ProgressService"),
	}
}

func (s *progressService) RecordProgress(ctx context.Context, rec *types.ProgramProgress) (*types.ProgramProgress, error) {
	p, err := s.programs.GetByID(ctx, rec.ProgramID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound(string(types.KindProgram), rec.ProgramID.String())
	}
	if rec.RankID != nil {
		if _, ok := p.RankByID(*rec.RankID); !ok {
			return nil, apperr.NotFound("rank", rec.RankID.String())
		}
	}
	return s.progress.Append(ctx, rec)
}

func (s *progressService) UpdateProgress(ctx context.Context, rec *types.ProgramProgress) (*types.ProgramProgress, error) {
	return s.RecordProgress(ctx, rec)
}

func (s *progressService) ListProgress(ctx context.Context, filter repos.ProgressFilter) ([]*types.ProgramProgress, error) {
	return s.progress.List(ctx, filter)
}

func (s *progressService) UpsertRankProgress(ctx context.Context, rp *types.RankProgress) (*types.RankProgress, error) {
	p, err := s.programs.GetByID(ctx, rp.ProgramID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound(string(types.KindProgram), rp.ProgramID.String())
	}
	if _, ok := p.RankByID(rp.RankID); !ok {
		return nil, apperr.NotFound("rank", rp.RankID.String())
	}
	return s.rankProgress.Upsert(ctx, rp)
}

func (s *progressService) GetRankProgress(ctx context.Context, userID, programID, rankID uuid.UUID) (*types.RankProgress, error) {
	return s.rankProgress.GetFor(ctx, userID, programID, rankID)
}

func (s *progressService) ListRankProgress(ctx context.Context, userID, programID uuid.UUID) ([]*types.RankProgress, error) {
	return s.rankProgress.ListForUserProgram(ctx, userID, programID)
}
