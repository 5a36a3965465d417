package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/dojolist/dojolist-engine/internal/data/repos"
	types "github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
)

// ProgramService is the curriculum-browsing surface: program CRUD plus
// rank-order lookups.
type ProgramService interface {
	CreateProgram(ctx context.Context, p *types.Program) (*types.Program, error)
	GetProgram(ctx context.Context, programID uuid.UUID) (*types.Program, error)
	ListPrograms(ctx context.Context, filter repos.ProgramFilter) ([]*types.Program, error)
	UpdateProgram(ctx context.Context, p *types.Program) (*types.Program, error)
	DeleteProgram(ctx context.Context, programID uuid.UUID) error
	// GetNextRank returns the rank ordered immediately after the given
	// one. A nil result with nil error means the given rank is already the
	// highest; that is not an error.
	GetNextRank(ctx context.Context, programID, currentRankID uuid.UUID) (*types.Rank, error)
}

type programService struct {
	programs repos.ProgramRepo
	log      *logger.Logger
}

func NewProgramService(programs repos.ProgramRepo, baseLog *logger.Logger) ProgramService {
	return &programService{
		programs: programs,
		log:      baseLog.With("service", "ProgramService"),
	}
}

func (s *programService) CreateProgram(ctx context.Context, p *types.Program) (*types.Program, error) {
	created, err := s.programs.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.log.Info("program created", "programID", created.ID, "name", created.Name)
	return created, nil
}

func (s *programService) GetProgram(ctx context.Context, programID uuid.UUID) (*types.Program, error) {
	return s.programs.GetByID(ctx, programID)
}

func (s *programService) ListPrograms(ctx context.Context, filter repos.ProgramFilter) ([]*types.Program, error) {
	return s.programs.List(ctx, filter)
}

func (s *programService) UpdateProgram(ctx context.Context, p *types.Program) (*types.Program, error) {
	return s.programs.Update(ctx, p)
}

func (s *programService) DeleteProgram(ctx context.Context, programID uuid.UUID) error {
	err := s.programs.Delete(ctx, programID)
	if err == nil {
		s.log.Info("program deleted", "programID", programID)
	}
	return err
}

func (s *programService) GetNextRank(ctx context.Context, programID, currentRankID uuid.UUID) (*types.Rank, error) {
	p, err := s.programs.GetByID(ctx, programID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound(string(types.KindProgram), programID.String())
	}
	if _, ok := p.RankByID(currentRankID); !ok {
		return nil, apperr.NotFound("rank", currentRankID.String())
	}
	next, ok := p.NextRank(currentRankID)
	if !ok {
		return nil, nil
	}
	return &next, nil
}
