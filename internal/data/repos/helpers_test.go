package repos

import (
	"github.com/google/uuid"

	types "github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/domain/training"
)

func fixtureProgressRecord(userID, programID uuid.UUID) *types.ProgramProgress {
	return &types.ProgramProgress{
		UserID:          userID,
		ProgramID:       programID,
		ProgressType:    training.ProgressTypeSession,
		DurationMinutes: 60,
		Notes:           "evening class",
	}
}

func fixtureRankProgress(userID, programID, rankID uuid.UUID) *types.RankProgress {
	return &types.RankProgress{
		UserID:     userID,
		ProgramID:  programID,
		RankID:     rankID,
		Completion: 0.25,
		ItemCompletion: map[string]float64{
			"form-White Belt": 0.5,
		},
	}
}
