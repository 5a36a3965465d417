package training

import (
	"time"

	"github.com/google/uuid"
)

// RankProgress is one row per (user, program, rank): overall completion in
// [0,1] plus per-curriculum-item fractions. Rows are merge-upserted so
// concurrent partial updates stay additive by field.
type RankProgress struct {
	ID             uuid.UUID          `json:"id"`
	UserID         uuid.UUID          `json:"user_id"`
	ProgramID      uuid.UUID          `json:"program_id"`
	RankID         uuid.UUID          `json:"rank_id"`
	Completion     float64            `json:"completion"`
	ItemCompletion map[string]float64 `json:"item_completion,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func (rp *RankProgress) EntityID() string { return rp.ID.String() }

func (rp *RankProgress) NaturalKey() string {
	return RankProgressKey(rp.UserID, rp.ProgramID, rp.RankID)
}

func RankProgressKey(userID, programID, rankID uuid.UUID) string {
	return userID.String() + "/" + programID.String() + "/" + rankID.String()
}
