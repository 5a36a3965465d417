package training

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProgressTypeSession      = "session"
	ProgressTypeForm         = "form"
	ProgressTypeTechnique    = "technique"
	ProgressTypeSparring     = "sparring"
	ProgressTypeConditioning = "conditioning"
	ProgressTypeRankTest     = "rank_test"
)

// ProgramProgress is one append-only journal event. Records are immutable
// once written; corrections are new records, never in-place updates.
type ProgramProgress struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	ProgramID       uuid.UUID  `json:"program_id"`
	SessionID       *uuid.UUID `json:"session_id,omitempty"`
	RankID          *uuid.UUID `json:"rank_id,omitempty"`
	Form            string     `json:"form,omitempty"`
	Technique       string     `json:"technique,omitempty"`
	ProgressType    string     `json:"progress_type"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	Score           *float64   `json:"score,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	RecordedAt      time.Time  `json:"recorded_at"`
}

func (p *ProgramProgress) EntityID() string { return p.ID.String() }

// NaturalKey is the record id itself: journal events have no secondary
// uniqueness, every append is its own row.
func (p *ProgramProgress) NaturalKey() string { return p.ID.String() }
