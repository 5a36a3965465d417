package training

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment ties a user to a program. Identity is logically the
// (user, program) pair; the record keeps its own id because the backing
// document store keys by a single document id.
type Enrollment struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	ProgramID     uuid.UUID  `json:"program_id"`
	Enrolled      bool       `json:"enrolled"`
	EnrolledAt    time.Time  `json:"enrolled_at"`
	CurrentRankID *uuid.UUID `json:"current_rank_id,omitempty"`
	RankChangedAt *time.Time `json:"rank_changed_at,omitempty"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (e *Enrollment) EntityID() string { return e.ID.String() }

func (e *Enrollment) NaturalKey() string {
	return EnrollmentKey(e.UserID, e.ProgramID)
}

// EnrollmentKey builds the (user, program) natural key used for the
// at-most-one-enrolled check and for per-pair write serialization.
func EnrollmentKey(userID, programID uuid.UUID) string {
	return userID.String() + "/" + programID.String()
}
