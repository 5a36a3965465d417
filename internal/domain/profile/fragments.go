package profile

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is a secondary-store fragment describing the user's paid
// plan, if any.
type Subscription struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Plan      string     `json:"plan"`
	Status    string     `json:"status"` // "active", "grace", "expired"
	RenewsAt  *time.Time `json:"renews_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (s *Subscription) EntityID() string   { return s.ID.String() }
func (s *Subscription) NaturalKey() string { return s.UserID.String() }

// StudioMembership is a secondary-store fragment linking the user to the
// studio. Legacy accounts predate this record; the reconciler backfills it
// from enrollment data when missing.
type StudioMembership struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	StudioID   string    `json:"studio_id,omitempty"`
	ProgramIDs []string  `json:"program_ids,omitempty"`
	JoinedAt   time.Time `json:"joined_at"`
	Source     string    `json:"source,omitempty"` // "enrollment_backfill" when synthesized
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (m *StudioMembership) EntityID() string   { return m.ID.String() }
func (m *StudioMembership) NaturalKey() string { return m.UserID.String() }
