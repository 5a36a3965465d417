package profile

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the primary-store record. The primary store is
// authoritative for identity, role and access-level fields.
type UserProfile struct {
	ID          uuid.UUID `json:"id"`
	AuthID      string    `json:"auth_id,omitempty"` // external auth provider id
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Roles       []string  `json:"roles,omitempty"`
	AccessLevel string    `json:"access_level,omitempty"`

	// ProgramEnrollments maps program id to "currently enrolled". Kept
	// denormalized on the profile so the reconciler can scope secondary
	// fetches before the enrollment records themselves are loaded.
	ProgramEnrollments map[string]bool `json:"program_enrollments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *UserProfile) EntityID() string { return p.ID.String() }

// NaturalKey is the external auth id; legacy records created before auth
// integration have none and are looked up by direct id instead.
func (p *UserProfile) NaturalKey() string { return p.AuthID }
