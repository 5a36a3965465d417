package profile

import (
	"time"

	"github.com/dojolist/dojolist-engine/internal/domain/training"
)

// CompositeProfile is the reconciler's read-model: identity fields from the
// primary store overlaid with secondary-store fragments. It is recomputed
// on every reconciliation pass; a denormalized copy is cached back into the
// primary store for offline reads, but the composite itself is never the
// source of truth.
type CompositeProfile struct {
	Profile UserProfile `json:"profile"`

	// Enrollments is keyed by program id.
	Enrollments  map[string]training.Enrollment `json:"enrollments,omitempty"`
	Subscription *Subscription                  `json:"subscription,omitempty"`
	Membership   *StudioMembership              `json:"membership,omitempty"`

	// PartiallyStale marks a composite built while the secondary store was
	// unreachable: identity fields are current, fragment fields may be the
	// last known values.
	PartiallyStale bool      `json:"partially_stale"`
	ReconciledAt   time.Time `json:"reconciled_at"`
}

func (c *CompositeProfile) EntityID() string   { return c.Profile.ID.String() }
func (c *CompositeProfile) NaturalKey() string { return c.Profile.AuthID }

// Clone returns a deep copy so callers can hold a composite across a
// refresh without racing the reconciler's own copy.
func (c *CompositeProfile) Clone() *CompositeProfile {
	if c == nil {
		return nil
	}
	out := *c
	if c.Enrollments != nil {
		out.Enrollments = make(map[string]training.Enrollment, len(c.Enrollments))
		for k, v := range c.Enrollments {
			out.Enrollments[k] = v
		}
	}
	if c.Subscription != nil {
		sub := *c.Subscription
		out.Subscription = &sub
	}
	if c.Membership != nil {
		mem := *c.Membership
		mem.ProgramIDs = append([]string(nil), c.Membership.ProgramIDs...)
		out.Membership = &mem
	}
	return &out
}
