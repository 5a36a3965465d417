package services

import (
	"context"

	"github.com/google/uuid"
)

// SessionIdentity is what the auth layer hands the engine for one user
// session: the external auth id, plus the direct profile id when the
// session belongs to a legacy account that predates auth integration.
type SessionIdentity struct {
	AuthID      string
	ProfileID   uuid.UUID
	Email       string
	DisplayName string
}

// Onboarder is the external collaborator invoked when no primary-store
// profile exists for a session. Its contract is "given a session identity,
// eventually produce a primary-store profile record"; the reconciler polls
// for the result rather than being called back.
type Onboarder interface {
	BeginOnboarding(ctx context.Context, identity SessionIdentity) error
}
