package repos

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/notify"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
	"github.com/dojolist/dojolist-engine/internal/store"
)

// StudioMembershipRepo serves the secondary-store membership fragment.
// At most one membership per user; the reconciler's backfill relies on
// Create rejecting a second record for the same user.
type StudioMembershipRepo interface {
	Create(ctx context.Context, m *types.StudioMembership) (*types.StudioMembership, error)
	GetForUser(ctx context.Context, userID uuid.UUID) (*types.StudioMembership, error)
	Update(ctx context.Context, m *types.StudioMembership) (*types.StudioMembership, error)
}

type membershipRepo struct {
	base[types.StudioMembership, *types.StudioMembership]
}

func NewStudioMembershipRepo(client store.Client, notifier *notify.Notifier, baseLog *logger.Logger) StudioMembershipRepo {
	return &membershipRepo{
		base: newBase[types.StudioMembership, *types.StudioMembership](
			types.KindStudioMembership, CollectionMemberships, client, notifier, baseLog),
	}
}

func (r *membershipRepo) Create(ctx context.Context, m *types.StudioMembership) (*types.StudioMembership, error) {
	if m.UserID == uuid.Nil {
		return nil, apperr.Validation("user_id", "must not be empty")
	}
	if cached, ok := r.cache.ByNaturalKey(m.UserID.String()); ok {
		return nil, apperr.Duplicate(string(types.KindStudioMembership), cached.UserID.String())
	}
	exists, err := r.existsRemote(ctx, []store.Predicate{store.Eq("user_id", m.UserID.String())})
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Duplicate(string(types.KindStudioMembership), m.UserID.String())
	}

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()
	if m.JoinedAt.IsZero() {
		m.JoinedAt = now
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := r.save(ctx, m, false, notify.EventCreated); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *membershipRepo) GetForUser(ctx context.Context, userID uuid.UUID) (*types.StudioMembership, error) {
	if cached, ok := r.cache.ByNaturalKey(userID.String()); ok {
		return cached, nil
	}
	found, err := r.list(ctx, []store.Predicate{store.Eq("user_id", userID.String())}, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *membershipRepo) Update(ctx context.Context, m *types.StudioMembership) (*types.StudioMembership, error) {
	if _, err := r.client.GetDocument(ctx, r.collection, m.ID.String()); err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NotFound(string(types.KindStudioMembership), m.ID.String())
		}
		return nil, r.mapStoreErr(err)
	}
	m.UpdatedAt = time.Now().UTC()
	if err := r.save(ctx, m, false, notify.EventUpdated); err != nil {
		return nil, err
	}
	return m, nil
}
