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

type SubscriptionRepo interface {
	Upsert(ctx context.Context, s *types.Subscription) (*types.Subscription, error)
	GetForUser(ctx context.Context, userID uuid.UUID) (*types.Subscription, error)
}

type subscriptionRepo struct {
	base[types.Subscription, *types.Subscription]
}

func NewSubscriptionRepo(client store.Client, notifier *notify.Notifier, baseLog *logger.Logger) SubscriptionRepo {
	return &subscriptionRepo{
		base: newBase[types.Subscription, *types.Subscription](
			types.KindSubscription, CollectionSubscriptions, client, notifier, baseLog),
	}
}

// Upsert keeps one subscription row per user, reusing the existing id when
// the purchase system reports a plan change.
func (r *subscriptionRepo) Upsert(ctx context.Context, s *types.Subscription) (*types.Subscription, error) {
	if s.UserID == uuid.Nil {
		return nil, apperr.Validation("user_id", "must not be empty")
	}
	if s.Plan == "" {
		return nil, apperr.Validation("plan", "must not be empty")
	}

	existing, err := r.GetForUser(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	evType := notify.EventCreated
	if existing != nil {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
		evType = notify.EventUpdated
	} else {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	if err := r.save(ctx, s, false, evType); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *subscriptionRepo) GetForUser(ctx context.Context, userID uuid.UUID) (*types.Subscription, error) {
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
