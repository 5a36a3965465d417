package repos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	types "github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/notify"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
	"github.com/dojolist/dojolist-engine/internal/store"
)

// ProfileRepo fronts the primary store, which is authoritative for
// identity, role and access-level fields. It also owns the denormalized
// composite-profile cache collection written after each reconciliation.
type ProfileRepo interface {
	Create(ctx context.Context, p *types.UserProfile) (*types.UserProfile, error)
	GetByID(ctx context.Context, profileID uuid.UUID) (*types.UserProfile, error)
	// GetByAuthID resolves by the external auth id; legacy records created
	// before auth integration are found by GetByID instead.
	GetByAuthID(ctx context.Context, authID string) (*types.UserProfile, error)
	Update(ctx context.Context, p *types.UserProfile) (*types.UserProfile, error)

	SaveComposite(ctx context.Context, c *types.CompositeProfile) error
	GetComposite(ctx context.Context, profileID uuid.UUID) (*types.CompositeProfile, error)
}

type profileRepo struct {
	base[types.UserProfile, *types.UserProfile]
}

func NewProfileRepo(client store.Client, notifier *notify.Notifier, baseLog *logger.Logger) ProfileRepo {
	return &profileRepo{
		base: newBase[types.UserProfile, *types.UserProfile](
			types.KindUserProfile, CollectionProfiles, client, notifier, baseLog),
	}
}

func (r *profileRepo) Create(ctx context.Context, p *types.UserProfile) (*types.UserProfile, error) {
	if p.Email == "" {
		return nil, apperr.Validation("email", "must not be empty")
	}
	if p.AuthID != "" {
		exists, err := r.existsRemote(ctx, []store.Predicate{store.Eq("auth_id", p.AuthID)})
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperr.Duplicate(string(types.KindUserProfile), p.AuthID)
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := r.save(ctx, p, false, notify.EventCreated); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *profileRepo) GetByID(ctx context.Context, profileID uuid.UUID) (*types.UserProfile, error) {
	return r.getByID(ctx, profileID.String())
}

func (r *profileRepo) GetByAuthID(ctx context.Context, authID string) (*types.UserProfile, error) {
	if authID == "" {
		return nil, nil
	}
	if cached, ok := r.cache.ByNaturalKey(authID); ok {
		return cached, nil
	}
	found, err := r.list(ctx, []store.Predicate{store.Eq("auth_id", authID)}, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *profileRepo) Update(ctx context.Context, p *types.UserProfile) (*types.UserProfile, error) {
	if _, err := r.client.GetDocument(ctx, r.collection, p.ID.String()); err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NotFound(string(types.KindUserProfile), p.ID.String())
		}
		return nil, r.mapStoreErr(err)
	}
	p.UpdatedAt = time.Now().UTC()
	if err := r.save(ctx, p, false, notify.EventUpdated); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveComposite writes the denormalized read-model for offline reads.
// Not a domain mutation, so no change event is published.
func (r *profileRepo) SaveComposite(ctx context.Context, c *types.CompositeProfile) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return apperr.Unknown(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return apperr.Unknown(err)
	}
	if err := r.client.SetDocument(ctx, CollectionComposites, c.EntityID(), fields, false); err != nil {
		return r.mapStoreErr(err)
	}
	return nil
}

func (r *profileRepo) GetComposite(ctx context.Context, profileID uuid.UUID) (*types.CompositeProfile, error) {
	doc, err := r.client.GetDocument(ctx, CollectionComposites, profileID.String())
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, r.mapStoreErr(err)
	}
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, apperr.Unknown(err)
	}
	var c types.CompositeProfile
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, apperr.Unknown(err)
	}
	return &c, nil
}
