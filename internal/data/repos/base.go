// Package repos holds one repository per entity kind. Every repository
// fronts one remote store client with one in-memory cache, enforces its
// entity's invariants before mutating, and publishes a change event after
// every successful write.
package repos

import (
	"context"
	"encoding/json"

	"github.com/dojolist/dojolist-engine/internal/cache"
	"github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/notify"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
	"github.com/dojolist/dojolist-engine/internal/store"
)

// Secondary-store collections.
const (
	CollectionPrograms        = "programs"
	CollectionEnrollments     = "enrollments"
	CollectionProgramProgress = "program_progress"
	CollectionRankProgress    = "rank_progress"
	CollectionMemberships     = "studio_memberships"
	CollectionSubscriptions   = "subscriptions"
)

// Primary-store collections.
const (
	CollectionProfiles   = "user_profiles"
	CollectionComposites = "composite_profiles"
)

// base is the generic scaffolding shared by every entity repository:
// read-through cache, JSON field codec, store error mapping, event
// publication. E is the entity struct, PT its pointer type.
type base[E any, PT interface {
	*E
	domain.Entity
}] struct {
	kind       domain.Kind
	collection string
	client     store.Client
	cache      *cache.Cache[PT]
	notifier   *notify.Notifier
	log        *logger.Logger
}

func newBase[E any, PT interface {
	*E
	domain.Entity
}](kind domain.Kind, collection string, client store.Client, notifier *notify.Notifier, baseLog *logger.Logger) base[E, PT] {
	return base[E, PT]{
		kind:       kind,
		collection: collection,
		client:     client,
		cache:      cache.New[PT](),
		notifier:   notifier,
		log:        baseLog.With("repo", string(kind)),
	}
}

func (b *base[E, PT]) decode(doc store.Document) (PT, error) {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, apperr.Unknown(err)
	}
	var e E
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, apperr.Unknown(err)
	}
	return PT(&e), nil
}

func (b *base[E, PT]) encode(e PT) (map[string]any, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, apperr.Unknown(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, apperr.Unknown(err)
	}
	return fields, nil
}

// mapStoreErr translates normalized store errors into the engine taxonomy.
// NotFound is deliberately excluded: its meaning depends on the operation,
// so callers handle it before reaching for this.
func (b *base[E, PT]) mapStoreErr(err error) error {
	switch store.CodeOf(err) {
	case store.CodeUnavailable:
		return apperr.Network(err)
	case store.CodePermissionDenied:
		return apperr.PermissionDenied(err)
	default:
		return apperr.Unknown(err)
	}
}

// getByID is the read-through path: cache hit answers immediately, a miss
// falls to the remote store and populates the cache. A remote not-found
// returns (nil, nil), not an error.
func (b *base[E, PT]) getByID(ctx context.Context, id string) (PT, error) {
	if e, ok := b.cache.Get(id); ok {
		return e, nil
	}
	doc, err := b.client.GetDocument(ctx, b.collection, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, b.mapStoreErr(err)
	}
	e, err := b.decode(doc)
	if err != nil {
		return nil, err
	}
	b.cache.Put(e)
	return e, nil
}

// existsRemote answers the authoritative existence question behind the
// cache-first duplicate checks.
func (b *base[E, PT]) existsRemote(ctx context.Context, preds []store.Predicate) (bool, error) {
	docs, err := b.client.Query(ctx, b.collection, preds, nil, 1)
	if err != nil {
		return false, b.mapStoreErr(err)
	}
	return len(docs) > 0, nil
}

// save writes the entity, updates the cache synchronously (so a create
// followed by a getByID from the same caller observes the write), then
// publishes.
func (b *base[E, PT]) save(ctx context.Context, e PT, merge bool, evType notify.EventType) error {
	fields, err := b.encode(e)
	if err != nil {
		return err
	}
	if err := b.client.SetDocument(ctx, b.collection, e.EntityID(), fields, merge); err != nil {
		return b.mapStoreErr(err)
	}
	b.cache.Put(e)
	b.publish(evType, e)
	return nil
}

func (b *base[E, PT]) remove(ctx context.Context, id string) error {
	if err := b.client.DeleteDocument(ctx, b.collection, id); err != nil {
		if store.IsNotFound(err) {
			b.cache.Remove(id)
			return apperr.NotFound(string(b.kind), id)
		}
		return b.mapStoreErr(err)
	}
	b.cache.Remove(id)
	return nil
}

// list queries the remote store and populates the cache for every returned
// entity. The cache is additive: entries absent from the result are not
// evicted.
func (b *base[E, PT]) list(ctx context.Context, preds []store.Predicate, orderBy *store.OrderBy, limit int) ([]PT, error) {
	docs, err := b.client.Query(ctx, b.collection, preds, orderBy, limit)
	if err != nil {
		return nil, b.mapStoreErr(err)
	}
	out := make([]PT, 0, len(docs))
	for _, doc := range docs {
		e, err := b.decode(doc)
		if err != nil {
			b.log.Warn("skipping undecodable document", "id", doc.ID, "error", err)
			continue
		}
		b.cache.Put(e)
		out = append(out, e)
	}
	return out, nil
}

func (b *base[E, PT]) publish(evType notify.EventType, e PT) {
	if b.notifier == nil {
		return
	}
	b.notifier.Publish(notify.Event{Kind: b.kind, Type: evType, Entity: e})
}
