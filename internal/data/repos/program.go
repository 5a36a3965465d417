package repos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/notify"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
	"github.com/dojolist/dojolist-engine/internal/store"
)

type ProgramFilter struct {
	Category     string
	ActiveOnly   bool
	NameContains string
	Limit        int
}

type ProgramRepo interface {
	Create(ctx context.Context, p *types.Program) (*types.Program, error)
	GetByID(ctx context.Context, programID uuid.UUID) (*types.Program, error)
	GetByName(ctx context.Context, name string) (*types.Program, error)
	Update(ctx context.Context, p *types.Program) (*types.Program, error)
	// Delete fails with Conflict while enrolled dependents exist; on
	// success it best-effort purges dependent enrollment and progress
	// collections, reporting a partial purge as *apperr.CascadeError.
	Delete(ctx context.Context, programID uuid.UUID) error
	List(ctx context.Context, filter ProgramFilter) ([]*types.Program, error)
}

type programRepo struct {
	base[types.Program, *types.Program]
}

func NewProgramRepo(client store.Client, notifier *notify.Notifier, baseLog *logger.Logger) ProgramRepo {
	return &programRepo{
		base: newBase[types.Program, *types.Program](
			types.KindProgram, CollectionPrograms, client, notifier, baseLog),
	}
}

func validateProgram(p *types.Program) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("name", "must not be empty")
	}
	seen := make(map[int]struct{}, len(p.Ranks))
	for _, r := range p.Ranks {
		if strings.TrimSpace(r.Name) == "" {
			return apperr.Validation("ranks.name", "must not be empty")
		}
		if _, dup := seen[r.Ordinal]; dup {
			return apperr.Validation("ranks.ordinal", "ordinal positions must be unique within a program")
		}
		seen[r.Ordinal] = struct{}{}
	}
	return nil
}

func (r *programRepo) Create(ctx context.Context, p *types.Program) (*types.Program, error) {
	if err := validateProgram(p); err != nil {
		return nil, err
	}

	// Cache-first duplicate probe, then the authoritative remote check.
	// The store has no uniqueness constraint, so this is query-then-write
	// and only best-effort under concurrent creators.
	key := p.NaturalKey()
	if cached, ok := r.cache.ByNaturalKey(key); ok && cached.Active {
		return nil, apperr.Duplicate(string(types.KindProgram), p.Name)
	}
	active, err := r.list(ctx, []store.Predicate{store.Eq("active", true)}, nil, 0)
	if err != nil {
		return nil, err
	}
	for _, existing := range active {
		if existing.NaturalKey() == key {
			return nil, apperr.Duplicate(string(types.KindProgram), p.Name)
		}
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for i := range p.Ranks {
		if p.Ranks[i].ID == uuid.Nil {
			p.Ranks[i].ID = uuid.New()
		}
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := r.save(ctx, p, false, notify.EventCreated); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *programRepo) GetByID(ctx context.Context, programID uuid.UUID) (*types.Program, error) {
	return r.getByID(ctx, programID.String())
}

func (r *programRepo) GetByName(ctx context.Context, name string) (*types.Program, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if cached, ok := r.cache.ByNaturalKey(key); ok {
		return cached, nil
	}
	all, err := r.list(ctx, nil, nil, 0)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.NaturalKey() == key {
			return p, nil
		}
	}
	return nil, nil
}

func (r *programRepo) Update(ctx context.Context, p *types.Program) (*types.Program, error) {
	if err := validateProgram(p); err != nil {
		return nil, err
	}
	// Existence is confirmed remotely, not via the cache, since the cache
	// may be stale relative to other writers.
	if _, err := r.client.GetDocument(ctx, r.collection, p.ID.String()); err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NotFound(string(types.KindProgram), p.ID.String())
		}
		return nil, r.mapStoreErr(err)
	}
	p.UpdatedAt = time.Now().UTC()
	if err := r.save(ctx, p, false, notify.EventUpdated); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *programRepo) Delete(ctx context.Context, programID uuid.UUID) error {
	id := programID.String()

	if _, err := r.client.GetDocument(ctx, r.collection, id); err != nil {
		if store.IsNotFound(err) {
			return apperr.NotFound(string(types.KindProgram), id)
		}
		return r.mapStoreErr(err)
	}

	// Deletion is blocked while any enrolled dependent exists.
	enrolled, err := r.client.Query(ctx, CollectionEnrollments, []store.Predicate{
		store.Eq("program_id", id),
		store.Eq("enrolled", true),
	}, nil, 1)
	if err != nil {
		return r.mapStoreErr(err)
	}
	if len(enrolled) > 0 {
		return apperr.Conflict(string(types.KindProgram), id, "active enrollments exist")
	}

	deleted, err := r.decodeCurrent(ctx, id)
	if err != nil {
		return err
	}
	if err := r.remove(ctx, id); err != nil {
		return err
	}
	r.publish(notify.EventDeleted, deleted)

	// Best-effort cascade: each dependent collection purged in sequence.
	// A failure partway leaves a partially cleaned state, which is
	// surfaced but not rolled back; re-running the purge is safe.
	casc := &apperr.CascadeError{
		Kind:   string(types.KindProgram),
		Key:    id,
		Failed: make(map[string]error),
	}
	for _, col := range []string{CollectionEnrollments, CollectionProgramProgress, CollectionRankProgress} {
		if err := r.purgeCollection(ctx, col, id); err != nil {
			casc.Failed[col] = err
			continue
		}
		casc.Purged = append(casc.Purged, col)
	}
	if len(casc.Failed) > 0 {
		r.log.Warn("cascade delete incomplete", "programID", id, "error", casc)
		return casc
	}
	return nil
}

func (r *programRepo) decodeCurrent(ctx context.Context, id string) (*types.Program, error) {
	if cached, ok := r.cache.Get(id); ok {
		return cached, nil
	}
	doc, err := r.client.GetDocument(ctx, r.collection, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NotFound(string(types.KindProgram), id)
		}
		return nil, r.mapStoreErr(err)
	}
	return r.decode(doc)
}

func (r *programRepo) purgeCollection(ctx context.Context, collection, programID string) error {
	docs, err := r.client.Query(ctx, collection, []store.Predicate{
		store.Eq("program_id", programID),
	}, nil, 0)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := r.client.DeleteDocument(ctx, collection, doc.ID); err != nil && !store.IsNotFound(err) {
			return err
		}
	}
	return nil
}

func (r *programRepo) List(ctx context.Context, filter ProgramFilter) ([]*types.Program, error) {
	var preds []store.Predicate
	if filter.Category != "" {
		preds = append(preds, store.Eq("category", filter.Category))
	}
	if filter.ActiveOnly {
		preds = append(preds, store.Eq("active", true))
	}
	if filter.NameContains != "" {
		preds = append(preds, store.Contains("name", filter.NameContains))
	}
	return r.list(ctx, preds, &store.OrderBy{Field: "name"}, filter.Limit)
}
