package repos

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/domain/training"
	"github.com/dojolist/dojolist-engine/internal/notify"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
	"github.com/dojolist/dojolist-engine/internal/store"
)

// rankProgressNamespace derives a deterministic document id from the
// (user, program, rank) natural key, so concurrent upserts for the same
// triple land on the same document and merge per field.
var rankProgressNamespace = uuid.MustParse("8f1a4b8e-52c7-4bd0-9f67-2d8f3a1c5e90")

func RankProgressID(userID, programID, rankID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(rankProgressNamespace, []byte(training.RankProgressKey(userID, programID, rankID)))
}

type RankProgressRepo interface {
	// Upsert merge-writes: completion and per-item fractions are applied
	// per field on top of the stored row rather than replacing it.
	Upsert(ctx context.Context, rp *types.RankProgress) (*types.RankProgress, error)
	GetFor(ctx context.Context, userID, programID, rankID uuid.UUID) (*types.RankProgress, error)
	ListForUserProgram(ctx context.Context, userID, programID uuid.UUID) ([]*types.RankProgress, error)
}

type rankProgressRepo struct {
	base[types.RankProgress, *types.RankProgress]
}

func NewRankProgressRepo(client store.Client, notifier *notify.Notifier, baseLog *logger.Logger) RankProgressRepo {
	return &rankProgressRepo{
		base: newBase[types.RankProgress, *types.RankProgress](
			types.KindRankProgress, CollectionRankProgress, client, notifier, baseLog),
	}
}

func (r *rankProgressRepo) Upsert(ctx context.Context, rp *types.RankProgress) (*types.RankProgress, error) {
	if rp.UserID == uuid.Nil || rp.ProgramID == uuid.Nil || rp.RankID == uuid.Nil {
		return nil, apperr.Validation("rank_progress", "user_id, program_id and rank_id are required")
	}
	if rp.Completion < 0 || rp.Completion > 1 {
		return nil, apperr.Validation("completion", "must be within [0,1]")
	}
	for item, frac := range rp.ItemCompletion {
		if frac < 0 || frac > 1 {
			return nil, apperr.Validation("item_completion."+item, "must be within [0,1]")
		}
	}

	rp.ID = RankProgressID(rp.UserID, rp.ProgramID, rp.RankID)
	rp.UpdatedAt = time.Now().UTC()

	if err := r.save(ctx, rp, true, notify.EventUpdated); err != nil {
		return nil, err
	}

	// Re-read the merged row so the caller and the cache both hold the
	// additive result, not just this caller's fragment.
	doc, err := r.client.GetDocument(ctx, r.collection, rp.ID.String())
	if err != nil {
		if store.IsNotFound(err) {
			return rp, nil
		}
		return nil, r.mapStoreErr(err)
	}
	merged, err := r.decode(doc)
	if err != nil {
		return nil, err
	}
	r.cache.Put(merged)
	return merged, nil
}

func (r *rankProgressRepo) GetFor(ctx context.Context, userID, programID, rankID uuid.UUID) (*types.RankProgress, error) {
	return r.getByID(ctx, RankProgressID(userID, programID, rankID).String())
}

func (r *rankProgressRepo) ListForUserProgram(ctx context.Context, userID, programID uuid.UUID) ([]*types.RankProgress, error) {
	return r.list(ctx, []store.Predicate{
		store.Eq("user_id", userID.String()),
		store.Eq("program_id", programID.String()),
	}, &store.OrderBy{Field: "updated_at", Desc: true}, 0)
}
