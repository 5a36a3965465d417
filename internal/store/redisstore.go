package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
)

// RedisClient stores each document as a JSON string under
// "<prefix>:<collection>:<id>" and tracks collection membership in a set
// under "<prefix>:<collection>". Predicates are evaluated client-side after
// the collection is fetched; collections here are per-user or per-studio
// sized, not analytical.
type RedisClient struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewRedisClient(log *logger.Logger, addr, prefix string) (*RedisClient, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	if prefix == "" {
		prefix = "docs"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisClient{
		log:    log.With("client", "RedisStore"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (c *RedisClient) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *RedisClient) docKey(collection, id string) string {
	return c.prefix + ":" + collection + ":" + id
}

func (c *RedisClient) setKey(collection string) string {
	return c.prefix + ":" + collection
}

// normalize maps go-redis failures onto the store error taxonomy. Anything
// that is not a definite miss is treated as transient.
func (c *RedisClient) normalize(collection, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, goredis.Nil) {
		return NotFoundError(collection, id)
	}
	return UnavailableError(collection, err)
}

func (c *RedisClient) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	raw, err := c.rdb.Get(ctx, c.docKey(collection, id)).Result()
	if err != nil {
		return Document{}, c.normalize(collection, id, err)
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Document{}, UnknownError(collection, err)
	}
	return Document{ID: id, Fields: fields}, nil
}

func (c *RedisClient) Query(ctx context.Context, collection string, preds []Predicate, orderBy *OrderBy, limit int) ([]Document, error) {
	ids, err := c.rdb.SMembers(ctx, c.setKey(collection)).Result()
	if err != nil {
		return nil, c.normalize(collection, "", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.docKey(collection, id)
	}
	raws, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, c.normalize(collection, "", err)
	}

	var out []Document
	for i, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			// Id in the set but document expired or deleted out of band.
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(s), &fields); err != nil {
			c.log.Warn("bad document payload", "collection", collection, "id", ids[i], "error", err)
			continue
		}
		if matchesAll(fields, preds) {
			out = append(out, Document{ID: ids[i], Fields: fields})
		}
	}
	sortDocuments(out, orderBy)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *RedisClient) SetDocument(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	toWrite := fields
	if merge {
		cur, err := c.GetDocument(ctx, collection, id)
		switch {
		case err == nil:
			toWrite = mergeFields(cur.Fields, fields)
		case IsNotFound(err):
			// First write for this id, nothing to merge into.
		default:
			return err
		}
	}
	raw, err := json.Marshal(toWrite)
	if err != nil {
		return UnknownError(collection, err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, c.docKey(collection, id), raw, 0)
	pipe.SAdd(ctx, c.setKey(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return c.normalize(collection, id, err)
	}
	return nil
}

func (c *RedisClient) DeleteDocument(ctx context.Context, collection, id string) error {
	n, err := c.rdb.Del(ctx, c.docKey(collection, id)).Result()
	if err != nil {
		return c.normalize(collection, id, err)
	}
	if err := c.rdb.SRem(ctx, c.setKey(collection), id).Err(); err != nil {
		return c.normalize(collection, id, err)
	}
	if n == 0 {
		return NotFoundError(collection, id)
	}
	return nil
}
