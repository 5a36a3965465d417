package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemClient is an in-process Client used for local development and tests.
// Collections are plain maps guarded by one RWMutex; per-collection fault
// injection lets tests exercise the Unavailable paths.
type MemClient struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	failing     map[string]Code
}

func NewMemClient() *MemClient {
	return &MemClient{
		collections: make(map[string]map[string]map[string]any),
		failing:     make(map[string]Code),
	}
}

// FailCollection forces every operation on the collection to return the
// given error code until ClearFailure is called.
func (m *MemClient) FailCollection(collection string, code Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[collection] = code
}

func (m *MemClient) ClearFailure(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failing, collection)
}

// Len reports the number of documents in a collection.
func (m *MemClient) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

func (m *MemClient) forcedError(collection string) error {
	if code, ok := m.failing[collection]; ok {
		return &Error{Code: code, Collection: collection}
	}
	return nil
}

func (m *MemClient) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, UnavailableError(collection, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.forcedError(collection); err != nil {
		return Document{}, err
	}
	fields, ok := m.collections[collection][id]
	if !ok {
		return Document{}, NotFoundError(collection, id)
	}
	return Document{ID: id, Fields: copyFields(fields)}, nil
}

func (m *MemClient) Query(ctx context.Context, collection string, preds []Predicate, orderBy *OrderBy, limit int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, UnavailableError(collection, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.forcedError(collection); err != nil {
		return nil, err
	}
	var out []Document
	for id, fields := range m.collections[collection] {
		if matchesAll(fields, preds) {
			out = append(out, Document{ID: id, Fields: copyFields(fields)})
		}
	}
	sortDocuments(out, orderBy)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemClient) SetDocument(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	// Writes ignore ctx cancellation once issued.
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.forcedError(collection); err != nil {
		return err
	}
	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string]map[string]any)
		m.collections[collection] = col
	}
	incoming := copyFields(fields)
	if merge {
		if cur, ok := col[id]; ok {
			col[id] = mergeFields(cur, incoming)
			return nil
		}
	}
	col[id] = incoming
	return nil
}

func (m *MemClient) DeleteDocument(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.forcedError(collection); err != nil {
		return err
	}
	col := m.collections[collection]
	if _, ok := col[id]; !ok {
		return NotFoundError(collection, id)
	}
	delete(col, id)
	return nil
}

// sortDocuments orders documents by a field, falling back to id order for
// stability when the field is missing or mixed-typed.
func sortDocuments(docs []Document, orderBy *OrderBy) {
	if orderBy == nil {
		sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
		return
	}
	less := func(i, j int) bool {
		a, b := docs[i].Fields[orderBy.Field], docs[j].Fields[orderBy.Field]
		if cmp, ok := compareValues(a, b); ok && cmp != 0 {
			return cmp < 0
		}
		return docs[i].ID < docs[j].ID
	}
	if orderBy.Desc {
		sort.Slice(docs, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.Slice(docs, less)
}

func compareValues(a, b any) (int, bool) {
	if af, bf, ok := bothNumbers(a, b); ok {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		// RFC3339 timestamps compare correctly as strings.
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		default:
			return 0, true
		}
	}
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}
