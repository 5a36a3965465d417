package store

import (
	"context"
	"testing"
)

func TestMemClientGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemClient()

	if _, err := c.GetDocument(ctx, "things", "a"); !IsNotFound(err) {
		t.Fatalf("GetDocument (missing): expected not-found, got %v", err)
	}

	if err := c.SetDocument(ctx, "things", "a", map[string]any{"name": "one", "n": 1}, false); err != nil {
		t.Fatalf("SetDocument: %v", err)
	}
	doc, err := c.GetDocument(ctx, "things", "a")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Fields["name"] != "one" {
		t.Fatalf("GetDocument: unexpected fields %+v", doc.Fields)
	}

	if err := c.DeleteDocument(ctx, "things", "a"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if err := c.DeleteDocument(ctx, "things", "a"); !IsNotFound(err) {
		t.Fatalf("DeleteDocument (missing): expected not-found, got %v", err)
	}
}

func TestMemClientMergeWrite(t *testing.T) {
	ctx := context.Background()
	c := NewMemClient()

	seed := map[string]any{
		"completion": 0.25,
		"item_completion": map[string]any{
			"form-a": 1.0,
		},
	}
	if err := c.SetDocument(ctx, "rank_progress", "r1", seed, false); err != nil {
		t.Fatalf("SetDocument: %v", err)
	}

	patch := map[string]any{
		"completion": 0.5,
		"item_completion": map[string]any{
			"form-b": 0.5,
		},
	}
	if err := c.SetDocument(ctx, "rank_progress", "r1", patch, true); err != nil {
		t.Fatalf("SetDocument (merge): %v", err)
	}

	doc, err := c.GetDocument(ctx, "rank_progress", "r1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Fields["completion"] != 0.5 {
		t.Fatalf("merge: completion not replaced: %+v", doc.Fields)
	}
	items, ok := doc.Fields["item_completion"].(map[string]any)
	if !ok {
		t.Fatalf("merge: item_completion wrong shape: %+v", doc.Fields)
	}
	if items["form-a"] != 1.0 || items["form-b"] != 0.5 {
		t.Fatalf("merge: nested map not additive: %+v", items)
	}
}

func TestMemClientQuery(t *testing.T) {
	ctx := context.Background()
	c := NewMemClient()

	docs := map[string]map[string]any{
		"p1": {"name": "Karate Basics", "category": "karate", "active": true, "ordinal": 2.0},
		"p2": {"name": "Advanced Karate", "category": "karate", "active": false, "ordinal": 1.0},
		"p3": {"name": "Judo", "category": "judo", "active": true, "ordinal": 3.0},
	}
	for id, fields := range docs {
		if err := c.SetDocument(ctx, "programs", id, fields, false); err != nil {
			t.Fatalf("SetDocument %s: %v", id, err)
		}
	}

	karate, err := c.Query(ctx, "programs", []Predicate{Eq("category", "karate")}, nil, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(karate) != 2 {
		t.Fatalf("Query: expected 2 karate docs, got %d", len(karate))
	}

	activeKarate, err := c.Query(ctx, "programs", []Predicate{
		Eq("category", "karate"),
		Eq("active", true),
	}, nil, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(activeKarate) != 1 || activeKarate[0].ID != "p1" {
		t.Fatalf("Query: expected only p1, got %+v", activeKarate)
	}

	contains, err := c.Query(ctx, "programs", []Predicate{Contains("name", "karate")}, nil, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(contains) != 2 {
		t.Fatalf("Query contains: expected 2, got %d", len(contains))
	}

	ordered, err := c.Query(ctx, "programs", nil, &OrderBy{Field: "ordinal"}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(ordered) != 2 || ordered[0].ID != "p2" || ordered[1].ID != "p1" {
		t.Fatalf("Query ordered+limited: unexpected %+v", ordered)
	}
}

func TestMemClientFaultInjection(t *testing.T) {
	ctx := context.Background()
	c := NewMemClient()

	c.FailCollection("programs", CodeUnavailable)
	if _, err := c.Query(ctx, "programs", nil, nil, 0); !IsUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	c.ClearFailure("programs")
	if _, err := c.Query(ctx, "programs", nil, nil, 0); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
}
