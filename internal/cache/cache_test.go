package cache

import (
	"strconv"
	"sync"
	"testing"

	"github.com/google/uuid"

	types "github.com/dojolist/dojolist-engine/internal/domain"
)

func TestCachePutGet(t *testing.T) {
	c := New[*types.Program]()

	p := &types.Program{ID: uuid.New(), Name: "Karate", Active: true}
	c.Put(p)

	got, ok := c.Get(p.ID.String())
	if !ok {
		t.Fatalf("Get: expected hit")
	}
	if got.Name != "Karate" {
		t.Fatalf("Get: unexpected entity: %+v", got)
	}

	byKey, ok := c.ByNaturalKey("karate")
	if !ok || byKey.ID != p.ID {
		t.Fatalf("ByNaturalKey: expected hit for lowercased name")
	}

	if _, ok := c.Get(uuid.New().String()); ok {
		t.Fatalf("Get: expected miss for unknown id")
	}
}

func TestCacheNaturalKeyReindexOnRename(t *testing.T) {
	c := New[*types.Program]()

	p := &types.Program{ID: uuid.New(), Name: "Karate"}
	c.Put(p)

	renamed := &types.Program{ID: p.ID, Name: "Judo"}
	c.Put(renamed)

	if _, ok := c.ByNaturalKey("karate"); ok {
		t.Fatalf("ByNaturalKey: stale index entry survived rename")
	}
	got, ok := c.ByNaturalKey("judo")
	if !ok || got.ID != p.ID {
		t.Fatalf("ByNaturalKey: expected hit under new name")
	}
}

func TestCacheRemove(t *testing.T) {
	c := New[*types.Program]()

	p := &types.Program{ID: uuid.New(), Name: "Karate"}
	c.Put(p)
	c.Remove(p.ID.String())

	if _, ok := c.Get(p.ID.String()); ok {
		t.Fatalf("Get: expected miss after Remove")
	}
	if _, ok := c.ByNaturalKey("karate"); ok {
		t.Fatalf("ByNaturalKey: expected miss after Remove")
	}
	if c.Len() != 0 {
		t.Fatalf("Len: expected 0, got %d", c.Len())
	}
}

func TestCacheFindBy(t *testing.T) {
	c := New[*types.Program]()
	for i := 0; i < 5; i++ {
		c.Put(&types.Program{ID: uuid.New(), Name: "Program " + strconv.Itoa(i), Active: i%2 == 0})
	}

	active := c.FindBy(func(p *types.Program) bool { return p.Active })
	if len(active) != 3 {
		t.Fatalf("FindBy: expected 3 active, got %d", len(active))
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[*types.Program]()
	ids := make([]uuid.UUID, 16)
	for i := range ids {
		ids[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := ids[(w+i)%len(ids)]
				c.Put(&types.Program{ID: id, Name: "P" + id.String()})
				c.Get(id.String())
				c.FindBy(func(p *types.Program) bool { return p.Active })
			}
		}(w)
	}
	wg.Wait()

	if c.Len() != len(ids) {
		t.Fatalf("Len: expected %d, got %d", len(ids), c.Len())
	}
}
