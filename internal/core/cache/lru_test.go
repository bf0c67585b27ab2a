package cache

import (
	"testing"

	"mediacarousel/internal/index/store"
)

func TestMetadata_EvictsOldest(t *testing.T) {
	c := NewMetadata(2)
	c.Put("a", store.Item{ID: "a", Size: 1})
	c.Put("b", store.Item{ID: "b", Size: 2})
	_, _ = c.Get("a") // a becomes most-recent
	c.Put("c", store.Item{ID: "c", Size: 3})

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b evicted")
	}
	if it, ok := c.Get("a"); !ok || it.Size != 1 {
		t.Fatalf("expected a present, got %+v ok=%v", it, ok)
	}
}

func TestMetadata_Delete(t *testing.T) {
	c := NewMetadata(4)
	c.Put("a", store.Item{ID: "a"})
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a deleted")
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, len=%d", c.Len())
	}
}
