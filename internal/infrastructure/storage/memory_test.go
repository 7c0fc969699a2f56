package storage

import (
	"context"
	"testing"
)

func TestMemory_StoreRetrieveRemove(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := store.Store(ctx, "k1", "v1"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	value, ok, err := store.Retrieve(ctx, "k1")
	if err != nil || !ok || value != "v1" {
		t.Fatalf("Retrieve = (%q, %v, %v), want (v1, true, nil)", value, ok, err)
	}

	// Overwrite is allowed.
	if err := store.Store(ctx, "k1", "v2"); err != nil {
		t.Fatalf("Store overwrite: %v", err)
	}
	value, _, _ = store.Retrieve(ctx, "k1")
	if value != "v2" {
		t.Errorf("after overwrite = %q, want v2", value)
	}

	removed, err := store.Remove(ctx, "k1")
	if err != nil || !removed {
		t.Fatalf("Remove = (%v, %v), want (true, nil)", removed, err)
	}

	// Removing again reports absence, not an error.
	removed, err = store.Remove(ctx, "k1")
	if err != nil || removed {
		t.Errorf("second Remove = (%v, %v), want (false, nil)", removed, err)
	}

	_, ok, _ = store.Retrieve(ctx, "k1")
	if ok {
		t.Error("removed key should not be retrievable")
	}
}

func TestMemory_ContainsKeysCount(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	_ = store.Store(ctx, "a", "1")
	_ = store.Store(ctx, "b", "2")

	ok, _ := store.Contains(ctx, "a")
	if !ok {
		t.Error("Contains(a) should be true")
	}
	ok, _ = store.Contains(ctx, "missing")
	if ok {
		t.Error("Contains(missing) should be false")
	}

	keys, _ := store.Keys(ctx)
	if len(keys) != 2 {
		t.Errorf("Keys = %v, want 2 entries", keys)
	}

	n, _ := store.ItemCount(ctx)
	if n != 2 {
		t.Errorf("ItemCount = %d, want 2", n)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	n, _ = store.ItemCount(ctx)
	if n != 0 {
		t.Errorf("ItemCount after Clear = %d, want 0", n)
	}
}
