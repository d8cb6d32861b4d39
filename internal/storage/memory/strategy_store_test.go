package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"strategy-graph-lab/internal/domain"
	"strategy-graph-lab/internal/storage"
)

func sampleStrategy(id string, createdAt time.Time) *domain.SavedStrategy {
	return &domain.SavedStrategy{
		ID:        id,
		Name:      "breakout",
		VersionID: "v-" + id,
		Snapshot: domain.GraphSnapshot{
			Components: []domain.Component{
				{ID: "c1", Kind: domain.KindIndicator, Properties: map[string]any{"threshold": 30.0}},
			},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestStrategyStore_PutAndGet(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	strat := sampleStrategy("s1", time.Unix(1000, 0))
	if err := store.Put(ctx, strat); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "breakout" || got.VersionID != "v-s1" {
		t.Errorf("unexpected strategy: %+v", got)
	}
	if len(got.Snapshot.Components) != 1 {
		t.Errorf("snapshot not preserved: %+v", got.Snapshot)
	}
}

func TestStrategyStore_DuplicateKey(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	strat := sampleStrategy("s1", time.Unix(1000, 0))
	if err := store.Put(ctx, strat); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	if err := store.Put(ctx, strat); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestStrategyStore_GetMissing(t *testing.T) {
	store := NewStrategyStore()

	if _, err := store.Get(context.Background(), "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStrategyStore_ListOrdered(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	// Insert out of creation order.
	for _, s := range []*domain.SavedStrategy{
		sampleStrategy("b", time.Unix(2000, 0)),
		sampleStrategy("a", time.Unix(1000, 0)),
		sampleStrategy("c", time.Unix(2000, 0)),
	} {
		if err := store.Put(ctx, s); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var ids []string
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order mismatch: got %v, want %v", ids, want)
		}
	}
}

func TestStrategyStore_Delete(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	if err := store.Put(ctx, sampleStrategy("s1", time.Unix(1000, 0))); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestStrategyStore_StoredSnapshotIsIsolated(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	strat := sampleStrategy("s1", time.Unix(1000, 0))
	if err := store.Put(ctx, strat); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Mutating the caller's copy must not affect the stored snapshot.
	strat.Snapshot.Components[0].Properties["threshold"] = 99.0

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Snapshot.Components[0].Properties["threshold"] != 30.0 {
		t.Error("stored snapshot shares state with caller")
	}
}
