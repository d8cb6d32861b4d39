package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"strategy-graph-lab/internal/domain"
	"strategy-graph-lab/internal/storage"
)

func TestTestRunStore_InsertAndGetByVersion(t *testing.T) {
	store := NewTestRunStore()
	ctx := context.Background()

	run := &domain.TestRun{
		RunID:     "r1",
		GraphID:   "g1",
		VersionID: "v1",
		Symbol:    "EURUSD",
		Results:   domain.TestResults{TotalReturn: 0.12, NumberOfTrades: 40},
		StartedAt: time.Unix(1000, 0),
	}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByVersion(ctx, "v1")
	if err != nil {
		t.Fatalf("GetByVersion failed: %v", err)
	}
	if len(got) != 1 || got[0].Results.TotalReturn != 0.12 {
		t.Errorf("unexpected runs: %+v", got)
	}

	none, err := store.GetByVersion(ctx, "other")
	if err != nil {
		t.Fatalf("GetByVersion failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no runs for other version, got %d", len(none))
	}
}

func TestTestRunStore_DuplicateKey(t *testing.T) {
	store := NewTestRunStore()
	ctx := context.Background()

	run := &domain.TestRun{RunID: "r1", VersionID: "v1", StartedAt: time.Unix(1000, 0)}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	if err := store.Insert(ctx, run); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestTestRunStore_GetAllOrdered(t *testing.T) {
	store := NewTestRunStore()
	ctx := context.Background()

	for _, r := range []*domain.TestRun{
		{RunID: "r2", VersionID: "v1", StartedAt: time.Unix(2000, 0)},
		{RunID: "r1", VersionID: "v1", StartedAt: time.Unix(1000, 0)},
		{RunID: "r3", VersionID: "v2", StartedAt: time.Unix(3000, 0)},
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
	for i, want := range []string{"r1", "r2", "r3"} {
		if all[i].RunID != want {
			t.Errorf("position %d: got %s, want %s", i, all[i].RunID, want)
		}
	}
}
