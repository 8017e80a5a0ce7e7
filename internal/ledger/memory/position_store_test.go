package memory

import (
	"context"
	"errors"
	"testing"

	"memetrader/internal/domain"
	"memetrader/internal/ledger"
)

func openPosition(id string, openedAt int64) *domain.Position {
	return &domain.Position{
		ID:            id,
		Mint:          "mint-" + id,
		Status:        domain.PositionOpen,
		OpenedAt:      openedAt,
		EntryPrice:    1.0,
		EntrySize:     100,
		RemainingSize: 100,
		TakeProfits: []domain.TakeProfitLevel{
			{TargetPrice: 1.2, Fraction: 0.3},
		},
		StopLossPrice:     0.85,
		TrailingWatermark: 1.0,
		TrailingStopPct:   0.2,
	}
}

func TestPositionStore_InsertAndGet(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	p := openPosition("pos-1", 1704067200000)
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "pos-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Mint != p.Mint {
		t.Errorf("Mint mismatch: got %s, want %s", got.Mint, p.Mint)
	}
	if got.RemainingSize != 100 {
		t.Errorf("RemainingSize mismatch: got %v, want 100", got.RemainingSize)
	}
}

func TestPositionStore_DuplicateKey(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	p := openPosition("pos-1", 1704067200000)
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, p)
	if !errors.Is(err, ledger.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestPositionStore_UpdateNotFound(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	err := store.Update(ctx, openPosition("ghost", 1))
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPositionStore_UpdateReplacesState(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	p := openPosition("pos-1", 1704067200000)
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	p.Status = domain.PositionPartiallyClosed
	p.RemainingSize = 70
	p.TakeProfits[0].Consumed = true
	if err := store.Update(ctx, p); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.GetByID(ctx, "pos-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.PositionPartiallyClosed {
		t.Errorf("Status mismatch: got %s", got.Status)
	}
	if got.RemainingSize != 70 {
		t.Errorf("RemainingSize mismatch: got %v, want 70", got.RemainingSize)
	}
	if !got.TakeProfits[0].Consumed {
		t.Error("TP level should be consumed")
	}
}

func TestPositionStore_CallerCannotMutateStoredState(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	p := openPosition("pos-1", 1704067200000)
	if err := store.Insert(ctx, p); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the returned copy must not leak into the store.
	got, _ := store.GetByID(ctx, "pos-1")
	got.TakeProfits[0].Consumed = true
	got.RemainingSize = 0

	again, _ := store.GetByID(ctx, "pos-1")
	if again.TakeProfits[0].Consumed {
		t.Error("stored TP level mutated through returned copy")
	}
	if again.RemainingSize != 100 {
		t.Errorf("stored RemainingSize mutated: got %v", again.RemainingSize)
	}
}

func TestPositionStore_GetOpenExcludesTerminal(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	a := openPosition("a", 2000)
	b := openPosition("b", 1000)
	closedAt := int64(3000)
	c := openPosition("c", 1500)
	c.Status = domain.PositionClosed
	c.RemainingSize = 0
	c.ClosedAt = &closedAt
	f := openPosition("f", 1200)
	f.Status = domain.PositionFailed
	f.ClosedAt = &closedAt

	for _, p := range []*domain.Position{a, b, c, f} {
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("Insert %s failed: %v", p.ID, err)
		}
	}

	open, err := store.GetOpen(ctx)
	if err != nil {
		t.Fatalf("GetOpen failed: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("Expected 2 open positions, got %d", len(open))
	}
	// Ordered by opened_at ASC.
	if open[0].ID != "b" || open[1].ID != "a" {
		t.Errorf("Wrong order: got %s, %s", open[0].ID, open[1].ID)
	}
}

func TestPositionStore_CorruptStateSurfaced(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	p := openPosition("pos-1", 1704067200000)
	p.RemainingSize = 150 // larger than entry size

	err := store.Insert(ctx, p)
	if !errors.Is(err, ledger.ErrCorruptState) {
		t.Errorf("Expected ErrCorruptState, got %v", err)
	}
}

func TestPositionStore_GetClosedSince(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	early, late := int64(1000), int64(5000)
	p1 := openPosition("p1", 100)
	p1.Status = domain.PositionClosed
	p1.RemainingSize = 0
	p1.ClosedAt = &early
	p2 := openPosition("p2", 200)
	p2.Status = domain.PositionClosed
	p2.RemainingSize = 0
	p2.ClosedAt = &late

	if err := store.Insert(ctx, p1); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, p2); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetClosedSince(ctx, 2000)
	if err != nil {
		t.Fatalf("GetClosedSince failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p2" {
		t.Errorf("Expected only p2, got %d records", len(got))
	}
}
