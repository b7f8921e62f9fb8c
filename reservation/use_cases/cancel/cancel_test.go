package cancel

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/inventory/domain/item"
	invrepos "github.com/shelfmark/shelfmark/inventory/infra/repositories"
	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
	"github.com/shelfmark/shelfmark/reservation/infra/events"
	"github.com/shelfmark/shelfmark/reservation/infra/gateways"
	"github.com/shelfmark/shelfmark/reservation/infra/repositories"
)

type fixture struct {
	cancel *Cancel
	items  *invrepos.ItemRepositoryMemory
	store  *repositories.ReservationStoreMemory
	quotas *repositories.QuotaStoreMemory
	now    time.Time
}

func newFixture(t *testing.T, status reservation.Status) *fixture {
	t.Helper()
	items := invrepos.NewItemRepositoryMemory()
	if err := items.Create(context.Background(), &item.Item{InvID: "inv-1", Name: "Book", Copies: 3}); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	store := repositories.NewReservationStoreMemory()
	quotas := repositories.NewQuotaStoreMemory()
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	err := store.Insert(context.Background(), &reservation.Reservation{
		ReservationID:  "res-1",
		User:           "alice",
		InvID:          "inv-1",
		ItemName:       "Book",
		Status:         status,
		CopiesReserved: 1,
		CreatedAt:      now,
	})
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	if _, err := quotas.Increment(context.Background(), "alice", reservation.MonthKey(now), "Book", reservation.MaxPerMonth); err != nil {
		t.Fatalf("seed quota: %v", err)
	}
	c := NewCancel(gateways.NewInventoryDirectoryEmbedded(items), store, quotas, events.NopPublisher{}, zap.NewNop())
	return &fixture{cancel: c, items: items, store: store, quotas: quotas, now: now}
}

func TestCancelDeletesAndReleases(t *testing.T) {
	f := newFixture(t, reservation.StatusReserved)

	if err := f.cancel.Cancel(context.Background(), "res-1"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := f.store.FindByID(context.Background(), "res-1"); !errors.Is(err, reservation.ErrNotFound) {
		t.Fatalf("expected reservation deleted, got %v", err)
	}
	q, _ := f.quotas.GetOrCreate(context.Background(), "alice", reservation.MonthKey(f.now))
	if q.ReservationCount != 0 {
		t.Fatalf("expected quota released, got %d", q.ReservationCount)
	}
	if len(q.ReservedItemNames) != 0 {
		t.Fatalf("expected item name removed, got %v", q.ReservedItemNames)
	}
	it, _ := f.items.Get(context.Background(), "inv-1")
	if it.Copies != 4 {
		t.Fatalf("expected copies restocked to 4, got %d", it.Copies)
	}
}

func TestCancelReturnedReservationDoesNotRestock(t *testing.T) {
	f := newFixture(t, reservation.StatusReturned)

	if err := f.cancel.Cancel(context.Background(), "res-1"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	it, _ := f.items.Get(context.Background(), "inv-1")
	if it.Copies != 3 {
		t.Fatalf("expected no restock for an already-returned reservation, got %d", it.Copies)
	}
}

func TestCancelUnknownReservation(t *testing.T) {
	f := newFixture(t, reservation.StatusReserved)

	if err := f.cancel.Cancel(context.Background(), "missing"); !errors.Is(err, reservation.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPurgeAllEmptiesStore(t *testing.T) {
	f := newFixture(t, reservation.StatusReserved)

	deleted, err := f.cancel.PurgeAll(context.Background())
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}
	if _, total, _ := f.store.List(context.Background(), "", 1, 10); total != 0 {
		t.Fatalf("expected empty store, got %d", total)
	}
	// Purge is a raw reset; stock is not credited back.
	it, _ := f.items.Get(context.Background(), "inv-1")
	if it.Copies != 3 {
		t.Fatalf("expected stock untouched, got %d", it.Copies)
	}
}

func TestCancelFreesQuotaForNewAdmission(t *testing.T) {
	f := newFixture(t, reservation.StatusReserved)
	ctx := context.Background()
	month := reservation.MonthKey(f.now)

	// Fill the remaining quota slots.
	for i := 0; i < reservation.MaxPerMonth-1; i++ {
		if _, err := f.quotas.Increment(ctx, "alice", month, "Other", reservation.MaxPerMonth); err != nil {
			t.Fatalf("fill quota: %v", err)
		}
	}
	if _, err := f.quotas.Increment(ctx, "alice", month, "Another", reservation.MaxPerMonth); !errors.Is(err, reservation.ErrQuotaExceeded) {
		t.Fatalf("expected quota full, got %v", err)
	}

	if err := f.cancel.Cancel(ctx, "res-1"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := f.quotas.Increment(ctx, "alice", month, "Another", reservation.MaxPerMonth); err != nil {
		t.Fatalf("expected a freed slot after cancel, got %v", err)
	}
}
