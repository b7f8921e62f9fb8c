package update_many

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/inventory/domain/item"
	invrepos "github.com/shelfmark/shelfmark/inventory/infra/repositories"
	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
	"github.com/shelfmark/shelfmark/reservation/infra/gateways"
	"github.com/shelfmark/shelfmark/reservation/infra/repositories"
)

func seed(t *testing.T) (*UpdateMany, *invrepos.ItemRepositoryMemory, *repositories.ReservationStoreMemory) {
	t.Helper()
	ctx := context.Background()
	items := invrepos.NewItemRepositoryMemory()
	if err := items.Create(ctx, &item.Item{InvID: "inv-1", Name: "Book", Copies: 0}); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	store := repositories.NewReservationStoreMemory()
	seedRes := []reservation.Reservation{
		{ReservationID: "res-open-1", User: "u1", InvID: "inv-1", Status: reservation.StatusReserved, CopiesReserved: 1},
		{ReservationID: "res-open-2", User: "u2", InvID: "inv-1", Status: reservation.StatusReserved, CopiesReserved: 2},
		{ReservationID: "res-done", User: "u3", InvID: "inv-1", Status: reservation.StatusReturned, CopiesReserved: 1},
	}
	for i := range seedRes {
		seedRes[i].CreatedAt = time.Now().UTC()
		if err := store.Insert(ctx, &seedRes[i]); err != nil {
			t.Fatalf("seed reservation: %v", err)
		}
	}
	uc := NewUpdateMany(gateways.NewInventoryDirectoryEmbedded(items), store, zap.NewNop())
	return uc, items, store
}

func TestBulkReturnCreditsOpenReservationsOnly(t *testing.T) {
	uc, items, store := seed(t)

	out, err := uc.Update(context.Background(), Input{
		ReservationIDs: []string{"res-open-1", "res-open-2", "res-done", "missing"},
		NewStatus:      reservation.StatusReturned,
		Comment:        "bulk return",
	})
	if err != nil {
		t.Fatalf("bulk update failed: %v", err)
	}
	if out.Modified != 3 {
		t.Fatalf("expected 3 modified, got %d", out.Modified)
	}

	// Only the two open reservations credit stock: 1 + 2.
	it, _ := items.Get(context.Background(), "inv-1")
	if it.Copies != 3 {
		t.Fatalf("expected 3 copies credited, got %d", it.Copies)
	}
	for _, id := range []string{"res-open-1", "res-open-2", "res-done"} {
		res, _ := store.FindByID(context.Background(), id)
		if res.Status != reservation.StatusReturned {
			t.Fatalf("expected %s Returned, got %s", id, res.Status)
		}
		if res.StatusComment != "bulk return" {
			t.Fatalf("expected comment applied to %s", id)
		}
	}
}

func TestBulkNonTerminalUpdateLeavesStockAlone(t *testing.T) {
	uc, items, store := seed(t)

	out, err := uc.Update(context.Background(), Input{
		ReservationIDs: []string{"res-open-1", "res-open-2", "res-done"},
		NewStatus:      reservation.StatusRequested,
	})
	if err != nil {
		t.Fatalf("bulk update failed: %v", err)
	}
	// Only the open reservations transition; the settled one never reopens.
	if out.Modified != 2 {
		t.Fatalf("expected 2 modified, got %d", out.Modified)
	}
	res, _ := store.FindByID(context.Background(), "res-done")
	if res.Status != reservation.StatusReturned {
		t.Fatalf("expected settled reservation untouched, got %s", res.Status)
	}
	it, _ := items.Get(context.Background(), "inv-1")
	if it.Copies != 0 {
		t.Fatalf("expected stock untouched, got %d", it.Copies)
	}
}

func TestBulkUpdateValidation(t *testing.T) {
	uc, _, _ := seed(t)

	if _, err := uc.Update(context.Background(), Input{NewStatus: reservation.StatusReturned}); !errors.Is(err, reservation.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty ids, got %v", err)
	}
	if _, err := uc.Update(context.Background(), Input{
		ReservationIDs: []string{"res-open-1"},
		NewStatus:      reservation.Status("Bogus"),
	}); !errors.Is(err, reservation.ErrValidation) {
		t.Fatalf("expected ErrValidation for bad status, got %v", err)
	}
}
