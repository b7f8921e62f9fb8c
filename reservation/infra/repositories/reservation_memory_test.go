package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
)

func openReservation(id, user, invID string) *reservation.Reservation {
	return &reservation.Reservation{
		ReservationID:  id,
		User:           user,
		InvID:          invID,
		Status:         reservation.StatusReserved,
		CopiesReserved: 1,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestInsertRejectsSecondOpenReservation(t *testing.T) {
	ctx := context.Background()
	store := NewReservationStoreMemory()

	if err := store.Insert(ctx, openReservation("res-1", "alice", "inv-1")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := store.Insert(ctx, openReservation("res-2", "alice", "inv-1")); !errors.Is(err, reservation.ErrConflict) {
		t.Fatalf("expected ErrConflict for second open reservation, got %v", err)
	}
	// Other users and other items are unaffected.
	if err := store.Insert(ctx, openReservation("res-3", "bob", "inv-1")); err != nil {
		t.Fatalf("other user insert: %v", err)
	}
	if err := store.Insert(ctx, openReservation("res-4", "alice", "inv-2")); err != nil {
		t.Fatalf("other item insert: %v", err)
	}
}

func TestInsertAllowedAfterSettlement(t *testing.T) {
	ctx := context.Background()
	store := NewReservationStoreMemory()

	if err := store.Insert(ctx, openReservation("res-1", "alice", "inv-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.UpdateStatus(ctx, "res-1", reservation.StatusReturned, "done"); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if err := store.Insert(ctx, openReservation("res-2", "alice", "inv-1")); err != nil {
		t.Fatalf("expected insert after settlement to pass, got %v", err)
	}
}

func TestUpdateStatusManyOnlyTouchesOpen(t *testing.T) {
	ctx := context.Background()
	store := NewReservationStoreMemory()

	if err := store.Insert(ctx, openReservation("res-open", "alice", "inv-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	settled := openReservation("res-done", "bob", "inv-1")
	settled.Status = reservation.StatusReturned
	if err := store.Insert(ctx, settled); err != nil {
		t.Fatalf("insert settled: %v", err)
	}

	matched, err := store.UpdateStatusMany(ctx, []string{"res-open", "res-done", "missing"}, reservation.StatusRequested, "requeued")
	if err != nil {
		t.Fatalf("bulk update: %v", err)
	}
	if matched != 1 {
		t.Fatalf("expected 1 matched, got %d", matched)
	}
	res, _ := store.FindByID(ctx, "res-done")
	if res.Status != reservation.StatusReturned {
		t.Fatalf("settled reservation must not reopen, got %s", res.Status)
	}

	// A repeat of the same write still counts the matched reservation.
	matched, err = store.UpdateStatusMany(ctx, []string{"res-open"}, reservation.StatusRequested, "requeued")
	if err != nil {
		t.Fatalf("repeat bulk update: %v", err)
	}
	if matched != 1 {
		t.Fatalf("expected no-op write to count as matched, got %d", matched)
	}
}

func TestDeleteAllReservations(t *testing.T) {
	ctx := context.Background()
	store := NewReservationStoreMemory()

	if err := store.Insert(ctx, openReservation("res-1", "alice", "inv-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, openReservation("res-2", "bob", "inv-2")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	deleted, err := store.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
	if _, total, _ := store.List(ctx, "", 1, 10); total != 0 {
		t.Fatalf("expected empty store, got %d", total)
	}
}
