package protocols

import (
	"context"

	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
)

type ReservationStore interface {
	// Insert persists a new reservation. When the reservation is open and
	// the user already holds an open reservation for the same item, Insert
	// fails with ErrConflict; the check and the write are one atomic
	// operation, so two concurrent admissions cannot both commit.
	Insert(ctx context.Context, r *reservation.Reservation) error
	FindByID(ctx context.Context, reservationID string) (*reservation.Reservation, error)

	// FindOpenByUserAndItem returns the user's open (non-terminal)
	// reservation for the item, or nil when there is none.
	FindOpenByUserAndItem(ctx context.Context, user, invID string) (*reservation.Reservation, error)

	// List returns reservations ordered by creation time, newest first.
	// user filters when non-empty.
	List(ctx context.Context, user string, page, limit int) ([]reservation.Reservation, int64, error)

	UpdateStatus(ctx context.Context, reservationID string, status reservation.Status, comment string) error

	// UpdateStatusMany applies the same status/comment to every open
	// reservation among the ids and returns the number matched. Terminal
	// reservations are left untouched; they no longer transition in bulk.
	UpdateStatusMany(ctx context.Context, reservationIDs []string, status reservation.Status, comment string) (int64, error)

	Delete(ctx context.Context, reservationID string) error

	// DeleteAll purges every reservation and returns the number removed.
	// Admin reset; quota records are not touched.
	DeleteAll(ctx context.Context) (int64, error)
}

type QuotaStore interface {
	GetOrCreate(ctx context.Context, user string, month int) (*reservation.MonthlyQuota, error)

	// Increment takes one quota slot and records the item name in a single
	// atomic operation. Fails with ErrQuotaExceeded when the count has
	// already reached limit; on success returns the new count.
	Increment(ctx context.Context, user string, month int, itemName string, limit int) (int, error)

	// Decrement releases one slot (floored at zero) and removes one
	// matching item name.
	Decrement(ctx context.Context, user string, month int, itemName string) error
}
