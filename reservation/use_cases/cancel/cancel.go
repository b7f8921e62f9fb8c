package cancel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
	"github.com/shelfmark/shelfmark/reservation/protocols"
)

type Cancel struct {
	directory protocols.InventoryDirectory
	store     protocols.ReservationStore
	quotas    protocols.QuotaStore
	publisher protocols.EventPublisher
	logger    *zap.Logger
}

func NewCancel(directory protocols.InventoryDirectory, store protocols.ReservationStore, quotas protocols.QuotaStore, publisher protocols.EventPublisher, logger *zap.Logger) *Cancel {
	return &Cancel{directory: directory, store: store, quotas: quotas, publisher: publisher, logger: logger}
}

// Cancel hard-deletes the reservation, releases the user's quota slot for
// the month it was created in, and restocks the held copies when the
// reservation was still open.
func (c *Cancel) Cancel(ctx context.Context, reservationID string) error {
	res, err := c.store.FindByID(ctx, reservationID)
	if err != nil {
		return err
	}

	if res.Open() {
		if err := c.directory.AdjustCopies(ctx, res.InvID, res.CopiesReserved); err != nil {
			return err
		}
	}

	if err := c.store.Delete(ctx, reservationID); err != nil {
		return err
	}

	month := reservation.MonthKey(res.CreatedAt)
	if err := c.quotas.Decrement(ctx, res.User, month, res.ItemName); err != nil {
		c.logger.Error("quota release failed",
			zap.String("user", res.User), zap.Int("month", month), zap.Error(err))
	}

	event := &protocols.ReservationEvent{
		Type:          "reservation.cancelled",
		ReservationID: res.ReservationID,
		User:          res.User,
		InvID:         res.InvID,
		Copies:        res.CopiesReserved,
		Timestamp:     time.Now().UTC(),
	}
	if err := c.publisher.PublishReservationEvent(ctx, event); err != nil {
		c.logger.Warn("publish reservation event failed",
			zap.String("reservation_id", res.ReservationID), zap.Error(err))
	}
	return nil
}

// PurgeAll drops every reservation and returns the number removed. Admin
// reset: no restock and no quota release.
func (c *Cancel) PurgeAll(ctx context.Context) (int64, error) {
	n, err := c.store.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	c.logger.Info("all reservations purged", zap.Int64("deleted", n))
	return n, nil
}
