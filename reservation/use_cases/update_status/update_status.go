package update_status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
	"github.com/shelfmark/shelfmark/reservation/protocols"
)

type UpdateStatus struct {
	directory protocols.InventoryDirectory
	store     protocols.ReservationStore
	publisher protocols.EventPublisher
	logger    *zap.Logger
}

func NewUpdateStatus(directory protocols.InventoryDirectory, store protocols.ReservationStore, publisher protocols.EventPublisher, logger *zap.Logger) *UpdateStatus {
	return &UpdateStatus{directory: directory, store: store, publisher: publisher, logger: logger}
}

type Input struct {
	ReservationID string
	NewStatus     reservation.Status
	Comment       string
}

// Update persists the new status and comment. Transitions into a terminal
// status (Returned, Cancelled) from an open one credit the reserved
// copies back to inventory; repeating the same transition does not credit
// twice. A settled reservation cannot reopen: terminal to open transitions
// fail with ErrConflict, since the credited copies may already be held by
// someone else. Idempotent on identical updates.
func (u *UpdateStatus) Update(ctx context.Context, input Input) error {
	if !input.NewStatus.Valid() {
		return fmt.Errorf("%w: unknown status %q", reservation.ErrValidation, string(input.NewStatus))
	}

	res, err := u.store.FindByID(ctx, input.ReservationID)
	if err != nil {
		return err
	}

	if res.Status.Terminal() && !input.NewStatus.Terminal() {
		return fmt.Errorf("%w: reservation %s is already %s", reservation.ErrConflict,
			input.ReservationID, string(res.Status))
	}

	if input.NewStatus.Terminal() && res.Open() {
		// Credit stock before the status flips so a failed credit leaves
		// the reservation untouched.
		if err := u.directory.AdjustCopies(ctx, res.InvID, res.CopiesReserved); err != nil {
			return err
		}
	}

	if err := u.store.UpdateStatus(ctx, input.ReservationID, input.NewStatus, input.Comment); err != nil {
		return err
	}

	event := &protocols.ReservationEvent{
		Type:          "reservation." + strings.ToLower(string(input.NewStatus)),
		ReservationID: res.ReservationID,
		User:          res.User,
		InvID:         res.InvID,
		Copies:        res.CopiesReserved,
		Timestamp:     time.Now().UTC(),
	}
	if err := u.publisher.PublishReservationEvent(ctx, event); err != nil {
		u.logger.Warn("publish reservation event failed",
			zap.String("reservation_id", res.ReservationID), zap.Error(err))
	}
	return nil
}
