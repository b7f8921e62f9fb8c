package update_many

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
	"github.com/shelfmark/shelfmark/reservation/protocols"
)

type UpdateMany struct {
	directory protocols.InventoryDirectory
	store     protocols.ReservationStore
	logger    *zap.Logger
}

func NewUpdateMany(directory protocols.InventoryDirectory, store protocols.ReservationStore, logger *zap.Logger) *UpdateMany {
	return &UpdateMany{directory: directory, store: store, logger: logger}
}

type Input struct {
	ReservationIDs []string
	NewStatus      reservation.Status
	Comment        string
}

type Output struct {
	Modified int64
}

// Update applies the same status and comment to every id. When the target
// status is terminal, copies held by still-open reservations are credited
// back first, so the bulk path keeps the same stock accounting as a
// single-reservation update. Unknown ids are skipped, and settled
// reservations never reopen: the non-terminal bulk write only touches
// open reservations.
func (u *UpdateMany) Update(ctx context.Context, input Input) (Output, error) {
	if len(input.ReservationIDs) == 0 {
		return Output{}, fmt.Errorf("%w: no reservation ids provided", reservation.ErrValidation)
	}
	if !input.NewStatus.Valid() {
		return Output{}, fmt.Errorf("%w: unknown status %q", reservation.ErrValidation, string(input.NewStatus))
	}

	if !input.NewStatus.Terminal() {
		modified, err := u.store.UpdateStatusMany(ctx, input.ReservationIDs, input.NewStatus, input.Comment)
		if err != nil {
			return Output{}, err
		}
		return Output{Modified: modified}, nil
	}

	// Terminal target: settle each reservation on its own so a credited
	// stock adjustment and the matching status flip stay paired.
	var modified int64
	for _, id := range input.ReservationIDs {
		res, err := u.store.FindByID(ctx, id)
		if errors.Is(err, reservation.ErrNotFound) {
			continue
		}
		if err != nil {
			return Output{Modified: modified}, err
		}
		if res.Open() {
			if err := u.directory.AdjustCopies(ctx, res.InvID, res.CopiesReserved); err != nil {
				u.logger.Error("bulk restock failed",
					zap.String("reservation_id", id), zap.Error(err))
				return Output{Modified: modified}, err
			}
		}
		if err := u.store.UpdateStatus(ctx, id, input.NewStatus, input.Comment); err != nil {
			return Output{Modified: modified}, err
		}
		modified++
	}
	return Output{Modified: modified}, nil
}
