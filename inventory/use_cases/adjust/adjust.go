package adjust

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shelfmark/shelfmark/inventory/domain/item"
	"github.com/shelfmark/shelfmark/inventory/protocols"
)

// Adjust applies a stock delta (negative = reserve, positive = return) as
// a single conditional update and publishes an inventory.adjusted event.
type Adjust struct {
	itemRepository item.Repository
	publisher      protocols.EventPublisher
	logger         *zap.Logger
}

func NewAdjust(itemRepository item.Repository, publisher protocols.EventPublisher, logger *zap.Logger) *Adjust {
	return &Adjust{itemRepository: itemRepository, publisher: publisher, logger: logger}
}

func (a *Adjust) Adjust(ctx context.Context, input Input) (Output, error) {
	if input.Delta == 0 {
		return Output{}, fmt.Errorf("%w: delta must not be zero", item.ErrValidation)
	}
	copies, err := a.itemRepository.AdjustCopies(ctx, input.InvID, input.Delta)
	if err != nil {
		return Output{}, err
	}

	event := &protocols.InventoryEvent{
		Type:      "inventory.adjusted",
		InvID:     input.InvID,
		Delta:     input.Delta,
		Copies:    copies,
		Timestamp: time.Now().UTC(),
	}
	// Events are best effort; the adjustment already committed.
	if err := a.publisher.PublishInventoryEvent(ctx, event); err != nil {
		a.logger.Warn("publish inventory event failed",
			zap.String("inv_id", input.InvID), zap.Error(err))
	}
	return Output{Copies: copies}, nil
}

type Input struct {
	InvID string
	Delta int
}

type Output struct {
	Copies int
}
