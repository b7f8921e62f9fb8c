package purge

import (
	"context"
	"fmt"

	"github.com/shelfmark/shelfmark/inventory/domain/item"
)

// Purge hard-removes catalog items, bypassing the soft Archive path.
// Admin operations only.
type Purge struct {
	itemRepository item.Repository
}

func NewPurge(itemRepository item.Repository) *Purge {
	return &Purge{itemRepository: itemRepository}
}

func (p *Purge) Many(ctx context.Context, invIDs []string) (int64, error) {
	if len(invIDs) == 0 {
		return 0, fmt.Errorf("%w: no inv_ids provided", item.ErrValidation)
	}
	return p.itemRepository.DeleteMany(ctx, invIDs)
}

func (p *Purge) All(ctx context.Context) (int64, error) {
	return p.itemRepository.DeleteAll(ctx)
}
