package archive

import (
	"context"

	"github.com/shelfmark/shelfmark/inventory/domain/item"
)

type Archive struct {
	itemRepository item.Repository
}

func NewArchive(itemRepository item.Repository) *Archive {
	return &Archive{itemRepository: itemRepository}
}

func (a *Archive) Archive(ctx context.Context, invID string) error {
	return a.itemRepository.Archive(ctx, invID)
}
