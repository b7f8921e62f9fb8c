package update

import (
	"context"
	"fmt"
	"strings"

	"github.com/shelfmark/shelfmark/inventory/domain/item"
)

type Update struct {
	itemRepository item.Repository
}

func NewUpdate(itemRepository item.Repository) *Update {
	return &Update{itemRepository: itemRepository}
}

func (u *Update) Update(ctx context.Context, input Input) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name is required", item.ErrValidation)
	}
	if input.Copies < 0 {
		return fmt.Errorf("%w: copies must not be negative", item.ErrValidation)
	}
	return u.itemRepository.Update(ctx, &item.Item{
		InvID:       input.InvID,
		Name:        input.Name,
		Description: input.Description,
		Type:        input.Type,
		Copies:      input.Copies,
	})
}

type Input struct {
	InvID       string
	Name        string
	Description string
	Type        string
	Copies      int
}
