package register

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark/inventory/domain/item"
)

type Register struct {
	itemRepository item.Repository
}

func NewRegister(itemRepository item.Repository) *Register {
	return &Register{itemRepository: itemRepository}
}

func (r *Register) Register(ctx context.Context, input Input) (Output, error) {
	invID := strings.TrimSpace(input.InvID)
	if invID == "" {
		return Output{}, fmt.Errorf("%w: inv_id is required", item.ErrValidation)
	}
	if strings.TrimSpace(input.Name) == "" {
		return Output{}, fmt.Errorf("%w: name is required", item.ErrValidation)
	}
	if input.Copies < 0 {
		return Output{}, fmt.Errorf("%w: copies must not be negative", item.ErrValidation)
	}

	now := time.Now().UTC()
	it := &item.Item{
		InvID:       invID,
		Name:        input.Name,
		Description: input.Description,
		Type:        input.Type,
		Copies:      input.Copies,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.itemRepository.Create(ctx, it); err != nil {
		return Output{}, err
	}
	return Output{Item: *it}, nil
}

type Input struct {
	InvID       string
	Name        string
	Description string
	Type        string
	Copies      int
}

type Output struct {
	Item item.Item
}
