package query

import (
	"context"

	"github.com/shelfmark/shelfmark/inventory/domain/item"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Query struct {
	itemRepository item.Repository
}

func NewQuery(itemRepository item.Repository) *Query {
	return &Query{itemRepository: itemRepository}
}

func (q *Query) Get(ctx context.Context, invID string) (*item.Item, error) {
	return q.itemRepository.Get(ctx, invID)
}

func (q *Query) List(ctx context.Context, page, limit int) (ListOutput, error) {
	return q.list(ctx, page, limit, q.itemRepository.List)
}

// ListArchived pages through archived items only.
func (q *Query) ListArchived(ctx context.Context, page, limit int) (ListOutput, error) {
	return q.list(ctx, page, limit, q.itemRepository.ListArchived)
}

func (q *Query) list(ctx context.Context, page, limit int, fetch func(context.Context, int, int) ([]item.Item, int64, error)) (ListOutput, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	items, total, err := fetch(ctx, page, limit)
	if err != nil {
		return ListOutput{}, err
	}
	return ListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

type ListOutput struct {
	Items []item.Item
	Total int64
	Page  int
	Limit int
}
