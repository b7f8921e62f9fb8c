package gateways

import (
	"context"
	"errors"
	"fmt"

	"github.com/shelfmark/shelfmark/inventory/domain/item"
	"github.com/shelfmark/shelfmark/reservation/domain/reservation"
	"github.com/shelfmark/shelfmark/reservation/protocols"
)

const embeddedListPageSize = 100

// InventoryDirectoryEmbedded serves the directory straight from the
// catalog repository, for standalone deployments that run both services
// against the same store. Repository errors are translated into the
// reservation domain's kinds.
type InventoryDirectoryEmbedded struct {
	repo item.Repository
}

func NewInventoryDirectoryEmbedded(repo item.Repository) *InventoryDirectoryEmbedded {
	return &InventoryDirectoryEmbedded{repo: repo}
}

func (g *InventoryDirectoryEmbedded) Lookup(ctx context.Context, invID string) (*protocols.InventoryItem, error) {
	it, err := g.repo.Get(ctx, invID)
	if errors.Is(err, item.ErrNotFound) {
		return nil, fmt.Errorf("%w: item %s", reservation.ErrNotFound, invID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", reservation.ErrUpstreamUnavailable, err)
	}
	return toDirectoryItem(it), nil
}

func (g *InventoryDirectoryEmbedded) ListAll(ctx context.Context) ([]protocols.InventoryItem, error) {
	var all []protocols.InventoryItem
	for page := 1; ; page++ {
		items, _, err := g.repo.List(ctx, page, embeddedListPageSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", reservation.ErrUpstreamUnavailable, err)
		}
		for i := range items {
			all = append(all, *toDirectoryItem(&items[i]))
		}
		if len(items) < embeddedListPageSize {
			return all, nil
		}
	}
}

func (g *InventoryDirectoryEmbedded) AdjustCopies(ctx context.Context, invID string, delta int) error {
	_, err := g.repo.AdjustCopies(ctx, invID, delta)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, item.ErrNotFound):
		return fmt.Errorf("%w: item %s", reservation.ErrNotFound, invID)
	case errors.Is(err, item.ErrInsufficientStock):
		return reservation.ErrInsufficientStock
	default:
		return fmt.Errorf("%w: %v", reservation.ErrUpstreamUnavailable, err)
	}
}

func toDirectoryItem(it *item.Item) *protocols.InventoryItem {
	return &protocols.InventoryItem{
		InvID:       it.InvID,
		Name:        it.Name,
		Description: it.Description,
		Type:        it.Type,
		Copies:      it.Copies,
		Archived:    it.Archived,
	}
}
