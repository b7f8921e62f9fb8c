package item

import "context"

type Repository interface {
	Get(ctx context.Context, invID string) (*Item, error)
	List(ctx context.Context, page, limit int) ([]Item, int64, error)

	// ListArchived pages through archived items only.
	ListArchived(ctx context.Context, page, limit int) ([]Item, int64, error)

	Create(ctx context.Context, it *Item) error
	Update(ctx context.Context, it *Item) error
	Archive(ctx context.Context, invID string) error

	// DeleteMany hard-removes the given items and returns the number
	// removed; absent ids are skipped. DeleteAll purges the catalog.
	// Both are admin operations, distinct from the soft Archive.
	DeleteMany(ctx context.Context, invIDs []string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)

	// AdjustCopies applies delta to the item's copy count as a single
	// conditional update: a negative delta only succeeds when enough
	// copies remain, so copies never goes below zero. Negative deltas
	// against archived items fail with ErrNotFound. Returns the new
	// copy count.
	AdjustCopies(ctx context.Context, invID string, delta int) (int, error)
}
