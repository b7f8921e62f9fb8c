package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shelfmark/shelfmark/inventory/domain/item"
)

// ItemRepositoryMemory keeps the catalog in process memory. Used by tests
// and by standalone mode when no MONGO_URI is configured. All operations
// take the repository lock, so check-and-decrement is atomic.
type ItemRepositoryMemory struct {
	mu    sync.Mutex
	items map[string]*item.Item
}

func NewItemRepositoryMemory() *ItemRepositoryMemory {
	return &ItemRepositoryMemory{items: make(map[string]*item.Item)}
}

func (r *ItemRepositoryMemory) Get(ctx context.Context, invID string) (*item.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[invID]
	if !ok {
		return nil, item.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (r *ItemRepositoryMemory) List(ctx context.Context, page, limit int) ([]item.Item, int64, error) {
	return r.list(page, limit, false)
}

func (r *ItemRepositoryMemory) ListArchived(ctx context.Context, page, limit int) ([]item.Item, int64, error) {
	return r.list(page, limit, true)
}

func (r *ItemRepositoryMemory) list(page, limit int, archivedOnly bool) ([]item.Item, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.items))
	for id, it := range r.items {
		if archivedOnly && !it.Archived {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	out := make([]item.Item, 0, limit)
	for i := start; i < len(ids) && len(out) < limit; i++ {
		out = append(out, *r.items[ids[i]])
	}
	return out, int64(len(ids)), nil
}

func (r *ItemRepositoryMemory) Create(ctx context.Context, it *item.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[it.InvID]; ok {
		return item.ErrAlreadyExists
	}
	cp := *it
	r.items[it.InvID] = &cp
	return nil
}

func (r *ItemRepositoryMemory) Update(ctx context.Context, it *item.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[it.InvID]
	if !ok {
		return item.ErrNotFound
	}
	existing.Name = it.Name
	existing.Description = it.Description
	existing.Type = it.Type
	existing.Copies = it.Copies
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *ItemRepositoryMemory) Archive(ctx context.Context, invID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[invID]
	if !ok {
		return item.ErrNotFound
	}
	existing.Archived = true
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *ItemRepositoryMemory) DeleteMany(ctx context.Context, invIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range invIDs {
		if _, ok := r.items[id]; ok {
			delete(r.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *ItemRepositoryMemory) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.items))
	r.items = make(map[string]*item.Item)
	return n, nil
}

func (r *ItemRepositoryMemory) AdjustCopies(ctx context.Context, invID string, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[invID]
	if !ok {
		return 0, item.ErrNotFound
	}
	if delta < 0 {
		if existing.Archived {
			return 0, item.ErrNotFound
		}
		if existing.Copies+delta < 0 {
			return 0, item.ErrInsufficientStock
		}
	}
	existing.Copies += delta
	existing.UpdatedAt = time.Now().UTC()
	return existing.Copies, nil
}
