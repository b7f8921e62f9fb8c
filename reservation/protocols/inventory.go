package protocols

import "context"

// InventoryItem is the directory's view of a catalog entry, as seen by
// the admission engine.
type InventoryItem struct {
	InvID       string `json:"inv_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Copies      int    `json:"copies"`
	Archived    bool   `json:"archived"`
}

// InventoryDirectory is the external catalog the engine admits against.
// Implementations: HTTP client to the inventory service, a redis
// cache-fronted decorator, and an embedded adapter over the catalog
// repository. Errors use the reservation domain kinds: Lookup returns
// ErrNotFound or ErrUpstreamUnavailable; AdjustCopies additionally
// returns ErrInsufficientStock.
type InventoryDirectory interface {
	Lookup(ctx context.Context, invID string) (*InventoryItem, error)
	ListAll(ctx context.Context) ([]InventoryItem, error)

	// AdjustCopies must be an atomic conditional update on the directory
	// side: negative delta (reserve) fails instead of dropping below zero.
	AdjustCopies(ctx context.Context, invID string, delta int) error
}
