package protocols

import (
	"context"
	"time"
)

type InventoryEvent struct {
	Type      string    `json:"type"`
	InvID     string    `json:"inv_id"`
	Delta     int       `json:"delta,omitempty"`
	Copies    int       `json:"copies"`
	Timestamp time.Time `json:"timestamp"`
}

type EventPublisher interface {
	PublishInventoryEvent(ctx context.Context, event *InventoryEvent) error
	Close() error
}
