package protocols

import (
	"context"
	"time"
)

type ReservationEvent struct {
	Type          string    `json:"type"`
	ReservationID string    `json:"reservation_id"`
	User          string    `json:"user"`
	InvID         string    `json:"inv_id"`
	Copies        int       `json:"copies"`
	Timestamp     time.Time `json:"timestamp"`
}

type EventPublisher interface {
	PublishReservationEvent(ctx context.Context, event *ReservationEvent) error
	Close() error
}
