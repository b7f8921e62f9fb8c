package protocols

import "context"

// AdmissionResult is what a replayed create request gets back instead of
// a second admission.
type AdmissionResult struct {
	ReservationID string `json:"reservation_id"`
	QuotaUsed     int    `json:"quota_used"`
}

type IdempotencyGateway interface {
	// Reserve claims the key for processing. Returns the recorded result
	// when the key already completed, (nil, nil) when the key is fresh,
	// and an error when the key is mid-flight.
	Reserve(ctx context.Context, key string) (*AdmissionResult, error)
	MarkSuccess(ctx context.Context, key string, result *AdmissionResult) error
	MarkFailure(ctx context.Context, key string) error
}
