package reservation

import "errors"

// Admission failure kinds. All are recoverable by the caller; handlers map
// them to transport status codes.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("user already holds a reservation for this item")
	ErrQuotaExceeded       = errors.New("maximum reservations reached for this month")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrUpstreamUnavailable = errors.New("inventory directory unavailable")
	ErrValidation          = errors.New("validation error")
)
