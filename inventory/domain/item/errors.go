package item

import "errors"

var (
	ErrNotFound          = errors.New("item not found")
	ErrAlreadyExists     = errors.New("item already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation error")
)
