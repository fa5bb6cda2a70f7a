package service

import "errors"

// Public error kinds. Every operation resolves its failures into one of
// these before returning; raw store errors are logged, never surfaced.
var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrTransactionFailed     = errors.New("transaction failed")
	ErrAggregationFailed     = errors.New("aggregation failed")
)
