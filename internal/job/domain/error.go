package domain

import "errors"

var (
	ErrNotFound                = errors.New("job not found")
	ErrForbidden               = errors.New("forbidden")
	ErrInvalidAction           = errors.New("invalid job action")
	ErrInvalidQuantity         = errors.New("job quantity must be at least 1")
	ErrUnableToProduce         = errors.New("facility is unable to produce that")
	ErrCancellationUnsupported = errors.New("job cancellation is not supported")
)
