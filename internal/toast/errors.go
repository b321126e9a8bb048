package toast

import "errors"

var (
	// ErrInvalidArgument is returned by Add for an empty message, a negative
	// duration or an unknown variant.
	ErrInvalidArgument = errors.New("toast: invalid argument")

	// ErrClosed is returned when a store is used after Close.
	ErrClosed = errors.New("toast: store is closed")

	// ErrCapacity is returned by Add under PolicyRejectNew when the store
	// is full.
	ErrCapacity = errors.New("toast: capacity reached")
)
