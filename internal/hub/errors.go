package hub

import "errors"

var (
	// ErrTooManyProviders is returned when a new provider would exceed the
	// configured maximum.
	ErrTooManyProviders = errors.New("hub: max providers reached")

	// ErrProviderNotFound is returned for operations on an unknown provider.
	ErrProviderNotFound = errors.New("hub: provider not found")

	// ErrInvalidProviderName is returned for an empty provider name.
	ErrInvalidProviderName = errors.New("hub: provider name required")
)
