package datasource

import "errors"

var (
	// ErrConfiguration marks an unknown datasource name, an unknown provider
	// class, or provider parameters that cannot be used.
	ErrConfiguration = errors.New("datasource configuration error")

	// ErrProviderUnavailable marks a provider that could not be connected or
	// is used before it was opened.
	ErrProviderUnavailable = errors.New("datasource provider unavailable")
)
