package domain

import "errors"

var (
	// ErrFatalInput means the offer collection itself is absent or unparseable.
	// It is the only error that aborts a report.
	ErrFatalInput = errors.New("fatal input")

	// ErrMalformedTimestamp marks a record dropped for lack of a usable timestamp
	ErrMalformedTimestamp = errors.New("malformed timestamp")

	// ErrNegativeQuantity marks an item entry skipped for a negative quantity
	ErrNegativeQuantity = errors.New("negative quantity")

	// ErrUnresolvableValue marks a value that could not be normalized
	ErrUnresolvableValue = errors.New("unresolvable value")

	// ErrInvalidOptions is returned for a misconfigured engine invocation
	ErrInvalidOptions = errors.New("invalid options")

	// ErrNotFound is returned by repositories and caches for missing entries
	ErrNotFound = errors.New("not found")

	// ErrUnavailable means a backing store could not be reached or read.
	// Unlike ErrFatalInput the offer log itself may be intact.
	ErrUnavailable = errors.New("store unavailable")
)
