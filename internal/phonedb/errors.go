package phonedb

import "errors"

// Error kinds returned by the engine. Callers match them with
// errors.Is; underlying I/O failures are wrapped with %w and carry
// their own cause.
var (
	// ErrInvalidDatabase reports a malformed database file: bad header,
	// truncated records blob, invalid UTF-8, wrong field count, or an
	// out-of-range record offset.
	ErrInvalidDatabase = errors.New("invalid phone database")

	// ErrInvalidLength reports a query outside 7-11 characters.
	ErrInvalidLength = errors.New("phone number length must be 7-11 characters")

	// ErrNotFound reports a well-formed query with no matching prefix.
	ErrNotFound = errors.New("phone number not found in database")

	// ErrInvalidCarrierCode reports a carrier byte outside 1-8.
	ErrInvalidCarrierCode = errors.New("invalid carrier code")

	// ErrCacheDisabled reports a cache operation against an engine
	// constructed with caching disabled.
	ErrCacheDisabled = errors.New("cache is disabled")
)
