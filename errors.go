package dynamorepo

import "errors"

var (
	// ErrItemNotFound is returned by Update when the key has no stored item
	// to merge into. Get never returns it; an absent item is (nil, nil).
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidQuery is returned before any storage call when a query has
	// no hash key value and the scan fallback was not opted into with a
	// range condition.
	ErrInvalidQuery = errors.New("hash key value required unless scan fallback is enabled with a range condition")

	// ErrConflict is returned when an optimistic version check failed: the
	// stored item's token advanced between the read and the write.
	ErrConflict = errors.New("conflicting concurrent write")
)
