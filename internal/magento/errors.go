package magento

import "errors"

var (
	// ErrMissingIdentifier: neither an entity id nor an increment id was
	// supplied.
	ErrMissingIdentifier = errors.New("magento: entity_id or increment_id required")

	ErrOrderNotFound = errors.New("magento: order not found")

	// ErrFetchTimeout: the bounded retry loop ran out of attempts.
	ErrFetchTimeout = errors.New("magento: order fetch attempts exhausted")
)
