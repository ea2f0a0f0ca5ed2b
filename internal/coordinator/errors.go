package coordinator

import "errors"

// Domain-specific errors for polling coordinators.
var (
	// ErrFirstRefreshFailed is returned by FirstRefresh when the initial
	// fetch fails. It wraps the fetch error.
	ErrFirstRefreshFailed = errors.New("coordinator: first refresh failed")

	// ErrNilSnapshot is recorded when a fetch returns neither data nor error.
	ErrNilSnapshot = errors.New("coordinator: fetch returned no data")
)
