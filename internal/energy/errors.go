package energy

import "errors"

var (
	// ErrInvalidPeriod is returned for an unrecognized aggregation period.
	ErrInvalidPeriod = errors.New("energy: invalid aggregation period")
	// ErrNotFound is returned by write operations targeting a missing row.
	ErrNotFound = errors.New("energy: not found")
)
