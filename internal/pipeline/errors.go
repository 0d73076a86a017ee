package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoJobFound is returned when a query resolves to no known title.
var ErrNoJobFound = errors.New("no job found")

// ErrSourcesUnavailable is returned when neither the salary API nor the community
// store could be read.
var ErrSourcesUnavailable = errors.New("salary data is unavailable, please retry later")

// ErrStoreUnavailable is returned by write operations when no community store is configured.
var ErrStoreUnavailable = errors.New("community store is not configured")

var errNotConfigured = errors.New("not configured")

// InsufficientDataError reports a search whose matched records are too few for statistics.
type InsufficientDataError struct {
	Count int
	Min   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d salaries, at least %d required", e.Count, e.Min)
}

// InvalidInputError wraps a rejected request.
type InvalidInputError struct {
	Message string
	Cause   error
}

func (e *InvalidInputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Message, e.Cause)
	}
	return "invalid input: " + e.Message
}

func (e *InvalidInputError) Unwrap() error {
	return e.Cause
}
