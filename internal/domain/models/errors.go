package models

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable marks a failed remote fetch. It is absorbed by the
// provider's synthetic fallback and never crosses the API boundary.
var ErrUpstreamUnavailable = errors.New("upstream market data unavailable")

// InsufficientDataError is the only analysis error surfaced to callers:
// the series is too short to fit a model.
type InsufficientDataError struct {
	Asset    string
	Required int
	Actual   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient history for %s: need %d points, have %d", e.Asset, e.Required, e.Actual)
}

// AsInsufficientData unwraps err into an InsufficientDataError if it is one.
func AsInsufficientData(err error) (*InsufficientDataError, bool) {
	var ie *InsufficientDataError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
