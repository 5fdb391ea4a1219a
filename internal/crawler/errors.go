package crawler

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload reports an upstream document without a movie section.
// It is fatal for the crawl and stops processing before any persistence.
var ErrMalformedPayload = errors.New("payload has no movie section")

// TransportError reports a failed fetch of the primary payload source.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ExclusionError reports a payload rejected by the configured exclusion lists.
// It is a normal rejection outcome, not a system failure.
type ExclusionError struct {
	Field string // "type", "category" or "region"
	Value string
}

func (e *ExclusionError) Error() string {
	return fmt.Sprintf("payload %s %q is excluded", e.Field, e.Value)
}

// IsExcluded reports whether err is an exclusion rejection.
func IsExcluded(err error) bool {
	var exclusion *ExclusionError
	return errors.As(err, &exclusion)
}
