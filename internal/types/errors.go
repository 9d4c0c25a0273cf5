package types

import (
	"errors"
	"fmt"
)

// SourceFetchError reports a failed outbound request to a headline or
// quote upstream. It is always recovered by the component that produced it.
type SourceFetchError struct {
	Source string
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

// MalformedResponseError reports an upstream body that did not match the
// expected schema or markup.
type MalformedResponseError struct {
	Source string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.Source, e.Reason)
}

// InvalidThresholdError rejects a screening batch whose thresholds are
// outside (0,1].
type InvalidThresholdError struct {
	Field string
	Value float64
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("invalid threshold %s=%g: must be in (0,1]", e.Field, e.Value)
}

// ErrorClass names the taxonomy bucket of err for logs and span attributes.
// A malformed body wrapped in a fetch error is reported as malformed.
func ErrorClass(err error) string {
	var (
		malformed *MalformedResponseError
		fetch     *SourceFetchError
		threshold *InvalidThresholdError
	)
	switch {
	case errors.As(err, &malformed):
		return "malformed_upstream_response"
	case errors.As(err, &fetch):
		return "source_fetch_error"
	case errors.As(err, &threshold):
		return "invalid_threshold"
	}
	return "error"
}
