package contentcloud

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout marks a request that did not complete in its allotted time.
	ErrTimeout = errors.New("request timed out")
	// ErrNotArray marks a listing body that is valid JSON but not an array.
	ErrNotArray = errors.New("response body is not a JSON array")
	// ErrDecode marks a listing body that could not be decoded.
	ErrDecode = errors.New("failed to decode response body")
)

// StatusError reports a response whose status differs from the expected one.
type StatusError struct {
	URL      string
	Expected int
	Actual   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: expected status %d, got %d: %s", e.URL, e.Expected, e.Actual, e.Body)
}
