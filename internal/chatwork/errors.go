package chatwork

import (
	"errors"
	"fmt"
)

// Sentinel errors for executor failures. All of them are terminal for the
// call that produced them.
var (
	// ErrTransport wraps connection-level failures (dial, TLS, timeout).
	ErrTransport = errors.New("chatwork: transport failure")

	// ErrDecode wraps a 2xx response whose body is not the expected JSON.
	ErrDecode = errors.New("chatwork: malformed response body")

	// ErrRetriesExhausted is returned when the API kept answering 429 until
	// the attempt cap was reached.
	ErrRetriesExhausted = errors.New("chatwork: rate limit retries exhausted")
)

// APIError is a non-2xx, non-429 response from the Chatwork API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("chatwork: API error (%d): %s", e.StatusCode, e.Message)
}

// Error kinds reported to the Recorder.
const (
	KindTransport = "transport"
	KindDecode    = "decode"
	KindExhausted = "retries_exhausted"
	KindAPI       = "api"
)

// ErrorKind classifies err into one of the Kind* constants, or "" when err is
// not an executor error (e.g. context cancellation).
func ErrorKind(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return KindAPI
	case errors.Is(err, ErrRetriesExhausted):
		return KindExhausted
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return ""
	}
}
