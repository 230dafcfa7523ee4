package gateway

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingCredentials is returned before any network I/O when the API key
// or the base URL is empty.
var ErrMissingCredentials = errors.New("api credentials not found")

// NetworkError is a transport failure: DNS, connection refused, reset, cancellation.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// TimeoutError means the request did not complete within the configured timeout.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s", e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response from the messaging API.
type APIError struct {
	Status     int
	StatusText string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %d - %s", e.Status, e.StatusText)
}

// MalformedResponseError means the response body did not have the expected shape.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed response: %s", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// Error kinds reported by Kind.
const (
	KindMissingCredentials = "missing_credentials"
	KindNetwork            = "network_error"
	KindTimeout            = "timeout"
	KindAPI                = "api_error"
	KindMalformedResponse  = "malformed_response"
	KindUnknown            = "unknown"
)

// Kind classifies err. It returns "" for a nil error.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var (
		timeoutErr   *TimeoutError
		networkErr   *NetworkError
		apiErr       *APIError
		malformedErr *MalformedResponseError
	)
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return KindMissingCredentials
	case errors.As(err, &timeoutErr):
		return KindTimeout
	case errors.As(err, &networkErr):
		return KindNetwork
	case errors.As(err, &apiErr):
		return KindAPI
	case errors.As(err, &malformedErr):
		return KindMalformedResponse
	}
	return KindUnknown
}
