package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// TransportError is a failure to obtain a response at all: DNS, refused
// connections, timeouts, cancellation or a broken body stream.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// newTransportError strips the *url.Error wrapper from http.Client errors,
// which would repeat the method and URL.
func newTransportError(rawURL string, err error) *TransportError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return &TransportError{URL: rawURL, Err: err}
}

// HTTPError is a non-200 reply. Message is only set when the body carried a
// usable ErrorString; it is never consulted for 403.
type HTTPError struct {
	StatusCode int
	Message    string
	HasMessage bool
}

func (e *HTTPError) Error() string {
	if e.HasMessage {
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (%d)", e.StatusCode)
}

// Forbidden reports whether the registry refused access, typically because the
// caller is not whitelisted.
func (e *HTTPError) Forbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// DecodeError is a 200 reply whose body is not a JSON object.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
