package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindNetwork means no response was received.
	KindNetwork Kind = iota
	// KindClient is a 4xx answer.
	KindClient
	// KindServer is a 5xx answer, or a 2xx whose body could not be read.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is the uniform failure returned by every Client call.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("rental api unreachable: %v", e.Err)
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("rental api %d: %s", e.StatusCode, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401 from the API, which means the
// session token is no longer accepted.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNetwork reports whether err is a failure to reach the API at all.
func IsNetwork(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindNetwork
}

// Message returns the text to show a user for err. Server supplied messages
// win; network failures, empty bodies and bodies without a message fall
// back to fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind != KindNetwork && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// errorBody is the part of the API's failure envelope meant for users. The
// error field only repeats the reason phrase and is ignored.
type errorBody struct {
	Message string `json:"message"`
}

func statusKind(status int) Kind {
	if status >= 500 {
		return KindServer
	}
	return KindClient
}
