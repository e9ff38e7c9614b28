package api

import (
	"errors"
	"fmt"
)

// DefaultMessage is shown to the user when a failure carries no server message.
const DefaultMessage = "Something went wrong. Please try again."

// Kind classifies an [APIError].
type Kind int

const (
	// KindTransport covers network failures, timeouts, non-2xx responses
	// without a readable envelope and bodies that fail to decode.
	KindTransport Kind = iota

	// KindBusiness covers responses where the server answered with
	// success=false. The server message is user-facing.
	KindBusiness
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindBusiness:
		return "business"
	default:
		return "transport"
	}
}

// APIError is the single error type returned by [Client].
//
// Business errors carry the server's message verbatim in Message. Transport
// errors carry the underlying cause in Err, which is for logs only.
type APIError struct {
	Kind       Kind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Kind == KindBusiness:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: request failed", e.Op)
	}
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsBusiness reports whether err is an [APIError] of [KindBusiness].
func IsBusiness(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindBusiness
}

// UserMessage converts any error into the text shown to the user.
//
// A business error yields the server's message. Everything else, including
// nil-message business errors and errors that did not come from this
// package, yields [DefaultMessage].
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind == KindBusiness && apiErr.Message != "" {
		return apiErr.Message
	}
	return DefaultMessage
}
