package source

import (
	"errors"
	"fmt"
)

// ErrorKind classifies upstream failures. Only KindTransient is retried.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindRateLimited  ErrorKind = "rate_limited"
	KindUnauthorized ErrorKind = "unauthorized"
	KindTransient    ErrorKind = "transient_server_error"
	KindRequest      ErrorKind = "request_failed"
)

// Error is a classified source failure.
type Error struct {
	Kind   ErrorKind
	Source string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Source, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from err, defaulting to KindRequest for
// unclassified errors.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindRequest
}

// IsNotFound reports whether err is a classified not_found failure.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// classifyStatus maps an HTTP status code onto the error taxonomy.
func classifyStatus(code int) ErrorKind {
	switch {
	case code == 404:
		return KindNotFound
	case code == 429:
		return KindRateLimited
	case code == 401 || code == 403:
		return KindUnauthorized
	case code >= 500:
		return KindTransient
	default:
		return KindRequest
	}
}
