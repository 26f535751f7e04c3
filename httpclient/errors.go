package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed call.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindConnection ErrorKind = "connection"
	KindAuth       ErrorKind = "auth"
	KindNotFound   ErrorKind = "not_found"
	KindRateLimit  ErrorKind = "rate_limit"
	KindClient     ErrorKind = "client"
	KindServer     ErrorKind = "server"
)

// Error is returned for transport failures and non-2xx responses.
type Error struct {
	Client     string
	Kind       ErrorKind
	StatusCode int
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode > 0 && len(e.Body) > 0:
		return fmt.Sprintf("%s: %s (HTTP %d): %s", e.Client, e.Kind, e.StatusCode, truncate(e.Body, 256))
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Client, e.Kind, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Client, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call could succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindConnection, KindRateLimit, KindServer:
		return true
	}
	return false
}

func classify(client string, status int, body []byte) *Error {
	var kind ErrorKind
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuth
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusTooManyRequests:
		kind = KindRateLimit
	case status >= 500:
		kind = KindServer
	default:
		kind = KindClient
	}
	return &Error{Client: client, Kind: kind, StatusCode: status, Body: body}
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsNotFound(err error) bool  { return kindOf(err) == KindNotFound }
func IsAuth(err error) bool      { return kindOf(err) == KindAuth }
func IsTimeout(err error) bool   { return kindOf(err) == KindTimeout }
func IsRateLimit(err error) bool { return kindOf(err) == KindRateLimit }

// IsRetryable reports whether err is an *Error worth retrying.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
