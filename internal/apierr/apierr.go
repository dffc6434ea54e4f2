package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable short codes carried alongside HTTP status. The long message
// (Err.Error()) is safe to show end users.
const (
	CodeValidation        = "validation"
	CodeNotFound          = "not_found"
	CodeIntegrity         = "integrity"
	CodeUpstreamTransient = "upstream_transient"
	CodeUpstreamAuth      = "upstream_auth"
	CodeUpstreamRate      = "upstream_rate"
	CodeNotImplemented    = "not_implemented"
	CodeInternal          = "internal"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(err error) *Error {
	return New(http.StatusBadRequest, CodeValidation, err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func Integrity(err error) *Error {
	return New(http.StatusConflict, CodeIntegrity, err)
}

func Upstream(status int, err error) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return New(http.StatusBadGateway, CodeUpstreamAuth, err)
	case status == http.StatusTooManyRequests:
		return New(http.StatusServiceUnavailable, CodeUpstreamRate, err)
	default:
		return New(http.StatusBadGateway, CodeUpstreamTransient, err)
	}
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// IsNotFound reports whether err carries the not_found code anywhere
// in its chain.
func IsNotFound(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == CodeNotFound
	}
	return false
}
