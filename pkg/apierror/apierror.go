package apierror

import (
	"fmt"
	"net/http"
)

const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *APIError by code, so errors.Is(err, apierror.Forbidden("")) works.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

func BadRequest(message string, details string) *APIError {
	return New(CodeBadRequest, message, details, http.StatusBadRequest)
}

func Unauthorized(message string) *APIError {
	return New(CodeUnauthorized, message, "", http.StatusUnauthorized)
}

func Forbidden(message string) *APIError {
	return New(CodeForbidden, message, "", http.StatusForbidden)
}

func NotFound(message string, details string) *APIError {
	return New(CodeNotFound, message, details, http.StatusNotFound)
}

func Conflict(message string, details string) *APIError {
	return New(CodeConflict, message, details, http.StatusConflict)
}

// Internal never carries the underlying cause; log it before returning this.
func Internal() *APIError {
	return New(CodeInternal, "Unexpected server error", "", http.StatusInternalServerError)
}
