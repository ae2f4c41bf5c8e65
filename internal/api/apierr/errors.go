package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/callclock/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInvalidTime      = "INVALID_TIME"
	CodeEmptyCaptions    = "EMPTY_CAPTIONS"
	CodeCaptionsNotFound = "CAPTIONS_NOT_FOUND"
	CodeViewNotFound     = "VIEW_NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeInternalError    = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrCaptionsNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeCaptionsNotFound, "No captions for this page"}}
	case errors.Is(err, model.ErrEmptyCaptions):
		return &httpError{http.StatusBadRequest, APIError{CodeEmptyCaptions, "At least one non-blank caption is required"}}
	case errors.Is(err, model.ErrViewNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeViewNotFound, "View not found"}}
	case errors.Is(err, model.ErrInvalidFixedTime):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidTime, "Time must be HH:MM"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) error {
	return &httpError{http.StatusForbidden, APIError{CodeForbidden, message}}
}

// NewInternalError creates an internal server error quoting the request ID, if any,
// so a report can be matched to the server log
func NewInternalError(requestID string) error {
	msg := "Internal server error"
	if requestID != "" {
		msg += " (request " + requestID + ")"
	}
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, msg}}
}
