package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes returned by the HTTP API
const (
	CodeBadRequest  = "BAD_REQUEST"
	CodeNotFound    = "NOT_FOUND"
	CodeUnavailable = "UNAVAILABLE"
	CodeInternal    = "INTERNAL_ERROR"
)

// APIError is an error with an HTTP status and a machine-readable code
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Cause      error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// NewBadRequest creates a 400 error
func NewBadRequest(message string, cause error) *APIError {
	return &APIError{Code: CodeBadRequest, Message: message, HTTPStatus: http.StatusBadRequest, Cause: cause}
}

// NewNotFound creates a 404 error
func NewNotFound(message string) *APIError {
	return &APIError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

// NewUnavailable creates a 503 error
func NewUnavailable(message string, cause error) *APIError {
	return &APIError{Code: CodeUnavailable, Message: message, HTTPStatus: http.StatusServiceUnavailable, Cause: cause}
}

// NewInternal creates a 500 error
func NewInternal(message string, cause error) *APIError {
	return &APIError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

// Respond writes err as the JSON response and aborts the chain. Errors that
// are not an *APIError become a 500.
func Respond(c *gin.Context, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = NewInternal("internal error", err)
	}
	if apiErr.Cause != nil {
		_ = c.Error(apiErr.Cause)
	}
	c.AbortWithStatusJSON(apiErr.HTTPStatus, gin.H{
		"success": false,
		"error":   apiErr,
	})
}
