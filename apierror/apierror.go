// Package apierror carries the error taxonomy the handlers report through:
// every failure becomes a named kind with a stable HTTP status and the
// uniform JSON envelope the client expects.
package apierror

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Error struct {
	Name    string `json:"name"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Name + ": " + e.Message
}

// Parameter reports missing or invalid caller input.
func Parameter(message string) *Error {
	return &Error{Name: "parameter error", Status: http.StatusBadRequest, Message: message}
}

// Authentication reports a missing, invalid or stale credential.
func Authentication(message string) *Error {
	return &Error{Name: "authentication error", Status: http.StatusUnauthorized, Message: message}
}

// Authorization reports an authenticated but forbidden caller.
func Authorization(message string) *Error {
	return &Error{Name: "authorization error", Status: http.StatusForbidden, Message: message}
}

// NotFound reports an absent resource.
func NotFound(message string) *Error {
	return &Error{Name: "not found", Status: http.StatusNotFound, Message: message}
}

// Conflict reports a failed precondition, e.g. commenting on a draft.
func Conflict(message string) *Error {
	return &Error{Name: "conflict", Status: http.StatusConflict, Message: message}
}

// Internal reports an unexpected store or runtime failure.
func Internal(message string) *Error {
	return &Error{Name: "internal error", Status: http.StatusInternalServerError, Message: message}
}

// Wrap returns err unchanged when it already carries a kind, and folds
// anything else into an internal error. Keeps checked preconditions from
// being absorbed into a generic 500.
func Wrap(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err.Error())
}

type envelope struct {
	IsSuccess bool   `json:"isSuccess"`
	Name      string `json:"name"`
	Status    int    `json:"status"`
	Message   string `json:"message"`
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, err error) {
	apiErr := Wrap(err)
	c.AbortWithStatusJSON(apiErr.Status, envelope{
		IsSuccess: false,
		Name:      apiErr.Name,
		Status:    apiErr.Status,
		Message:   apiErr.Message,
	})
}
