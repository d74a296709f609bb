// Package httperr renders service errors as JSON responses of the form
// {"error":{"code","message","request_id"}}.
package httperr

import (
	"context"
	"errors"
	"net/http"

	"blogtalk/internal/logctx"
	"blogtalk/internal/services"

	"github.com/gin-gonic/gin"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// StatusClientClosedRequest is used when the client went away first.
const StatusClientClosedRequest = 499

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Error APIError `json:"error"`
}

// ToHTTP maps err onto a status and a client-safe body. Validation and
// invalid-operation errors keep their message; everything else gets a
// fixed one so internal details never leak.
func ToHTTP(err error) (int, Response) {
	status, code, msg := http.StatusInternalServerError, "internal", "internal error"

	switch {
	case err == nil:
	case errors.Is(err, services.ErrNotFound):
		status, code, msg = http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, services.ErrUnauthenticated):
		status, code, msg = http.StatusUnauthorized, "unauthenticated", "authentication required"
	case errors.Is(err, services.ErrCommentsDisabled):
		status, code, msg = http.StatusForbidden, "comments_disabled", "comments are disabled for this post"
	case errors.Is(err, services.ErrForbidden):
		status, code, msg = http.StatusForbidden, "forbidden", "forbidden"
	case errors.Is(err, services.ErrValidation):
		status, code, msg = http.StatusBadRequest, "invalid_argument", reason(err)
	case errors.Is(err, services.ErrInvalidOperation):
		status, code, msg = http.StatusBadRequest, "invalid_operation", reason(err)
	case errors.Is(err, services.ErrConflict):
		status, code, msg = http.StatusConflict, "conflict", "concurrent update, try again"
	case errors.Is(err, context.DeadlineExceeded):
		status, code, msg = http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case errors.Is(err, context.Canceled):
		status, code, msg = StatusClientClosedRequest, "canceled", "canceled"
	}
	return status, Response{Error: APIError{Code: code, Message: msg}}
}

// reason returns the sentinel text of a wrapped service error, without the
// op prefixes added on the way up.
func reason(err error) string {
	for _, known := range []error{
		services.ErrEmptyBody, services.ErrBodyTooLong, services.ErrInvalidThread, services.ErrInvalidSort,
		services.ErrReplyNotPinnable, services.ErrAlreadyPinned, services.ErrNotPinned,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	if errors.Is(err, services.ErrInvalidOperation) {
		return services.ErrInvalidOperation.Error()
	}
	return services.ErrValidation.Error()
}

// Write aborts the request with the response for err. 5xx errors are logged
// with the request logger.
func Write(c *gin.Context, err error) {
	status, resp := ToHTTP(err)
	if status >= http.StatusInternalServerError {
		logctx.From(c.Request.Context()).Error("request failed", "status", status, "err", err)
	}
	abort(c, status, resp)
}

// Abort stops the request with an explicit status and code.
func Abort(c *gin.Context, status int, code, message string) {
	abort(c, status, Response{Error: APIError{Code: code, Message: message}})
}

func abort(c *gin.Context, status int, resp Response) {
	resp.Error.RequestID = c.Writer.Header().Get(RequestIDHeader)
	c.AbortWithStatusJSON(status, resp)
}
