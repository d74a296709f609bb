package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"blogtalk/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTTP(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("services.CommentService.X: %w", err) }

	tests := []struct {
		err     error
		status  int
		code    string
		message string
	}{
		{wrap(services.ErrNotFound), http.StatusNotFound, "not_found", "not found"},
		{wrap(services.ErrUnauthenticated), http.StatusUnauthorized, "unauthenticated", "authentication required"},
		{wrap(services.ErrForbidden), http.StatusForbidden, "forbidden", "forbidden"},
		{wrap(services.ErrCommentsDisabled), http.StatusForbidden, "comments_disabled", "comments are disabled for this post"},
		{wrap(services.ErrEmptyBody), http.StatusBadRequest, "invalid_argument", services.ErrEmptyBody.Error()},
		{wrap(services.ErrInvalidThread), http.StatusBadRequest, "invalid_argument", services.ErrInvalidThread.Error()},
		{wrap(services.ErrValidation), http.StatusBadRequest, "invalid_argument", services.ErrValidation.Error()},
		{wrap(services.ErrAlreadyPinned), http.StatusBadRequest, "invalid_operation", services.ErrAlreadyPinned.Error()},
		{wrap(services.ErrReplyNotPinnable), http.StatusBadRequest, "invalid_operation", services.ErrReplyNotPinnable.Error()},
		{wrap(services.ErrConflict), http.StatusConflict, "conflict", "concurrent update, try again"},
		{wrap(services.ErrInternal), http.StatusInternalServerError, "internal", "internal error"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "internal", "internal error"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
		{nil, http.StatusInternalServerError, "internal", "internal error"},
	}
	for _, tt := range tests {
		status, resp := ToHTTP(tt.err)
		assert.Equal(t, tt.status, status, "%v", tt.err)
		assert.Equal(t, tt.code, resp.Error.Code, "%v", tt.err)
		assert.Equal(t, tt.message, resp.Error.Message, "%v", tt.err)
	}
}

func TestWrite_IncludesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Writer.Header().Set(RequestIDHeader, "rid-1")

	Write(c, services.ErrNotFound)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.True(t, c.IsAborted())

	var body Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, APIError{Code: "not_found", Message: "not found", RequestID: "rid-1"}, body.Error)
}
