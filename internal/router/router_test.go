package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blogtalk/internal/config"
	"blogtalk/internal/events"
	"blogtalk/internal/httperr"
	"blogtalk/internal/middleware"
	"blogtalk/internal/services"
	"blogtalk/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "router-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type api struct {
	t          *testing.T
	engine     *gin.Engine
	st         *memstore.Store
	dispatcher *services.Dispatcher
	tokens     map[string]string
}

func testConfig() *config.Config {
	return &config.Config{
		Env:      "local",
		Session:  config.SessionConfig{Secret: "session-secret", Name: "blogtalk_session"},
		Auth:     config.AuthConfig{JWTSecret: jwtSecret},
		Comments: config.CommentsConfig{PageSize: 5, MaxBodyLength: 500, RetryAttempts: 3},
		Dispatcher: config.DispatcherConfig{
			QueueSize: 16, Workers: 1, JobTimeout: time.Second, CacheSize: 16, CacheTTL: time.Minute,
		},
		Timeouts: config.TimeoutConfig{Request: 5 * time.Second},
	}
}

// newAPI serves blog "dev" (owner: owner, post author: writer) with one
// published post. The dispatcher is never started, so mention jobs run
// when flush is called.
func newAPI(t *testing.T, db Pinger) *api {
	t.Helper()
	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st := memstore.New()
	a := &api{t: t, st: st, tokens: map[string]string{}}
	for _, name := range []string{"owner", "writer", "alice", "bob"} {
		u := st.AddUser(name, false)
		token, err := middleware.SignToken(jwtSecret, u.ID, time.Hour)
		require.NoError(t, err)
		a.tokens[name] = token
	}
	writer, err := st.UserByHandle(t.Context(), "writer")
	require.NoError(t, err)
	owner, err := st.UserByHandle(t.Context(), "owner")
	require.NoError(t, err)
	blog := st.AddBlog("dev", owner.ID)
	st.AddPost(blog.ID, writer.ID, true, true)

	pub := &events.Recorder{}
	a.dispatcher, err = services.NewDispatcher(st, st, pub, cfg.Dispatcher, logger)
	require.NoError(t, err)

	a.engine = New(cfg, Deps{
		Comments:      services.NewCommentService(st, st, st, a.dispatcher, pub, cfg.Comments),
		Notifications: services.NewNotificationService(st, cfg.Comments.PageSize),
		Users:         st,
		DB:            db,
		Logger:        logger,
	})
	return a
}

func (a *api) flush() { a.dispatcher.Close() }

func (a *api) do(method, path, user string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[user])
	}
	rr := httptest.NewRecorder()
	a.engine.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[httperr.Response](t, rr).Error.Code
}

const comments = "/api/blogs/dev/posts/1/comments"

func TestProbes(t *testing.T) {
	a := newAPI(t, nil)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/livez", "", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/healthz", "", nil).Code)

	rr := a.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "blogtalk_comments_created_total")
	assert.Contains(t, rr.Body.String(), "blogtalk_http_request_duration_seconds")

	down := newAPI(t, pingerFunc(func(context.Context) error { return errors.New("connection refused") }))
	rr = down.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "unavailable", errorCode(t, rr))
}

func TestCommentLifecycle(t *testing.T) {
	a := newAPI(t, nil)

	rr := a.do(http.MethodPost, comments, "alice", map[string]any{"body": "first *comment*"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[services.CommentView](t, rr)
	assert.Equal(t, uint(1), created.CommentID)
	assert.Equal(t, "alice", created.Author.Username)
	assert.Contains(t, created.BodyHTML, "<em>comment</em>")

	rr = a.do(http.MethodPost, comments, "bob", map[string]any{"body": "a reply", "reply_to": 1})
	require.Equal(t, http.StatusCreated, rr.Code)
	reply := decode[services.CommentView](t, rr)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, uint(1), *reply.ReplyTo)

	rr = a.do(http.MethodPost, comments+"/1/like", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	liked := decode[services.CommentView](t, rr)
	assert.Equal(t, 1, liked.Likes)
	assert.True(t, liked.IsLiked)

	rr = a.do(http.MethodPost, comments+"/1/like_by_author", "writer", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[services.CommentView](t, rr).LikedByAuthor)

	rr = a.do(http.MethodPost, comments+"/1/pin", "owner", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[services.CommentView](t, rr).IsPinned)

	rr = a.do(http.MethodPost, comments+"/1/pin", "owner", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_operation", errorCode(t, rr))

	rr = a.do(http.MethodPut, comments+"/1", "alice", map[string]any{"body": "edited"})
	require.Equal(t, http.StatusOK, rr.Code)
	edited := decode[services.CommentView](t, rr)
	assert.Equal(t, "edited", edited.Body)
	assert.True(t, edited.IsEdited)

	rr = a.do(http.MethodGet, comments, "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[services.CommentPage](t, rr)
	assert.Equal(t, int64(1), page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, int64(1), page.Results[0].RepliesCount)
	assert.True(t, page.Results[0].IsLiked)

	rr = a.do(http.MethodGet, comments+"?parent_id=1", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), decode[services.CommentPage](t, rr).Count)

	rr = a.do(http.MethodDelete, comments+"/1", "owner", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = a.do(http.MethodGet, comments+"/1", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = a.do(http.MethodGet, comments+"/2", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCommentErrors(t *testing.T) {
	a := newAPI(t, nil)
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, comments, "alice", map[string]any{"body": "mine"}).Code)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		status int
		code   string
	}{
		{"anonymous create", http.MethodPost, comments, "", map[string]any{"body": "x"}, http.StatusUnauthorized, "unauthenticated"},
		{"malformed json", http.MethodPost, comments, "alice", "{", http.StatusBadRequest, "invalid_argument"},
		{"empty body", http.MethodPost, comments, "alice", map[string]any{"body": "  "}, http.StatusBadRequest, "invalid_argument"},
		{"reply to reply target missing", http.MethodPost, comments, "alice", map[string]any{"body": "x", "reply_to": 9}, http.StatusNotFound, "not_found"},
		{"post number not numeric", http.MethodGet, "/api/blogs/dev/posts/abc/comments", "", nil, http.StatusNotFound, "not_found"},
		{"post number zero", http.MethodGet, "/api/blogs/dev/posts/0/comments", "", nil, http.StatusNotFound, "not_found"},
		{"comment number not numeric", http.MethodGet, comments + "/first", "", nil, http.StatusNotFound, "not_found"},
		{"unknown blog", http.MethodGet, "/api/blogs/nope/posts/1/comments", "", nil, http.StatusNotFound, "not_found"},
		{"bad sort", http.MethodGet, comments + "?sort_by=hot", "", nil, http.StatusBadRequest, "invalid_argument"},
		{"bad parent", http.MethodGet, comments + "?parent_id=x", "", nil, http.StatusBadRequest, "invalid_argument"},
		{"edit someone else's", http.MethodPut, comments + "/1", "bob", map[string]any{"body": "hijack"}, http.StatusForbidden, "forbidden"},
		{"pin as commenter", http.MethodPost, comments + "/1/pin", "alice", nil, http.StatusForbidden, "forbidden"},
		{"unpin unpinned", http.MethodPost, comments + "/1/unpin", "owner", nil, http.StatusBadRequest, "invalid_operation"},
		{"author like by stranger", http.MethodPost, comments + "/1/like_by_author", "bob", nil, http.StatusForbidden, "forbidden"},
		{"unknown route", http.MethodGet, "/api/nothing", "", nil, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := a.do(tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rr))
		})
	}
}

func TestListHugePage(t *testing.T) {
	a := newAPI(t, nil)
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, comments, "alice", map[string]any{"body": "only one"}).Code)

	rr := a.do(http.MethodGet, comments+"?page=1844674407370955163", "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	page := decode[services.CommentPage](t, rr)
	assert.Empty(t, page.Results)
	assert.Equal(t, int64(1), page.Count)
	assert.Equal(t, 1844674407370955163, page.Page)

	rr = a.do(http.MethodGet, "/api/notifications?page=1844674407370955163", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, decode[services.NotificationPage](t, rr).Results)
}

func TestErrorCarriesRequestID(t *testing.T) {
	a := newAPI(t, nil)
	req := httptest.NewRequest(http.MethodGet, comments+"/42", nil)
	req.Header.Set(httperr.RequestIDHeader, "req-42")
	rr := httptest.NewRecorder()
	a.engine.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "req-42", rr.Header().Get(httperr.RequestIDHeader))
	assert.Equal(t, "req-42", decode[httperr.Response](t, rr).Error.RequestID)
}

func TestNotifications(t *testing.T) {
	a := newAPI(t, nil)
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, comments, "alice", map[string]any{"body": "cc @bob @ghost"}).Code)
	a.flush()

	rr := a.do(http.MethodGet, "/api/notifications", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[services.NotificationPage](t, rr)
	require.Len(t, page.Results, 1)
	n := page.Results[0]
	assert.Equal(t, `alice mentioned you: "cc @bob @ghost"`, n.Text)
	assert.Equal(t, "dev", n.Blog)
	assert.Equal(t, uint(1), n.PostNumber)
	assert.Equal(t, uint(1), n.CommentNumber)

	rr = a.do(http.MethodGet, "/api/notifications/unread-count", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"unread":1}`, rr.Body.String())

	path := fmt.Sprintf("/api/notifications/%d", n.ID)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, path+"/read", "alice", nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, path+"/read", "bob", nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, path+"/read", "bob", nil).Code)

	rr = a.do(http.MethodGet, "/api/notifications/unread-count", "bob", nil)
	assert.JSONEq(t, `{"unread":0}`, rr.Body.String())

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, path+"/hide", "bob", nil).Code)
	rr = a.do(http.MethodGet, "/api/notifications", "bob", nil)
	assert.Empty(t, decode[services.NotificationPage](t, rr).Results)

	rr = a.do(http.MethodPost, "/api/notifications/read-all", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"updated":0}`, rr.Body.String())

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/api/notifications/abc/read", "bob", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/notifications", "", nil).Code)
}
