package services

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"blogtalk/internal/config"
	"blogtalk/internal/events"
	"blogtalk/internal/models"
	"blogtalk/internal/store/memstore"

	"github.com/stretchr/testify/require"
)

// jobQueue records mention jobs instead of running them.
type jobQueue struct {
	mu   sync.Mutex
	jobs []MentionJob
}

func (q *jobQueue) Enqueue(job MentionJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return true
}

func (q *jobQueue) Jobs() []MentionJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]MentionJob(nil), q.jobs...)
}

var testCommentsConfig = config.CommentsConfig{PageSize: 5, MaxBodyLength: 200, RetryAttempts: 3}

func testDispatcherConfig() config.DispatcherConfig {
	return config.DispatcherConfig{
		QueueSize:  16,
		Workers:    2,
		JobTimeout: time.Second,
		CacheSize:  16,
		CacheTTL:   time.Minute,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// world is a blog "dev" owned by owner, co-authored by co and writer, with
// three posts written by writer: a published one, a draft and one with
// comments closed.
type world struct {
	st     *memstore.Store
	rec    *events.Recorder
	queue  *jobQueue
	svc    *CommentService
	notify *NotificationService

	owner, co, writer, admin, alice, bob, carol *Caller
	usr                                         map[string]models.User

	post, draft, closed PostRef
	postID              uint
}

func newWorld(t *testing.T) *world {
	t.Helper()

	st := memstore.New()
	w := &world{st: st, rec: &events.Recorder{}, queue: &jobQueue{}, usr: map[string]models.User{}}

	add := func(name string, admin bool) *Caller {
		u := st.AddUser(name, admin)
		w.usr[name] = u
		return CallerFromUser(&u)
	}
	w.owner = add("owner", false)
	w.co = add("co", false)
	w.writer = add("writer", false)
	w.admin = add("root", true)
	w.alice = add("alice", false)
	w.bob = add("bob", false)
	w.carol = add("carol", false)

	blog := st.AddBlog("dev", w.owner.ID, w.co.ID, w.writer.ID)
	published := st.AddPost(blog.ID, w.writer.ID, true, true)
	draft := st.AddPost(blog.ID, w.writer.ID, false, true)
	closed := st.AddPost(blog.ID, w.writer.ID, true, false)
	w.post = PostRef{BlogSlug: "dev", PostNumber: published.Number}
	w.postID = published.ID
	w.draft = PostRef{BlogSlug: "dev", PostNumber: draft.Number}
	w.closed = PostRef{BlogSlug: "dev", PostNumber: closed.Number}

	w.svc = NewCommentService(st, st, st, w.queue, w.rec, testCommentsConfig)
	w.notify = NewNotificationService(st, 5)
	return w
}

func (w *world) dispatcher(t *testing.T, cfg config.DispatcherConfig) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(w.st, w.st, w.rec, cfg, discardLogger())
	require.NoError(t, err)
	return d
}

func (w *world) comment(t *testing.T, caller *Caller, body string, replyTo *uint) *CommentView {
	t.Helper()
	v, err := w.svc.CreateComment(t.Context(), caller, w.post, CreateCommentInput{Body: body, ReplyTo: replyTo})
	require.NoError(t, err)
	return v
}

func (w *world) ref(number uint) CommentRef {
	return CommentRef{PostRef: w.post, Number: number}
}

func numbers(views []CommentView) []uint {
	out := make([]uint, 0, len(views))
	for _, v := range views {
		out = append(out, v.CommentID)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
