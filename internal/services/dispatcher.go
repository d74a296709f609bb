package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"blogtalk/internal/config"
	"blogtalk/internal/events"
	"blogtalk/internal/metrics"
	"blogtalk/internal/models"
	"blogtalk/internal/store"
	"blogtalk/internal/utils"
)

// MentionJob is a committed comment waiting for mention fan-out.
type MentionJob struct {
	CommentID       uint
	PostID          uint
	AuthorID        uint
	AuthorHandle    string
	ParentCommentID *uint // reply target, nil for top-level comments
	Body            string
	Ref             events.CommentRef
}

// Dispatcher turns mention jobs into notifications on background workers.
// Fan-out is best-effort: a failed or dropped job never affects the comment
// that produced it.
type Dispatcher struct {
	users         store.IdentityStore
	notifications store.NotificationStore
	events        events.Publisher
	handles       *utils.TTLCache[string, uint] // handle -> user id, hits only
	log           *slog.Logger

	queue      chan MentionJob // 待处理的提及任务队列
	workers    int
	jobTimeout time.Duration

	mu      sync.Mutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewDispatcher(
	users store.IdentityStore,
	notifications store.NotificationStore,
	pub events.Publisher,
	cfg config.DispatcherConfig,
	log *slog.Logger,
) (*Dispatcher, error) {
	cache, err := utils.NewTTLCache[string, uint](cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("mention handle cache: %w", err)
	}
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	return &Dispatcher{
		users:         users,
		notifications: notifications,
		events:        pub,
		handles:       cache,
		log:           log.With("component", "mention_dispatcher"),
		queue:         make(chan MentionJob, cfg.QueueSize), // 缓冲队列，防止阻塞请求
		workers:       cfg.Workers,
		jobTimeout:    cfg.JobTimeout,
	}, nil
}

// Start launches the background workers. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Enqueue hands job to the workers without blocking. It reports false when
// the job was dropped because the queue is full or the dispatcher closed.
func (d *Dispatcher) Enqueue(job MentionJob) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		metrics.MentionJobs.WithLabelValues("dropped").Inc()
		return false
	}

	// 非阻塞发送到队列
	select {
	case d.queue <- job:
		return true
	default:
		metrics.MentionJobs.WithLabelValues("dropped").Inc()
		d.log.Warn("mention queue full, dropping job", "comment_id", job.CommentID)
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		// nobody drains the queue; run leftovers inline
		for job := range d.queue {
			d.run(job)
		}
		return
	}
	d.wg.Wait()
}

// worker 后台处理队列中的提及任务
func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.queue {
		d.run(job)
	}
}

func (d *Dispatcher) run(job MentionJob) {
	ctx, cancel := context.WithTimeout(context.Background(), d.jobTimeout)
	defer cancel()

	created, err := d.Dispatch(ctx, job)
	if err != nil {
		metrics.MentionJobs.WithLabelValues("failed").Inc()
		d.log.Error("mention dispatch failed", "comment_id", job.CommentID, "err", err)
		return
	}
	metrics.MentionJobs.WithLabelValues("done").Inc()
	if len(created) > 0 {
		d.log.Debug("mention notifications created", "comment_id", job.CommentID, "count", len(created))
	}
}

// NotificationText is the message stored with a mention notification. The
// body is embedded as written, without escaping.
func NotificationText(authorHandle, body string) string {
	return fmt.Sprintf("%s mentioned you: \"%s\"", authorHandle, body)
}

// Dispatch creates one notification per distinct handle mentioned in the
// job's body that resolves to a user. Unknown handles and the author's own
// handle are skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, job MentionJob) ([]models.Notification, error) {
	const op = "services.Dispatcher.Dispatch"

	handles := uniqueHandles(ExtractMentions(job.Body))
	if len(handles) == 0 {
		return nil, nil
	}

	text := NotificationText(job.AuthorHandle, job.Body)
	items := make([]models.Notification, 0, len(handles))
	for _, h := range handles {
		userID, ok, err := d.resolve(ctx, h)
		if err != nil {
			return nil, fmt.Errorf("%s: resolve %q: %w", op, h, err)
		}
		if !ok || userID == job.AuthorID {
			continue
		}
		items = append(items, models.Notification{
			AddresseeID:      userID,
			AuthorID:         job.AuthorID,
			PostID:           job.PostID,
			ParentCommentID:  job.ParentCommentID,
			RepliedCommentID: job.CommentID,
			Text:             text,
		})
	}
	if len(items) == 0 {
		return nil, nil
	}

	if err := d.notifications.CreateNotifications(ctx, items); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.NotificationsCreated.Add(float64(len(items)))

	for _, n := range items {
		if err := d.events.Publish(ctx, events.TopicNotificationCreated, events.NotificationCreated{
			NotificationID: n.ID,
			AddresseeID:    n.AddresseeID,
			Comment:        job.Ref,
		}); err != nil {
			d.log.Warn("publish notification event failed", "notification_id", n.ID, "err", err)
		}
	}

	return items, nil
}

func (d *Dispatcher) resolve(ctx context.Context, handle string) (uint, bool, error) {
	if id, ok := d.handles.Get(handle); ok {
		return id, true, nil
	}
	u, err := d.users.UserByHandle(ctx, handle)
	if errors.Is(err, store.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	d.handles.Set(handle, u.ID)
	return u.ID, true, nil
}
