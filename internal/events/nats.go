package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes JSON-encoded events to NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("blogtalk"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.conn.Publish(topic, data)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber streams published events back out of NATS. The watch
// command uses it to tail comment and notification activity.
type NATSSubscriber struct {
	conn *nats.Conn
}

func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := nats.Connect(url, append([]nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Message is one received event.
type Message struct {
	Topic      string
	Data       []byte
	ReceivedAt time.Time
}

// Decode unmarshals the payload into the event struct published on m.Topic.
func (m Message) Decode() (any, error) {
	var v any
	switch m.Topic {
	case TopicCommentCreated:
		v = &CommentCreated{}
	case TopicCommentEdited:
		v = &CommentEdited{}
	case TopicCommentDeleted:
		v = &CommentDeleted{}
	case TopicCommentPinned, TopicCommentUnpinned:
		v = &CommentPinned{}
	case TopicNotificationCreated:
		v = &NotificationCreated{}
	default:
		return nil, fmt.Errorf("unknown event topic %q", m.Topic)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", m.Topic, err)
	}
	return v, nil
}

// Watch streams events on topic (wildcards allowed) until ctx is done, then
// unsubscribes and closes the returned channel. At most buffer messages
// wait for a slow reader; beyond that the NATS client drops them.
func (s *NATSSubscriber) Watch(ctx context.Context, topic string, buffer int) (<-chan Message, error) {
	raw := make(chan *nats.Msg, max(buffer, 1))
	sub, err := s.conn.ChanSubscribe(topic, raw)
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	// 确保订阅已在服务端生效
	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.conn.FlushWithContext(flushCtx); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("registering subscription to %s: %w", topic, err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-raw:
				m := Message{Topic: msg.Subject, Data: msg.Data, ReceivedAt: time.Now()}
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
