// Package event publishes admin console activity to Kafka.
package event

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/ecommerce-admin/internal/notify"
	pkgkafka "github.com/utafrali/ecommerce-admin/pkg/kafka"
	"github.com/utafrali/ecommerce-admin/pkg/logger"
)

// Kafka topic for admin notifications.
const TopicAdminNotification = "ecommerce.admin.notification"

// Event type and envelope constants.
const (
	EventTypeAdminNotification = "admin.notification"
	AggregateTypeAdminActivity = "admin_activity"
	SourceAdminConsole         = "admin-console"
	anonymousAdmin             = "anonymous"
	defaultQueueSize           = 256
	publishTimeout             = 5 * time.Second
)

// NotificationData is the payload of an admin.notification event.
type NotificationData struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Admin   string `json:"admin,omitempty"`
}

// Publisher sends an event to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

type queued struct {
	ctx   context.Context
	event *pkgkafka.Event
}

// Notifier is a notify.Notifier that records each toast as a Kafka event.
// Publishing happens on a background goroutine started with Run, so a slow
// broker never delays the admin's request. Failures are logged and dropped.
type Notifier struct {
	publisher Publisher
	topic     string
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}
}

// NewNotifier creates a Kafka notifier with a queue of queueSize events.
func NewNotifier(publisher Publisher, queueSize int, logger *slog.Logger) *Notifier {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Notifier{
		publisher: publisher,
		topic:     TopicAdminNotification,
		logger:    logger,
		queue:     make(chan queued, queueSize),
		done:      make(chan struct{}),
	}
}

// Notify enqueues the toast as an event.
func (n *Notifier) Notify(ctx context.Context, kind notify.Kind, message string) {
	admin := logger.AdminFromContext(ctx)
	aggregate := admin
	if aggregate == "" {
		aggregate = anonymousAdmin
	}

	evt, err := pkgkafka.NewEvent(pkgkafka.Header{
		Type:          EventTypeAdminNotification,
		AggregateID:   aggregate,
		AggregateType: AggregateTypeAdminActivity,
		Source:        SourceAdminConsole,
		CorrelationID: logger.CorrelationIDFromContext(ctx),
		Metadata:      map[string]string{"kind": string(kind)},
	}, NotificationData{Kind: string(kind), Message: message, Admin: admin})
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to build admin notification event", slog.String("error", err.Error()))
		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}

	select {
	case n.queue <- queued{ctx: context.WithoutCancel(ctx), event: evt}:
	default:
		n.logger.WarnContext(ctx, "admin notification queue full, dropping event",
			slog.String("event_id", evt.EventID),
		)
	}
}

// Run publishes queued events until Close is called or ctx is canceled.
// On cancellation it flushes what is already queued before returning.
func (n *Notifier) Run(ctx context.Context) {
	defer close(n.done)

	for {
		select {
		case q, ok := <-n.queue:
			if !ok {
				return
			}
			n.publish(q)
		case <-ctx.Done():
			for {
				select {
				case q, ok := <-n.queue:
					if !ok {
						return
					}
					n.publish(q)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) publish(q queued) {
	ctx, cancel := context.WithTimeout(q.ctx, publishTimeout)
	defer cancel()

	if err := n.publisher.Publish(ctx, n.topic, q.event); err != nil {
		logger.WithContext(ctx, n.logger).WarnContext(ctx, "failed to publish admin notification",
			slog.String("event_id", q.event.EventID),
			slog.String("error", err.Error()),
		)
	}
}

// Close stops accepting events and waits for Run to flush the queue.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("admin notification queue not flushed"), ctx.Err())
	}
}
