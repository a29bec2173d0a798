// Package notify is the toast surface: every mutation outcome reaches the
// admin through a Notifier.
package notify

import (
	"context"
	"log/slog"

	"github.com/utafrali/ecommerce-admin/pkg/logger"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

// Notifier shows a message to the admin.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, kind Kind, message string)

func (f NotifierFunc) Notify(ctx context.Context, kind Kind, message string) { f(ctx, kind, message) }

// Multi fans one notification out to several notifiers, in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, kind Kind, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, kind, message)
		}
	}
}

// LogNotifier writes notifications to the request-scoped logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier logging through l.
func NewLogNotifier(l *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: l}
}

func (n *LogNotifier) Notify(ctx context.Context, kind Kind, message string) {
	level := slog.LevelInfo
	if kind == KindError {
		level = slog.LevelWarn
	}
	logger.WithContext(ctx, n.logger).Log(ctx, level, "admin notification",
		slog.String("kind", string(kind)),
		slog.String("message", message),
	)
}
