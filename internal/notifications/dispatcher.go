package notifications

import (
	"context"
	"log/slog"
	"sync"

	"tourly/pkg/logger"
)

// Dispatcher delivers notifications fire-and-forget. Implementations log
// their own failures; callers never fail a booking because of them.
type Dispatcher interface {
	Dispatch(ctx context.Context, notification Notification)
}

// LogDispatcher writes notifications to the structured log. Used when Kafka is disabled.
type LogDispatcher struct {
	log *logger.Logger
}

func NewLogDispatcher(l *logger.Logger) *LogDispatcher {
	if l == nil {
		l = logger.GetDefault()
	}
	return &LogDispatcher{log: l}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, n Notification) {
	d.log.InfoContext(ctx, "notification",
		slog.String("notification_id", n.ID.String()),
		slog.String("type", string(n.Type)),
		slog.String("recipient_id", n.RecipientID.String()),
		slog.String("subject", n.Subject),
	)
}

// Recorder keeps dispatched notifications in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Dispatch(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// OfType returns the recorded notifications with the given type.
func (r *Recorder) OfType(notType NotificationType) []Notification {
	var out []Notification
	for _, n := range r.Sent() {
		if n.Type == notType {
			out = append(out, n)
		}
	}
	return out
}
