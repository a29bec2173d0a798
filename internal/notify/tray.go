package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTrayCapacity bounds the toasts waiting for the UI.
const DefaultTrayCapacity = 50

// Toast is one queued notification.
type Toast struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tray queues toasts until the UI drains them. When full, the oldest toast
// is dropped.
type Tray struct {
	mu       sync.Mutex
	toasts   []Toast
	capacity int
	now      func() time.Time
}

// NewTray creates a tray holding at most capacity toasts.
func NewTray(capacity int) *Tray {
	if capacity <= 0 {
		capacity = DefaultTrayCapacity
	}
	return &Tray{capacity: capacity, now: time.Now}
}

func (t *Tray) Notify(_ context.Context, kind Kind, message string) {
	toast := Toast{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   message,
		CreatedAt: t.now().UTC(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.toasts) >= t.capacity {
		t.toasts = t.toasts[len(t.toasts)-t.capacity+1:]
	}
	t.toasts = append(t.toasts, toast)
}

// Drain returns the queued toasts oldest first and empties the tray.
func (t *Tray) Drain() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.toasts
	t.toasts = nil
	if out == nil {
		out = []Toast{}
	}
	return out
}

// Peek returns a copy of the queued toasts without removing them.
func (t *Tray) Peek() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Toast, len(t.toasts))
	copy(out, t.toasts)
	return out
}

// Len returns the number of queued toasts.
func (t *Tray) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.toasts)
}
