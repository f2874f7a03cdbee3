package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NotificationKind classifies a transient notification.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyInfo    NotificationKind = "info"
)

// DefaultDismissAfter is how long a notification stays visible when nothing
// else is configured.
const DefaultDismissAfter = 5 * time.Second

// Notification is a user-visible, self-dismissing message.
type Notification struct {
	ID        string
	Kind      NotificationKind
	Message   string
	CreatedAt time.Time
}

// Notify is what components need to surface messages to the user.
type Notify interface {
	Push(kind NotificationKind, message string) string
}

// Notifier keeps the active notifications and dismisses each one after a
// fixed delay or on request.
type Notifier struct {
	mu       sync.Mutex
	items    []Notification
	timers   map[string]*time.Timer
	ttl      time.Duration
	onChange func([]Notification)
}

func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultDismissAfter
	}
	return &Notifier{
		timers: make(map[string]*time.Timer),
		ttl:    ttl,
	}
}

// OnChange registers fn to receive the active list after every change.
func (n *Notifier) OnChange(fn func([]Notification)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onChange = fn
}

// Push adds a notification and returns its id.
func (n *Notifier) Push(kind NotificationKind, message string) string {
	item := Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now(),
	}

	level := slog.LevelInfo
	if kind == NotifyError {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "notification", "kind", kind, "message", message)

	n.mu.Lock()
	n.items = append(n.items, item)
	n.timers[item.ID] = time.AfterFunc(n.ttl, func() { n.Dismiss(item.ID) })
	fn, snapshot := n.onChange, n.snapshotLocked()
	n.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
	return item.ID
}

// Dismiss removes a notification. It returns false when it was already gone.
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	idx := -1
	for i, item := range n.items {
		if item.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		n.mu.Unlock()
		return false
	}
	n.items = append(n.items[:idx], n.items[idx+1:]...)
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	fn, snapshot := n.onChange, n.snapshotLocked()
	n.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
	return true
}

// Active returns the visible notifications, oldest first.
func (n *Notifier) Active() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snapshotLocked()
}

func (n *Notifier) snapshotLocked() []Notification {
	out := make([]Notification, len(n.items))
	copy(out, n.items)
	return out
}

// Close stops every pending dismissal timer.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
}
