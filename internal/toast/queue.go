// Package toast holds the ordered, self-expiring collection of transient
// notifications shown to a connected member.
package toast

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultTTL is how long a toast stays visible unless dismissed first.
const DefaultTTL = 5 * time.Second

// Removal reasons passed to the OnRemove hook.
const (
	ReasonExpired   = "expired"
	ReasonDismissed = "dismissed"
	ReasonEvicted   = "evicted"
)

// Notification is the caller-supplied content of a toast.
type Notification struct {
	Title   string
	Message string
	Link    string
}

// Toast is a queued notification with its generated id.
type Toast struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type entry struct {
	toast Toast
	timer *time.Timer
}

// Queue keeps toasts in insertion order. Every entry owns an expiry timer
// that dismisses it after the TTL. All methods are safe for concurrent use.
type Queue struct {
	mu         sync.Mutex
	entries    []*entry
	ttl        time.Duration
	maxEntries int
	closed     bool
	changes    chan struct{}
	onRemove   func(reason string)
	newID      func() string
	now        func() time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(q *Queue) {
		if ttl > 0 {
			q.ttl = ttl
		}
	}
}

// WithMaxEntries caps the queue; the oldest entry is evicted to make room.
// Zero means unbounded, which is the default.
func WithMaxEntries(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxEntries = n
		}
	}
}

// WithOnRemove registers a hook called with the removal reason.
// It runs with the queue lock held and must not call back into the Queue.
func WithOnRemove(fn func(reason string)) Option {
	return func(q *Queue) {
		q.onRemove = fn
	}
}

// New creates an empty Queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		ttl:     DefaultTTL,
		changes: make(chan struct{}, 1),
		newID:   func() string { return ulid.Make().String() },
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends a toast, schedules its expiry and returns its id.
// After Close it still returns a fresh id but nothing is stored.
func (q *Queue) Enqueue(n Notification) string {
	id := q.newID()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return id
	}

	if q.maxEntries > 0 && len(q.entries) >= q.maxEntries {
		q.removeAt(0, ReasonEvicted)
	}

	e := &entry{toast: Toast{
		ID:        id,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		CreatedAt: q.now(),
	}}
	e.timer = time.AfterFunc(q.ttl, func() { q.expire(id) })
	q.entries = append(q.entries, e)
	q.signal()

	return id
}

// Dismiss removes the toast with the given id and stops its timer.
// Dismissing an unknown or already removed id is a no-op; the return value
// reports whether anything was removed.
func (q *Queue) Dismiss(id string) bool {
	return q.remove(id, ReasonDismissed)
}

func (q *Queue) expire(id string) {
	q.remove(id, ReasonExpired)
}

func (q *Queue) remove(id, reason string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.toast.ID == id {
			q.removeAt(i, reason)
			q.signal()
			return true
		}
	}
	return false
}

// removeAt must be called with q.mu held.
func (q *Queue) removeAt(i int, reason string) {
	e := q.entries[i]
	e.timer.Stop()
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	if q.onRemove != nil {
		q.onRemove(reason)
	}
}

// List returns a copy of the current toasts, oldest first.
func (q *Queue) List() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Toast, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e.toast)
	}
	return out
}

// Len returns the number of queued toasts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Changes returns a channel that receives a value after any mutation.
// Signals coalesce: a reader that falls behind sees one pending signal.
func (q *Queue) Changes() <-chan struct{} {
	return q.changes
}

// Close stops every pending timer and drops all entries. It is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	for _, e := range q.entries {
		e.timer.Stop()
	}
	q.entries = nil
	q.signal()
}

// signal must be called with q.mu held.
func (q *Queue) signal() {
	select {
	case q.changes <- struct{}{}:
	default:
	}
}
