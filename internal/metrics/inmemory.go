package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	GateDecisions         map[string]uint64 // key: class + "/" + action
	SessionResolves       map[string]uint64
	RoleLookups           map[string]uint64
	SubscriptionsOpened   uint64
	SubscriptionsClosed   uint64
	Notifications         map[string]uint64
	ToastsRemoved         map[string]uint64
	ApplicationsSubmitted uint64
	Emails                map[string]uint64
	EmailSendCount        uint64
	EmailSendTotalNs      int64
	EmailQueueDepth       int64
}

// ActiveSubscriptions returns opened minus closed.
func (s Snapshot) ActiveSubscriptions() int64 {
	return int64(s.SubscriptionsOpened) - int64(s.SubscriptionsClosed)
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu      sync.Mutex
	labeled map[string]map[string]uint64

	subscriptionsOpened   uint64
	subscriptionsClosed   uint64
	applicationsSubmitted uint64
	emailSendCount        uint64
	emailSendTotalNs      int64
	emailQueueDepth       int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{labeled: make(map[string]map[string]uint64)}
}

func (m *InMemoryRecorder) inc(family, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts, ok := m.labeled[family]
	if !ok {
		counts = make(map[string]uint64)
		m.labeled[family] = counts
	}
	counts[label]++
}

func (m *InMemoryRecorder) copyFamily(family string) map[string]uint64 {
	out := make(map[string]uint64, len(m.labeled[family]))
	for k, v := range m.labeled[family] {
		out[k] = v
	}
	return out
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		GateDecisions:         m.copyFamily("gate"),
		SessionResolves:       m.copyFamily("session"),
		RoleLookups:           m.copyFamily("lookup"),
		SubscriptionsOpened:   atomic.LoadUint64(&m.subscriptionsOpened),
		SubscriptionsClosed:   atomic.LoadUint64(&m.subscriptionsClosed),
		Notifications:         m.copyFamily("notification"),
		ToastsRemoved:         m.copyFamily("toast"),
		ApplicationsSubmitted: atomic.LoadUint64(&m.applicationsSubmitted),
		Emails:                m.copyFamily("email"),
		EmailSendCount:        atomic.LoadUint64(&m.emailSendCount),
		EmailSendTotalNs:      atomic.LoadInt64(&m.emailSendTotalNs),
		EmailQueueDepth:       atomic.LoadInt64(&m.emailQueueDepth),
	}
}

// IncGateDecision counts a gate decision for a path class.
func (m *InMemoryRecorder) IncGateDecision(class, action string) {
	m.inc("gate", class+"/"+action)
}

// IncSessionResolve counts a session resolution outcome.
func (m *InMemoryRecorder) IncSessionResolve(outcome string) {
	m.inc("session", outcome)
}

// IncRoleLookup counts a role lookup outcome.
func (m *InMemoryRecorder) IncRoleLookup(outcome string) {
	m.inc("lookup", outcome)
}

// IncSubscriptionOpened increments opened subscriptions.
func (m *InMemoryRecorder) IncSubscriptionOpened() {
	atomic.AddUint64(&m.subscriptionsOpened, 1)
}

// IncSubscriptionClosed increments closed subscriptions.
func (m *InMemoryRecorder) IncSubscriptionClosed() {
	atomic.AddUint64(&m.subscriptionsClosed, 1)
}

// IncNotification counts a notification outcome.
func (m *InMemoryRecorder) IncNotification(outcome string) {
	m.inc("notification", outcome)
}

// IncToastRemoved counts a toast removal by reason.
func (m *InMemoryRecorder) IncToastRemoved(reason string) {
	m.inc("toast", reason)
}

// IncApplicationSubmitted increments submitted applications.
func (m *InMemoryRecorder) IncApplicationSubmitted() {
	atomic.AddUint64(&m.applicationsSubmitted, 1)
}

// IncEmail counts an email pipeline event.
func (m *InMemoryRecorder) IncEmail(status string) {
	m.inc("email", status)
}

// ObserveEmailSendDuration records provider send duration.
func (m *InMemoryRecorder) ObserveEmailSendDuration(duration time.Duration) {
	atomic.AddUint64(&m.emailSendCount, 1)
	atomic.AddInt64(&m.emailSendTotalNs, duration.Nanoseconds())
}

// SetEmailQueueDepth records the outbox backlog.
func (m *InMemoryRecorder) SetEmailQueueDepth(depth int64) {
	atomic.StoreInt64(&m.emailQueueDepth, depth)
}
