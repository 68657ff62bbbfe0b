// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Gate outcomes and other label values shared by callers.
const (
	SessionValid     = "valid"
	SessionRefreshed = "refreshed"
	SessionAbsent    = "absent"
	SessionError     = "error"

	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupError    = "error"

	NotificationDelivered = "delivered"
	NotificationDropped   = "dropped"
	NotificationDiscarded = "discarded"

	EmailQueued       = "queued"
	EmailQueueFailed  = "queue_failed"
	EmailSent         = "sent"
	EmailFailed       = "failed"
	EmailDeadLettered = "dead_lettered"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Access gate
	IncGateDecision(class, action string)
	IncSessionResolve(outcome string)
	IncRoleLookup(outcome string)

	// Realtime notifications
	IncSubscriptionOpened()
	IncSubscriptionClosed()
	IncNotification(outcome string)
	IncToastRemoved(reason string)

	// Applications and email pipeline
	IncApplicationSubmitted()
	IncEmail(status string)
	ObserveEmailSendDuration(duration time.Duration)
	SetEmailQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
