package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncGateDecision is a no-op.
func (n *NoopRecorder) IncGateDecision(class, action string) {}

// IncSessionResolve is a no-op.
func (n *NoopRecorder) IncSessionResolve(outcome string) {}

// IncRoleLookup is a no-op.
func (n *NoopRecorder) IncRoleLookup(outcome string) {}

// IncSubscriptionOpened is a no-op.
func (n *NoopRecorder) IncSubscriptionOpened() {}

// IncSubscriptionClosed is a no-op.
func (n *NoopRecorder) IncSubscriptionClosed() {}

// IncNotification is a no-op.
func (n *NoopRecorder) IncNotification(outcome string) {}

// IncToastRemoved is a no-op.
func (n *NoopRecorder) IncToastRemoved(reason string) {}

// IncApplicationSubmitted is a no-op.
func (n *NoopRecorder) IncApplicationSubmitted() {}

// IncEmail is a no-op.
func (n *NoopRecorder) IncEmail(status string) {}

// ObserveEmailSendDuration is a no-op.
func (n *NoopRecorder) ObserveEmailSendDuration(duration time.Duration) {}

// SetEmailQueueDepth is a no-op.
func (n *NoopRecorder) SetEmailQueueDepth(depth int64) {}
