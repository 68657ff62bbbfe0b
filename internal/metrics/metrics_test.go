package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncGateDecision("admin", "allow")
	m.IncGateDecision("admin", "allow")
	m.IncGateDecision("member", "redirect_login")
	m.IncSessionResolve(SessionRefreshed)
	m.IncRoleLookup(LookupNotFound)
	m.IncSubscriptionOpened()
	m.IncSubscriptionOpened()
	m.IncSubscriptionClosed()
	m.IncNotification(NotificationDelivered)
	m.IncToastRemoved("expired")
	m.IncApplicationSubmitted()
	m.IncEmail(EmailSent)
	m.ObserveEmailSendDuration(250 * time.Millisecond)
	m.SetEmailQueueDepth(7)

	snap := m.Snapshot()

	if got := snap.GateDecisions["admin/allow"]; got != 2 {
		t.Errorf("admin/allow = %d, want 2", got)
	}
	if got := snap.GateDecisions["member/redirect_login"]; got != 1 {
		t.Errorf("member/redirect_login = %d, want 1", got)
	}
	if got := snap.SessionResolves[SessionRefreshed]; got != 1 {
		t.Errorf("refreshed = %d, want 1", got)
	}
	if got := snap.RoleLookups[LookupNotFound]; got != 1 {
		t.Errorf("not_found = %d, want 1", got)
	}
	if got := snap.ActiveSubscriptions(); got != 1 {
		t.Errorf("active subscriptions = %d, want 1", got)
	}
	if snap.EmailSendCount != 1 || snap.EmailSendTotalNs != int64(250*time.Millisecond) {
		t.Errorf("email send duration not recorded: %+v", snap)
	}
	if snap.EmailQueueDepth != 7 {
		t.Errorf("queue depth = %d, want 7", snap.EmailQueueDepth)
	}

	// Snapshot maps are copies.
	snap.GateDecisions["admin/allow"] = 100
	if m.Snapshot().GateDecisions["admin/allow"] != 2 {
		t.Error("snapshot shares state with recorder")
	}
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.IncGateDecision("admin", "redirect_dashboard")
	p.IncSubscriptionOpened()
	p.IncEmail(EmailDeadLettered)
	p.SetEmailQueueDepth(3)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`guildhall_gate_decisions_total{action="redirect_dashboard",class="admin"} 1`,
		`guildhall_realtime_subscriptions_active 1`,
		`guildhall_emails_total{status="dead_lettered"} 1`,
		`guildhall_email_queue_depth 3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
