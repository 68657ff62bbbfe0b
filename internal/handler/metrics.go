package handler

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/guildhall/guildhall/internal/metrics"
)

// MetricsHandler serves metrics in Prometheus exposition format.
// The exporter is preferred; without one, a snapshot of the in-memory
// recorder is rendered.
type MetricsHandler struct {
	exporter    http.Handler
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler. Either argument may be nil.
func NewMetricsHandler(exporter http.Handler, snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{exporter: exporter, snapshotter: snapshotter}
}

// Metrics handles GET /metrics.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.exporter != nil {
		h.exporter.ServeHTTP(w, r)
		return
	}
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	for _, key := range sortedKeys(snap.GateDecisions) {
		class, action, _ := strings.Cut(key, "/")
		writeMetric(w, "guildhall_gate_decisions_total{class=%q,action=%q} %d\n", class, action, snap.GateDecisions[key])
	}
	writeLabeled(w, "guildhall_session_resolutions_total", "outcome", snap.SessionResolves)
	writeLabeled(w, "guildhall_role_lookups_total", "outcome", snap.RoleLookups)

	writeMetric(w, "guildhall_realtime_subscriptions_active %d\n", snap.ActiveSubscriptions())
	writeLabeled(w, "guildhall_notifications_total", "outcome", snap.Notifications)
	writeLabeled(w, "guildhall_toasts_removed_total", "reason", snap.ToastsRemoved)

	writeMetric(w, "guildhall_applications_submitted_total %d\n", snap.ApplicationsSubmitted)
	writeLabeled(w, "guildhall_emails_total", "status", snap.Emails)
	writeMetric(w, "guildhall_email_send_duration_seconds_count %d\n", snap.EmailSendCount)
	writeMetric(w, "guildhall_email_send_duration_seconds_sum %.6f\n", float64(snap.EmailSendTotalNs)/1e9)
	writeMetric(w, "guildhall_email_queue_depth %d\n", snap.EmailQueueDepth)
}

func writeLabeled(w http.ResponseWriter, name, label string, values map[string]uint64) {
	for _, key := range sortedKeys(values) {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, key, values[key])
	}
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
