package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "guildhall"

// PrometheusRecorder exports metrics on its own registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	gateDecisions   *prometheus.CounterVec
	sessionResolves *prometheus.CounterVec
	roleLookups     *prometheus.CounterVec
	subscriptions   prometheus.Gauge
	subsOpened      prometheus.Counter
	notifications   *prometheus.CounterVec
	toastsRemoved   *prometheus.CounterVec
	applications    prometheus.Counter
	emails          *prometheus.CounterVec
	emailDuration   prometheus.Histogram
	emailQueueDepth prometheus.Gauge
}

// NewPrometheus builds a recorder with Go runtime and process collectors
// registered alongside the application metrics.
func NewPrometheus() *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Access gate decisions by path class and action.",
		}, []string{"class", "action"}),
		sessionResolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resolves_total",
			Help:      "Session resolution outcomes.",
		}, []string{"outcome"}),
		roleLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_lookups_total",
			Help:      "Authorization record lookup outcomes.",
		}, []string{"outcome"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_subscriptions_active",
			Help:      "Currently open realtime subscriptions.",
		}),
		subsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_subscriptions_opened_total",
			Help:      "Realtime subscriptions opened.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Incoming message notifications by outcome.",
		}, []string{"outcome"}),
		toastsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toasts_removed_total",
			Help:      "Toasts removed from queues by reason.",
		}, []string{"reason"}),
		applications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "applications_submitted_total",
			Help:      "Membership applications accepted.",
		}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Email pipeline events by status.",
		}, []string{"status"}),
		emailDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "email_send_duration_seconds",
			Help:      "Time spent in the email provider call.",
			Buckets:   prometheus.DefBuckets,
		}),
		emailQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "email_queue_depth",
			Help:      "Entries pending in the email outbox stream.",
		}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.gateDecisions,
		p.sessionResolves,
		p.roleLookups,
		p.subscriptions,
		p.subsOpened,
		p.notifications,
		p.toastsRemoved,
		p.applications,
		p.emails,
		p.emailDuration,
		p.emailQueueDepth,
	)
	return p
}

// Handler serves the registry in Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusRecorder) IncGateDecision(class, action string) {
	p.gateDecisions.WithLabelValues(class, action).Inc()
}

func (p *PrometheusRecorder) IncSessionResolve(outcome string) {
	p.sessionResolves.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncRoleLookup(outcome string) {
	p.roleLookups.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncSubscriptionOpened() {
	p.subsOpened.Inc()
	p.subscriptions.Inc()
}

func (p *PrometheusRecorder) IncSubscriptionClosed() {
	p.subscriptions.Dec()
}

func (p *PrometheusRecorder) IncNotification(outcome string) {
	p.notifications.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncToastRemoved(reason string) {
	p.toastsRemoved.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncApplicationSubmitted() {
	p.applications.Inc()
}

func (p *PrometheusRecorder) IncEmail(status string) {
	p.emails.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveEmailSendDuration(duration time.Duration) {
	p.emailDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) SetEmailQueueDepth(depth int64) {
	p.emailQueueDepth.Set(float64(depth))
}
