package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver so components can be
// built without instrumentation in tests.
type Metrics struct {
	CallOutcomes *prometheus.CounterVec
	TagUpdates   *prometheus.CounterVec
	AuditRecords *prometheus.CounterVec
	PollWait     prometheus.Histogram
	PendingPolls prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CallOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "callbridge_calls_total",
			Help: "Call requests by final outcome",
		}, []string{"outcome"}),
		TagUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "callbridge_tag_updates_total",
			Help: "CRM tag/property upserts by result",
		}, []string{"result"}),
		AuditRecords: f.NewCounterVec(prometheus.CounterOpts{
			Name: "callbridge_audit_records_total",
			Help: "Audit records by result (written, failed, dropped)",
		}, []string{"result"}),
		PollWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "callbridge_poll_wait_seconds",
			Help:    "Time from call initiation to the status poll",
			Buckets: []float64{1, 5, 15, 30, 60, 90, 120},
		}),
		PendingPolls: f.NewGauge(prometheus.GaugeOpts{
			Name: "callbridge_pending_polls",
			Help: "Calls initiated and waiting for their status poll",
		}),
	}
}

func (m *Metrics) CallOutcome(outcome string) {
	if m == nil {
		return
	}
	m.CallOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TagUpdate(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.TagUpdates.WithLabelValues(result).Inc()
}

func (m *Metrics) AuditRecord(result string) {
	if m == nil {
		return
	}
	m.AuditRecords.WithLabelValues(result).Inc()
}

// PollStarted marks a call as waiting and returns the func that records completion.
func (m *Metrics) PollStarted() func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.PendingPolls.Inc()
	return func() {
		m.PendingPolls.Dec()
		m.PollWait.Observe(time.Since(start).Seconds())
	}
}
