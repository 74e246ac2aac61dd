package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReminderMetrics exposes counters/histograms for the reminder pipeline.
type ReminderMetrics struct {
	scheduledTotal  *prometheus.CounterVec
	dispatchedTotal *prometheus.CounterVec
	orphansFailed   prometheus.Counter
	dispatchSeconds prometheus.Histogram
}

func NewReminderMetrics(reg prometheus.Registerer) *ReminderMetrics {
	m := &ReminderMetrics{
		scheduledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medreserva",
			Subsystem: "reminders",
			Name:      "scheduled_total",
			Help:      "Total notifications scheduled",
		}, []string{"offset_label"}),
		dispatchedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medreserva",
			Subsystem: "reminders",
			Name:      "dispatched_total",
			Help:      "Total dispatch outcomes",
		}, []string{"status"}),
		orphansFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medreserva",
			Subsystem: "reminders",
			Name:      "orphans_failed_total",
			Help:      "Total orphaned notifications resolved to failed",
		}),
		dispatchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "medreserva",
			Subsystem: "reminders",
			Name:      "dispatch_run_seconds",
			Help:      "Duration of dispatch runs",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.scheduledTotal, m.dispatchedTotal, m.orphansFailed, m.dispatchSeconds)
	return m
}

func (m *ReminderMetrics) ObserveScheduled(offsetLabel string) {
	if m == nil {
		return
	}
	m.scheduledTotal.WithLabelValues(offsetLabel).Inc()
}

func (m *ReminderMetrics) ObserveDispatched(status string) {
	if m == nil {
		return
	}
	m.dispatchedTotal.WithLabelValues(status).Inc()
}

func (m *ReminderMetrics) ObserveOrphanFailed() {
	if m == nil {
		return
	}
	m.orphansFailed.Inc()
}

func (m *ReminderMetrics) ObserveDispatchRun(seconds float64) {
	if m == nil {
		return
	}
	m.dispatchSeconds.Observe(seconds)
}
