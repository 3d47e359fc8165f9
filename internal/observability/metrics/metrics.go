package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the scheduling and reminder flows.
type SchedulingMetrics struct {
	scheduledTotal  *prometheus.CounterVec
	scheduleLatency *prometheus.HistogramVec
	remindersTotal  *prometheus.CounterVec
	submissionTotal *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		scheduledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "requests_total",
			Help:      "Schedule requests by outcome and channel",
		}, []string{"outcome", "channel"}),
		scheduleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "request_latency_seconds",
			Help:      "Latency of schedule requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "reminders",
			Name:      "dispatch_total",
			Help:      "Reminder dispatch attempts by channel and status",
		}, []string{"channel", "status"}),
		submissionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "form",
			Name:      "submissions_total",
			Help:      "Scheduling form submissions by final state",
		}, []string{"state"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.scheduledTotal, m.scheduleLatency, m.remindersTotal, m.submissionTotal)
	return m
}

func (m *SchedulingMetrics) ObserveSchedule(outcome, channel string, seconds float64) {
	if m == nil {
		return
	}
	m.scheduledTotal.WithLabelValues(outcome, channel).Inc()
	m.scheduleLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *SchedulingMetrics) ObserveReminder(channel, status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(channel, status).Inc()
}

func (m *SchedulingMetrics) ObserveSubmission(state string) {
	if m == nil {
		return
	}
	m.submissionTotal.WithLabelValues(state).Inc()
}
