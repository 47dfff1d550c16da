// Package metrics exposes Prometheus instrumentation for the platform.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// ScheduleMetrics tracks availability lookups and schedule management.
type ScheduleMetrics struct {
	availabilityTotal   *prometheus.CounterVec
	availabilityLatency *prometheus.HistogramVec
	blockOpsTotal       *prometheus.CounterVec
}

func NewScheduleMetrics(reg prometheus.Registerer) *ScheduleMetrics {
	m := &ScheduleMetrics{
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labdx",
			Subsystem: "schedule",
			Name:      "availability_requests_total",
			Help:      "Total availability queries",
		}, []string{"status"}),
		availabilityLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "labdx",
			Subsystem: "schedule",
			Name:      "availability_latency_seconds",
			Help:      "Latency of availability resolution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		blockOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labdx",
			Subsystem: "schedule",
			Name:      "block_operations_total",
			Help:      "Total slot/day block management operations",
		}, []string{"operation", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.availabilityTotal, m.availabilityLatency, m.blockOpsTotal)
	return m
}

func (m *ScheduleMetrics) ObserveAvailability(status string, seconds float64) {
	if m == nil {
		return
	}
	m.availabilityTotal.WithLabelValues(status).Inc()
	m.availabilityLatency.WithLabelValues(status).Observe(seconds)
}

func (m *ScheduleMetrics) ObserveBlockOp(operation, status string) {
	if m == nil {
		return
	}
	m.blockOpsTotal.WithLabelValues(operation, status).Inc()
}

// BookingMetrics counts appointment lifecycle events.
type BookingMetrics struct {
	appointmentsTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		appointmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labdx",
			Subsystem: "appointments",
			Name:      "total",
			Help:      "Appointment operations by outcome",
		}, []string{"operation", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.appointmentsTotal)
	return m
}

func (m *BookingMetrics) Observe(operation, status string) {
	if m == nil {
		return
	}
	m.appointmentsTotal.WithLabelValues(operation, status).Inc()
}

// ChatMetrics counts assistant exchanges.
type ChatMetrics struct {
	messagesTotal *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labdx",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Assistant messages by provider and outcome",
		}, []string{"provider", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal)
	return m
}

func (m *ChatMetrics) Observe(provider, status string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(provider, status).Inc()
}
