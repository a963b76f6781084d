package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReservationMetrics records the contended paths: reservation attempts and
// their outcomes, quota rejections, and live snapshot subscribers.
type ReservationMetrics struct {
	attempts    *prometheus.CounterVec
	conflicts   prometheus.Counter
	quotaDenied *prometheus.CounterVec
	subscribers prometheus.Gauge
}

// NewReservationMetrics registers the metrics on the provided registerer.
func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_attempts_total",
		Help: "Reserve/unreserve attempts by operation and outcome.",
	}, []string{"operation", "outcome"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservation_conflicts_total",
		Help: "Reservation attempts that lost the race at commit time.",
	})
	quotaDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quota_rejections_total",
		Help: "Operations rejected by plan limits.",
	}, []string{"quota"})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapshot_subscribers",
		Help: "Currently connected snapshot stream subscribers.",
	})
	reg.MustRegister(attempts, conflicts, quotaDenied, subscribers)
	return &ReservationMetrics{
		attempts:    attempts,
		conflicts:   conflicts,
		quotaDenied: quotaDenied,
		subscribers: subscribers,
	}
}

// ObserveAttempt records an operation outcome ("ok", "conflict", "invalid_state", "error").
func (m *ReservationMetrics) ObserveAttempt(operation, outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// IncConflict counts a lost reservation race.
func (m *ReservationMetrics) IncConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}

// IncQuotaRejection counts a quota denial for the named limit.
func (m *ReservationMetrics) IncQuotaRejection(quota string) {
	if m == nil || m.quotaDenied == nil {
		return
	}
	m.quotaDenied.WithLabelValues(normalizeLabel(quota)).Inc()
}

// SubscriberConnected adjusts the live subscriber gauge.
func (m *ReservationMetrics) SubscriberConnected() {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Inc()
}

// SubscriberDisconnected adjusts the live subscriber gauge.
func (m *ReservationMetrics) SubscriberDisconnected() {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Dec()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
