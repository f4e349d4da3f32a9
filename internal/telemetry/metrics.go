package telemetry

import (
	"github.com/dukerupert/freyja-cart/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CartMetrics holds Prometheus metrics for the cart engine.
type CartMetrics struct {
	// Operations counts cart operations by outcome: "ok", or the error kind
	// (falling back to the error code) of a failed operation.
	Operations *prometheus.CounterVec

	// CartValue observes the grand total of carts after each mutation, in
	// minor units.
	CartValue prometheus.Histogram

	// CleanupDeleted counts rows removed by the cleanup worker.
	CleanupDeleted *prometheus.CounterVec
}

// NewCartMetrics creates and registers the cart metrics on reg. A nil reg
// uses the default registerer.
func NewCartMetrics(namespace string, reg prometheus.Registerer) *CartMetrics {
	if namespace == "" {
		namespace = "freyja"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	subsystem := "cart"

	return &CartMetrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operations_total",
				Help:      "Total cart operations by outcome",
			},
			[]string{"op", "outcome"},
		),
		CartValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "value_cents",
				Help:      "Cart grand total after a mutation, in minor units",
				Buckets:   []float64{500, 1000, 2500, 5000, 10000, 25000, 50000, 100000, 250000},
			},
		),
		CleanupDeleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cleanup_deleted_total",
				Help:      "Total expired rows deleted by the cleanup worker",
			},
			[]string{"resource"}, // resource: carts, reservations
		),
	}
}

// ObserveOperation records the outcome of a cart operation.
func (m *CartMetrics) ObserveOperation(op string, err error) {
	m.Operations.WithLabelValues(op, Outcome(err)).Inc()
}

// ObserveCartValue records a cart's grand total.
func (m *CartMetrics) ObserveCartValue(totalCents int64) {
	m.CartValue.Observe(float64(totalCents))
}

// ObserveCleanup records rows removed by one cleanup pass.
func (m *CartMetrics) ObserveCleanup(resource string, deleted int64) {
	if deleted > 0 {
		m.CleanupDeleted.WithLabelValues(resource).Add(float64(deleted))
	}
}

// Outcome is the label value for an operation result.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := domain.ErrorKind(err); kind != "" {
		return string(kind)
	}
	return domain.ErrorCode(err)
}
