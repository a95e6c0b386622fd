package backup

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/foliohq/folio/pkg/store"
)

// Metrics instruments backups and restores. A nil *Metrics records nothing.
type Metrics struct {
	// operations counts finished operations.
	// Labels: operation (export, restore), scope (user, system),
	// result (success, validation, not_found, integrity, resource)
	operations *prometheus.CounterVec

	// duration measures operations end to end, including encoding.
	// Labels: operation, scope
	duration *prometheus.HistogramVec

	// envelopeBytes tracks the size of envelopes read and written.
	// Labels: operation, format
	envelopeBytes *prometheus.HistogramVec

	// rowsRestored counts rows created by committed restores.
	// Labels: scope
	rowsRestored *prometheus.CounterVec

	// restoresInFlight is the number of restores holding a scope lock.
	restoresInFlight prometheus.Gauge
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "backup",
			Name:      "operations_total",
			Help:      "Backup and restore operations by result",
		}, []string{"operation", "scope", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "folio",
			Subsystem: "backup",
			Name:      "duration_seconds",
			Help:      "Backup and restore duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation", "scope"}),
		envelopeBytes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "folio",
			Subsystem: "backup",
			Name:      "envelope_bytes",
			Help:      "Size of envelopes read and written",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}, []string{"operation", "format"}),
		rowsRestored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "backup",
			Name:      "rows_restored_total",
			Help:      "Rows created by committed restores",
		}, []string{"scope"}),
		restoresInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "folio",
			Subsystem: "backup",
			Name:      "restores_in_flight",
			Help:      "Restores currently running",
		}),
	}
}

func (m *Metrics) observe(operation, scope string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, scope, resultLabel(err)).Inc()
	m.duration.WithLabelValues(operation, scope).Observe(time.Since(start).Seconds())
}

func (m *Metrics) envelopeSize(operation string, f Format, n int) {
	if m == nil {
		return
	}
	m.envelopeBytes.WithLabelValues(operation, string(f)).Observe(float64(n))
}

func (m *Metrics) restored(scope string, created store.Counts) {
	if m == nil {
		return
	}
	m.rowsRestored.WithLabelValues(scope).Add(float64(created.Total()))
}

func (m *Metrics) restoreStarted() func() {
	if m == nil {
		return func() {}
	}
	m.restoresInFlight.Inc()
	return m.restoresInFlight.Dec
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrIntegrity):
		return "integrity"
	default:
		return "resource"
	}
}

func scopeLabel(scope string) string {
	if scope == "system" {
		return "system"
	}
	return "user"
}
