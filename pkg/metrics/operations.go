package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
)

const outcomeOK = "ok"

// OperationMetrics records latency and outcome of purchasing operations.
// A nil *OperationMetrics is valid and records nothing.
type OperationMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewOperationMetrics registers the operation metrics on the provided registerer.
func NewOperationMetrics(reg prometheus.Registerer) *OperationMetrics {
	if reg == nil {
		return &OperationMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "purchasing_operation_duration_seconds",
		Help:    "Duration of purchasing operations in seconds, including lock waits.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchasing_operation_total",
		Help: "Purchasing operations by outcome (ok or error code).",
	}, []string{"operation", "outcome"})
	reg.MustRegister(duration, outcomes)
	return &OperationMetrics{
		duration: duration,
		outcomes: outcomes,
	}
}

// Observe records one finished operation.
func (m *OperationMetrics) Observe(operation string, duration time.Duration, err error) {
	if m == nil || m.duration == nil || m.outcomes == nil {
		return
	}
	op := normalizeLabel(operation)
	m.duration.WithLabelValues(op).Observe(duration.Seconds())
	m.outcomes.WithLabelValues(op, outcomeFor(err)).Inc()
}

// Track starts timing an operation; call the returned func with its result.
func (m *OperationMetrics) Track(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		m.Observe(operation, time.Since(start), err)
	}
}

func outcomeFor(err error) string {
	if err == nil {
		return outcomeOK
	}
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return strings.ToLower(string(pkgerrors.CodeInternal))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
