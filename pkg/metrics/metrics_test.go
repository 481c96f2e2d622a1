package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
)

func TestOperationMetricsExportsOutcomesAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOperationMetrics(reg)
	m.Observe("record_payment", 250*time.Millisecond, nil)
	m.Observe("record_payment", 10*time.Millisecond, pkgerrors.New(pkgerrors.CodeConflict, "overpayment"))
	m.Observe("record_payment", 10*time.Millisecond, fmt.Errorf("raw"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	for outcome, want := range map[string]float64{"ok": 1, "conflict": 1, "internal_error": 1} {
		got, err := fetchCounterValue(mfs, "purchasing_operation_total", "outcome", outcome)
		if err != nil {
			t.Fatalf("fetch %s: %v", outcome, err)
		}
		if got != want {
			t.Fatalf("expected %s=%v, got %f", outcome, want, got)
		}
	}

	if got, err := fetchHistogramSum(mfs, "purchasing_operation_duration_seconds", "operation", "record_payment"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var ops *OperationMetrics
	ops.Observe("transfer_stock", time.Second, nil)
	var pub *PublisherMetrics
	pub.IncPublished("stock_transferred")
	NewOperationMetrics(nil).Observe("transfer_stock", time.Second, nil)
	ops.Track("transfer_stock")(nil)
}

func TestPublisherMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPublisherMetrics(reg)
	m.IncPublished("stock_transferred")
	m.IncFailed("stock_transferred")
	m.IncDeadLettered("stock_transferred")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, name := range []string{"outbox_published_total", "outbox_publish_failures_total", "outbox_dead_lettered_total"} {
		got, err := fetchCounterValue(mfs, name, "event_type", "stock_transferred")
		if err != nil {
			t.Fatalf("fetch %s: %v", name, err)
		}
		if got != 1 {
			t.Fatalf("expected %s=1, got %f", name, got)
		}
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
