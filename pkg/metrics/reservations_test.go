package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestReservationMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewReservationMetrics(reg)

	metrics.ObserveAttempt("reserve", "ok")
	metrics.ObserveAttempt("reserve", "conflict")
	metrics.IncConflict()
	metrics.IncQuotaRejection("wishlists")
	metrics.SubscriberConnected()
	metrics.SubscriberConnected()
	metrics.SubscriberDisconnected()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "reservation_attempts_total", "outcome", "conflict"); err != nil {
		t.Fatalf("fetch attempts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected conflict attempts=1, got %f", got)
	}

	if mf := findMetricFamily(mfs, "reservation_conflicts_total"); mf == nil {
		t.Fatal("conflicts counter not registered")
	} else if mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected conflicts=1")
	}

	if got, err := fetchCounterValue(mfs, "quota_rejections_total", "quota", "wishlists"); err != nil {
		t.Fatalf("fetch quota: %v", err)
	} else if got != 1 {
		t.Fatalf("expected quota rejections=1, got %f", got)
	}

	if mf := findMetricFamily(mfs, "snapshot_subscribers"); mf == nil {
		t.Fatal("subscriber gauge not registered")
	} else if mf.GetMetric()[0].GetGauge().GetValue() != 1 {
		t.Fatalf("expected 1 live subscriber")
	}
}

func TestNilRegistererIsNoOp(t *testing.T) {
	metrics := NewReservationMetrics(nil)
	metrics.ObserveAttempt("reserve", "ok")
	metrics.IncConflict()
	metrics.IncQuotaRejection("items")
	metrics.SubscriberConnected()
	metrics.SubscriberDisconnected()
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

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, pair := range labels {
		if pair.GetName() == name && pair.GetValue() == value {
			return true
		}
	}
	return false
}
