package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := New(reg)

	metrics.IncSampleRecorded("stored")
	metrics.IncSampleRecorded("duplicate")
	metrics.IncSettlement("settled")
	metrics.ObserveSettlementDuration(120 * time.Millisecond)
	metrics.IncVerificationMail("signup")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "activity_samples_recorded", "outcome", "stored"); err != nil {
		t.Fatalf("fetch samples: %v", err)
	} else if got != 1 {
		t.Fatalf("expected stored=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "activity_samples_recorded", "outcome", "duplicate"); err != nil {
		t.Fatalf("fetch duplicates: %v", err)
	} else if got != 1 {
		t.Fatalf("expected duplicate=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "activity_settlements", "result", "settled"); err != nil {
		t.Fatalf("fetch settlements: %v", err)
	} else if got != 1 {
		t.Fatalf("expected settled=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "verification_mails_sent", "mode", "signup"); err != nil {
		t.Fatalf("fetch mails: %v", err)
	} else if got != 1 {
		t.Fatalf("expected signup=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "activity_settlement_duration_seconds"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.IncSampleRecorded("stored")
	metrics.IncSettlement("settled")
	metrics.ObserveSettlementDuration(time.Second)
	metrics.IncVerificationMail("reset")

	empty := New(nil)
	empty.IncSampleRecorded("")
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

func fetchHistogramSum(mfs []*dto.MetricFamily, name string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		return metric.GetHistogram().GetSampleSum(), nil
	}
	return 0, fmt.Errorf("metric %q has no samples", name)
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
