package authgate

import "testing"

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricRateLimitHit)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("Value(MetricLoginSuccess) = %d, want 2", got)
	}

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 2 {
		t.Fatalf("snapshot login success = %d, want 2", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricRateLimitHit] != 1 {
		t.Fatalf("snapshot rate limit hit = %d, want 1", snap.Counters[MetricRateLimitHit])
	}
	if snap.Counters[MetricStoreFault] != 0 {
		t.Fatalf("snapshot store fault = %d, want 0", snap.Counters[MetricStoreFault])
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{})

	m.Inc(MetricLoginSuccess)

	if m.Enabled() {
		t.Fatal("Enabled = true, want false")
	}
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("Value = %d, want 0", got)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	if nilMetrics.Value(MetricLoginSuccess) != 0 {
		t.Fatal("nil metrics should read 0")
	}
}
