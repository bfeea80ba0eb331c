package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder_RecordsCounters(t *testing.T) {
	rec := NewPrometheusRecorder()

	rec.CheckResult("client_a", "token_bucket", "allowed")
	rec.CheckResult("client_a", "token_bucket", "blocked")
	rec.CheckDuration("token_bucket", 0.002)
	rec.StoreError("eval_script")
	rec.CircuitStateChange("closed", "open")

	if v := testutil.ToFloat64(rec.checks.WithLabelValues("client_a", "token_bucket", "allowed")); v != 1 {
		t.Errorf("expected 1 allowed check recorded, got %v", v)
	}
	if v := testutil.ToFloat64(rec.storeErrors.WithLabelValues("eval_script")); v != 1 {
		t.Errorf("expected 1 store error recorded, got %v", v)
	}
	if v := testutil.ToFloat64(rec.breakerChanges.WithLabelValues("closed", "open")); v != 1 {
		t.Errorf("expected 1 breaker transition recorded, got %v", v)
	}
}

func TestNoOpRecorder_NeverPanics(t *testing.T) {
	var rec Recorder = NoOpRecorder{}
	rec.CheckResult("client_a", "token_bucket", "allowed")
	rec.CheckDuration("token_bucket", 0.1)
	rec.StoreError("ping")
	rec.CircuitStateChange("open", "half_open")
}
