package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunMetrics(t *testing.T) {
	// Fresh registry per test to avoid duplicate registration panics.
	reg := prometheus.NewRegistry()
	m, err := NewRunMetrics(reg)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	m.UnitArchived("supplier1")
	m.UnitArchived("supplier1")
	m.UnitFailed("supplier2", "upload")
	m.SupplierSkipped()
	m.ObserveStage("pack", 1.5)

	if got := testutil.ToFloat64(m.unitsArchived.WithLabelValues("supplier1")); got != 2 {
		t.Errorf("expected 2 archived for supplier1, got %f", got)
	}
	if got := testutil.ToFloat64(m.unitsFailed.WithLabelValues("supplier2", "upload")); got != 1 {
		t.Errorf("expected 1 failed for supplier2/upload, got %f", got)
	}
	if got := testutil.ToFloat64(m.suppliersSkipped); got != 1 {
		t.Errorf("expected 1 skipped supplier, got %f", got)
	}
}

func TestRunMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewRunMetrics(reg); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := NewRunMetrics(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}
