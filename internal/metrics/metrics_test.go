package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetRealMode(t *testing.T) {
	SetRealMode(true)
	if v := testutil.ToFloat64(RealMode); v != 1 {
		t.Fatalf("expected 1, got %v", v)
	}
	SetRealMode(false)
	if v := testutil.ToFloat64(RealMode); v != 0 {
		t.Fatalf("expected 0, got %v", v)
	}
}

func TestTradesTotal(t *testing.T) {
	before := testutil.ToFloat64(TradesTotal.WithLabelValues("virtual", "buy"))
	TradesTotal.WithLabelValues("virtual", "buy").Inc()
	if after := testutil.ToFloat64(TradesTotal.WithLabelValues("virtual", "buy")); after != before+1 {
		t.Fatalf("expected counter increment, got %v -> %v", before, after)
	}
}
