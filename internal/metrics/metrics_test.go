package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Prometheus() == nil {
		t.Fatal("Prometheus registry not initialized")
	}
	if r.NodesTotal == nil || r.OperationsTotal == nil || r.ProbeDuration == nil || r.HTTPRequestsTotal == nil {
		t.Error("collectors not initialized")
	}

	// registries are independent
	other := NewRegistry()
	r.SetCounts(3, 1)
	if testutil.ToFloat64(other.NodesTotal) != 0 {
		t.Error("expected separate registries")
	}
}

func TestRecordOperation(t *testing.T) {
	r := NewRegistry()
	r.RecordOperation("add_node", nil)
	r.RecordOperation("add_node", nil)
	r.RecordOperation("remove_node", errors.New("boom"))

	if got := testutil.ToFloat64(r.OperationsTotal.WithLabelValues("add_node", "ok")); got != 2 {
		t.Errorf("expected 2 ok add_node, got %f", got)
	}
	if got := testutil.ToFloat64(r.OperationsTotal.WithLabelValues("remove_node", "error")); got != 1 {
		t.Errorf("expected 1 failed remove_node, got %f", got)
	}
}

func TestGaugesAndCounters(t *testing.T) {
	r := NewRegistry()
	r.SetCounts(5, 4)
	r.RecordRejection("port is disabled")
	r.RecordProbe("online", 20*time.Millisecond)
	r.RecordHTTPRequest("GET", "/api/topology", "200", time.Millisecond)

	if got := testutil.ToFloat64(r.LinksTotal); got != 4 {
		t.Errorf("expected 4 links, got %f", got)
	}
	if got := testutil.ToFloat64(r.LinkRejections.WithLabelValues("port is disabled")); got != 1 {
		t.Errorf("expected 1 rejection, got %f", got)
	}
	if got := testutil.ToFloat64(r.ProbesTotal.WithLabelValues("online")); got != 1 {
		t.Errorf("expected 1 probe, got %f", got)
	}
	if n := testutil.CollectAndCount(r.HTTPDuration); n != 1 {
		t.Errorf("expected 1 duration series, got %d", n)
	}
}
