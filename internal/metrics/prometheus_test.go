package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

var _ jsonrpc.Observer = (*Metrics)(nil)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	next:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestObserveCall(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveCall("subtract", jsonrpc.V2, "", 10*time.Millisecond)
	m.ObserveCall("subtract", jsonrpc.V2, "", 20*time.Millisecond)
	m.ObserveCall("subtract", jsonrpc.V1, jsonrpc.KindRemote, time.Millisecond)
	m.ObserveCall("bad", jsonrpc.V2, jsonrpc.KindBuild, 0)

	tests := []struct {
		method  string
		outcome string
		want    float64
	}{
		{"subtract", "ok", 2},
		{"subtract", "remote", 1},
		{"bad", "build", 1},
		{"bad", "ok", 0},
	}
	for _, tt := range tests {
		got := counterValue(t, reg, "jrpc_client_calls_total", map[string]string{"method": tt.method, "outcome": tt.outcome})
		if got != tt.want {
			t.Errorf("calls{%s,%s} = %v, want %v", tt.method, tt.outcome, got, tt.want)
		}
	}
}

func TestStubRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.IncrementStubRequests("echo", jsonrpc.V1)
	m.IncrementStubRequests("echo", jsonrpc.V1)

	got := counterValue(t, reg, "jrpc_stub_requests_total", map[string]string{"method": "echo", "version": "1.0"})
	if got != 2 {
		t.Errorf("stub requests = %v, want 2", got)
	}
}
