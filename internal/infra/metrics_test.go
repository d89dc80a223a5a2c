package infra

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordInstruction(t *testing.T) {
	m := &Metrics{}

	m.RecordInstruction(1000)
	m.RecordInstruction(2000)
	m.RecordInstruction(3000)

	snap := m.Snapshot()

	if snap.InstructionsProcessed != 3 {
		t.Errorf("Expected 3 instructions, got %d", snap.InstructionsProcessed)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgLatencyNs)
	}
}

func TestMetrics_Connections(t *testing.T) {
	m := &Metrics{}

	m.IncrementConnections()
	m.IncrementConnections()
	m.IncrementConnections()

	snap := m.Snapshot()
	if snap.ActiveConnections != 3 {
		t.Errorf("Expected 3 connections, got %d", snap.ActiveConnections)
	}

	m.DecrementConnections()
	snap = m.Snapshot()
	if snap.ActiveConnections != 2 {
		t.Errorf("Expected 2 connections, got %d", snap.ActiveConnections)
	}
}

func TestMetrics_PublisherState(t *testing.T) {
	m := &Metrics{}

	if m.Snapshot().PublisherDown {
		t.Error("Expected publisher up initially")
	}

	m.SetPublisherState(true)
	if !m.Snapshot().PublisherDown {
		t.Error("Expected publisher down")
	}

	m.SetPublisherState(false)
	if m.Snapshot().PublisherDown {
		t.Error("Expected publisher up")
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordInstruction(1000)
	m.RecordError()
	m.RecordSale()
	m.IncrementConnections()

	m.Reset()
	snap := m.Snapshot()

	if snap.InstructionsProcessed != 0 {
		t.Error("Expected 0 instructions after reset")
	}
	if snap.ErrorsTotal != 0 || snap.SalesCompleted != 0 {
		t.Error("Expected 0 errors and sales after reset")
	}
	if snap.ActiveConnections != 0 {
		t.Error("Expected 0 connections after reset")
	}
}

func TestMetricsCollector(t *testing.T) {
	m := &Metrics{}
	m.RecordSale()
	m.RecordSale()

	c := NewMetricsCollector("service_market", m)
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if n := testutil.CollectAndCount(c); n != 6 {
		t.Errorf("Expected 6 metrics, got %d", n)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "service_market_sales_total" {
			found = true
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 2 {
				t.Errorf("Expected 2 sales, got %v", v)
			}
		}
	}
	if !found {
		t.Error("sales_total not exported")
	}
}
