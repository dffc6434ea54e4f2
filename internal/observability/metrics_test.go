package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveLLMRecordsRequestsAndTokens(t *testing.T) {
	m := NewMetrics()
	m.ObserveLLM("deepseek-chat", "ok", 2*time.Second, 100, 40)
	m.ObserveLLM("deepseek-chat", "error", time.Second, 0, 0)

	if got := testutil.ToFloat64(m.llmRequests.WithLabelValues("deepseek-chat", "ok")); got != 1 {
		t.Fatalf("ok requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.llmRequests.WithLabelValues("deepseek-chat", "error")); got != 1 {
		t.Fatalf("error requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.llmTokens.WithLabelValues("deepseek-chat", "input")); got != 100 {
		t.Fatalf("input tokens = %v, want 100", got)
	}
	if got := testutil.ToFloat64(m.llmTokens.WithLabelValues("deepseek-chat", "output")); got != 40 {
		t.Fatalf("output tokens = %v, want 40", got)
	}
}

func TestAddVectorsStored(t *testing.T) {
	m := NewMetrics()
	m.AddVectorsStored(3)
	m.AddVectorsStored(2)
	m.AddVectorsStored(0)
	m.AddVectorsStored(-4)

	if got := testutil.ToFloat64(m.vectorsStored); got != 5 {
		t.Fatalf("vectors stored = %v, want 5", got)
	}
}

func TestObserveAPICountsRequests(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("GET", "/api/v1/health", "200", 5*time.Millisecond)
	m.ObserveAPI("POST", "", "400", time.Millisecond)

	if got := testutil.ToFloat64(m.requestsTotal); got != 2 {
		t.Fatalf("requests total = %v, want 2", got)
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.ObserveLLM("x", "ok", time.Second, 1, 1)
	m.AddVectorsStored(1)
	m.ObserveAPI("GET", "/", "200", time.Second)
	m.IncUpload("ok")
	m.SetMemoryUsage(1)
	if m.Handler() == nil {
		t.Fatal("nil metrics must still serve a handler")
	}
}
