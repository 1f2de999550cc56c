package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRuleTriggeredTotal_Increments(t *testing.T) {
	RuleTriggeredTotal.Reset()

	RuleTriggeredTotal.WithLabelValues("shift_limit").Inc()
	RuleTriggeredTotal.WithLabelValues("shift_limit").Inc()

	m := &dto.Metric{}
	counter, err := RuleTriggeredTotal.GetMetricWithLabelValues("shift_limit")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}
	_ = counter.Write(m)

	if m.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2, got %f", m.Counter.GetValue())
	}
}

func TestLimitBreachesTotal_LabelledByShift(t *testing.T) {
	LimitBreachesTotal.Reset()

	LimitBreachesTotal.WithLabelValues("dia").Inc()
	LimitBreachesTotal.WithLabelValues("noite").Inc()
	LimitBreachesTotal.WithLabelValues("noite").Inc()

	m := &dto.Metric{}
	counter, err := LimitBreachesTotal.GetMetricWithLabelValues("noite")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}
	_ = counter.Write(m)

	if m.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2, got %f", m.Counter.GetValue())
	}
}

func TestEvaluationDuration_ObservesHistogram(t *testing.T) {
	EvaluationDuration.Observe(0.004)

	ch := make(chan prometheus.Metric, 10)
	EvaluationDuration.Collect(ch)
	close(ch)

	found := false
	for metric := range ch {
		m := &dto.Metric{}
		_ = metric.Write(m)
		if m.Histogram != nil && m.Histogram.GetSampleCount() >= 1 {
			found = true
		}
	}
	if !found {
		t.Error("expected histogram with at least 1 sample")
	}
}

func TestMetrics_Registered(t *testing.T) {
	EvaluationsTotal.WithLabelValues("clean").Inc()
	ActiveWebSocketClients.Set(0)

	gathered, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	found := make(map[string]bool)
	for _, mf := range gathered {
		found[mf.GetName()] = true
	}

	for _, name := range []string{
		"forsakenscan_evaluations_total",
		"forsakenscan_active_websocket_clients",
	} {
		if !found[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}

func TestStatusBucket(t *testing.T) {
	cases := map[int]string{
		102: "1xx",
		200: "2xx",
		201: "2xx",
		301: "3xx",
		404: "4xx",
		429: "4xx",
		500: "5xx",
		503: "5xx",
	}
	for code, want := range cases {
		if got := statusBucket(code); got != want {
			t.Errorf("statusBucket(%d) = %q, want %q", code, got, want)
		}
	}
}
