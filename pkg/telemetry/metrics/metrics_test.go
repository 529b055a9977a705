package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/carepath/pkg/config"
	"mercator-hq/carepath/pkg/logic/ast"
)

func testConfig() config.MetricsConfig {
	return config.MetricsConfig{
		Enabled:         true,
		Namespace:       "test",
		Subsystem:       "metrics",
		DurationBuckets: []float64{0.001, 0.01, 0.1},
	}
}

func TestCollector_RecordEvaluation(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.RecordEvaluation("ageLt40Test", ast.KindAge, OutcomeMatched, "", time.Millisecond)
	c.RecordEvaluation("ageLt40Test", ast.KindAge, OutcomeMatched, "", time.Millisecond)
	c.RecordEvaluation("ageLt40Test", ast.KindAge, OutcomeUnmatched, "", time.Millisecond)
	c.RecordEvaluation("mmseTest", ast.KindObservation, OutcomeError, "missing_observation", time.Millisecond)

	tests := []struct {
		name   string
		labels []string
		want   float64
	}{
		{"matched", []string{"ageLt40Test", "age", "matched"}, 2},
		{"unmatched", []string{"ageLt40Test", "age", "unmatched"}, 1},
		{"error", []string{"mmseTest", "observation", "error"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testutil.ToFloat64(c.evaluation.evaluationsTotal.WithLabelValues(tt.labels...))
			if got != tt.want {
				t.Errorf("evaluations_total%v = %v, want %v", tt.labels, got, tt.want)
			}
		})
	}

	if got := testutil.ToFloat64(c.evaluation.errorsTotal.WithLabelValues("observation", "missing_observation")); got != 1 {
		t.Errorf("evaluation_errors_total = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.evaluation.evaluationDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, prometheus.NewRegistry())

	c.RecordEvaluation("x", ast.KindTrue, OutcomeMatched, "", time.Millisecond)
	c.RecordReload(nil, 1, 1)
	c.RecordAuditFailure()

	if got := testutil.CollectAndCount(c.evaluation.evaluationsTotal); got != 0 {
		t.Errorf("disabled collector recorded %d series", got)
	}
	if got := testutil.ToFloat64(c.evaluation.auditFailures); got != 0 {
		t.Errorf("disabled collector recorded audit failures: %v", got)
	}
}

func TestCollector_ConditionCardinality(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	c.conditions = NewCardinalityLimiter(2)

	for _, name := range []string{"a", "b", "c", "d", "a"} {
		c.RecordEvaluation(name, ast.KindTrue, OutcomeMatched, "", time.Microsecond)
	}

	if got := testutil.ToFloat64(c.evaluation.evaluationsTotal.WithLabelValues("other", "true", "matched")); got != 2 {
		t.Errorf("other = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.evaluation.evaluationsTotal.WithLabelValues("a", "true", "matched")); got != 2 {
		t.Errorf("a = %v, want 2", got)
	}
}

func TestCollector_RecordReload(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.RecordReload(nil, 2, 47)
	c.RecordReload(errors.New("parse failure"), 0, 0)

	if got := testutil.ToFloat64(c.library.reloadsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("success reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.library.reloadsTotal.WithLabelValues("failure")); got != 1 {
		t.Errorf("failure reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.library.conditionsLoaded); got != 47 {
		t.Errorf("conditions_loaded = %v, want 47 after a failed reload", got)
	}
}

func TestOutcomeOf(t *testing.T) {
	if OutcomeOf(true, nil) != OutcomeMatched {
		t.Error("OutcomeOf(true, nil) != matched")
	}
	if OutcomeOf(false, nil) != OutcomeUnmatched {
		t.Error("OutcomeOf(false, nil) != unmatched")
	}
	if OutcomeOf(true, errors.New("x")) != OutcomeError {
		t.Error("OutcomeOf(_, err) != error")
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)
	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("first two values rejected")
	}
	if cl.Allow("c") {
		t.Error("third value allowed past limit")
	}
	if !cl.Allow("a") {
		t.Error("known value rejected")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cl.Count())
	}
}

func TestHandler(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	c.RecordEvaluation("ageLt40Test", ast.KindAge, OutcomeMatched, "", time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `test_metrics_evaluations_total{condition="ageLt40Test",kind="age",outcome="matched"} 1`) {
		t.Errorf("metrics output missing evaluation counter:\n%s", body)
	}
}

func TestNewCollector_Defaults(t *testing.T) {
	c := NewCollector(config.MetricsConfig{Enabled: true}, nil)
	if c.Registry() == nil {
		t.Fatal("Registry() = nil")
	}
	c.RecordEvaluation("x", ast.KindTrue, OutcomeMatched, "", time.Microsecond)

	n, err := testutil.GatherAndCount(c.Registry(), "carepath_engine_evaluations_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("carepath_engine_evaluations_total series = %d, want 1", n)
	}
}
