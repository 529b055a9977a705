package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/carepath/pkg/config"
	"mercator-hq/carepath/pkg/logic/ast"
)

// Outcome is the result label of an evaluation.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeError     Outcome = "error"
)

// OutcomeOf returns the outcome label for an evaluation result.
func OutcomeOf(matched bool, err error) Outcome {
	switch {
	case err != nil:
		return OutcomeError
	case matched:
		return OutcomeMatched
	default:
		return OutcomeUnmatched
	}
}

// DefaultMaxConditions is the default cardinality limit on condition labels.
const DefaultMaxConditions = 5000

// otherCondition replaces condition names beyond the cardinality limit.
const otherCondition = "other"

// Collector owns the carepath metrics and the registry they are
// registered with. A disabled collector records nothing.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	evaluation *EvaluationMetrics
	library    *LibraryMetrics

	conditions *CardinalityLimiter
}

// NewCollector creates a collector with the given configuration. If
// registry is nil, a new registry is created.
//
// Example:
//
//	cfg := config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "carepath",
//		Subsystem: "engine",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = config.DefaultDurationBuckets
	}

	return &Collector{
		config:     cfg,
		registry:   registry,
		evaluation: NewEvaluationMetrics(cfg, registry),
		library:    NewLibraryMetrics(cfg, registry),
		conditions: NewCardinalityLimiter(DefaultMaxConditions),
	}
}

// Registry returns the registry the collector's metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordEvaluation records one evaluation of a named condition whose root
// node has the given kind. errCode is the error code of a failed evaluation
// and is ignored otherwise.
func (c *Collector) RecordEvaluation(condition string, kind ast.Kind, outcome Outcome, errCode string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	if !c.conditions.Allow(condition) {
		condition = otherCondition
	}

	c.evaluation.Record(condition, string(kind), string(outcome), duration)
	if outcome == OutcomeError {
		c.evaluation.RecordError(string(kind), errCode)
	}
}

// RecordReload records a library reload and, on success, the registry size.
func (c *Collector) RecordReload(err error, libraries, conditions int) {
	if !c.config.Enabled {
		return
	}
	c.library.RecordReload(err, libraries, conditions)
}

// RecordAuditFailure records an audit record that could not be stored.
func (c *Collector) RecordAuditFailure() {
	if !c.config.Enabled {
		return
	}
	c.evaluation.auditFailures.Inc()
}

// CardinalityLimiter bounds the number of distinct label values recorded.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if the value was
// already seen or the limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[value]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
