// Package metrics provides Prometheus metrics for condition evaluation.
//
// # Metrics
//
//   - <ns>_<sub>_evaluations_total{condition,kind,outcome}: evaluations by
//     condition name, root node kind and outcome (matched, unmatched, error)
//   - <ns>_<sub>_evaluation_duration_seconds{kind}: evaluation latency
//   - <ns>_<sub>_evaluation_errors_total{kind,error}: failures by error code
//   - <ns>_<sub>_library_reloads_total{result}: library reloads
//   - <ns>_<sub>_libraries_loaded, <ns>_<sub>_conditions_loaded: registry size
//   - <ns>_<sub>_audit_write_failures_total: audit records that could not be stored
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	collector.RecordEvaluation("ageLt40Test", ast.KindAge, metrics.OutcomeMatched, "", d)
//	http.Handle("/metrics", collector.Handler())
//
// Condition names are bounded by a cardinality limit; names beyond it are
// recorded as "other".
package metrics
