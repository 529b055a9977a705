// Package runner is the entry point a simulator uses to evaluate named
// conditions.
//
// A Runner resolves a condition by library and name from a source.Registry,
// evaluates it with an engine.Evaluator, and reports the evaluation to the
// configured metrics collector and audit recorder. Metrics and auditing are
// optional; a Runner without them only evaluates.
//
//	r := runner.New(registry, evaluator, logger).
//	    WithMetrics(collector).
//	    WithRecorder(audit.NewRecorder(store, logger))
//
//	res := r.Evaluate(ctx, runner.Request{
//	    Library:   "diabetes",
//	    Condition: "prediabetic",
//	    PatientID: person.ID,
//	    Time:      now,
//	    History:   history,
//	    Patient:   person,
//	})
//	if res.Err != nil {
//	    // the evaluation failed; res.Matched is false
//	}
//
// A failed audit write never changes the evaluation result. It is logged and
// counted, and Result.RecordID stays empty.
package runner
