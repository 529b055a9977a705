// Package engine evaluates condition trees against a patient snapshot.
//
// An Evaluator is built once from an immutable Config (socioeconomic
// weights and category ranges) and then used for any number of
// evaluations:
//
//	eval, err := engine.NewEvaluator(engine.DefaultConfig(), logger)
//	matched, err := eval.Evaluate(node, engine.Context{
//		Time:    simTime,
//		History: history,
//	}, person)
//
// Evaluation is synchronous and side-effect free. The evaluator reads the
// patient and history through the snapshot interfaces and keeps no state
// between calls, so one Evaluator may serve many goroutines evaluating
// different patients.
//
// # Errors
//
// Only one leaf fails: an Observation that names its type directly when
// the patient has no observations of that type. Combinators evaluate every
// child in order and abort on the first child error. Every error returned
// by Evaluate is a *ConditionError whose Path locates the failing node,
// for example "and[2].or[0].observation".
package engine
