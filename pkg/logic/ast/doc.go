// Package ast defines the condition tree evaluated at clinical-pathway
// decision points.
//
// A condition tree is built once per module, from a declarative module
// description or directly in Go, and is never modified afterwards. The same
// tree is evaluated for every simulated patient at every time step.
//
// # Node Types
//
// Node is a closed set of variants. Leaves test one aspect of the patient:
//
//	True, False                          constants
//	GenderIs, Age, RaceExists, RaceIs    demographics
//	DateBefore, DateAfter                simulation clock
//	AttributeEqual, AttributeNil,
//	AttributeNotNil, AttributeCompare    named patient attributes
//	SymptomCompare                       symptom severity
//	PriorState                           state history
//	Observation                          recorded observations
//	ConditionActive, ConditionDiagnosed  conditions
//	CarePlanActive                       care plans
//	SESCategory                          socioeconomic status
//
// Combinators (And, Or, Not, AtLeast, AtMost) derive their value from their
// children.
//
// # Building Trees
//
//	cond := &ast.And{Children: []ast.Node{
//	    &ast.GenderIs{Gender: ast.GenderFemale},
//	    &ast.Age{Operator: ast.OperatorGreaterEqual, Quantity: 40},
//	}}
//
// # Traversal
//
//	err := ast.Walk(cond, func(n ast.Node, path string) error {
//	    fmt.Println(path, n.Kind())
//	    return nil
//	})
package ast
