package engine

import (
	"fmt"

	"mercator-hq/carepath/pkg/logic/ast"
	"mercator-hq/carepath/pkg/logic/snapshot"
)

// Combinators evaluate every child, in order, before combining results. A
// child error aborts the combinator and is returned with the child's
// position; it is never treated as false.

// matchAnd evaluates an AND condition - all children must match.
func (e *Evaluator) matchAnd(n *ast.And, evalCtx *Context, patient snapshot.Patient) (bool, error) {
	all := true
	for i, child := range n.Children {
		matched, err := e.eval(child, evalCtx, patient)
		if err != nil {
			return false, childError(n, i, child, err)
		}
		if !matched {
			all = false
		}
	}
	return all, nil
}

// matchOr evaluates an OR condition - at least one child must match.
func (e *Evaluator) matchOr(n *ast.Or, evalCtx *Context, patient snapshot.Patient) (bool, error) {
	anyMatched := false
	for i, child := range n.Children {
		matched, err := e.eval(child, evalCtx, patient)
		if err != nil {
			return false, childError(n, i, child, err)
		}
		if matched {
			anyMatched = true
		}
	}
	return anyMatched, nil
}

// matchNot evaluates a NOT condition - child must not match.
func (e *Evaluator) matchNot(n *ast.Not, evalCtx *Context, patient snapshot.Patient) (bool, error) {
	if n.Child == nil {
		return false, fmt.Errorf("%w: not condition has no child", ErrUnknownCondition)
	}

	matched, err := e.eval(n.Child, evalCtx, patient)
	if err != nil {
		return false, childError(n, 0, n.Child, err)
	}

	return !matched, nil
}

// countMatches returns how many children match.
func (e *Evaluator) countMatches(parent ast.Node, children []ast.Node, evalCtx *Context, patient snapshot.Patient) (int, error) {
	count := 0
	for i, child := range children {
		matched, err := e.eval(child, evalCtx, patient)
		if err != nil {
			return 0, childError(parent, i, child, err)
		}
		if matched {
			count++
		}
	}
	return count, nil
}
