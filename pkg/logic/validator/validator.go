// Package validator checks condition trees for mistakes the evaluator
// would reject at run time, and warns about conditions it would silently
// treat as constant.
package validator

import (
	"fmt"
	"strings"

	"mercator-hq/carepath/pkg/logic/ast"
	lerrors "mercator-hq/carepath/pkg/logic/errors"
)

// Validator validates condition trees. The zero value is ready to use.
type Validator struct {
	// MaxDepth rejects trees nested deeper than this. Zero disables the check.
	MaxDepth int
}

// NewValidator creates a validator with the given depth limit.
func NewValidator(maxDepth int) *Validator {
	return &Validator{MaxDepth: maxDepth}
}

// Validate checks every condition in a library. Only structural and limit
// problems are returned; see Warnings for the rest.
func (v *Validator) Validate(lib *ast.Library) error {
	errs, _ := v.check(lib)
	return errs.ToError()
}

// Warnings returns conditions that are well-formed but constant, such as
// an empty or, or an at_least whose minimum exceeds its children. They
// evaluate normally and do not block loading.
func (v *Validator) Warnings(lib *ast.Library) []*lerrors.Error {
	_, warns := v.check(lib)
	return warns.Errors
}

// ValidateNode checks a single tree. Warnings are not reported.
func (v *Validator) ValidateNode(node ast.Node) error {
	errs, warns := lerrors.NewErrorList(), lerrors.NewErrorList()
	v.validateTree(errs, warns, "", node, ast.Location{})
	return errs.ToError()
}

// NodeWarnings returns the warnings for a single tree.
func (v *Validator) NodeWarnings(node ast.Node) []*lerrors.Error {
	errs, warns := lerrors.NewErrorList(), lerrors.NewErrorList()
	v.validateTree(errs, warns, "", node, ast.Location{})
	return warns.Errors
}

func (v *Validator) check(lib *ast.Library) (errs, warns *lerrors.ErrorList) {
	errs, warns = lerrors.NewErrorList(), lerrors.NewErrorList()
	for _, name := range lib.Names() {
		node, _ := lib.Get(name)
		v.validateTree(errs, warns, name, node, lib.Location)
	}
	return errs, warns
}

func (v *Validator) validateTree(errs, warns *lerrors.ErrorList, name string, root ast.Node, fallback ast.Location) {
	prefix := ""
	if name != "" {
		prefix = name + ": "
	}

	if root == nil {
		errs.AddError(lerrors.ErrorTypeStructural, prefix+"condition is nil", fallback)
		return
	}

	if v.MaxDepth > 0 {
		if d := ast.Depth(root); d > v.MaxDepth {
			errs.AddError(lerrors.ErrorTypeLimit,
				fmt.Sprintf("%scondition depth %d exceeds maximum %d", prefix, d, v.MaxDepth), root.Pos())
		}
	}

	// Nil children are reported on their parent.
	ast.Walk(root, func(n ast.Node, path string) error {
		if n == nil {
			return nil
		}
		c := &checker{errs: errs, warns: warns, prefix: prefix + path + ": ", loc: n.Pos()}
		c.checkNode(n)
		return nil
	})
}

type checker struct {
	errs   *lerrors.ErrorList
	warns  *lerrors.ErrorList
	prefix string
	loc    ast.Location
}

func (c *checker) structural(format string, args ...any) {
	c.errs.AddError(lerrors.ErrorTypeStructural, c.prefix+fmt.Sprintf(format, args...), c.loc)
}

// semantic records a warning.
func (c *checker) semantic(suggestion, format string, args ...any) {
	c.warns.AddErrorWithSuggestion(lerrors.ErrorTypeSemantic, c.prefix+fmt.Sprintf(format, args...), c.loc, suggestion)
}

func (c *checker) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.structural("%s must not be empty", field)
	}
}

func (c *checker) comparison(op ast.Operator) {
	if !op.IsComparison() {
		c.errs.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
			c.prefix+fmt.Sprintf("invalid operator %q", op), c.loc, lerrors.SuggestOperator(false))
	}
}

func (c *checker) reference(code, attribute string) {
	switch {
	case code == "" && attribute == "":
		c.structural("one of code or attribute is required")
	case code != "" && attribute != "":
		c.structural("code and attribute are mutually exclusive")
	}
}

func (c *checker) children(children []ast.Node) {
	for i, child := range children {
		if child == nil {
			c.structural("child %d is nil", i)
		}
	}
}

func (c *checker) checkNode(node ast.Node) {
	switch n := node.(type) {
	case *ast.True, *ast.False, *ast.RaceExists:

	case *ast.GenderIs:
		if n.Gender != ast.GenderMale && n.Gender != ast.GenderFemale {
			c.structural("invalid gender %q", n.Gender)
		}

	case *ast.Age:
		c.comparison(n.Operator)
		if n.Unit != "" {
			if _, ok := ast.ParseTimeUnit(string(n.Unit)); !ok {
				c.structural("invalid unit %q", n.Unit)
			}
		}
		if n.Quantity < 0 {
			c.semantic("Use a non-negative quantity", "age quantity %g is negative", n.Quantity)
		}

	case *ast.DateBefore, *ast.DateAfter:

	case *ast.AttributeEqual:
		c.required("attribute name", n.Name)
	case *ast.AttributeNil:
		c.required("attribute name", n.Name)
	case *ast.AttributeNotNil:
		c.required("attribute name", n.Name)
	case *ast.AttributeCompare:
		c.required("attribute name", n.Name)
		c.comparison(n.Operator)

	case *ast.SymptomCompare:
		c.required("symptom", n.Symptom)
		c.comparison(n.Operator)

	case *ast.PriorState:
		c.required("state", n.State)

	case *ast.Observation:
		c.reference(n.Type, n.Attribute)
		if !n.Operator.IsComparison() && !n.Operator.IsPresence() {
			c.errs.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
				c.prefix+fmt.Sprintf("invalid operator %q", n.Operator), c.loc, lerrors.SuggestOperator(true))
		}
		if n.Operator.IsComparison() && n.Value == nil {
			c.structural("operator %q requires a value", n.Operator)
		}

	case *ast.ConditionActive:
		c.reference(n.Code, n.Attribute)
	case *ast.ConditionDiagnosed:
		c.reference(n.Code, n.Attribute)
	case *ast.CarePlanActive:
		c.reference(n.Code, n.Attribute)

	case *ast.SESCategory:
		switch n.Level {
		case ast.SESLow, ast.SESMiddle, ast.SESHigh:
		default:
			c.structural("invalid socioeconomic category %q", n.Level)
		}

	case *ast.RaceIs:
		c.required("race", n.Race)

	case *ast.And:
		c.children(n.Children)
	case *ast.Or:
		c.children(n.Children)
		if len(n.Children) == 0 {
			c.semantic("Remove the condition or add children", "or has no children and never holds")
		}

	case *ast.Not:
		if n.Child == nil {
			c.structural("not has no child")
		}

	case *ast.AtLeast:
		c.children(n.Children)
		switch {
		case n.Minimum < 0:
			c.structural("minimum %d is negative", n.Minimum)
		case n.Minimum > len(n.Children):
			c.semantic("Lower minimum or add children",
				"minimum %d exceeds %d children and never holds", n.Minimum, len(n.Children))
		}

	case *ast.AtMost:
		c.children(n.Children)
		switch {
		case n.Maximum < 0:
			c.structural("maximum %d is negative", n.Maximum)
		case n.Maximum >= len(n.Children):
			c.semantic("Lower maximum below the number of children",
				"maximum %d is not below %d children and always holds", n.Maximum, len(n.Children))
		}

	default:
		c.structural("unknown condition %T", node)
	}
}
