package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/carepath/pkg/logic/ast"
	lerrors "mercator-hq/carepath/pkg/logic/errors"
)

// builder constructs condition trees from YAML nodes. Problems are
// accumulated rather than returned so a single pass reports all of them.
type builder struct {
	sourcePath string
	maxDepth   int
	errors     *lerrors.ErrorList
}

func newBuilder(sourcePath string, maxDepth int) *builder {
	return &builder{
		sourcePath: sourcePath,
		maxDepth:   maxDepth,
		errors:     lerrors.NewErrorList(),
	}
}

func (b *builder) loc(n *yaml.Node) ast.Location {
	if n == nil {
		return ast.Location{File: b.sourcePath}
	}
	return ast.Location{File: b.sourcePath, Line: n.Line, Column: n.Column}
}

func (b *builder) structural(n *yaml.Node, format string, args ...any) {
	b.errors.AddError(lerrors.ErrorTypeStructural, fmt.Sprintf(format, args...), b.loc(n))
}

// buildLibrary builds a library from a document of the form
//
//	name: logic
//	description: ...
//	conditions:
//	  <name>: <condition>
func (b *builder) buildLibrary(root *yaml.Node) *ast.Library {
	lib := &ast.Library{
		Name:       strings.TrimSuffix(filepath.Base(b.sourcePath), filepath.Ext(b.sourcePath)),
		Conditions: make(map[string]ast.Node),
		SourceFile: b.sourcePath,
		Location:   ast.Location{File: b.sourcePath, Line: 1, Column: 1},
	}

	doc := document(root)
	o, ok := newObject(doc)
	if !ok {
		b.structural(doc, "library must be a mapping with a 'conditions' field")
		return lib
	}

	if name, ok := b.optionalString(o, "name"); ok {
		lib.Name = name
	}
	if desc, ok := b.optionalString(o, "description"); ok {
		lib.Description = desc
	}

	conds, ok := o.get("conditions")
	if !ok {
		b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
			"library has no 'conditions'", b.loc(doc),
			"Add a 'conditions' mapping of condition names to conditions")
		return lib
	}
	if conds.Kind != yaml.MappingNode {
		b.structural(conds, "'conditions' must be a mapping of names to conditions")
		return lib
	}

	for i := 0; i+1 < len(conds.Content); i += 2 {
		key, value := conds.Content[i], conds.Content[i+1]
		name := key.Value
		if name == "" {
			b.structural(key, "condition name must not be empty")
			continue
		}
		if _, dup := lib.Conditions[name]; dup {
			b.errors.AddError(lerrors.ErrorTypeSemantic,
				fmt.Sprintf("duplicate condition %q", name), b.loc(key))
			continue
		}

		node := b.buildCondition(value, 1)
		if node == nil {
			continue
		}
		lib.Conditions[name] = node
		lib.Order = append(lib.Order, name)
	}

	return lib
}

// buildCondition builds one condition. It returns nil after recording
// at least one error.
func (b *builder) buildCondition(n *yaml.Node, depth int) ast.Node {
	if depth > b.maxDepth {
		b.errors.AddError(lerrors.ErrorTypeLimit,
			fmt.Sprintf("condition nesting exceeds maximum depth %d", b.maxDepth), b.loc(n))
		return nil
	}

	o, ok := newObject(n)
	if !ok {
		b.structural(n, "condition must be a mapping with a 'condition_type'")
		return nil
	}

	rawType, ok := b.requireString(o, "condition_type", "Age")
	if !ok {
		return nil
	}
	typeName, ok := lookupType(rawType)
	if !ok {
		b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
			fmt.Sprintf("unknown condition_type %q", rawType), b.loc(o.fields["condition_type"]),
			lerrors.SuggestName(rawType, typeNames()))
		return nil
	}

	loc := b.loc(n)

	switch typeName {
	case typeTrue:
		return &ast.True{Location: loc}
	case typeFalse:
		return &ast.False{Location: loc}
	case typeGender:
		return b.buildGender(o, loc)
	case typeAge:
		return b.buildAge(o, loc)
	case typeDate:
		return b.buildDate(o, loc)
	case typeAttribute:
		return b.buildAttribute(o, loc)
	case typeSymptom:
		return b.buildSymptom(o, loc)
	case typePriorState:
		state, ok := b.requireString(o, "name", "DoctorVisit")
		if !ok {
			return nil
		}
		return &ast.PriorState{State: state, Location: loc}
	case typeObservation:
		return b.buildObservation(o, loc)
	case typeActiveCondition:
		code, attr, ok := b.codeOrAttribute(o, typeName)
		if !ok {
			return nil
		}
		return &ast.ConditionActive{Code: code, Attribute: attr, Location: loc}
	case typeDiagnosedCondition:
		code, attr, ok := b.codeOrAttribute(o, typeName)
		if !ok {
			return nil
		}
		return &ast.ConditionDiagnosed{Code: code, Attribute: attr, Location: loc}
	case typeActiveCarePlan:
		code, attr, ok := b.codeOrAttribute(o, typeName)
		if !ok {
			return nil
		}
		return &ast.CarePlanActive{Code: code, Attribute: attr, Location: loc}
	case typeSES:
		return b.buildSES(o, loc)
	case typeRace:
		if race, ok := b.optionalString(o, "race"); ok {
			return &ast.RaceIs{Race: race, Location: loc}
		}
		return &ast.RaceExists{Location: loc}
	case typeAnd:
		children, ok := b.buildChildren(o, depth)
		if !ok {
			return nil
		}
		return &ast.And{Children: children, Location: loc}
	case typeOr:
		children, ok := b.buildChildren(o, depth)
		if !ok {
			return nil
		}
		return &ast.Or{Children: children, Location: loc}
	case typeNot:
		return b.buildNot(o, depth, loc)
	case typeAtLeast:
		minimum, minOK := b.requireInt(o, "minimum", "2")
		children, ok := b.buildChildren(o, depth)
		if !ok || !minOK {
			return nil
		}
		return &ast.AtLeast{Minimum: minimum, Children: children, Location: loc}
	case typeAtMost:
		maximum, maxOK := b.requireInt(o, "maximum", "2")
		children, ok := b.buildChildren(o, depth)
		if !ok || !maxOK {
			return nil
		}
		return &ast.AtMost{Maximum: maximum, Children: children, Location: loc}
	}

	b.structural(n, "condition_type %q is not supported", typeName)
	return nil
}

func (b *builder) buildGender(o *object, loc ast.Location) ast.Node {
	raw, ok := b.requireString(o, "gender", "F")
	if !ok {
		return nil
	}
	switch g := ast.Gender(strings.ToUpper(strings.TrimSpace(raw))); g {
	case ast.GenderMale, ast.GenderFemale:
		return &ast.GenderIs{Gender: g, Location: loc}
	}
	b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
		fmt.Sprintf("invalid gender %q", raw), b.loc(o.fields["gender"]),
		"Use 'M' or 'F'")
	return nil
}

func (b *builder) buildAge(o *object, loc ast.Location) ast.Node {
	op, opOK := b.requireOperator(o, false)
	quantity, qOK := b.requireNumber(o, "quantity", "40")

	unit := ast.UnitYears
	if raw, ok := b.optionalString(o, "unit"); ok {
		parsed, valid := ast.ParseTimeUnit(raw)
		if !valid {
			b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
				fmt.Sprintf("invalid unit %q", raw), b.loc(o.fields["unit"]),
				"Use years, months, weeks, days, hours, minutes or seconds")
			return nil
		}
		unit = parsed
	}

	if !opOK || !qOK {
		return nil
	}
	return &ast.Age{Operator: op, Quantity: quantity, Unit: unit, Location: loc}
}

// buildDate maps a year comparison onto DateBefore and DateAfter. The
// simulation year Y compared against the configured year N becomes:
//
//	Y <  N  before Jan 1 of N
//	Y <= N  before Jan 1 of N+1
//	Y >  N  on or after Jan 1 of N+1
//	Y >= N  on or after Jan 1 of N
//	Y == N  on or after Jan 1 of N and before Jan 1 of N+1
//	Y != N  before Jan 1 of N or on or after Jan 1 of N+1
func (b *builder) buildDate(o *object, loc ast.Location) ast.Node {
	op, opOK := b.requireOperator(o, false)
	year, yOK := b.requireInt(o, "year", "2016")
	if !opOK || !yOK {
		return nil
	}

	switch op {
	case ast.OperatorLessThan:
		return &ast.DateBefore{Year: year, Location: loc}
	case ast.OperatorLessEqual:
		return &ast.DateBefore{Year: year + 1, Location: loc}
	case ast.OperatorGreaterThan:
		return &ast.DateAfter{Year: year + 1, Location: loc}
	case ast.OperatorGreaterEqual:
		return &ast.DateAfter{Year: year, Location: loc}
	case ast.OperatorEqual:
		return &ast.And{Children: []ast.Node{
			&ast.DateAfter{Year: year, Location: loc},
			&ast.DateBefore{Year: year + 1, Location: loc},
		}, Location: loc}
	default: // OperatorNotEqual
		return &ast.Or{Children: []ast.Node{
			&ast.DateBefore{Year: year, Location: loc},
			&ast.DateAfter{Year: year + 1, Location: loc},
		}, Location: loc}
	}
}

// buildAttribute selects the attribute node for the operator and the type
// of the configured value.
func (b *builder) buildAttribute(o *object, loc ast.Location) ast.Node {
	name, nameOK := b.requireString(o, "attribute", "Test_Attribute_Key")
	op, opOK := b.requireOperator(o, true)
	if !nameOK || !opOK {
		return nil
	}

	switch op {
	case ast.OperatorIsNil:
		return &ast.AttributeNil{Name: name, Location: loc}
	case ast.OperatorIsNotNil:
		return &ast.AttributeNotNil{Name: name, Location: loc}
	}

	valueNode, ok := o.get("value")
	if !ok {
		b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
			fmt.Sprintf("attribute condition with operator %q requires 'value'", op),
			loc, lerrors.SuggestMissingField("value", "TestValue"))
		return nil
	}
	value, ok := b.scalar(valueNode)
	if !ok {
		return nil
	}

	if num, isNum := value.(float64); isNum {
		return &ast.AttributeCompare{Name: name, Operator: op, Threshold: num, Location: loc}
	}

	var s string
	switch v := value.(type) {
	case string:
		s = v
	case bool:
		s = fmt.Sprint(v)
	}

	switch op {
	case ast.OperatorEqual:
		return &ast.AttributeEqual{Name: name, Value: s, Location: loc}
	case ast.OperatorNotEqual:
		return &ast.Not{Child: &ast.AttributeEqual{Name: name, Value: s, Location: loc}, Location: loc}
	}

	b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeSemantic,
		fmt.Sprintf("operator %q needs a numeric value, got %q", op, valueNode.Value),
		b.loc(valueNode), "Use == or != to compare text values")
	return nil
}

func (b *builder) buildSymptom(o *object, loc ast.Location) ast.Node {
	symptom, sOK := b.requireString(o, "symptom", "PainLevel")
	op, opOK := b.requireOperator(o, false)
	value, vOK := b.requireNumber(o, "value", "50")
	if !sOK || !opOK || !vOK {
		return nil
	}
	return &ast.SymptomCompare{Symptom: symptom, Operator: op, Threshold: value, Location: loc}
}

func (b *builder) buildObservation(o *object, loc ast.Location) ast.Node {
	code, attr, refOK := b.codeOrAttribute(o, typeObservation)
	op, opOK := b.requireOperator(o, true)
	if !refOK || !opOK {
		return nil
	}

	obs := &ast.Observation{Type: code, Attribute: attr, Operator: op, Location: loc}
	if op.IsPresence() {
		return obs
	}

	valueNode, ok := o.get("value")
	if !ok {
		b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
			fmt.Sprintf("observation condition with operator %q requires 'value'", op),
			loc, lerrors.SuggestMissingField("value", "22"))
		return nil
	}
	value, ok := b.scalar(valueNode)
	if !ok {
		return nil
	}
	obs.Value = value
	return obs
}

func (b *builder) buildSES(o *object, loc ast.Location) ast.Node {
	raw, ok := b.requireString(o, "category", "High")
	if !ok {
		return nil
	}
	level, ok := ast.ParseSESLevel(raw)
	if !ok {
		b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
			fmt.Sprintf("invalid socioeconomic category %q", raw), b.loc(o.fields["category"]),
			lerrors.SuggestName(raw, []string{string(ast.SESLow), string(ast.SESMiddle), string(ast.SESHigh)}))
		return nil
	}
	return &ast.SESCategory{Level: level, Location: loc}
}

func (b *builder) buildNot(o *object, depth int, loc ast.Location) ast.Node {
	childNode, ok := o.get("condition")
	if !ok {
		b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
			"not condition requires 'condition'", loc,
			lerrors.SuggestMissingField("condition", "{condition_type: \"True\"}"))
		return nil
	}
	child := b.buildCondition(childNode, depth+1)
	if child == nil {
		return nil
	}
	return &ast.Not{Child: child, Location: loc}
}

// buildChildren builds the 'conditions' list of a combinator.
func (b *builder) buildChildren(o *object, depth int) ([]ast.Node, bool) {
	list, ok := o.get("conditions")
	if !ok {
		b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
			"combinator requires 'conditions'", b.loc(o.node),
			lerrors.SuggestMissingField("conditions", "[...]"))
		return nil, false
	}
	if list.Kind != yaml.SequenceNode {
		b.structural(list, "'conditions' must be a list")
		return nil, false
	}

	children := make([]ast.Node, 0, len(list.Content))
	valid := true
	for _, item := range list.Content {
		child := b.buildCondition(item, depth+1)
		if child == nil {
			valid = false
			continue
		}
		children = append(children, child)
	}
	return children, valid
}

// codeOrAttribute reads the entity a condition refers to: the first of
// 'codes', or the attribute named by 'referenced_by_attribute'.
func (b *builder) codeOrAttribute(o *object, typeName string) (code, attribute string, ok bool) {
	attribute, hasAttr := b.optionalString(o, "referenced_by_attribute")
	codes, hasCodes := o.get("codes")

	switch {
	case hasAttr && hasCodes:
		b.errors.AddError(lerrors.ErrorTypeSemantic,
			fmt.Sprintf("%s condition sets both 'codes' and 'referenced_by_attribute'", typeName),
			b.loc(o.node))
		return "", "", false
	case hasAttr:
		return "", attribute, true
	case !hasCodes:
		b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
			fmt.Sprintf("%s condition requires 'codes' or 'referenced_by_attribute'", typeName),
			b.loc(o.node), lerrors.SuggestMissingField("codes", "[{code: diabetes_mellitus}]"))
		return "", "", false
	}

	if codes.Kind != yaml.SequenceNode || len(codes.Content) == 0 {
		b.structural(codes, "'codes' must be a non-empty list")
		return "", "", false
	}
	first, isObj := newObject(codes.Content[0])
	if !isObj {
		b.structural(codes.Content[0], "code entry must be a mapping with a 'code'")
		return "", "", false
	}
	code, ok = b.requireString(first, "code", "diabetes_mellitus")
	return code, "", ok
}

// requireString reads a required scalar field as text.
func (b *builder) requireString(o *object, key, example string) (string, bool) {
	n, ok := o.get(key)
	if !ok {
		b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
			fmt.Sprintf("missing required field '%s'", key), b.loc(o.node),
			lerrors.SuggestMissingField(key, example))
		return "", false
	}
	if n.Kind != yaml.ScalarNode {
		b.structural(n, "field '%s' must be a scalar", key)
		return "", false
	}
	if strings.TrimSpace(n.Value) == "" {
		b.structural(n, "field '%s' must not be empty", key)
		return "", false
	}
	return n.Value, true
}

// optionalString reads an optional scalar field as text.
func (b *builder) optionalString(o *object, key string) (string, bool) {
	n, ok := o.get(key)
	if !ok {
		return "", false
	}
	if n.Kind != yaml.ScalarNode {
		b.structural(n, "field '%s' must be a scalar", key)
		return "", false
	}
	return n.Value, n.Value != ""
}

func (b *builder) requireNumber(o *object, key, example string) (float64, bool) {
	n, ok := o.get(key)
	if !ok {
		b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
			fmt.Sprintf("missing required field '%s'", key), b.loc(o.node),
			lerrors.SuggestMissingField(key, example))
		return 0, false
	}
	var f float64
	if n.Kind != yaml.ScalarNode || (n.Tag != "!!int" && n.Tag != "!!float") || n.Decode(&f) != nil {
		b.structural(n, "field '%s' must be a number, got %q", key, n.Value)
		return 0, false
	}
	return f, true
}

func (b *builder) requireInt(o *object, key, example string) (int, bool) {
	n, ok := o.get(key)
	if !ok {
		b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
			fmt.Sprintf("missing required field '%s'", key), b.loc(o.node),
			lerrors.SuggestMissingField(key, example))
		return 0, false
	}
	var i int
	if n.Kind != yaml.ScalarNode || n.Tag != "!!int" || n.Decode(&i) != nil {
		b.structural(n, "field '%s' must be an integer, got %q", key, n.Value)
		return 0, false
	}
	return i, true
}

func (b *builder) requireOperator(o *object, allowPresence bool) (ast.Operator, bool) {
	raw, ok := b.requireString(o, "operator", "<")
	if !ok {
		return "", false
	}
	op, ok := ast.ParseOperator(raw)
	if !ok || (op.IsPresence() && !allowPresence) {
		b.errors.AddErrorWithSuggestion(lerrors.ErrorTypeStructural,
			fmt.Sprintf("invalid operator %q", raw), b.loc(o.fields["operator"]),
			lerrors.SuggestOperator(allowPresence))
		return "", false
	}
	return op, true
}

// scalar decodes a scalar value. Integers are widened to float64 so that
// numeric values have a single representation in the tree.
func (b *builder) scalar(n *yaml.Node) (any, bool) {
	if n.Kind != yaml.ScalarNode {
		b.structural(n, "value must be a scalar")
		return nil, false
	}
	var v any
	if err := n.Decode(&v); err != nil {
		b.structural(n, "invalid value %q: %v", n.Value, err)
		return nil, false
	}
	switch num := v.(type) {
	case int:
		return float64(num), true
	case int64:
		return float64(num), true
	case uint64:
		return float64(num), true
	}
	return v, true
}
