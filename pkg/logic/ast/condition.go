package ast

// Kind identifies the variant of a condition node. Kind values are stable and
// are used as log fields, metric labels and audit record columns.
type Kind string

const (
	KindTrue               Kind = "true"
	KindFalse              Kind = "false"
	KindGender             Kind = "gender"
	KindAge                Kind = "age"
	KindDateBefore         Kind = "date_before"
	KindDateAfter          Kind = "date_after"
	KindAttributeEqual     Kind = "attribute_equal"
	KindAttributeNil       Kind = "attribute_nil"
	KindAttributeNotNil    Kind = "attribute_not_nil"
	KindAttributeCompare   Kind = "attribute_compare"
	KindSymptom            Kind = "symptom"
	KindPriorState         Kind = "prior_state"
	KindObservation        Kind = "observation"
	KindConditionActive    Kind = "condition_active"
	KindConditionDiagnosed Kind = "condition_diagnosed"
	KindCarePlanActive     Kind = "careplan_active"
	KindSESCategory        Kind = "ses_category"
	KindRaceExists         Kind = "race_exists"
	KindRaceIs             Kind = "race_is"
	KindAnd                Kind = "and"
	KindOr                 Kind = "or"
	KindNot                Kind = "not"
	KindAtLeast            Kind = "at_least"
	KindAtMost             Kind = "at_most"
)

// Node is a single condition in a condition tree. The set of implementations
// is closed: only the types declared in this package satisfy Node.
type Node interface {
	// Kind returns the variant of the node.
	Kind() Kind

	// Pos returns the source location the node was built from.
	Pos() Location

	node()
}

// True always holds.
type True struct {
	Location Location
}

// False never holds.
type False struct {
	Location Location
}

// GenderIs holds when the patient's gender equals Gender.
type GenderIs struct {
	Gender   Gender
	Location Location
}

// Age compares the patient's age, in Unit, against Quantity.
// A zero Unit means years.
type Age struct {
	Operator Operator
	Quantity float64
	Unit     TimeUnit
	Location Location
}

// DateBefore holds when the simulation time is before January 1st of Year.
type DateBefore struct {
	Year     int
	Location Location
}

// DateAfter holds when the simulation time is on or after January 1st of Year.
type DateAfter struct {
	Year     int
	Location Location
}

// AttributeEqual holds when the named attribute is set and its string form
// equals Value exactly.
type AttributeEqual struct {
	Name     string
	Value    string
	Location Location
}

// AttributeNil holds when the named attribute is not set.
type AttributeNil struct {
	Name     string
	Location Location
}

// AttributeNotNil holds when the named attribute is set to any value.
type AttributeNotNil struct {
	Name     string
	Location Location
}

// AttributeCompare compares a numeric attribute against Threshold.
type AttributeCompare struct {
	Name      string
	Operator  Operator
	Threshold float64
	Location  Location
}

// SymptomCompare compares the effective value of a symptom against Threshold.
type SymptomCompare struct {
	Symptom   string
	Operator  Operator
	Threshold float64
	Location  Location
}

// PriorState holds when State appears in the patient's state history.
type PriorState struct {
	State    string
	Location Location
}

// Observation compares the most recent observation of a type against Value.
//
// Exactly one of Type and Attribute is set. With Type set the lookup is
// mandatory: a patient with no observation of that type is an evaluation
// error. With Attribute set the observation type is read from that patient
// attribute, and an unset attribute makes the condition false.
type Observation struct {
	Type      string
	Attribute string
	Operator  Operator
	Value     any
	Location  Location
}

// Indirect returns true when the observation type is read from an attribute.
func (o *Observation) Indirect() bool {
	return o.Attribute != ""
}

// ConditionActive holds when the patient currently has the condition,
// whether or not it has been diagnosed. Exactly one of Code and Attribute
// is set.
type ConditionActive struct {
	Code      string
	Attribute string
	Location  Location
}

// ConditionDiagnosed holds when the condition has been diagnosed and the
// diagnosis has not ended. Exactly one of Code and Attribute is set.
type ConditionDiagnosed struct {
	Code      string
	Attribute string
	Location  Location
}

// CarePlanActive holds when the care plan was started and not stopped.
// Exactly one of Code and Attribute is set.
type CarePlanActive struct {
	Code      string
	Attribute string
	Location  Location
}

// SESCategory holds when the patient's socioeconomic score falls in the
// configured range for Level.
type SESCategory struct {
	Level    SESLevel
	Location Location
}

// RaceExists holds when the patient's race is set.
type RaceExists struct {
	Location Location
}

// RaceIs holds when the patient's race equals Race.
type RaceIs struct {
	Race     string
	Location Location
}

// And holds when every child holds. An empty And holds.
type And struct {
	Children []Node
	Location Location
}

// Or holds when at least one child holds. An empty Or does not hold.
type Or struct {
	Children []Node
	Location Location
}

// Not negates its child.
type Not struct {
	Child    Node
	Location Location
}

// AtLeast holds when at least Minimum children hold.
type AtLeast struct {
	Minimum  int
	Children []Node
	Location Location
}

// AtMost holds when no more than Maximum children hold.
type AtMost struct {
	Maximum  int
	Children []Node
	Location Location
}

func (*True) Kind() Kind               { return KindTrue }
func (*False) Kind() Kind              { return KindFalse }
func (*GenderIs) Kind() Kind           { return KindGender }
func (*Age) Kind() Kind                { return KindAge }
func (*DateBefore) Kind() Kind         { return KindDateBefore }
func (*DateAfter) Kind() Kind          { return KindDateAfter }
func (*AttributeEqual) Kind() Kind     { return KindAttributeEqual }
func (*AttributeNil) Kind() Kind       { return KindAttributeNil }
func (*AttributeNotNil) Kind() Kind    { return KindAttributeNotNil }
func (*AttributeCompare) Kind() Kind   { return KindAttributeCompare }
func (*SymptomCompare) Kind() Kind     { return KindSymptom }
func (*PriorState) Kind() Kind         { return KindPriorState }
func (*Observation) Kind() Kind        { return KindObservation }
func (*ConditionActive) Kind() Kind    { return KindConditionActive }
func (*ConditionDiagnosed) Kind() Kind { return KindConditionDiagnosed }
func (*CarePlanActive) Kind() Kind     { return KindCarePlanActive }
func (*SESCategory) Kind() Kind        { return KindSESCategory }
func (*RaceExists) Kind() Kind         { return KindRaceExists }
func (*RaceIs) Kind() Kind             { return KindRaceIs }
func (*And) Kind() Kind                { return KindAnd }
func (*Or) Kind() Kind                 { return KindOr }
func (*Not) Kind() Kind                { return KindNot }
func (*AtLeast) Kind() Kind            { return KindAtLeast }
func (*AtMost) Kind() Kind             { return KindAtMost }

func (n *True) Pos() Location               { return n.Location }
func (n *False) Pos() Location              { return n.Location }
func (n *GenderIs) Pos() Location           { return n.Location }
func (n *Age) Pos() Location                { return n.Location }
func (n *DateBefore) Pos() Location         { return n.Location }
func (n *DateAfter) Pos() Location          { return n.Location }
func (n *AttributeEqual) Pos() Location     { return n.Location }
func (n *AttributeNil) Pos() Location       { return n.Location }
func (n *AttributeNotNil) Pos() Location    { return n.Location }
func (n *AttributeCompare) Pos() Location   { return n.Location }
func (n *SymptomCompare) Pos() Location     { return n.Location }
func (n *PriorState) Pos() Location         { return n.Location }
func (n *Observation) Pos() Location        { return n.Location }
func (n *ConditionActive) Pos() Location    { return n.Location }
func (n *ConditionDiagnosed) Pos() Location { return n.Location }
func (n *CarePlanActive) Pos() Location     { return n.Location }
func (n *SESCategory) Pos() Location        { return n.Location }
func (n *RaceExists) Pos() Location         { return n.Location }
func (n *RaceIs) Pos() Location             { return n.Location }
func (n *And) Pos() Location                { return n.Location }
func (n *Or) Pos() Location                 { return n.Location }
func (n *Not) Pos() Location                { return n.Location }
func (n *AtLeast) Pos() Location            { return n.Location }
func (n *AtMost) Pos() Location             { return n.Location }

func (*True) node()               {}
func (*False) node()              {}
func (*GenderIs) node()           {}
func (*Age) node()                {}
func (*DateBefore) node()         {}
func (*DateAfter) node()          {}
func (*AttributeEqual) node()     {}
func (*AttributeNil) node()       {}
func (*AttributeNotNil) node()    {}
func (*AttributeCompare) node()   {}
func (*SymptomCompare) node()     {}
func (*PriorState) node()         {}
func (*Observation) node()        {}
func (*ConditionActive) node()    {}
func (*ConditionDiagnosed) node() {}
func (*CarePlanActive) node()     {}
func (*SESCategory) node()        {}
func (*RaceExists) node()         {}
func (*RaceIs) node()             {}
func (*And) node()                {}
func (*Or) node()                 {}
func (*Not) node()                {}
func (*AtLeast) node()            {}
func (*AtMost) node()             {}

// Children returns the direct children of a combinator node, or nil for a
// leaf. The returned slice must not be modified.
func Children(n Node) []Node {
	switch c := n.(type) {
	case *And:
		return c.Children
	case *Or:
		return c.Children
	case *Not:
		if c.Child == nil {
			return nil
		}
		return []Node{c.Child}
	case *AtLeast:
		return c.Children
	case *AtMost:
		return c.Children
	default:
		return nil
	}
}

// IsCombinator returns true if the node's value is a function of its children.
func IsCombinator(n Node) bool {
	switch n.(type) {
	case *And, *Or, *Not, *AtLeast, *AtMost:
		return true
	}
	return false
}
