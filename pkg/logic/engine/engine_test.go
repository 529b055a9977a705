package engine

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"mercator-hq/carepath/pkg/logic/ast"
	"mercator-hq/carepath/pkg/logic/snapshot"
	"mercator-hq/carepath/pkg/patient"
)

var testTime = time.Date(2016, time.September, 21, 10, 0, 0, 0, time.UTC)

func newTestEvaluator(t *testing.T, config *Config) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(config, slog.Default())
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}
	return e
}

func newTestPatient() *patient.Person {
	p := patient.New("test-patient")
	p.SetGender("F")
	return p
}

// mustEval evaluates node and fails the test on error.
func mustEval(t *testing.T, e *Evaluator, node ast.Node, evalCtx Context, p snapshot.Patient) bool {
	t.Helper()
	matched, err := e.Evaluate(node, evalCtx, p)
	if err != nil {
		t.Fatalf("Evaluate(%s) error = %v", node.Kind(), err)
	}
	return matched
}

func TestEvaluate_TrueFalse(t *testing.T) {
	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	ctx := Context{Time: testTime}

	if !mustEval(t, e, &ast.True{}, ctx, p) {
		t.Error("True evaluated false")
	}
	if mustEval(t, e, &ast.False{}, ctx, p) {
		t.Error("False evaluated true")
	}
}

func TestEvaluate_NilNodeAlwaysMatches(t *testing.T) {
	e := newTestEvaluator(t, nil)

	matched, err := e.Evaluate(nil, Context{Time: testTime}, newTestPatient())
	if err != nil || !matched {
		t.Errorf("Evaluate(nil) = %v, %v; want true, nil", matched, err)
	}
}

func TestEvaluate_NilPatient(t *testing.T) {
	e := newTestEvaluator(t, nil)

	_, err := e.Evaluate(&ast.True{}, Context{Time: testTime}, nil)
	if !errors.Is(err, ErrNilPatient) {
		t.Errorf("error = %v, want ErrNilPatient", err)
	}
}

func TestEvaluate_Gender(t *testing.T) {
	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	node := &ast.GenderIs{Gender: ast.GenderMale}
	ctx := Context{Time: testTime}

	if mustEval(t, e, node, ctx, p) {
		t.Error("female patient matched gender M")
	}
	p.SetGender("M")
	if !mustEval(t, e, node, ctx, p) {
		t.Error("male patient did not match gender M")
	}
}

func TestEvaluate_Age(t *testing.T) {
	ops := []ast.Operator{
		ast.OperatorLessThan,
		ast.OperatorLessEqual,
		ast.OperatorEqual,
		ast.OperatorGreaterEqual,
		ast.OperatorGreaterThan,
		ast.OperatorNotEqual,
	}

	tests := []struct {
		age  int
		want []bool // in ops order: <, <=, ==, >=, >, !=
	}{
		{35, []bool{true, true, false, false, false, true}},
		{40, []bool{false, true, true, true, false, false}},
		{45, []bool{false, false, false, true, true, true}},
	}

	e := newTestEvaluator(t, nil)
	ctx := Context{Time: testTime}

	for _, tt := range tests {
		p := newTestPatient()
		p.SetBirth(testTime.AddDate(-tt.age, 0, 0))

		for i, op := range ops {
			node := &ast.Age{Operator: op, Quantity: 40, Unit: ast.UnitYears}
			if got := mustEval(t, e, node, ctx, p); got != tt.want[i] {
				t.Errorf("age %d: Age(%s 40) = %v, want %v", tt.age, op, got, tt.want[i])
			}
		}
	}
}

func TestEvaluate_AgeUnits(t *testing.T) {
	birth := time.Date(2000, time.March, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		node *ast.Age
		want bool
	}{
		{
			name: "day before birthday",
			now:  time.Date(2015, time.March, 14, 23, 0, 0, 0, time.UTC),
			node: &ast.Age{Operator: ast.OperatorEqual, Quantity: 14, Unit: ast.UnitYears},
			want: true,
		},
		{
			name: "on birthday",
			now:  time.Date(2015, time.March, 15, 0, 0, 0, 0, time.UTC),
			node: &ast.Age{Operator: ast.OperatorEqual, Quantity: 15},
			want: true,
		},
		{
			name: "months",
			now:  time.Date(2001, time.March, 14, 0, 0, 0, 0, time.UTC),
			node: &ast.Age{Operator: ast.OperatorEqual, Quantity: 11, Unit: ast.UnitMonths},
			want: true,
		},
		{
			name: "weeks",
			now:  birth.AddDate(0, 0, 20),
			node: &ast.Age{Operator: ast.OperatorEqual, Quantity: 2, Unit: ast.UnitWeeks},
			want: true,
		},
		{
			name: "days",
			now:  birth.AddDate(0, 0, 20),
			node: &ast.Age{Operator: ast.OperatorGreaterEqual, Quantity: 20, Unit: ast.UnitDays},
			want: true,
		},
		{
			name: "hours",
			now:  birth.Add(90 * time.Minute),
			node: &ast.Age{Operator: ast.OperatorEqual, Quantity: 1, Unit: ast.UnitHours},
			want: true,
		},
	}

	e := newTestEvaluator(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPatient()
			p.SetBirth(birth)
			if got := mustEval(t, e, tt.node, Context{Time: tt.now}, p); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_AgeWithoutBirth(t *testing.T) {
	e := newTestEvaluator(t, nil)
	p := newTestPatient()

	for _, op := range []ast.Operator{ast.OperatorLessThan, ast.OperatorGreaterEqual, ast.OperatorNotEqual} {
		node := &ast.Age{Operator: op, Quantity: 40}
		if mustEval(t, e, node, Context{Time: testTime}, p) {
			t.Errorf("Age(%s 40) matched a patient with no birth", op)
		}
	}
}

func TestEvaluate_AgeInvalidOperator(t *testing.T) {
	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	p.SetBirth(testTime.AddDate(-40, 0, 0))

	_, err := e.Evaluate(&ast.Age{Operator: ast.OperatorIsNil, Quantity: 40}, Context{Time: testTime}, p)
	if !errors.Is(err, ErrInvalidOperator) {
		t.Errorf("error = %v, want ErrInvalidOperator", err)
	}
}

func TestEvaluate_Date(t *testing.T) {
	before2016 := &ast.DateBefore{Year: 2016}
	after2000 := &ast.DateAfter{Year: 2000}

	tests := []struct {
		now        time.Time
		wantBefore bool
		wantAfter  bool
	}{
		{time.Date(2016, 9, 21, 0, 0, 0, 0, time.UTC), false, true},
		{time.Date(1981, 4, 28, 0, 0, 0, 0, time.UTC), true, false},
		{time.Date(2002, 2, 22, 0, 0, 0, 0, time.UTC), true, true},
		{time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC), false, true},
		{time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), true, true},
	}

	e := newTestEvaluator(t, nil)
	p := newTestPatient()

	for _, tt := range tests {
		t.Run(tt.now.Format(time.DateOnly), func(t *testing.T) {
			ctx := Context{Time: tt.now}
			if got := mustEval(t, e, before2016, ctx, p); got != tt.wantBefore {
				t.Errorf("Before(2016) = %v, want %v", got, tt.wantBefore)
			}
			if got := mustEval(t, e, after2000, ctx, p); got != tt.wantAfter {
				t.Errorf("After(2000) = %v, want %v", got, tt.wantAfter)
			}
		})
	}
}

func TestEvaluate_Attribute(t *testing.T) {
	const key = "Test_Attribute_Key"
	equal := &ast.AttributeEqual{Name: key, Value: "TestValue"}
	isNil := &ast.AttributeNil{Name: key}
	notNil := &ast.AttributeNotNil{Name: key}
	gt100 := &ast.AttributeCompare{Name: key, Operator: ast.OperatorGreaterThan, Threshold: 100}

	tests := []struct {
		name       string
		value      any
		wantEqual  bool
		wantNil    bool
		wantNotNil bool
		wantGt100  bool
	}{
		{"unset", nil, false, true, false, false},
		{"wrong value", "Wrong Value", false, false, true, false},
		{"matching value", "TestValue", true, false, true, false},
		{"number", 120, false, false, true, true},
		{"numeric string is not coerced", "120", false, false, true, false},
		{"float below threshold", 99.5, false, false, true, false},
	}

	e := newTestEvaluator(t, nil)
	ctx := Context{Time: testTime}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPatient()
			p.SetAttribute(key, tt.value)

			if got := mustEval(t, e, equal, ctx, p); got != tt.wantEqual {
				t.Errorf("EqualTo = %v, want %v", got, tt.wantEqual)
			}
			if got := mustEval(t, e, isNil, ctx, p); got != tt.wantNil {
				t.Errorf("Nil = %v, want %v", got, tt.wantNil)
			}
			if got := mustEval(t, e, notNil, ctx, p); got != tt.wantNotNil {
				t.Errorf("NotNil = %v, want %v", got, tt.wantNotNil)
			}
			if got := mustEval(t, e, gt100, ctx, p); got != tt.wantGt100 {
				t.Errorf("Gt(100) = %v, want %v", got, tt.wantGt100)
			}
		})
	}
}

func TestEvaluate_AttributeEqualBool(t *testing.T) {
	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	p.SetAttribute("smoker", true)

	if !mustEval(t, e, &ast.AttributeEqual{Name: "smoker", Value: "true"}, Context{Time: testTime}, p) {
		t.Error("boolean attribute did not equal \"true\"")
	}
}

func TestEvaluate_SymptomMaxAggregation(t *testing.T) {
	gt50 := &ast.SymptomCompare{Symptom: "PainLevel", Operator: ast.OperatorGreaterThan, Threshold: 50}
	lte80 := &ast.SymptomCompare{Symptom: "PainLevel", Operator: ast.OperatorLessEqual, Threshold: 80}

	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	ctx := Context{Time: testTime}

	check := func(step string, wantGt50, wantLte80 bool) {
		t.Helper()
		if got := mustEval(t, e, gt50, ctx, p); got != wantGt50 {
			t.Errorf("%s: Gt50 = %v, want %v", step, got, wantGt50)
		}
		if got := mustEval(t, e, lte80, ctx, p); got != wantLte80 {
			t.Errorf("%s: Lte80 = %v, want %v", step, got, wantLte80)
		}
	}

	check("unset", false, true)

	p.SetSymptom("Appendicitis", "PainLevel", 60)
	check("PainLevel=60", true, true)

	p.SetSymptom("Appendicitis", "LackOfAppetite", 100)
	check("other symptom", true, true)

	p.SetSymptom("Appendicitis", "PainLevel", 10)
	check("PainLevel=10", false, true)

	p.SetSymptom("Appendicitis", "PainLevel", 100)
	check("PainLevel=100", true, false)

	p.SetSymptom("Appendicitis", "PainLevel", 10)
	p.SetSymptom("Injury", "PainLevel", 70)
	check("second cause", true, true)
}

func TestEvaluate_PriorState(t *testing.T) {
	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	node := &ast.PriorState{State: "DoctorVisit"}

	if mustEval(t, e, node, Context{Time: testTime}, p) {
		t.Error("nil history matched")
	}

	h := patient.NewHistory()
	ctx := Context{Time: testTime, History: h}
	if mustEval(t, e, node, ctx, p) {
		t.Error("empty history matched")
	}

	h.Append("SomeOtherState")
	if mustEval(t, e, node, ctx, p) {
		t.Error("history without DoctorVisit matched")
	}

	h.Append("DoctorVisit")
	if !mustEval(t, e, node, ctx, p) {
		t.Error("history with DoctorVisit did not match")
	}

	var typedNil *patient.History
	if mustEval(t, e, node, Context{Time: testTime, History: typedNil}, p) {
		t.Error("nil *History matched")
	}
}

func TestEvaluate_ObservationUsesLatestByTime(t *testing.T) {
	const mmse = "mini_mental_state_examination"
	node := &ast.Observation{Type: mmse, Operator: ast.OperatorGreaterThan, Value: 22}

	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	p.RecordObservation(mmse, time.Date(2015, time.June, 1, 0, 0, 0, 0, time.UTC), 29)
	p.RecordObservation(mmse, time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC), 12)

	if !mustEval(t, e, node, Context{Time: testTime}, p) {
		t.Error("expected the 2015 value of 29 to be compared")
	}
}

func TestEvaluate_ObservationMandatory(t *testing.T) {
	const mmse = "mini_mental_state_examination"
	node := &ast.Observation{Type: mmse, Operator: ast.OperatorGreaterThan, Value: 22}

	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	ctx := Context{Time: testTime}

	_, err := e.Evaluate(node, ctx, p)
	if !errors.Is(err, ErrMissingRequiredObservation) {
		t.Fatalf("error = %v, want ErrMissingRequiredObservation", err)
	}
	var missing *MissingObservationError
	if !errors.As(err, &missing) || missing.Type != mmse {
		t.Errorf("errors.As MissingObservationError = %+v", missing)
	}

	p.RecordObservation(mmse, testTime, 12)
	if mustEval(t, e, node, ctx, p) {
		t.Error("observation 12 > 22 matched")
	}

	p.RecordObservation(mmse, testTime, 29)
	if !mustEval(t, e, node, ctx, p) {
		t.Error("latest observation 29 > 22 did not match")
	}
}

func TestEvaluate_ObservationIndirect(t *testing.T) {
	node := &ast.Observation{Attribute: "Diabetes Test Performed", Operator: ast.OperatorIsNotNil}

	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	ctx := Context{Time: testTime}

	if mustEval(t, e, node, ctx, p) {
		t.Error("unset attribute matched")
	}

	p.RecordObservation("blood_panel", testTime, "blah blah")
	p.SetAttribute("Blood Test Performed", "blood_panel")
	if mustEval(t, e, node, ctx, p) {
		t.Error("unrelated attribute matched")
	}

	p.RecordObservation("glucose_panel", testTime, "12345")
	p.SetAttribute("Diabetes Test Performed", "glucose_panel")
	if !mustEval(t, e, node, ctx, p) {
		t.Error("referenced observation did not match")
	}
}

func TestEvaluate_ObservationIndirectStillRequiresRecords(t *testing.T) {
	node := &ast.Observation{Attribute: "Diabetes Test Performed", Operator: ast.OperatorIsNotNil}

	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	p.SetAttribute("Diabetes Test Performed", "glucose_panel")

	_, err := e.Evaluate(node, Context{Time: testTime}, p)
	var missing *MissingObservationError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want MissingObservationError", err)
	}
	if missing.Type != "glucose_panel" || missing.Attribute != "Diabetes Test Performed" {
		t.Errorf("missing = %+v", missing)
	}
}

func TestEvaluate_ConditionByCode(t *testing.T) {
	const code = "diabetes_mellitus"
	active := &ast.ConditionActive{Code: code}
	diagnosed := &ast.ConditionDiagnosed{Code: code}

	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	ctx := Context{Time: testTime}

	check := func(step string, wantActive, wantDiagnosed bool) {
		t.Helper()
		if got := mustEval(t, e, active, ctx, p); got != wantActive {
			t.Errorf("%s: active = %v, want %v", step, got, wantActive)
		}
		if got := mustEval(t, e, diagnosed, ctx, p); got != wantDiagnosed {
			t.Errorf("%s: diagnosed = %v, want %v", step, got, wantDiagnosed)
		}
	}

	check("none", false, false)

	p.OnsetCondition(code, testTime)
	check("onset", true, false)

	p.Diagnose(code, testTime)
	check("diagnosed", true, true)

	ctx.Time = testTime.AddDate(10, 0, 0)
	p.EndCondition(code)
	p.EndDiagnosis(code, ctx.Time)
	check("ended", false, false)
}

func TestEvaluate_ConditionByAttribute(t *testing.T) {
	const (
		attr = "Alzheimer's Variant"
		code = "early_onset_alzheimers"
	)
	active := &ast.ConditionActive{Attribute: attr}
	diagnosed := &ast.ConditionDiagnosed{Attribute: attr}

	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	ctx := Context{Time: testTime}

	check := func(step string, wantActive, wantDiagnosed bool) {
		t.Helper()
		if got := mustEval(t, e, active, ctx, p); got != wantActive {
			t.Errorf("%s: active = %v, want %v", step, got, wantActive)
		}
		if got := mustEval(t, e, diagnosed, ctx, p); got != wantDiagnosed {
			t.Errorf("%s: diagnosed = %v, want %v", step, got, wantDiagnosed)
		}
	}

	check("unset attribute", false, false)

	p.OnsetCondition(code, testTime)
	check("onset without attribute", false, false)

	p.SetAttribute(attr, code)
	check("onset", true, false)

	p.Diagnose(code, testTime)
	check("diagnosed", true, true)

	p.EndCondition(code)
	p.EndDiagnosis(code, testTime)
	check("ended", false, false)
}

func TestEvaluate_CarePlan(t *testing.T) {
	diabetes := &ast.CarePlanActive{Code: "diabetes_self_management_plan"}
	angina := &ast.CarePlanActive{Attribute: "Angina_CarePlan"}

	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	ctx := Context{Time: testTime}

	if mustEval(t, e, diabetes, ctx, p) || mustEval(t, e, angina, ctx, p) {
		t.Fatal("care plan matched with none started")
	}

	p.StartCarePlan("diabetes_self_management_plan", testTime)
	if !mustEval(t, e, diabetes, ctx, p) {
		t.Error("started care plan did not match")
	}
	if mustEval(t, e, angina, ctx, p) {
		t.Error("angina care plan matched")
	}

	later := testTime.AddDate(10, 0, 0)
	p.StopCarePlan("diabetes_self_management_plan", later)
	if mustEval(t, e, diabetes, ctx, p) {
		t.Error("stopped care plan matched")
	}

	p.StartCarePlan("angina_careplan", later)
	p.SetAttribute("Angina_CarePlan", "angina_careplan")
	if !mustEval(t, e, angina, ctx, p) {
		t.Error("care plan by attribute did not match")
	}
}

func TestEvaluate_SESCategory(t *testing.T) {
	config := DefaultConfig().
		WithSESWeights(0.3, 0.2, 0.5).
		WithSESCategories(
			Range{Min: 0, Max: 0.333},
			Range{Min: 0.333, Max: 0.667},
			Range{Min: 0.667, Max: 1.0},
		)

	tests := []struct {
		name string
		ses  snapshot.SES
		want ast.SESLevel
	}{
		{"high", snapshot.SES{Education: 0.75, Income: 1, Occupation: 0.7}, ast.SESHigh},
		{"middle", snapshot.SES{Education: 0.5, Income: 0.5, Occupation: 0.5}, ast.SESMiddle},
		{"low", snapshot.SES{Education: 0.1, Income: 0.2, Occupation: 0.3}, ast.SESLow},
		{"top inclusive", snapshot.SES{Education: 1, Income: 1, Occupation: 1}, ast.SESHigh},
	}

	e := newTestEvaluator(t, config)
	ctx := Context{Time: testTime}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPatient()
			p.SetSES(tt.ses)

			for _, level := range []ast.SESLevel{ast.SESLow, ast.SESMiddle, ast.SESHigh} {
				got := mustEval(t, e, &ast.SESCategory{Level: level}, ctx, p)
				if want := level == tt.want; got != want {
					t.Errorf("SESCategory(%s) = %v, want %v", level, got, want)
				}
			}
		})
	}
}

func TestEvaluate_SESCategoryWithoutSES(t *testing.T) {
	e := newTestEvaluator(t, nil)
	if mustEval(t, e, &ast.SESCategory{Level: ast.SESLow}, Context{Time: testTime}, newTestPatient()) {
		t.Error("patient without SES matched Low")
	}
}

func TestEvaluate_SESCategoryInvalidLevel(t *testing.T) {
	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	p.SetSES(snapshot.SES{Income: 0.5, Occupation: 0.5, Education: 0.5})

	_, err := e.Evaluate(&ast.SESCategory{Level: "Upper"}, Context{Time: testTime}, p)
	if !errors.Is(err, ErrInvalidOperator) {
		t.Errorf("error = %v, want ErrInvalidOperator", err)
	}
	if errors.Is(err, ErrMissingRequiredObservation) {
		t.Error("malformed level reported as missing data")
	}
	if code := ErrorCode(err); code != CodeInvalidOperator {
		t.Errorf("ErrorCode() = %q, want %q", code, CodeInvalidOperator)
	}
}

func TestEvaluate_Race(t *testing.T) {
	e := newTestEvaluator(t, nil)
	p := newTestPatient()
	ctx := Context{Time: testTime}
	exists := &ast.RaceExists{}
	doesNotExist := &ast.Not{Child: &ast.RaceExists{}}
	isWhite := &ast.RaceIs{Race: "white"}

	if mustEval(t, e, exists, ctx, p) {
		t.Error("RaceExists matched without race")
	}

	p.SetRace("white")
	if !mustEval(t, e, exists, ctx, p) || !mustEval(t, e, isWhite, ctx, p) {
		t.Error("white patient did not match")
	}

	p.SetRace("native")
	if mustEval(t, e, doesNotExist, ctx, p) {
		t.Error("Not(RaceExists) matched with race set")
	}
	if mustEval(t, e, isWhite, ctx, p) {
		t.Error("RaceIs(white) matched native")
	}
}

// countingPatient counts snapshot queries so tests can assert that the
// evaluator never mutates or caches between calls.
type countingPatient struct {
	*patient.Person
	attributeCalls int
}

func (c *countingPatient) Attribute(name string) (any, bool) {
	c.attributeCalls++
	return c.Person.Attribute(name)
}

func TestEvaluate_RecomputesOnEveryCall(t *testing.T) {
	e := newTestEvaluator(t, nil)
	p := &countingPatient{Person: newTestPatient()}
	node := &ast.AttributeNotNil{Name: "x"}
	ctx := Context{Time: testTime}

	if mustEval(t, e, node, ctx, p) {
		t.Fatal("unset attribute matched")
	}
	p.SetAttribute("x", 1)
	if !mustEval(t, e, node, ctx, p) {
		t.Fatal("set attribute did not match")
	}
	if p.attributeCalls != 2 {
		t.Errorf("attribute queried %d times, want 2", p.attributeCalls)
	}
}

func TestNewEvaluator_InvalidConfig(t *testing.T) {
	config := DefaultConfig().WithSESWeights(0.5, 0.5, 0.5)
	if _, err := NewEvaluator(config, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewEvaluator_CopiesConfig(t *testing.T) {
	config := DefaultConfig()
	e := newTestEvaluator(t, config)

	config.WithSESWeights(1, 0, 0)
	if got := e.Config().SES.Weights.Education; got != 0.7 {
		t.Errorf("education weight = %v after caller mutation, want 0.7", got)
	}
}
