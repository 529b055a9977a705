package patient

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/carepath/pkg/logic/snapshot"
)

// Fixture is a declarative patient description. Times are RFC 3339
// timestamps or plain dates ("2006-01-02", midnight UTC).
//
//	id: patient-1
//	gender: F
//	age: 40          # years before the reference time; ignored if birth is set
//	race: white
//	attributes:
//	  Diabetes Test Performed: glucose_panel
//	symptoms:
//	  - {cause: Appendicitis, symptom: PainLevel, value: 60}
//	ses: {income: 0.5, occupation: 0.5, education: 0.5}
//	conditions:
//	  - {code: diabetes_mellitus, onset: 2010-01-01, diagnosed: 2010-02-01}
//	careplans:
//	  - {code: diabetes_self_management_plan, start: 2010-02-01}
//	observations:
//	  - {type: mini_mental_state_examination, time: 2015-01-01, value: 29}
type Fixture struct {
	ID           string               `yaml:"id"`
	Gender       string               `yaml:"gender"`
	Birth        string               `yaml:"birth,omitempty"`
	Age          *float64             `yaml:"age,omitempty"`
	Race         string               `yaml:"race,omitempty"`
	Attributes   map[string]any       `yaml:"attributes,omitempty"`
	Symptoms     []SymptomFixture     `yaml:"symptoms,omitempty"`
	SES          *SESFixture          `yaml:"ses,omitempty"`
	Conditions   []ConditionFixture   `yaml:"conditions,omitempty"`
	CarePlans    []CarePlanFixture    `yaml:"careplans,omitempty"`
	Observations []ObservationFixture `yaml:"observations,omitempty"`
	History      []string             `yaml:"history,omitempty"`
}

// SymptomFixture is one symptom value recorded by a cause.
type SymptomFixture struct {
	Cause   string  `yaml:"cause"`
	Symptom string  `yaml:"symptom"`
	Value   float64 `yaml:"value"`
}

// SESFixture holds socioeconomic components.
type SESFixture struct {
	Income     float64 `yaml:"income"`
	Occupation float64 `yaml:"occupation"`
	Education  float64 `yaml:"education"`
}

// ConditionFixture describes a condition's onset, diagnosis and end.
// An empty Onset defaults to the reference time.
type ConditionFixture struct {
	Code      string `yaml:"code"`
	Onset     string `yaml:"onset,omitempty"`
	Diagnosed string `yaml:"diagnosed,omitempty"`
	Ended     string `yaml:"ended,omitempty"`
}

// CarePlanFixture describes a care plan.
type CarePlanFixture struct {
	Code    string `yaml:"code"`
	Start   string `yaml:"start,omitempty"`
	Stopped string `yaml:"stopped,omitempty"`
}

// ObservationFixture describes a single observation.
type ObservationFixture struct {
	Type  string `yaml:"type"`
	Time  string `yaml:"time,omitempty"`
	Value any    `yaml:"value"`
}

// LoadFixture reads a fixture from a YAML or JSON file.
func LoadFixture(path string) (*Fixture, error) {
	// #nosec G304 - fixture paths are supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a fixture from YAML or JSON.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

// Build creates the patient and history the fixture describes. Relative
// data (age, undated records) is resolved against ref. Records dated after
// ref are rejected, since the patient could not have them yet.
func (f *Fixture) Build(ref time.Time) (*Person, *History, error) {
	p := New(f.ID)
	p.SetGender(f.Gender)

	switch {
	case f.Birth != "":
		birth, err := ParseTime(f.Birth)
		if err != nil {
			return nil, nil, fmt.Errorf("birth: %w", err)
		}
		p.SetBirth(birth)
	case f.Age != nil:
		years := int(*f.Age)
		p.SetBirth(ref.AddDate(-years, 0, 0))
	}

	if f.Race != "" {
		p.SetRace(f.Race)
	}

	for name, value := range f.Attributes {
		p.SetAttribute(name, value)
	}

	for _, s := range f.Symptoms {
		p.SetSymptom(s.Cause, s.Symptom, s.Value)
	}

	if f.SES != nil {
		p.SetSES(snapshot.SES{
			Income:     f.SES.Income,
			Occupation: f.SES.Occupation,
			Education:  f.SES.Education,
		})
	}

	for i, c := range f.Conditions {
		if c.Code == "" {
			return nil, nil, fmt.Errorf("conditions[%d]: code is required", i)
		}
		onset, err := recordTime(c.Onset, ref)
		if err != nil {
			return nil, nil, fmt.Errorf("conditions[%d].onset: %w", i, err)
		}
		p.OnsetCondition(c.Code, onset)

		if c.Diagnosed != "" {
			at, err := recordTime(c.Diagnosed, ref)
			if err != nil {
				return nil, nil, fmt.Errorf("conditions[%d].diagnosed: %w", i, err)
			}
			p.Diagnose(c.Code, at)
		}

		if c.Ended != "" {
			at, err := recordTime(c.Ended, ref)
			if err != nil {
				return nil, nil, fmt.Errorf("conditions[%d].ended: %w", i, err)
			}
			p.EndCondition(c.Code)
			p.EndDiagnosis(c.Code, at)
		}
	}

	for i, cp := range f.CarePlans {
		if cp.Code == "" {
			return nil, nil, fmt.Errorf("careplans[%d]: code is required", i)
		}
		start, err := recordTime(cp.Start, ref)
		if err != nil {
			return nil, nil, fmt.Errorf("careplans[%d].start: %w", i, err)
		}
		p.StartCarePlan(cp.Code, start)

		if cp.Stopped != "" {
			at, err := recordTime(cp.Stopped, ref)
			if err != nil {
				return nil, nil, fmt.Errorf("careplans[%d].stopped: %w", i, err)
			}
			p.StopCarePlan(cp.Code, at)
		}
	}

	for i, o := range f.Observations {
		if o.Type == "" {
			return nil, nil, fmt.Errorf("observations[%d]: type is required", i)
		}
		at, err := recordTime(o.Time, ref)
		if err != nil {
			return nil, nil, fmt.Errorf("observations[%d].time: %w", i, err)
		}
		p.RecordObservation(o.Type, at, o.Value)
	}

	return p, NewHistory(f.History...), nil
}

// ParseTime parses an RFC 3339 timestamp or a plain date.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// recordTime parses the time of a record, defaulting to ref. Times after
// ref are an error.
func recordTime(s string, ref time.Time) (time.Time, error) {
	if s == "" {
		return ref, nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}, err
	}
	if t.After(ref) {
		return time.Time{}, fmt.Errorf("%s is after the evaluation time %s", s, ref.Format(time.RFC3339))
	}
	return t, nil
}
