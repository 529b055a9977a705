// Package snapshot defines the read-only views of a simulated patient that
// condition evaluation consumes.
//
// The simulator owns the patient record and the state history. Evaluation
// only queries them through these interfaces and never writes.
package snapshot

import "time"

// Patient is a read-only view of one simulated patient at the current step.
type Patient interface {
	// BirthTime returns the instant the patient was born. The boolean is
	// false when no birth has been recorded yet.
	BirthTime() (time.Time, bool)

	// Gender returns the patient's administrative gender ("M" or "F").
	Gender() string

	// Race returns the patient's race, if set.
	Race() (string, bool)

	// Attribute returns a named attribute. Values are strings, numbers or
	// booleans. An attribute explicitly set to nil is reported as absent.
	Attribute(name string) (any, bool)

	// SymptomValue returns the effective severity of a symptom: the maximum
	// across every cause that has recorded a value for it.
	SymptomValue(symptom string) (float64, bool)

	// Socioeconomic returns the patient's socioeconomic components.
	Socioeconomic() (SES, bool)

	// HasActiveCondition reports whether the condition has onset and not
	// yet ended, regardless of diagnosis.
	HasActiveCondition(code string) bool

	// DiagnosedCondition returns the most recent diagnosis record for code.
	DiagnosedCondition(code string) (Record, bool)

	// HasActiveCarePlan reports whether a care plan with code was started
	// and has not been stopped.
	HasActiveCarePlan(code string) bool

	// Observations returns every recorded observation of obsType, oldest
	// first. The returned slice must not be modified.
	Observations(obsType string) []Observation
}

// History is the append-only log of states a patient has entered.
type History interface {
	// Contains reports whether state has ever been entered.
	Contains(state string) bool
}

// SES holds the socioeconomic components of a patient, each in [0, 1].
type SES struct {
	Income     float64
	Occupation float64
	Education  float64
}

// Record is a dated clinical entry such as a diagnosis or a care plan.
type Record struct {
	Code  string
	Start time.Time
	Stop  time.Time // Zero while the record is still open
}

// Active returns true while the record has not been stopped.
func (r Record) Active() bool {
	return r.Stop.IsZero()
}

// Observation is a single recorded observation value.
type Observation struct {
	Type  string
	Time  time.Time
	Value any
}
