package patient

import (
	"slices"
	"sort"
	"time"

	"mercator-hq/carepath/pkg/logic/snapshot"
)

// Person is a simulated patient.
type Person struct {
	// ID identifies the patient in audit records and logs.
	ID string

	birth    *time.Time
	gender   string
	race     string
	hasRace  bool
	ses      *snapshot.SES
	attrs    map[string]any
	symptoms map[string]map[string]float64 // symptom -> cause -> value

	active       map[string]time.Time
	diagnoses    map[string][]snapshot.Record
	carePlans    map[string][]snapshot.Record
	observations map[string][]snapshot.Observation
}

var _ snapshot.Patient = (*Person)(nil)

// New creates a patient with no recorded data.
func New(id string) *Person {
	return &Person{
		ID:           id,
		attrs:        make(map[string]any),
		symptoms:     make(map[string]map[string]float64),
		active:       make(map[string]time.Time),
		diagnoses:    make(map[string][]snapshot.Record),
		carePlans:    make(map[string][]snapshot.Record),
		observations: make(map[string][]snapshot.Observation),
	}
}

// SetBirth records the instant the patient was born.
func (p *Person) SetBirth(t time.Time) {
	p.birth = &t
}

// SetGender sets the administrative gender ("M" or "F").
func (p *Person) SetGender(gender string) {
	p.gender = gender
}

// SetRace sets the patient's race.
func (p *Person) SetRace(race string) {
	p.race = race
	p.hasRace = true
}

// ClearRace removes the patient's race.
func (p *Person) ClearRace() {
	p.race = ""
	p.hasRace = false
}

// SetSES sets the socioeconomic components.
func (p *Person) SetSES(ses snapshot.SES) {
	p.ses = &ses
}

// SetAttribute sets a named attribute. Setting nil removes it.
func (p *Person) SetAttribute(name string, value any) {
	if value == nil {
		delete(p.attrs, name)
		return
	}
	p.attrs[name] = value
}

// SetSymptom records the severity of a symptom caused by cause. A later
// value from the same cause replaces the earlier one.
func (p *Person) SetSymptom(cause, symptom string, value float64) {
	causes, ok := p.symptoms[symptom]
	if !ok {
		causes = make(map[string]float64)
		p.symptoms[symptom] = causes
	}
	causes[cause] = value
}

// OnsetCondition marks a condition as active, diagnosed or not.
func (p *Person) OnsetCondition(code string, at time.Time) {
	p.active[code] = at
}

// EndCondition marks a condition as no longer active.
func (p *Person) EndCondition(code string) {
	delete(p.active, code)
}

// Diagnose opens a diagnosis record for code.
func (p *Person) Diagnose(code string, at time.Time) {
	p.diagnoses[code] = append(p.diagnoses[code], snapshot.Record{Code: code, Start: at})
}

// EndDiagnosis closes the most recent open diagnosis of code. It returns
// false if there is none.
func (p *Person) EndDiagnosis(code string, at time.Time) bool {
	return closeLatest(p.diagnoses[code], at)
}

// StartCarePlan opens a care plan record for code.
func (p *Person) StartCarePlan(code string, at time.Time) {
	p.carePlans[code] = append(p.carePlans[code], snapshot.Record{Code: code, Start: at})
}

// StopCarePlan closes the most recent open care plan of code. It returns
// false if there is none.
func (p *Person) StopCarePlan(code string, at time.Time) bool {
	return closeLatest(p.carePlans[code], at)
}

// RecordObservation records an observation. Observations of a type are kept
// in time order; observations at the same time keep the order they were
// recorded in.
func (p *Person) RecordObservation(obsType string, at time.Time, value any) {
	obs := p.observations[obsType]
	i := sort.Search(len(obs), func(i int) bool { return obs[i].Time.After(at) })
	p.observations[obsType] = slices.Insert(obs, i, snapshot.Observation{
		Type:  obsType,
		Time:  at,
		Value: value,
	})
}

// ClearObservations removes every recorded observation.
func (p *Person) ClearObservations() {
	p.observations = make(map[string][]snapshot.Observation)
}

func closeLatest(records []snapshot.Record, at time.Time) bool {
	if len(records) == 0 {
		return false
	}
	latest := &records[len(records)-1]
	if !latest.Active() {
		return false
	}
	latest.Stop = at
	return true
}

// BirthTime implements snapshot.Patient.
func (p *Person) BirthTime() (time.Time, bool) {
	if p.birth == nil {
		return time.Time{}, false
	}
	return *p.birth, true
}

// Gender implements snapshot.Patient.
func (p *Person) Gender() string {
	return p.gender
}

// Race implements snapshot.Patient.
func (p *Person) Race() (string, bool) {
	return p.race, p.hasRace
}

// Attribute implements snapshot.Patient.
func (p *Person) Attribute(name string) (any, bool) {
	v, ok := p.attrs[name]
	return v, ok
}

// SymptomValue implements snapshot.Patient. The effective value is the
// highest severity any cause has recorded.
func (p *Person) SymptomValue(symptom string) (float64, bool) {
	causes, ok := p.symptoms[symptom]
	if !ok || len(causes) == 0 {
		return 0, false
	}
	first := true
	var max float64
	for _, v := range causes {
		if first || v > max {
			max = v
			first = false
		}
	}
	return max, true
}

// Socioeconomic implements snapshot.Patient.
func (p *Person) Socioeconomic() (snapshot.SES, bool) {
	if p.ses == nil {
		return snapshot.SES{}, false
	}
	return *p.ses, true
}

// HasActiveCondition implements snapshot.Patient.
func (p *Person) HasActiveCondition(code string) bool {
	_, ok := p.active[code]
	return ok
}

// DiagnosedCondition implements snapshot.Patient.
func (p *Person) DiagnosedCondition(code string) (snapshot.Record, bool) {
	records := p.diagnoses[code]
	if len(records) == 0 {
		return snapshot.Record{}, false
	}
	return records[len(records)-1], true
}

// HasActiveCarePlan implements snapshot.Patient.
func (p *Person) HasActiveCarePlan(code string) bool {
	records := p.carePlans[code]
	return len(records) > 0 && records[len(records)-1].Active()
}

// Observations implements snapshot.Patient.
func (p *Person) Observations(obsType string) []snapshot.Observation {
	return p.observations[obsType]
}
