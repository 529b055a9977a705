// Package patient provides a reference implementation of the snapshot
// interfaces consumed by condition evaluation.
//
// Person mirrors the record operations a simulator performs on a patient
// (onset and end of conditions, diagnoses, care plans, observations,
// symptoms and attributes). History is the append-only log of states a
// patient has entered. Fixture decodes a patient description from YAML or
// JSON for tests and the command line.
//
// Neither Person nor History is safe for concurrent mutation. The
// simulation driver serializes writes against evaluation.
package patient
