// Package audit records condition evaluations as an append-only audit trail.
//
// Every evaluation performed through the runner can produce one Record
// describing which condition was evaluated, for which patient, at which
// simulation time, and whether it matched or failed. Records are written to a
// Storage backend and can later be queried or pruned.
//
// # Architecture
//
//  1. Recorder - Assigns identifiers and timestamps, then stores records
//  2. Storage - Persists records (in memory or SQLite)
//  3. Retention - Prunes old records on a cron schedule
//
// # Basic Usage
//
//	store, err := storage.New(cfg.Audit, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	recorder := audit.NewRecorder(store, logger)
//	err = recorder.Record(ctx, &audit.Record{
//	    PatientID: "p-1",
//	    Library:   "diabetes",
//	    Condition: "prediabetic",
//	    Kind:      "and",
//	    SimTime:   simTime,
//	    Matched:   true,
//	})
//
// # Queries
//
// Query filters by patient, library, condition, outcome and recorded time.
// Results are ordered by recorded time, newest first unless SortOrder is
// "asc".
//
//	records, err := store.Query(ctx, &audit.Query{
//	    PatientID: "p-1",
//	    Outcome:   audit.OutcomeError,
//	    Limit:     50,
//	})
package audit
