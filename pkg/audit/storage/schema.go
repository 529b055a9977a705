package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the audit database schema.
// Times and durations are stored as nanoseconds.
const Schema = `
-- Evaluation records table
CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    recorded_at INTEGER NOT NULL,

    -- What was evaluated
    patient_id TEXT NOT NULL,
    library TEXT NOT NULL,
    library_version TEXT,
    condition_name TEXT NOT NULL,
    kind TEXT NOT NULL,
    sim_time INTEGER NOT NULL,

    -- Result
    matched INTEGER NOT NULL,
    error_kind TEXT,
    error TEXT,
    duration_ns INTEGER NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_audit_recorded_at ON audit_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_audit_patient_id ON audit_records(patient_id);
CREATE INDEX IF NOT EXISTS idx_audit_condition ON audit_records(library, condition_name);
CREATE INDEX IF NOT EXISTS idx_audit_error_kind ON audit_records(error_kind);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertRecord = `
INSERT OR REPLACE INTO audit_records (
    id, recorded_at, patient_id, library, library_version, condition_name,
    kind, sim_time, matched, error_kind, error, duration_ns
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectColumns = `id, recorded_at, patient_id, library, library_version, condition_name,
    kind, sim_time, matched, error_kind, error, duration_ns`
