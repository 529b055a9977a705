// Package storage provides audit trail storage backends.
//
// MemoryStorage keeps records in process and is used by tests and by
// short-lived CLI runs. SQLiteStorage persists records to a SQLite database
// through either of two database/sql drivers:
//
//   - "sqlite" (modernc.org/sqlite): pure Go, no cgo required
//   - "sqlite3" (github.com/mattn/go-sqlite3): cgo binding to libsqlite3
//
// Both drivers share the same schema and queries. Times are stored as Unix
// nanoseconds so ordering and range filters behave identically regardless
// of the driver's own time handling.
package storage
