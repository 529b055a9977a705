package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/carepath/pkg/audit"
)

// Driver names registered with database/sql.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3
)

var (
	errNilRecord = errors.New("record is nil")
	errMissingID = errors.New("record ID is empty")
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver is DriverModernc or DriverMattn.
	// Default: DriverModernc
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		Driver:       DriverModernc,
		MaxOpenConns: 10,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, creating the file, its directory and
// the schema as needed.
func NewSQLiteStorage(config *SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg := *config
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	logger = logger.With("component", "audit.storage.sqlite", "driver", cfg.Driver)

	if cfg.Path == "" {
		return nil, audit.NewStorageError("sqlite", "open", errors.New("database path is empty"))
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, audit.NewStorageError("sqlite", "open", err)
		}
	}

	dsn, err := dataSourceName(&cfg)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}
	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	s := &SQLiteStorage{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return s, nil
}

// dataSourceName encodes connection pragmas in the DSN so that every pooled
// connection gets them. The two drivers spell pragmas differently.
func dataSourceName(cfg *SQLiteConfig) (string, error) {
	busy := cfg.BusyTimeout.Milliseconds()
	params := url.Values{}

	switch cfg.Driver {
	case DriverMattn:
		params.Set("_busy_timeout", fmt.Sprint(busy))
		if cfg.WALMode {
			params.Set("_journal_mode", "WAL")
		}
	case DriverModernc:
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
		if cfg.WALMode {
			params.Add("_pragma", "journal_mode(WAL)")
		}
	default:
		return "", fmt.Errorf("unsupported driver %q (must be %q or %q)", cfg.Driver, DriverModernc, DriverMattn)
	}

	return cfg.Path + "?" + params.Encode(), nil
}

func (s *SQLiteStorage) initialize() error {
	if err := s.db.Ping(); err != nil {
		return audit.NewStorageError("sqlite", "ping", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}
	s.logger.Debug("database schema created")

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Store persists a record. A record with an existing ID replaces it.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	if err := checkRecord("sqlite", record); err != nil {
		return err
	}

	matched := 0
	if record.Matched {
		matched = 1
	}

	_, err := s.db.ExecContext(ctx, insertRecord,
		record.ID,
		record.RecordedAt.UnixNano(),
		record.PatientID,
		record.Library,
		nullString(record.LibraryVersion),
		record.Condition,
		record.Kind,
		record.SimTime.UnixNano(),
		matched,
		nullString(record.ErrorKind),
		nullString(record.Error),
		int64(record.Duration),
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query returns records matching the query, ordered by recorded time.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	whereClause, args := buildWhereClause(query)

	order := "DESC"
	if query.SortOrder == audit.SortAsc {
		order = "ASC"
	}
	limit := query.Limit
	if limit == 0 {
		limit = audit.DefaultLimit
	}

	sqlQuery := "SELECT " + selectColumns + " FROM audit_records" + whereClause +
		fmt.Sprintf(" ORDER BY recorded_at %s, rowid %s LIMIT %d OFFSET %d", order, order, limit, query.Offset)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records"+whereClause, args...).Scan(&count)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *SQLiteStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_records"+whereClause, args...)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}

	s.logger.Debug("deleted audit records", "count", deleted)
	return deleted, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// buildWhereClause returns a WHERE clause, with a leading space, and its
// arguments. It returns an empty clause when the query has no filters.
func buildWhereClause(query *audit.Query) (string, []any) {
	var conditions []string
	var args []any

	if len(query.IDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(query.IDs)), ",")
		conditions = append(conditions, "id IN ("+placeholders+")")
		for _, id := range query.IDs {
			args = append(args, id)
		}
	}
	if query.PatientID != "" {
		conditions = append(conditions, "patient_id = ?")
		args = append(args, query.PatientID)
	}
	if query.Library != "" {
		conditions = append(conditions, "library = ?")
		args = append(args, query.Library)
	}
	if query.Condition != "" {
		conditions = append(conditions, "condition_name = ?")
		args = append(args, query.Condition)
	}
	switch query.Outcome {
	case audit.OutcomeMatched:
		conditions = append(conditions, "error_kind IS NULL AND error IS NULL AND matched = 1")
	case audit.OutcomeUnmatched:
		conditions = append(conditions, "error_kind IS NULL AND error IS NULL AND matched = 0")
	case audit.OutcomeError:
		conditions = append(conditions, "(error_kind IS NOT NULL OR error IS NOT NULL)")
	}
	if query.StartTime != nil {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "recorded_at <= ?")
		args = append(args, query.EndTime.UnixNano())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var (
		r          audit.Record
		recordedAt int64
		simTime    int64
		matched    int64
		duration   int64
		version    sql.NullString
		errKind    sql.NullString
		errText    sql.NullString
	)

	err := rows.Scan(
		&r.ID,
		&recordedAt,
		&r.PatientID,
		&r.Library,
		&version,
		&r.Condition,
		&r.Kind,
		&simTime,
		&matched,
		&errKind,
		&errText,
		&duration,
	)
	if err != nil {
		return nil, err
	}

	r.RecordedAt = time.Unix(0, recordedAt).UTC()
	r.SimTime = time.Unix(0, simTime).UTC()
	r.Matched = matched != 0
	r.LibraryVersion = version.String
	r.ErrorKind = errKind.String
	r.Error = errText.String
	r.Duration = time.Duration(duration)
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
