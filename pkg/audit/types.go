package audit

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultLimit is the number of records returned when a query sets none.
	DefaultLimit = 100

	// MaxLimit is the largest number of records a single query may return.
	MaxLimit = 10000
)

// Outcome values accepted by Query.Outcome.
const (
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
	OutcomeError     = "error"
)

// Sort orders accepted by Query.SortOrder.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Record is one condition evaluation.
type Record struct {
	// Identity
	ID         string    `json:"id" yaml:"id"`
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`

	// What was evaluated
	PatientID      string `json:"patient_id" yaml:"patient_id"`
	Library        string `json:"library" yaml:"library"`
	LibraryVersion string `json:"library_version,omitempty" yaml:"library_version,omitempty"`
	Condition      string `json:"condition" yaml:"condition"`
	Kind           string `json:"kind" yaml:"kind"`

	// Simulation time the condition was evaluated at
	SimTime time.Time `json:"sim_time" yaml:"sim_time"`

	// Result
	Matched   bool          `json:"matched" yaml:"matched"`
	ErrorKind string        `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Outcome returns OutcomeError when the evaluation failed, and otherwise
// OutcomeMatched or OutcomeUnmatched.
func (r *Record) Outcome() string {
	switch {
	case r.ErrorKind != "" || r.Error != "":
		return OutcomeError
	case r.Matched:
		return OutcomeMatched
	default:
		return OutcomeUnmatched
	}
}

// Query filters audit records. Zero-valued fields do not filter.
type Query struct {
	// Exact matches
	IDs       []string
	PatientID string
	Library   string
	Condition string
	Outcome   string

	// Recorded time range, both bounds inclusive
	StartTime *time.Time
	EndTime   *time.Time

	// Pagination
	Limit  int
	Offset int

	// SortOrder orders by recorded time: "asc" or "desc" (default).
	SortOrder string
}

// Validate returns a QueryError if the query parameters are invalid.
func (q *Query) Validate() error {
	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	switch q.SortOrder {
	case "", SortAsc, SortDesc:
	default:
		return NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	switch q.Outcome {
	case "", OutcomeMatched, OutcomeUnmatched, OutcomeError:
	default:
		return NewQueryError(q, fmt.Errorf("invalid outcome: %s (must be 'matched', 'unmatched', or 'error')", q.Outcome))
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
	}
	return nil
}

// Matches returns true if r satisfies every filter of q. Pagination and
// ordering are ignored.
func (q *Query) Matches(r *Record) bool {
	if len(q.IDs) > 0 && !containsString(q.IDs, r.ID) {
		return false
	}
	if q.PatientID != "" && r.PatientID != q.PatientID {
		return false
	}
	if q.Library != "" && r.Library != q.Library {
		return false
	}
	if q.Condition != "" && r.Condition != q.Condition {
		return false
	}
	if q.Outcome != "" && r.Outcome() != q.Outcome {
		return false
	}
	if q.StartTime != nil && r.RecordedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.RecordedAt.After(*q.EndTime) {
		return false
	}
	return true
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// Storage persists audit records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record. The record must have an ID.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching the query, ordered by recorded time.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query filters and returns the
	// number removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases resources held by the backend.
	Close() error
}
