package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultWriteTimeout bounds a single Store call made by a Recorder.
const DefaultWriteTimeout = 5 * time.Second

// Recorder assigns identity to evaluation records and writes them to a
// Storage backend.
type Recorder struct {
	storage      Storage
	writeTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewRecorder creates a recorder writing to storage.
func NewRecorder(storage Storage, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		storage:      storage,
		writeTimeout: DefaultWriteTimeout,
		logger:       logger.With("component", "audit.recorder"),
		now:          time.Now,
	}
}

// WithWriteTimeout sets the timeout applied to each write. Zero disables it.
func (r *Recorder) WithWriteTimeout(d time.Duration) *Recorder {
	r.writeTimeout = d
	return r
}

// Record stores rec. An empty ID is replaced with a new UUID and a zero
// RecordedAt with the current time.
func (r *Recorder) Record(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("audit record is nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = r.now().UTC()
	}

	if r.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.writeTimeout)
		defer cancel()
	}

	if err := r.storage.Store(ctx, rec); err != nil {
		return err
	}

	r.logger.Debug("audit record stored",
		"record_id", rec.ID,
		"library", rec.Library,
		"condition", rec.Condition,
		"outcome", rec.Outcome(),
	)
	return nil
}
