package retention

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/carepath/pkg/audit"
	"mercator-hq/carepath/pkg/config"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// MaxAge is how long records are kept. Zero keeps records forever.
	MaxAge time.Duration

	// MaxRecords is the maximum number of records to keep.
	// Zero means unlimited.
	MaxRecords int64

	// Schedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	Schedule string
}

// FromConfig converts the application retention settings.
func FromConfig(cfg config.RetentionConfig) *Config {
	return &Config{
		MaxAge:     cfg.MaxAge,
		MaxRecords: cfg.MaxRecords,
		Schedule:   cfg.Schedule,
	}
}

// Pruner enforces retention policies on audit records.
type Pruner struct {
	storage audit.Storage
	config  *Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage audit.Storage, config *Config, logger *slog.Logger) *Pruner {
	if config == nil {
		config = &Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "audit.retention"),
		now:     time.Now,
	}
}

// Prune deletes records older than MaxAge, then the oldest records above
// MaxRecords. It returns the total number of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	start := time.Now()

	byAge, err := p.pruneByAge(ctx)
	if err != nil {
		return byAge, &audit.RetentionError{Operation: "age", Cause: err}
	}

	byCount, err := p.pruneByCount(ctx)
	total := byAge + byCount
	if err != nil {
		return total, &audit.RetentionError{Operation: "count", Cause: err}
	}

	p.logger.Info("audit pruning completed",
		"deleted_by_age", byAge,
		"deleted_by_count", byCount,
		"duration", time.Since(start),
	)
	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	if p.config.MaxAge <= 0 {
		return 0, nil
	}

	cutoff := p.now().Add(-p.config.MaxAge)
	deleted, err := p.storage.Delete(ctx, &audit.Query{EndTime: &cutoff})
	if err != nil {
		return 0, err
	}

	p.logger.Debug("pruned records by age", "cutoff", cutoff, "deleted", deleted)
	return deleted, nil
}

// pruneByCount deletes the oldest records in batches until at most
// MaxRecords remain.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	if p.config.MaxRecords <= 0 {
		return 0, nil
	}

	var deleted int64
	for {
		total, err := p.storage.Count(ctx, &audit.Query{})
		if err != nil {
			return deleted, err
		}
		excess := total - p.config.MaxRecords
		if excess <= 0 {
			return deleted, nil
		}
		if excess > audit.MaxLimit {
			excess = audit.MaxLimit
		}

		oldest, err := p.storage.Query(ctx, &audit.Query{
			Limit:     int(excess),
			SortOrder: audit.SortAsc,
		})
		if err != nil {
			return deleted, err
		}
		if len(oldest) == 0 {
			return deleted, nil
		}

		ids := make([]string, len(oldest))
		for i, r := range oldest {
			ids[i] = r.ID
		}
		n, err := p.storage.Delete(ctx, &audit.Query{IDs: ids})
		deleted += n
		if err != nil {
			return deleted, err
		}
		p.logger.Debug("pruned records by count", "max_records", p.config.MaxRecords, "deleted", n)
		if n == 0 {
			return deleted, nil
		}
	}
}
