package config

import (
	"os"
	"path/filepath"
	"time"

	"mercator-hq/carepath/pkg/logic/engine"
	"mercator-hq/carepath/pkg/logic/parser"
)

// Default values for configuration fields.
const (
	// Library defaults
	DefaultLibraryPath        = "./modules"
	DefaultLibraryWatch       = false
	DefaultLibraryDebounce    = 100 * time.Millisecond
	DefaultLibraryMaxDepth    = parser.DefaultMaxDepth
	DefaultLibraryMaxFileSize = int64(parser.DefaultMaxFileSize)
	DefaultGitBranch          = "main"
	DefaultGitAuthType        = "none"
	DefaultGitPollEnabled     = true
	DefaultGitPollInterval    = 30 * time.Second
	DefaultGitTimeout         = 10 * time.Second

	// Audit defaults
	DefaultAuditEnabled           = false
	DefaultAuditBackend           = "memory"
	DefaultAuditSQLitePath        = "data/audit.db"
	DefaultAuditSQLiteDriver      = "sqlite"
	DefaultAuditSQLiteMaxOpen     = 10
	DefaultAuditSQLiteWALMode     = true
	DefaultAuditSQLiteBusyTimeout = 5 * time.Second
	DefaultAuditRetentionSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultLogRedactPHI     = true
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "carepath"
	DefaultMetricsSubsystem = "engine"
	DefaultTracingEnabled   = false
	DefaultTracingSampler   = "ratio"
	DefaultTracingRatio     = 0.1
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingService   = "carepath"
	DefaultTracingInsecure  = true
	DefaultTracingTimeout   = 10 * time.Second
	DefaultHealthEnabled    = true
	DefaultHealthTimeout    = 2 * time.Second
)

// DefaultGitLocalPath returns the default clone location for Git libraries.
func DefaultGitLocalPath() string {
	return filepath.Join(os.TempDir(), "carepath-libraries")
}

// DefaultRedactKeys are the log attribute keys masked by default.
var DefaultRedactKeys = []string{"patient_name", "ssn", "address"}

// DefaultDurationBuckets are the default evaluation duration histogram buckets.
var DefaultDurationBuckets = []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1}

// NewDefaultConfig returns a configuration with every default applied,
// including boolean defaults that ApplyDefaults cannot infer from zero values.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Engine: *engine.DefaultConfig(),
		Library: LibraryConfig{
			Watch: DefaultLibraryWatch,
			Git: GitLibraryConfig{
				Poll: GitPollConfig{
					Enabled: DefaultGitPollEnabled,
				},
			},
		},
		Audit: AuditConfig{
			Enabled: DefaultAuditEnabled,
			SQLite: SQLiteConfig{
				WALMode: DefaultAuditSQLiteWALMode,
			},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				RedactPHI: DefaultLogRedactPHI,
			},
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
			Tracing: TracingConfig{
				Enabled:     DefaultTracingEnabled,
				SampleRatio: DefaultTracingRatio,
				Insecure:    DefaultTracingInsecure,
			},
			Health: HealthConfig{
				Enabled: DefaultHealthEnabled,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Fields that
// were set explicitly are left untouched.
func ApplyDefaults(cfg *Config) {
	// Engine defaults: an entirely unset SES model takes the default model.
	if cfg.Engine.SES == (engine.SESConfig{}) {
		cfg.Engine.SES = engine.DefaultConfig().SES
	}

	// Library defaults
	if cfg.Library.Path == "" {
		cfg.Library.Path = DefaultLibraryPath
	}
	if cfg.Library.Debounce == 0 {
		cfg.Library.Debounce = DefaultLibraryDebounce
	}
	if cfg.Library.MaxDepth == 0 {
		cfg.Library.MaxDepth = DefaultLibraryMaxDepth
	}
	if cfg.Library.MaxFileSize == 0 {
		cfg.Library.MaxFileSize = DefaultLibraryMaxFileSize
	}
	if cfg.Library.Git.Branch == "" {
		cfg.Library.Git.Branch = DefaultGitBranch
	}
	if cfg.Library.Git.Auth.Type == "" {
		cfg.Library.Git.Auth.Type = DefaultGitAuthType
	}
	if cfg.Library.Git.Poll.Interval == 0 {
		cfg.Library.Git.Poll.Interval = DefaultGitPollInterval
	}
	if cfg.Library.Git.Poll.Timeout == 0 {
		cfg.Library.Git.Poll.Timeout = DefaultGitTimeout
	}
	if cfg.Library.Git.Clone.LocalPath == "" {
		cfg.Library.Git.Clone.LocalPath = DefaultGitLocalPath()
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.Driver == "" {
		cfg.Audit.SQLite.Driver = DefaultAuditSQLiteDriver
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultAuditSQLiteMaxOpen
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}
	if cfg.Audit.Retention.Schedule == "" {
		cfg.Audit.Retention.Schedule = DefaultAuditRetentionSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Logging.RedactKeys == nil {
		cfg.Telemetry.Logging.RedactKeys = append([]string(nil), DefaultRedactKeys...)
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Metrics.DurationBuckets == nil {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthTimeout
	}
}
