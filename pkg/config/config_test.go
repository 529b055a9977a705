package config

import (
	"testing"
	"time"

	"mercator-hq/carepath/pkg/logic/engine"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Engine != *engine.DefaultConfig() {
		t.Errorf("Engine = %+v, want engine defaults", cfg.Engine)
	}
	if cfg.Library.Path != DefaultLibraryPath {
		t.Errorf("Library.Path = %q, want %q", cfg.Library.Path, DefaultLibraryPath)
	}
	if cfg.Library.Debounce != 100*time.Millisecond {
		t.Errorf("Library.Debounce = %v, want 100ms", cfg.Library.Debounce)
	}
	if cfg.Library.Git.Enabled || !cfg.Library.Git.Poll.Enabled {
		t.Errorf("Library.Git = %+v, want disabled with polling on", cfg.Library.Git)
	}
	if cfg.Library.Git.Branch != "main" || cfg.Library.Git.Auth.Type != "none" {
		t.Errorf("Library.Git branch/auth = %q/%q, want main/none", cfg.Library.Git.Branch, cfg.Library.Git.Auth.Type)
	}
	if cfg.Library.Git.Clone.LocalPath != DefaultGitLocalPath() {
		t.Errorf("Library.Git.Clone.LocalPath = %q, want %q", cfg.Library.Git.Clone.LocalPath, DefaultGitLocalPath())
	}
	if cfg.Audit.Enabled {
		t.Error("Audit.Enabled = true, want false")
	}
	if cfg.Audit.Backend != "memory" {
		t.Errorf("Audit.Backend = %q, want memory", cfg.Audit.Backend)
	}
	if !cfg.Audit.SQLite.WALMode {
		t.Error("Audit.SQLite.WALMode = false, want true")
	}
	if !cfg.Telemetry.Logging.RedactPHI {
		t.Error("Telemetry.Logging.RedactPHI = false, want true")
	}
	if len(cfg.Telemetry.Logging.RedactKeys) != 3 {
		t.Errorf("RedactKeys = %v, want 3 defaults", cfg.Telemetry.Logging.RedactKeys)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Telemetry.Metrics.Enabled = false, want true")
	}
	if cfg.Telemetry.Tracing.Enabled {
		t.Error("Telemetry.Tracing.Enabled = true, want false")
	}
	if cfg.Telemetry.Tracing.Sampler != "ratio" || cfg.Telemetry.Tracing.SampleRatio != 0.1 {
		t.Errorf("Tracing sampler = %q/%v, want ratio/0.1", cfg.Telemetry.Tracing.Sampler, cfg.Telemetry.Tracing.SampleRatio)
	}
	if !cfg.Telemetry.Health.Enabled || cfg.Telemetry.Health.CheckTimeout != 2*time.Second {
		t.Errorf("Health = %+v, want enabled with 2s timeout", cfg.Telemetry.Health)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Validate(defaults) error = %v", err)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Library: LibraryConfig{Path: "/srv/modules", MaxDepth: 8},
		Audit:   AuditConfig{Backend: "sqlite", SQLite: SQLiteConfig{Driver: "sqlite3"}},
	}
	ApplyDefaults(cfg)

	if cfg.Library.Path != "/srv/modules" {
		t.Errorf("Library.Path = %q, want /srv/modules", cfg.Library.Path)
	}
	if cfg.Library.MaxDepth != 8 {
		t.Errorf("Library.MaxDepth = %d, want 8", cfg.Library.MaxDepth)
	}
	if cfg.Audit.SQLite.Driver != "sqlite3" {
		t.Errorf("Audit.SQLite.Driver = %q, want sqlite3", cfg.Audit.SQLite.Driver)
	}
	if cfg.Audit.SQLite.Path != DefaultAuditSQLitePath {
		t.Errorf("Audit.SQLite.Path = %q, want default", cfg.Audit.SQLite.Path)
	}
	if cfg.Engine.SES != engine.DefaultConfig().SES {
		t.Errorf("Engine.SES = %+v, want defaults", cfg.Engine.SES)
	}
}

func TestDefaultSlicesAreCopied(t *testing.T) {
	a := NewDefaultConfig()
	a.Telemetry.Logging.RedactKeys[0] = "changed"
	a.Telemetry.Metrics.DurationBuckets[0] = 42

	b := NewDefaultConfig()
	if b.Telemetry.Logging.RedactKeys[0] != "patient_name" {
		t.Errorf("RedactKeys shared between configs: %v", b.Telemetry.Logging.RedactKeys)
	}
	if b.Telemetry.Metrics.DurationBuckets[0] == 42 {
		t.Error("DurationBuckets shared between configs")
	}
}
