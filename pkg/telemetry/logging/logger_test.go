package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/carepath/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  config.LoggingConfig
		wantErr bool
	}{
		{
			name:   "valid JSON config",
			config: config.LoggingConfig{Level: "info", Format: "json", RedactPHI: true},
		},
		{
			name:   "valid text config",
			config: config.LoggingConfig{Level: "debug", Format: "text"},
		},
		{
			name:   "empty values use defaults",
			config: config.LoggingConfig{},
		},
		{
			name:    "invalid log level",
			config:  config.LoggingConfig{Level: "verbose", Format: "json"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  config.LoggingConfig{Level: "info", Format: "console"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestNew_Redaction(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.LoggingConfig{
		Level:      "info",
		Format:     "json",
		RedactPHI:  true,
		RedactKeys: []string{"patient_name", "ssn", "address"},
	}
	logger, err := New(cfg, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("patient loaded",
		"patient_id", "p-17",
		"Patient_Name", "Jane Doe",
		slog.Group("contact", "address", "1 Main St"),
		"note", "ssn on file 123-45-6789",
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}

	if entry["patient_id"] != "p-17" {
		t.Errorf("patient_id = %v, want p-17", entry["patient_id"])
	}
	if entry["Patient_Name"] != Redacted {
		t.Errorf("Patient_Name = %v, want %s", entry["Patient_Name"], Redacted)
	}
	contact, _ := entry["contact"].(map[string]any)
	if contact["address"] != Redacted {
		t.Errorf("contact.address = %v, want %s", contact["address"], Redacted)
	}
	if entry["note"] != "ssn on file ***-**-****" {
		t.Errorf("note = %v, want masked SSN", entry["note"])
	}
}

func TestNew_RedactionDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "text"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("patient loaded", "patient_name", "Jane")
	if !strings.Contains(buf.String(), "patient_name=Jane") {
		t.Errorf("expected unredacted output, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithPatientID(context.Background(), "p-1")
	ctx = WithCondition(ctx, "logic", "ageLt40Test")

	FromContext(ctx, base).Info("evaluated")

	out := buf.String()
	for _, want := range []string{"patient_id=p-1", "library=logic", "condition=ageLt40Test"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestFromContext_Empty(t *testing.T) {
	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if got := FromContext(context.Background(), base); got != base {
		t.Error("FromContext() with no fields should return the logger unchanged")
	}
	if FromContext(context.Background(), nil) == nil {
		t.Error("FromContext(nil logger) returned nil")
	}
}

func TestGetCondition(t *testing.T) {
	lib, cond := GetCondition(context.Background())
	if lib != "" || cond != "" {
		t.Errorf("GetCondition(empty) = %q, %q", lib, cond)
	}
	if GetPatientID(context.Background()) != "" {
		t.Error("GetPatientID(empty) not empty")
	}
}
