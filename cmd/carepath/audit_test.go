package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/carepath/pkg/audit"
)

func sqliteConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	return writeFile(t, dir, "carepath.yaml", `
audit:
  enabled: true
  backend: sqlite
  sqlite:
    path: `+filepath.Join(dir, "audit.db")+`
    driver: sqlite
telemetry:
  logging:
    level: error
`)
}

func queryRecords(t *testing.T, setup func()) []audit.Record {
	t.Helper()

	auditQueryFlags.patient = ""
	auditQueryFlags.module = ""
	auditQueryFlags.condition = ""
	auditQueryFlags.outcome = ""
	auditQueryFlags.since = ""
	auditQueryFlags.until = ""
	auditQueryFlags.limit = audit.DefaultLimit
	auditQueryFlags.offset = 0
	auditQueryFlags.sort = audit.SortDesc
	auditQueryFlags.format = "json"
	if setup != nil {
		setup()
	}

	out, err := runCommand(t, runAuditQuery)
	if err != nil {
		t.Fatalf("runAuditQuery() error = %v\noutput:\n%s", err, out)
	}
	var records []audit.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	return records
}

func TestAudit_EvalQueryPrune(t *testing.T) {
	saveCommandState(t)
	cfgFile = sqliteConfig(t)

	setEvalFlags("", "json")
	out, err := runCommand(t, runEval)
	if err != nil {
		t.Fatalf("runEval() error = %v\noutput:\n%s", err, out)
	}
	var results []EvalResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("eval output is not JSON: %v\n%s", err, out)
	}
	for _, r := range results {
		if r.RecordID == "" {
			t.Errorf("result %s has no audit record ID", r.Condition)
		}
	}

	records := queryRecords(t, nil)
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	for _, r := range records {
		if r.PatientID != "p-3" || r.Library != "diabetes" {
			t.Errorf("record = %+v", r)
		}
		if !r.SimTime.Equal(time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("SimTime = %v", r.SimTime)
		}
	}

	tests := []struct {
		name  string
		setup func()
		want  int
	}{
		{name: "matched", setup: func() { auditQueryFlags.outcome = "matched" }, want: 2},
		{name: "unmatched", setup: func() { auditQueryFlags.outcome = "unmatched" }, want: 2},
		{name: "condition", setup: func() { auditQueryFlags.condition = "diabetic" }, want: 1},
		{name: "other patient", setup: func() { auditQueryFlags.patient = "p-1" }, want: 0},
		{name: "limit", setup: func() { auditQueryFlags.limit = 3 }, want: 3},
		{name: "until past", setup: func() { auditQueryFlags.until = "2000-01-01" }, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(queryRecords(t, tt.setup)); got != tt.want {
				t.Errorf("got %d records, want %d", got, tt.want)
			}
		})
	}

	auditPruneFlags.maxAge = 0
	auditPruneFlags.maxRecords = 1
	out, err = runCommand(t, runAuditPrune)
	if err != nil {
		t.Fatalf("runAuditPrune() error = %v", err)
	}
	if !strings.Contains(out, "Deleted 3 audit records") {
		t.Errorf("prune output = %q", out)
	}
	if got := len(queryRecords(t, nil)); got != 1 {
		t.Errorf("got %d records after pruning, want 1", got)
	}
}

func TestAudit_Errors(t *testing.T) {
	tests := []struct {
		name  string
		run   func(t *testing.T) error
	}{
		{
			name: "query memory backend",
			run: func(t *testing.T) error {
				_, err := runCommand(t, runAuditQuery)
				return err
			},
		},
		{
			name: "prune without limits",
			run: func(t *testing.T) error {
				cfgFile = sqliteConfig(t)
				auditPruneFlags.maxAge = 0
				auditPruneFlags.maxRecords = 0
				_, err := runCommand(t, runAuditPrune)
				return err
			},
		},
		{
			name: "invalid outcome",
			run: func(t *testing.T) error {
				cfgFile = sqliteConfig(t)
				auditQueryFlags.outcome = "maybe"
				_, err := runCommand(t, runAuditQuery)
				return err
			},
		},
		{
			name: "invalid since",
			run: func(t *testing.T) error {
				cfgFile = sqliteConfig(t)
				auditQueryFlags.since = "yesterday"
				_, err := runCommand(t, runAuditQuery)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saveCommandState(t)
			if err := tt.run(t); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestAuditRecords_Rows(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := AuditRecords{
		{RecordedAt: at, PatientID: "p-1", Library: "diabetes", Condition: "diabetic", SimTime: at, Matched: true},
		{RecordedAt: at, PatientID: "p-2", Library: "diabetes", Condition: "diabetic", SimTime: at, ErrorKind: "missing_observation", Error: "no hba1c"},
	}.Rows()

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][2] != "diabetes/diabetic" || rows[0][4] != audit.OutcomeMatched {
		t.Errorf("rows[0] = %v", rows[0])
	}
	if rows[1][4] != audit.OutcomeError || rows[1][5] != "no hba1c" {
		t.Errorf("rows[1] = %v", rows[1])
	}
	if rows[0][0] != "2026-01-02T03:04:05Z" {
		t.Errorf("recorded = %q", rows[0][0])
	}
}
