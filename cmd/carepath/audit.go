package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/carepath/pkg/audit"
	"mercator-hq/carepath/pkg/audit/retention"
	auditstorage "mercator-hq/carepath/pkg/audit/storage"
	"mercator-hq/carepath/pkg/cli"
	"mercator-hq/carepath/pkg/config"
	"mercator-hq/carepath/pkg/patient"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and prune the evaluation audit trail",
	Long: `Inspect and prune the evaluation audit trail.

The audit trail is only persistent with the sqlite backend; these commands
refuse to run against the in-memory backend.`,
}

var auditQueryFlags struct {
	patient   string
	module    string
	condition string
	outcome   string
	since     string
	until     string
	limit     int
	offset    int
	sort      string
	format    string
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List audit records",
	Long: `List audit records, newest first by default.

Examples:
  # Last failed evaluations
  carepath audit query --outcome error --limit 20

  # Everything recorded for one patient today
  carepath audit query --patient p-1 --since 2026-01-02 --format json`,
	Args: cobra.NoArgs,
	RunE: runAuditQuery,
}

var auditPruneFlags struct {
	maxAge     time.Duration
	maxRecords int64
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audit records past the retention limits",
	Long: `Delete audit records older than --max-age, then the oldest records
above --max-records. Limits default to the configured retention policy.`,
	Args: cobra.NoArgs,
	RunE: runAuditPrune,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditPruneCmd)

	f := auditQueryCmd.Flags()
	f.StringVar(&auditQueryFlags.patient, "patient", "", "filter by patient ID")
	f.StringVarP(&auditQueryFlags.module, "module", "m", "", "filter by library name")
	f.StringVar(&auditQueryFlags.condition, "condition", "", "filter by condition name")
	f.StringVar(&auditQueryFlags.outcome, "outcome", "", "filter by outcome: matched, unmatched, error")
	f.StringVar(&auditQueryFlags.since, "since", "", "records at or after this time (RFC 3339 or YYYY-MM-DD)")
	f.StringVar(&auditQueryFlags.until, "until", "", "records at or before this time (RFC 3339 or YYYY-MM-DD)")
	f.IntVar(&auditQueryFlags.limit, "limit", audit.DefaultLimit, "maximum number of records")
	f.IntVar(&auditQueryFlags.offset, "offset", 0, "number of records to skip")
	f.StringVar(&auditQueryFlags.sort, "sort", audit.SortDesc, "sort order by record time: asc, desc")
	f.StringVar(&auditQueryFlags.format, "format", "table", "output format: table, json, yaml, csv")

	auditPruneCmd.Flags().DurationVar(&auditPruneFlags.maxAge, "max-age", 0, "delete records older than this (default: audit.retention.max_age)")
	auditPruneCmd.Flags().Int64Var(&auditPruneFlags.maxRecords, "max-records", 0, "keep at most this many records (default: audit.retention.max_records)")
}

// AuditRecords prints audit records as a table.
type AuditRecords []*audit.Record

// Header implements cli.Table.
func (r AuditRecords) Header() []string {
	return []string{"RECORDED", "PATIENT", "CONDITION", "SIM TIME", "OUTCOME", "ERROR"}
}

// Rows implements cli.Table.
func (r AuditRecords) Rows() [][]string {
	rows := make([][]string, len(r))
	for i, rec := range r {
		rows[i] = []string{
			rec.RecordedAt.Format(time.RFC3339),
			rec.PatientID,
			rec.Library + "/" + rec.Condition,
			rec.SimTime.Format(time.RFC3339),
			rec.Outcome(),
			rec.Error,
		}
	}
	return rows
}

// openAuditStorage opens the configured persistent audit storage.
func openAuditStorage(cmd string) (audit.Storage, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Audit.Backend != "sqlite" {
		return nil, nil, cli.NewCommandError(cmd,
			fmt.Errorf("audit backend %q is not persistent, configure audit.backend: sqlite", cfg.Audit.Backend))
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := auditstorage.New(cfg.Audit, logger)
	if err != nil {
		return nil, nil, cli.NewCommandError(cmd, err)
	}
	return store, cfg, nil
}

func buildAuditQuery() (*audit.Query, error) {
	q := &audit.Query{
		PatientID: auditQueryFlags.patient,
		Library:   auditQueryFlags.module,
		Condition: auditQueryFlags.condition,
		Outcome:   auditQueryFlags.outcome,
		Limit:     auditQueryFlags.limit,
		Offset:    auditQueryFlags.offset,
		SortOrder: auditQueryFlags.sort,
	}
	if auditQueryFlags.since != "" {
		t, err := patient.ParseTime(auditQueryFlags.since)
		if err != nil {
			return nil, fmt.Errorf("invalid --since: %w", err)
		}
		q.StartTime = &t
	}
	if auditQueryFlags.until != "" {
		t, err := patient.ParseTime(auditQueryFlags.until)
		if err != nil {
			return nil, fmt.Errorf("invalid --until: %w", err)
		}
		q.EndTime = &t
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(auditQueryFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatText {
		format = cli.FormatTable
	}
	q, err := buildAuditQuery()
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	store, _, err := openAuditStorage("audit query")
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Query(commandContext(cmd), q)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), AuditRecords(records))
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	store, cfg, err := openAuditStorage("audit prune")
	if err != nil {
		return err
	}
	defer store.Close()

	policy := retention.FromConfig(cfg.Audit.Retention)
	if auditPruneFlags.maxAge > 0 {
		policy.MaxAge = auditPruneFlags.maxAge
	}
	if auditPruneFlags.maxRecords > 0 {
		policy.MaxRecords = auditPruneFlags.maxRecords
	}
	if policy.MaxAge == 0 && policy.MaxRecords == 0 {
		return cli.NewCommandError("audit prune", fmt.Errorf("no retention limit set, use --max-age or --max-records"))
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	deleted, err := retention.NewPruner(store, policy, logger).Prune(commandContext(cmd))
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d audit records\n", deleted)
	return nil
}
