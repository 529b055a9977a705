package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/carepath/pkg/audit"
	auditstorage "mercator-hq/carepath/pkg/audit/storage"
	"mercator-hq/carepath/pkg/audit/retention"
	"mercator-hq/carepath/pkg/cli"
	"mercator-hq/carepath/pkg/config"
	"mercator-hq/carepath/pkg/logic/engine"
	"mercator-hq/carepath/pkg/logic/source"
	"mercator-hq/carepath/pkg/logic/source/git"
	"mercator-hq/carepath/pkg/patient"
	"mercator-hq/carepath/pkg/runner"
	"mercator-hq/carepath/pkg/telemetry/health"
	"mercator-hq/carepath/pkg/telemetry/metrics"
	"mercator-hq/carepath/pkg/telemetry/tracing"
)

var evalFlags struct {
	library     string
	module      string
	condition   string
	patientFile string
	time        string
	history     []string
	metricsAddr string
	format      string
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate conditions for a patient",
	Long: `Evaluate one condition, or every condition of a library, for a patient
fixture at a simulation time.

Evaluations are recorded in the audit trail when audit is enabled in the
configuration and counted in Prometheus metrics.

With --metrics-addr the command keeps running after printing the results
and serves /metrics, /health and /ready until interrupted. While serving,
libraries are reloaded on change when library.watch is set, and the audit
trail is pruned on the configured retention schedule.

Examples:
  # Evaluate one condition
  carepath eval --library modules/ --module diabetes --condition prediabetic \
      --patient patient.yaml --time 2015-06-01

  # Evaluate every condition of the only library in a file
  carepath eval --library modules/diabetes.yaml --patient patient.yaml

  # Serve metrics after evaluating
  carepath eval --library modules/ --module diabetes --patient patient.yaml \
      --metrics-addr :9090`,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalFlags.library, "library", "l", "", "library file or directory (default: configured library path)")
	evalCmd.Flags().StringVarP(&evalFlags.module, "module", "m", "", "library name (default: the only loaded library)")
	evalCmd.Flags().StringVar(&evalFlags.condition, "condition", "", "condition name (default: every condition)")
	evalCmd.Flags().StringVarP(&evalFlags.patientFile, "patient", "p", "", "patient fixture file")
	evalCmd.Flags().StringVar(&evalFlags.time, "time", "", "simulation time, RFC 3339 or YYYY-MM-DD (default: now)")
	evalCmd.Flags().StringSliceVar(&evalFlags.history, "history", nil, "states appended to the patient's history")
	evalCmd.Flags().StringVar(&evalFlags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address after evaluating (default: telemetry.metrics.address)")
	evalCmd.Flags().StringVar(&evalFlags.format, "format", "table", "output format: table, json, yaml, csv")

	// Mark required flags - panic if this fails as it's a programming error
	if err := evalCmd.MarkFlagRequired("patient"); err != nil {
		panic(fmt.Sprintf("failed to mark patient flag as required: %v", err))
	}
}

// EvalResult is the printable outcome of one evaluation.
type EvalResult struct {
	Library   string  `json:"library" yaml:"library"`
	Condition string  `json:"condition" yaml:"condition"`
	Kind      string  `json:"kind" yaml:"kind"`
	Outcome   string  `json:"outcome" yaml:"outcome"`
	ErrorCode string  `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	Error     string  `json:"error,omitempty" yaml:"error,omitempty"`
	Micros    float64 `json:"duration_us" yaml:"duration_us"`
	RecordID  string  `json:"record_id,omitempty" yaml:"record_id,omitempty"`
}

// EvalResults prints as a table.
type EvalResults []EvalResult

// Header implements cli.Table.
func (r EvalResults) Header() []string {
	return []string{"CONDITION", "KIND", "OUTCOME", "DURATION", "ERROR"}
}

// Rows implements cli.Table.
func (r EvalResults) Rows() [][]string {
	rows := make([][]string, len(r))
	for i, res := range r {
		rows[i] = []string{
			res.Library + "/" + res.Condition,
			res.Kind,
			res.Outcome,
			fmt.Sprintf("%.1fµs", res.Micros),
			res.Error,
		}
	}
	return rows
}

func newEvalResult(res runner.Result) EvalResult {
	out := EvalResult{
		Library:   res.Library,
		Condition: res.Condition,
		Kind:      string(res.Kind),
		Outcome:   string(metrics.OutcomeOf(res.Matched, res.Err)),
		ErrorCode: engine.ErrorCode(res.Err),
		Micros:    float64(res.Duration.Nanoseconds()) / 1e3,
		RecordID:  res.RecordID,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

func runEval(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(evalFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	ctx, stop := cli.SignalContext(ctx)
	defer stop()

	simTime := time.Now().UTC()
	if evalFlags.time != "" {
		if simTime, err = patient.ParseTime(evalFlags.time); err != nil {
			return err
		}
	}

	fixture, err := patient.LoadFixture(evalFlags.patientFile)
	if err != nil {
		return &cli.InvalidInputError{Path: evalFlags.patientFile, Err: err}
	}
	person, history, err := fixture.Build(simTime)
	if err != nil {
		return &cli.InvalidInputError{Path: evalFlags.patientFile, Err: err}
	}
	for _, state := range evalFlags.history {
		history.Append(strings.TrimSpace(state))
	}

	libs, err := loadLibraries(ctx, cfg, evalFlags.library, logger)
	if err != nil {
		return err
	}
	registry := libs.registry
	library, err := resolveLibrary(registry, evalFlags.module)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}

	evaluator, err := engine.NewEvaluator(&cfg.Engine, logger)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}

	metricsCfg := cfg.Telemetry.Metrics
	metricsAddr := evalFlags.metricsAddr
	if metricsAddr == "" {
		metricsAddr = metricsCfg.Address
	}
	if metricsAddr != "" {
		metricsCfg.Enabled = true
	}
	collector := metrics.NewCollector(metricsCfg, nil)
	collector.RecordReload(nil, registry.Count(), conditionCount(registry))

	r := runner.New(registry, evaluator, logger).WithMetrics(collector)

	tracer, err := tracing.New(ctx, cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}
	if tracer.Enabled() {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to flush traces", "error", err)
			}
		}()
		r.WithTracer(tracer)
	}

	var store audit.Storage
	if cfg.Audit.Enabled {
		store, err = auditstorage.New(cfg.Audit, logger)
		if err != nil {
			return cli.NewCommandError("eval", fmt.Errorf("failed to open audit storage: %w", err))
		}
		defer store.Close()
		r.WithRecorder(audit.NewRecorder(store, logger))
	}

	req := runner.Request{
		Library:   library,
		Condition: evalFlags.condition,
		PatientID: person.ID,
		Time:      simTime,
		History:   history,
		Patient:   person,
	}

	var results []runner.Result
	if evalFlags.condition != "" {
		results = []runner.Result{r.Evaluate(ctx, req)}
	} else if results, err = r.EvaluateLibrary(ctx, req); err != nil {
		return cli.NewCommandError("eval", err)
	}

	printable := make(EvalResults, len(results))
	for i, res := range results {
		printable[i] = newEvalResult(res)
	}
	if format == cli.FormatText {
		format = cli.FormatTable
	}
	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), printable); err != nil {
		return err
	}

	if metricsAddr != "" {
		return serve(ctx, cfg, metricsAddr, libs, collector, store, logger)
	}

	if len(results) == 1 {
		var regErr *source.RegistryError
		if errors.As(results[0].Err, &regErr) {
			return cli.NewCommandError("eval", results[0].Err)
		}
	}
	return nil
}

func conditionCount(registry *source.Registry) int {
	n := 0
	for _, name := range registry.Names() {
		if lib, ok := registry.Get(name); ok {
			n += lib.Len()
		}
	}
	return n
}

// serve exposes metrics and health endpoints until ctx is cancelled,
// reloading libraries and pruning the audit trail in the background when
// configured.
func serve(ctx context.Context, cfg *config.Config, addr string, libs *librarySet,
	collector *metrics.Collector, store audit.Storage, logger *slog.Logger) error {

	registry := libs.registry
	recordReload := func(err error) {
		collector.RecordReload(err, registry.Count(), conditionCount(registry))
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           newServeMux(cfg, registry, collector, store),
		ReadHeaderTimeout: 5 * time.Second,
	}

	switch {
	case libs.repo != nil && cfg.Library.Git.Poll.Enabled:
		poller, err := git.NewPoller(libs.repo, cfg.Library.Git.Poll.Interval, func(ctx context.Context) error {
			_, err := libs.src.LoadInto(ctx, registry)
			return err
		}, logger)
		if err != nil {
			return cli.NewCommandError("eval", err)
		}
		poller.OnReload(recordReload)
		go func() {
			if err := poller.Run(ctx); err != nil {
				logger.Error("library repository poller stopped", "error", err)
			}
		}()
	case libs.repo == nil && cfg.Library.Watch:
		watcherCfg := source.DefaultWatcherConfig()
		watcherCfg.DebounceInterval = cfg.Library.Debounce
		watcher, err := source.NewWatcher(watcherCfg, libs.src, registry, logger)
		if err != nil {
			return cli.NewCommandError("eval", err)
		}
		watcher.OnReload(recordReload)
		go func() {
			if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("library watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	if store != nil {
		pruner := retention.NewPruner(store, retention.FromConfig(cfg.Audit.Retention), logger)
		scheduler := retention.NewScheduler(pruner, logger)
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewCommandError("eval", err)
		}
		defer scheduler.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "address", addr, "path", cfg.Telemetry.Metrics.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return cli.NewCommandError("eval", fmt.Errorf("metrics server failed: %w", err))
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newServeMux routes the metrics endpoint and, when enabled, the health
// endpoints.
func newServeMux(cfg *config.Config, registry *source.Registry, collector *metrics.Collector, store audit.Storage) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
	if cfg.Telemetry.Health.Enabled {
		checker := health.New(cfg.Telemetry.Health.CheckTimeout)
		checker.RegisterCheck("libraries", health.LibraryCheck(registry))
		if store != nil {
			checker.RegisterCheck("audit", health.StorageCheck(store))
		}
		health.Register(mux, checker, Version, GitCommit, BuildDate)
	}
	return mux
}
