package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"mercator-hq/carepath/pkg/config"
	"mercator-hq/carepath/pkg/telemetry/metrics"
)

// runCommand calls a command's run function with a fresh command whose
// output is captured.
func runCommand(t *testing.T, run func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetContext(context.Background())

	err := run(cmd, args)
	return buf.String(), err
}

// saveCommandState restores global flag values when the test ends.
func saveCommandState(t *testing.T) {
	t.Helper()

	cfg, verb := cfgFile, verbose
	lint, test, eval := lintFlags, testFlags, evalFlags
	query, prune := auditQueryFlags, auditPruneFlags
	t.Cleanup(func() {
		cfgFile, verbose = cfg, verb
		lintFlags, testFlags, evalFlags = lint, test, eval
		auditQueryFlags, auditPruneFlags = query, prune
	})

	cfgFile = ""
	verbose = false
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCollector(cfg *config.Config) *metrics.Collector {
	return metrics.NewCollector(cfg.Telemetry.Metrics, nil)
}
