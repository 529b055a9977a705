package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Reporter prints test case results and a summary.
type Reporter struct {
	mu      sync.Mutex
	writer  io.Writer
	verbose bool
	passed  int
	failed  int
}

// NewReporter creates a reporter writing to w. If w is nil, it defaults to
// os.Stdout. Passing cases are only printed when verbose is set.
func NewReporter(w io.Writer, verbose bool) *Reporter {
	if w == nil {
		w = os.Stdout
	}
	return &Reporter{writer: w, verbose: verbose}
}

// Pass records a passing case.
func (r *Reporter) Pass(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.passed++
	if r.verbose {
		fmt.Fprintf(r.writer, "✓ %s\n", name)
	}
}

// Fail records a failing case.
func (r *Reporter) Fail(name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failed++
	fmt.Fprintf(r.writer, "✗ %s: %s\n", name, reason)
}

// Counts returns the number of passing and failing cases so far.
func (r *Reporter) Counts() (passed, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.passed, r.failed
}

// Finish prints the summary. It returns a *TestFailureError if any case
// failed.
func (r *Reporter) Finish() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := r.passed + r.failed
	fmt.Fprintf(r.writer, "\n%d passed, %d failed, %d total\n", r.passed, r.failed, total)
	if r.failed > 0 {
		return &TestFailureError{Failed: r.failed, Total: total}
	}
	return nil
}
