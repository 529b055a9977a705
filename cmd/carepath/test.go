package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/carepath/pkg/cli"
	"mercator-hq/carepath/pkg/logic/engine"
	"mercator-hq/carepath/pkg/patient"
	"mercator-hq/carepath/pkg/runner"
)

var testFlags struct {
	library   string
	testsFile string
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run condition test cases",
	Long: `Evaluate library conditions against patient fixtures and compare the
outcomes with the expected ones.

Test Suite Format (YAML):
  library: diabetes          # optional when only one library is loaded
  time: 2015-06-01           # default simulation time for every case
  tests:
    - name: prediabetic adult
      time: 2015-06-01T12:00:00Z
      patient:               # inline fixture, or patient_file: p.yaml
        gender: F
        age: 45
        observations:
          - {type: hba1c, time: 2015-05-01, value: 6.1}
      history: [Initial, Wellness_Encounter]
      expect:
        prediabetic: true
        diabetic: false
        needs_hba1c: error                      # any evaluation error
        needs_mmse: error:missing_observation   # a specific error code

Relative patient_file paths are resolved against the test suite's directory.

Examples:
  carepath test --library modules/diabetes.yaml --tests tests/diabetes.yaml
  carepath test --tests tests/diabetes.yaml -v`,
	RunE: runTests,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringVarP(&testFlags.library, "library", "l", "", "library file or directory (default: configured library path)")
	testCmd.Flags().StringVarP(&testFlags.testsFile, "tests", "t", "", "test suite file")

	// Mark required flags - panic if this fails as it's a programming error
	if err := testCmd.MarkFlagRequired("tests"); err != nil {
		panic(fmt.Sprintf("failed to mark tests flag as required: %v", err))
	}
}

// TestSuite is a collection of test cases for one library.
type TestSuite struct {
	Library string     `yaml:"library"`
	Time    string     `yaml:"time"`
	Tests   []TestCase `yaml:"tests"`
}

// TestCase evaluates conditions for one patient at one instant.
type TestCase struct {
	Name        string            `yaml:"name"`
	Time        string            `yaml:"time"`
	Patient     *patient.Fixture  `yaml:"patient"`
	PatientFile string            `yaml:"patient_file"`
	History     []string          `yaml:"history"`
	Expect      map[string]string `yaml:"expect"`
}

// Expectation is a parsed expected outcome.
type Expectation struct {
	Matched bool
	Error   bool
	Code    string // Required error code; empty accepts any error
}

// ParseExpectation parses "true", "false", "error" or "error:<code>".
func ParseExpectation(s string) (Expectation, error) {
	switch v := strings.TrimSpace(strings.ToLower(s)); {
	case v == "true":
		return Expectation{Matched: true}, nil
	case v == "false":
		return Expectation{}, nil
	case v == "error":
		return Expectation{Error: true}, nil
	case strings.HasPrefix(v, "error:"):
		return Expectation{Error: true, Code: strings.TrimPrefix(v, "error:")}, nil
	default:
		return Expectation{}, fmt.Errorf("invalid expectation %q (must be true, false, error or error:<code>)", s)
	}
}

// Check compares a result with the expectation and describes a mismatch.
func (e Expectation) Check(res runner.Result) (bool, string) {
	switch {
	case e.Error && res.Err == nil:
		return false, fmt.Sprintf("got %v, want an error", res.Matched)
	case e.Error && e.Code != "" && engine.ErrorCode(res.Err) != e.Code:
		return false, fmt.Sprintf("got error %s (%v), want error %s", engine.ErrorCode(res.Err), res.Err, e.Code)
	case e.Error:
		return true, ""
	case res.Err != nil:
		return false, fmt.Sprintf("got error %v, want %v", res.Err, e.Matched)
	case res.Matched != e.Matched:
		return false, fmt.Sprintf("got %v, want %v", res.Matched, e.Matched)
	default:
		return true, ""
	}
}

// LoadTestSuite reads a test suite file.
func LoadTestSuite(path string) (*TestSuite, error) {
	// #nosec G304 - test suite paths are supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read test suite: %w", err)
	}

	var suite TestSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse test suite: %w", err)
	}
	if len(suite.Tests) == 0 {
		return nil, fmt.Errorf("no test cases found in %s", path)
	}
	return &suite, nil
}

func runTests(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	suite, err := LoadTestSuite(testFlags.testsFile)
	if err != nil {
		return &cli.InvalidInputError{Path: testFlags.testsFile, Err: err}
	}

	ctx := commandContext(cmd)

	_, registry, err := loadRegistry(ctx, cfg, testFlags.library, logger)
	if err != nil {
		return err
	}
	library, err := resolveLibrary(registry, suite.Library)
	if err != nil {
		return cli.NewCommandError("test", err)
	}

	evaluator, err := engine.NewEvaluator(&cfg.Engine, logger)
	if err != nil {
		return cli.NewCommandError("test", err)
	}
	r := runner.New(registry, evaluator, logger)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running %d test cases against library %s...\n\n", len(suite.Tests), library)

	reporter := cli.NewReporter(out, verbose)
	baseDir := filepath.Dir(testFlags.testsFile)
	for i, tc := range suite.Tests {
		name := tc.Name
		if name == "" {
			name = fmt.Sprintf("case %d", i+1)
		}
		if err := runTestCase(ctx, r, reporter, library, suite.Time, baseDir, name, tc); err != nil {
			reporter.Fail(name, err.Error())
		}
	}

	return reporter.Finish()
}

// runTestCase evaluates each expectation of tc. An error means the case
// could not be set up.
func runTestCase(ctx context.Context, r *runner.Runner, reporter *cli.Reporter, library, defaultTime, baseDir, name string, tc TestCase) error {
	simTime, err := caseTime(tc.Time, defaultTime)
	if err != nil {
		return err
	}

	fixture, err := caseFixture(tc, baseDir)
	if err != nil {
		return err
	}
	person, history, err := fixture.Build(simTime)
	if err != nil {
		return fmt.Errorf("patient: %w", err)
	}
	for _, state := range tc.History {
		history.Append(state)
	}
	if len(tc.Expect) == 0 {
		return errors.New("no expectations")
	}

	for _, condition := range sortedKeys(tc.Expect) {
		caseName := name + " / " + condition
		expect, err := ParseExpectation(tc.Expect[condition])
		if err != nil {
			reporter.Fail(caseName, err.Error())
			continue
		}

		res := r.Evaluate(ctx, runner.Request{
			Library:   library,
			Condition: condition,
			PatientID: person.ID,
			Time:      simTime,
			History:   history,
			Patient:   person,
		})
		if ok, reason := expect.Check(res); ok {
			reporter.Pass(caseName)
		} else {
			reporter.Fail(caseName, reason)
		}
	}
	return nil
}

func caseTime(s, def string) (time.Time, error) {
	if s == "" {
		s = def
	}
	if s == "" {
		return time.Time{}, errors.New("no time given for the case or the suite")
	}
	t, err := patient.ParseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("time: %w", err)
	}
	return t, nil
}

func caseFixture(tc TestCase, baseDir string) (*patient.Fixture, error) {
	switch {
	case tc.Patient != nil && tc.PatientFile != "":
		return nil, errors.New("set either patient or patient_file, not both")
	case tc.Patient != nil:
		return tc.Patient, nil
	case tc.PatientFile != "":
		path := tc.PatientFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		return patient.LoadFixture(path)
	default:
		return nil, errors.New("no patient given")
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
