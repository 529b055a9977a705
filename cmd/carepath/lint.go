package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/carepath/pkg/cli"
	"mercator-hq/carepath/pkg/config"
	lerrors "mercator-hq/carepath/pkg/logic/errors"
	"mercator-hq/carepath/pkg/logic/parser"
	"mercator-hq/carepath/pkg/logic/source"
	"mercator-hq/carepath/pkg/logic/validator"
)

var lintFlags struct {
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint [files or directories...]",
	Short: "Validate condition library files",
	Long: `Validate condition library files for syntax, structural and semantic errors.

Each file is parsed and every condition is checked:
  - JSON or YAML syntax
  - Known condition types and required fields
  - Operators valid for each condition type
  - Thresholds and nesting depth

Directories are searched recursively for .json, .yaml and .yml files.
Without arguments the configured library path is linted.

Examples:
  # Lint a single file
  carepath lint modules/diabetes.yaml

  # Lint a directory
  carepath lint modules/

  # JSON output for CI
  carepath lint modules/ --format json`,
	RunE: lintLibraries,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json, yaml")
}

// LintResult is the validation result for a single library file.
type LintResult struct {
	File       string      `json:"file" yaml:"file"`
	Library    string      `json:"library,omitempty" yaml:"library,omitempty"`
	Conditions int         `json:"conditions" yaml:"conditions"`
	Valid      bool        `json:"valid" yaml:"valid"`
	Errors     []LintIssue `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings   []LintIssue `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// LintIssue is a single problem found in a library file.
type LintIssue struct {
	Line       int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column     int    `json:"column,omitempty" yaml:"column,omitempty"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

func lintLibraries(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(lintFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		args = []string{cfg.Library.Path}
	}
	files, err := collectLibraryFiles(args)
	if err != nil {
		return cli.NewCommandError("lint", err)
	}
	if len(files) == 0 {
		return cli.NewCommandError("lint", fmt.Errorf("no library files found"))
	}

	results := make([]LintResult, 0, len(files))
	invalid := 0
	for _, file := range files {
		result := lintFile(cfg, file)
		if !result.Valid {
			invalid++
		}
		results = append(results, result)
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatText {
		printLintText(out, results)
	} else if err := cli.NewFormatter(format).FormatTo(out, results); err != nil {
		return err
	}

	if invalid > 0 {
		return cli.NewCommandError("lint", fmt.Errorf("%d of %d files invalid", invalid, len(files)))
	}
	return nil
}

// collectLibraryFiles expands directories into the library files below them.
func collectLibraryFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access %q: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p != path && d.Name()[0] == '.' {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && source.IsLibraryFile(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", path, err)
		}
	}
	return files, nil
}

func lintFile(cfg *config.Config, path string) LintResult {
	result := LintResult{File: path, Valid: true}

	p := parser.NewParser().
		WithMaxDepth(cfg.Library.MaxDepth).
		WithMaxFileSize(cfg.Library.MaxFileSize)
	lib, err := p.Parse(path)
	if err == nil {
		result.Library = lib.Name
		result.Conditions = lib.Len()
		v := validator.NewValidator(cfg.Library.MaxDepth)
		err = v.Validate(lib)
		for _, w := range v.Warnings(lib) {
			result.Warnings = append(result.Warnings, lintIssue(w))
		}
	}
	if err != nil {
		result.Valid = false
		result.Errors = lintIssues(err)
	}
	return result
}

func lintIssues(err error) []LintIssue {
	var list *lerrors.ErrorList
	if errors.As(err, &list) {
		issues := make([]LintIssue, 0, len(list.Errors))
		for _, e := range list.Errors {
			issues = append(issues, lintIssue(e))
		}
		return issues
	}

	var single *lerrors.Error
	if errors.As(err, &single) {
		return []LintIssue{lintIssue(single)}
	}
	return []LintIssue{{Message: err.Error()}}
}

func lintIssue(e *lerrors.Error) LintIssue {
	return LintIssue{
		Line:       e.Location.Line,
		Column:     e.Location.Column,
		Type:       string(e.Type),
		Message:    e.Message,
		Suggestion: e.Suggestion,
	}
}

func printLintText(w io.Writer, results []LintResult) {
	for _, r := range results {
		if r.Valid {
			fmt.Fprintf(w, "✓ %s (%s, %d conditions)\n", r.File, r.Library, r.Conditions)
		} else {
			fmt.Fprintf(w, "✗ %s\n", r.File)
			printLintIssues(w, "", r.Errors)
		}
		printLintIssues(w, "warning ", r.Warnings)
	}
}

func printLintIssues(w io.Writer, label string, issues []LintIssue) {
	for _, issue := range issues {
		pos := ""
		if issue.Line > 0 {
			pos = strconv.Itoa(issue.Line) + ":" + strconv.Itoa(issue.Column) + ": "
		}
		fmt.Fprintf(w, "  %s%s[%s] %s\n", pos, label, issue.Type, issue.Message)
		if issue.Suggestion != "" {
			fmt.Fprintf(w, "    suggestion: %s\n", issue.Suggestion)
		}
	}
}
