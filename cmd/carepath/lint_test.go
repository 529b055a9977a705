package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/carepath/pkg/cli"
)

func TestLint(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    bool
		wantOutput []string
	}{
		{
			name:       "valid file",
			args:       []string{"testdata/modules/diabetes.yaml"},
			wantOutput: []string{"✓ testdata/modules/diabetes.yaml (diabetes, 4 conditions)"},
		},
		{
			name:       "valid directory",
			args:       []string{"testdata/modules"},
			wantOutput: []string{"diabetes, 4 conditions"},
		},
		{
			name:       "invalid file",
			args:       []string{"testdata/invalid/broken.yaml"},
			wantErr:    true,
			wantOutput: []string{"✗ testdata/invalid/broken.yaml", "Bogus"},
		},
		{
			name:       "mixed",
			args:       []string{"testdata/modules", "testdata/invalid"},
			wantErr:    true,
			wantOutput: []string{"✓ testdata/modules/diabetes.yaml", "✗ testdata/invalid/broken.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saveCommandState(t)
			lintFlags.format = "text"

			out, err := runCommand(t, lintLibraries, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("lintLibraries() error = %v, wantErr %v\noutput:\n%s", err, tt.wantErr, out)
			}
			if tt.wantErr {
				var cmdErr *cli.CommandError
				if !errors.As(err, &cmdErr) {
					t.Errorf("error type = %T, want *cli.CommandError", err)
				}
			}
			for _, want := range tt.wantOutput {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestLint_JSON(t *testing.T) {
	saveCommandState(t)
	lintFlags.format = "json"

	out, err := runCommand(t, lintLibraries, "testdata/modules", "testdata/invalid")
	if err == nil {
		t.Fatal("expected an error for the invalid library")
	}

	var results []LintResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	byLibrary := map[bool]LintResult{}
	for _, r := range results {
		byLibrary[r.Valid] = r
	}
	if got := byLibrary[true]; got.Library != "diabetes" || got.Conditions != 4 {
		t.Errorf("valid result = %+v", got)
	}
	if got := byLibrary[false]; len(got.Errors) == 0 {
		t.Errorf("invalid result has no errors: %+v", got)
	}
}

func TestLint_Warnings(t *testing.T) {
	saveCommandState(t)
	lintFlags.format = "text"

	path := writeFile(t, t.TempDir(), "constant.yaml", `
name: constant
conditions:
  emptyOr:
    condition_type: Or
    conditions: []
`)

	out, err := runCommand(t, lintLibraries, path)
	if err != nil {
		t.Fatalf("lintLibraries() error = %v, want warnings only\noutput:\n%s", err, out)
	}
	for _, want := range []string{"✓ " + path, "warning [semantic] emptyOr: or: or has no children"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLint_MissingPath(t *testing.T) {
	saveCommandState(t)
	lintFlags.format = "text"

	if _, err := runCommand(t, lintLibraries, "testdata/does-not-exist"); err == nil {
		t.Fatal("expected an error for a missing path")
	}
}

func TestCollectLibraryFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, ".hidden"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "a.yaml", "name: a")
	writeFile(t, dir, "notes.txt", "not a library")
	writeFile(t, dir, ".b.yml", "name: b")
	writeFile(t, filepath.Join(dir, "sub"), "c.json", `{"name": "c"}`)
	writeFile(t, filepath.Join(dir, ".hidden"), "d.yaml", "name: d")

	files, err := collectLibraryFiles([]string{dir})
	if err != nil {
		t.Fatalf("collectLibraryFiles() error = %v", err)
	}

	want := []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "sub", "c.json")}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, files[i], want[i])
		}
	}
}
