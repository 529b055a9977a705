package errors

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"mercator-hq/carepath/pkg/logic/ast"
)

// DefaultContextLines is the number of lines shown on each side of an error.
const DefaultContextLines = 2

// ExtractContext returns the lines of location's file around location,
// numbered, with the error line marked and a caret under the column.
// It returns "" when the file cannot be read.
func ExtractContext(location ast.Location, contextLines int) string {
	if !location.IsValid() {
		return ""
	}

	// #nosec G304 - the location comes from a library file we already loaded
	file, err := os.Open(location.File)
	if err != nil {
		return ""
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if scanner.Err() != nil {
		return ""
	}

	return formatContext(lines, location, contextLines)
}

func formatContext(lines []string, location ast.Location, contextLines int) string {
	target := location.Line - 1
	if target < 0 || target >= len(lines) {
		return ""
	}

	first := max(target-contextLines, 0)
	last := min(target+contextLines, len(lines)-1)
	width := len(fmt.Sprint(last + 1))

	var sb strings.Builder
	for i := first; i <= last; i++ {
		marker := "  "
		if i == target {
			marker = "->"
		}
		fmt.Fprintf(&sb, "%s %*d | %s\n", marker, width, i+1, lines[i])

		if i == target && location.Column > 0 {
			fmt.Fprintf(&sb, "   %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", location.Column-1))
		}
	}
	return sb.String()
}

// AddContextToError fills err.Context from its source file.
func AddContextToError(err *Error) *Error {
	if err.Location.IsValid() {
		err.Context = ExtractContext(err.Location, DefaultContextLines)
	}
	return err
}

// AddContext fills the context of every error in the list.
func (el *ErrorList) AddContext() {
	for _, err := range el.Errors {
		AddContextToError(err)
	}
}
