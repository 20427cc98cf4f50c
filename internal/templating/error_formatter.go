package templating

import (
	"fmt"
	"regexp"
	"strings"
)

// errorLocation represents the location of an error in a template.
type errorLocation struct {
	Line   int
	Column int
}

// Common patterns seen in Gonja error messages.
var (
	// Pattern: "... at Line=X Col=Y".
	lineColPattern = regexp.MustCompile(`Line=(\d+)\s+Col=(\d+)`)

	// Pattern: "at line X".
	locationPattern = regexp.MustCompile(`at line (\d+)`)

	// Pattern: "unknown method 'X'".
	unknownMethodPattern = regexp.MustCompile(`unknown method '([^']+)'`)

	// Pattern: "undefined variable 'X'".
	undefinedVarPattern = regexp.MustCompile(`undefined variable '([^']+)'`)

	// Pattern: "invalid call to method 'X'".
	invalidCallPattern = regexp.MustCompile(`invalid call to method '([^']+)'`)

	// Pattern: "expected X, got Y".
	typeMismatchPattern = regexp.MustCompile(`expected (\w+), got (\w+)`)
)

// FormatTemplateError converts a raw engine error into a *TemplateError
// carrying the {source path, line, message} triple the fragment→document
// error contract expects, by extracting structured location/problem
// information from the engine's error string.
func FormatTemplateError(sourcePath, templateContent string, err error) *TemplateError {
	if err == nil {
		return nil
	}

	loc := extractLocation(err.Error())
	problem := extractProblem(err.Error())
	if problem == "" {
		problem = err.Error()
	}

	line := 0
	if loc != nil {
		line = loc.Line
	}

	return &TemplateError{
		SourcePath: sourcePath,
		Line:       line,
		Message:    problem,
		Cause:      err,
	}
}

// extractLocation extracts line and column numbers from the error string.
func extractLocation(errorStr string) *errorLocation {
	if matches := lineColPattern.FindStringSubmatch(errorStr); len(matches) == 3 {
		var line, col int
		_, _ = fmt.Sscanf(matches[1], "%d", &line)
		_, _ = fmt.Sscanf(matches[2], "%d", &col)
		return &errorLocation{Line: line, Column: col}
	}

	if matches := locationPattern.FindStringSubmatch(errorStr); len(matches) == 2 {
		var line int
		_, _ = fmt.Sscanf(matches[1], "%d", &line)
		return &errorLocation{Line: line}
	}

	return nil
}

// extractProblem extracts a short, actionable description of the failure
// from a raw engine error string.
func extractProblem(errorStr string) string {
	if matches := unknownMethodPattern.FindStringSubmatch(errorStr); len(matches) == 2 {
		return fmt.Sprintf("unknown method '%s'", matches[1])
	}

	if matches := undefinedVarPattern.FindStringSubmatch(errorStr); len(matches) == 2 {
		return fmt.Sprintf("undefined variable '%s'", matches[1])
	}

	if matches := invalidCallPattern.FindStringSubmatch(errorStr); len(matches) == 2 {
		return fmt.Sprintf("invalid call to method '%s'", matches[1])
	}

	if matches := typeMismatchPattern.FindStringSubmatch(errorStr); len(matches) == 3 {
		return fmt.Sprintf("type mismatch: expected %s, got %s", matches[1], matches[2])
	}

	if idx := strings.Index(errorStr, "unable to evaluate"); idx >= 0 {
		rest := errorStr[idx+len("unable to evaluate"):]
		if colonIdx := strings.Index(rest, ":"); colonIdx > 0 {
			return fmt.Sprintf("unable to evaluate expression: %s", strings.TrimSpace(rest[:colonIdx]))
		}
	}

	return ""
}
