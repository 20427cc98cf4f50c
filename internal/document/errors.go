package document

import "fmt"

// YamlParseError represents a failure to parse a fragment's rendered
// output as YAML. This is distinct from a TemplateError: the template
// rendered successfully, but its output is not well-formed YAML.
type YamlParseError struct {
	// SourcePath is the searchpath-relative fragment that produced the
	// invalid YAML.
	SourcePath string

	// Cause is the underlying yaml.v3 parse error.
	Cause error
}

// Error implements the error interface.
func (e *YamlParseError) Error() string {
	return fmt.Sprintf("%s: invalid YAML after rendering: %v", e.SourcePath, e.Cause)
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *YamlParseError) Unwrap() error {
	return e.Cause
}

// NewYamlParseError creates a YamlParseError for sourcePath.
func NewYamlParseError(sourcePath string, cause error) *YamlParseError {
	return &YamlParseError{SourcePath: sourcePath, Cause: cause}
}
