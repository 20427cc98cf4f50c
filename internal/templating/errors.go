package templating

import "fmt"

// CompilationError represents a template compilation failure.
// This error occurs during engine initialization when a fragment's template
// syntax is invalid or contains unsupported constructs.
type CompilationError struct {
	// TemplateName is the searchpath-relative name of the fragment that
	// failed to compile.
	TemplateName string

	// TemplateSnippet contains the first 200 characters of the template.
	TemplateSnippet string

	// Cause is the underlying compilation error from the template engine.
	Cause error
}

// Error implements the error interface.
func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile template '%s': %v", e.TemplateName, e.Cause)
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *CompilationError) Unwrap() error {
	return e.Cause
}

// RenderError represents a template rendering failure.
// This error occurs when a valid template fails during execution, typically
// due to a missing Environment (C7) key or a runtime evaluation error.
type RenderError struct {
	// TemplateName is the name of the template that failed to render.
	TemplateName string

	// Cause is the underlying rendering error from the template engine.
	Cause error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render template '%s': %v", e.TemplateName, e.Cause)
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *RenderError) Unwrap() error {
	return e.Cause
}

// TemplateNotFoundError represents a request for a non-existent template.
type TemplateNotFoundError struct {
	// TemplateName is the name of the requested template.
	TemplateName string

	// AvailableTemplates lists all available template names.
	AvailableTemplates []string
}

// Error implements the error interface.
func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template '%s' not found", e.TemplateName)
}

// UnsupportedEngineError represents an unsupported template engine type.
type UnsupportedEngineError struct {
	// EngineType is the unsupported engine type.
	EngineType EngineType
}

// Error implements the error interface.
func (e *UnsupportedEngineError) Error() string {
	return fmt.Sprintf("unsupported template engine type: %s", e.EngineType)
}

// TemplateError is the error surfaced to callers of the Transpiler for any
// template compilation or rendering failure. It carries the location
// information extracted by FormatTemplateError so a caller can report the
// exact fragment and line that failed, per the fragment→document error
// contract.
type TemplateError struct {
	// SourcePath is the searchpath-relative fragment path.
	SourcePath string

	// Line is the 1-indexed line within SourcePath, or 0 if unknown.
	Line int

	// Message is a human-readable description of the failure.
	Message string

	// Cause is the underlying engine error.
	Cause error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.SourcePath, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.SourcePath, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// NewCompilationError creates a CompilationError for a template compilation failure.
func NewCompilationError(templateName, templateContent string, cause error) *CompilationError {
	snippet := templateContent
	if len(snippet) > 200 {
		snippet = snippet[:200] + "..."
	}

	return &CompilationError{
		TemplateName:    templateName,
		TemplateSnippet: snippet,
		Cause:           cause,
	}
}

// NewRenderError creates a RenderError for a template rendering failure.
func NewRenderError(templateName string, cause error) *RenderError {
	return &RenderError{
		TemplateName: templateName,
		Cause:        cause,
	}
}

// NewTemplateNotFoundError creates a TemplateNotFoundError with the list of available templates.
func NewTemplateNotFoundError(templateName string, availableTemplates []string) *TemplateNotFoundError {
	return &TemplateNotFoundError{
		TemplateName:       templateName,
		AvailableTemplates: availableTemplates,
	}
}

// NewUnsupportedEngineError creates an UnsupportedEngineError for an invalid engine type.
func NewUnsupportedEngineError(engineType EngineType) *UnsupportedEngineError {
	return &UnsupportedEngineError{
		EngineType: engineType,
	}
}
