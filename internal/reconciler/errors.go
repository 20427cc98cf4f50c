package reconciler

import "fmt"

// EmissionError represents an internal invariant violation discovered
// while translating the merged Document into the reconciler program —
// mirrors internal/ignition's EmissionError, defined separately per this
// repository's convention that each package owns the errors it raises.
type EmissionError struct {
	SourcePath string
	Message    string
}

func (e *EmissionError) Error() string {
	return fmt.Sprintf("%s: %s", e.SourcePath, e.Message)
}

func NewEmissionError(sourcePath, message string) *EmissionError {
	return &EmissionError{SourcePath: sourcePath, Message: message}
}
