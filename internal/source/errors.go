package source

import "fmt"

// MissingLocalReference represents a `local:` reference that resolves to no
// file under either the project root or the library root. Fatal: the
// Transpiler aborts the call rather than emit a partial document.
type MissingLocalReference struct {
	// Reference is the original logical path, e.g. "local:certs/ca.pem".
	Reference string
}

// Error implements the error interface.
func (e *MissingLocalReference) Error() string {
	return fmt.Sprintf("unresolved local reference: %s", e.Reference)
}

// NewMissingLocalReference creates a MissingLocalReference for the given
// logical local: path.
func NewMissingLocalReference(reference string) *MissingLocalReference {
	return &MissingLocalReference{Reference: reference}
}
