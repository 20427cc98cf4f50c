package source

// Roots names the two search roots a Loader enumerates and resolves
// against: the library root holding shared infrastructure fragments, and
// the project root holding host-specific fragments.
type Roots struct {
	Library string
	Project string
}

// Asset is the resolved content of a `local:` reference, classified as
// text or binary by content sniffing.
type Asset struct {
	// Path is the relative path the reference named, e.g. "certs/ca.pem".
	Path string

	// Root is the root the asset was found under ("library" or "project").
	Root string

	// Data is the raw file content.
	Data []byte

	// Text is true when Data sniffs as UTF-8 text, false for binary.
	Text bool
}
