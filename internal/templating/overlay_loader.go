package templating

import (
	"fmt"
	"io"

	"github.com/nikolalohinski/gonja/v2/loaders"
)

// OverlayLoader resolves names against a primary FileLoader first, falling
// back to a secondary FileLoader when the primary does not have the name.
// This mirrors the Source Loader's (C2) project-root-first-then-library-root
// fallback for `local:` references, so that a fragment's `{% include %}`
// and `{% import %}` targets see a host's project-local overrides before
// falling back to shared library content, regardless of which root the
// fragment being rendered itself came from. The directory functions
// (`raw_import`, `list_files`, `get_file_mode`, ...) do not go through this
// loader: they read only the engine's dirFuncsRoot.
type OverlayLoader struct {
	primary   *FileLoader
	secondary *FileLoader
}

// NewOverlayLoader creates an OverlayLoader trying primary before secondary.
func NewOverlayLoader(primary, secondary *FileLoader) *OverlayLoader {
	return &OverlayLoader{primary: primary, secondary: secondary}
}

// Read returns name's content from the primary loader, falling back to the
// secondary loader when the primary does not have it.
func (l *OverlayLoader) Read(name string) (io.Reader, error) {
	if r, err := l.primary.Read(name); err == nil {
		return r, nil
	}
	r, err := l.secondary.Read(name)
	if err != nil {
		return nil, fmt.Errorf("%s: not found under either root: %w", name, err)
	}
	return r, nil
}

// Resolve validates name exists under either root, primary first.
func (l *OverlayLoader) Resolve(name string) (string, error) {
	if resolved, err := l.primary.Resolve(name); err == nil {
		return resolved, nil
	}
	resolved, err := l.secondary.Resolve(name)
	if err != nil {
		return "", fmt.Errorf("%s: not found under either root: %w", name, err)
	}
	return resolved, nil
}

// Inherit returns the same overlay loader. Names are always root-relative.
func (l *OverlayLoader) Inherit(from string) (loaders.Loader, error) {
	return l, nil
}
