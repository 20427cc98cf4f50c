package templating

import (
	"fmt"
	"os"
	"path/filepath"
)

// RenderOnce compiles and renders a single piece of template content that
// is not backed by a real file under dirFuncsRoot — a caller-supplied seed
// document, an internal fixed fragment, or a merged entity's
// secondary-pass contents. The content is written to a scratch directory
// so the filesystem-backed engine can compile it like any other fragment;
// dirFuncsRoot stays available as the fallback root for list_files,
// raw_import, and {% include %}, so ad hoc content can still reference
// real project-local files.
func RenderOnce(dirFuncsRoot, name, content string, customFilters map[string]FilterFunc, customFunctions map[string]GlobalFunc, context map[string]interface{}) (string, error) {
	scratch, err := os.MkdirTemp("", "butane-transpile-adhoc-*")
	if err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := os.WriteFile(filepath.Join(scratch, name), []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write scratch fragment %q: %w", name, err)
	}

	scratchLoader, err := NewFileLoader(scratch)
	if err != nil {
		return "", err
	}
	dirFuncsLoader, err := NewFileLoader(dirFuncsRoot)
	if err != nil {
		return "", err
	}
	overlay := NewOverlayLoader(scratchLoader, dirFuncsLoader)

	engine, err := NewWithLoader(overlay, dirFuncsRoot, map[string]string{name: content}, customFilters, customFunctions, nil)
	if err != nil {
		return "", err
	}

	return engine.RenderToError(name, context)
}
