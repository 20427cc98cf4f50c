// Package reconciler implements the Reconciler Emitter (C6): translating
// the governed subset of the merged tree into a single reconciler
// program text, with service-change/enable/disable accumulator
// directives, and appending the project's auxiliary *.sls fragments.
package reconciler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"butane-transpile/internal/document"
	"butane-transpile/internal/source"
	"butane-transpile/internal/templating"
)

// Emit renders the reconciler program for doc: the translated portion
// from buildOps, followed by every *.sls fragment under the project
// root, sorted, appended verbatim (spec.md §4.6 "Appended project-local
// fragments").
func Emit(ctx context.Context, doc document.Document, loader *source.Loader, projectRoot string, environment map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ops, err := buildOps(doc)
	if err != nil {
		return "", err
	}
	rendered, err := templating.RenderOnce(projectRoot, "reconciler.sls", reconcilerTemplate, nil, nil, ops)
	if err != nil {
		return "", err
	}

	fragments, err := loader.ListReconcilerFragments()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(rendered)
	for _, name := range fragments {
		content, err := os.ReadFile(filepath.Join(projectRoot, name))
		if err != nil {
			return "", fmt.Errorf("read reconciler fragment %q: %w", name, err)
		}
		b.WriteString("\n# ")
		b.WriteString(name)
		b.WriteString("\n")
		b.Write(content)
		if len(content) == 0 || content[len(content)-1] != '\n' {
			b.WriteString("\n")
		}
	}

	return b.String(), nil
}
