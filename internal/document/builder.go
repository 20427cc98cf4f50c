package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"butane-transpile/internal/source"
	"butane-transpile/internal/templating"
)

// Builder constructs D_seed, D_security, D_library, D_project from a pair
// of source roots, in the fixed order spec.md §4.3 requires of callers
// (the order here is informational only; nothing in this package enforces
// call order, that is the Transpiler's job).
type Builder struct {
	roots  source.Roots
	loader *source.Loader
}

// NewBuilder creates a Builder over roots, using loader to enumerate and
// resolve fragments.
func NewBuilder(roots source.Roots, loader *source.Loader) *Builder {
	return &Builder{roots: roots, loader: loader}
}

// BuildSeed renders seedDocument (a small caller-supplied YAML preamble)
// against environment and parses the result.
func (b *Builder) BuildSeed(ctx context.Context, seedDocument string, environment map[string]any) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	rendered, err := renderAdHoc("seed.bu", seedDocument, b.roots.Project, map[string]interface{}{
		"environment": environment,
	})
	if err != nil {
		return Document{}, err
	}
	return decode("seed.bu", rendered)
}

// BuildSecurity renders the internal security template against material
// and environment and parses the result.
func (b *Builder) BuildSecurity(ctx context.Context, material SecurityMaterial, environment map[string]any) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	rendered, err := renderAdHoc("security.bu", securityTemplate, b.roots.Project, map[string]interface{}{
		"environment": environment,
		"security": map[string]interface{}{
			"root_ca_pem":          material.RootCAPEM,
			"root_bundle_pem":      material.RootBundlePEM,
			"server_cert_pem":      material.ServerCertPEM,
			"server_key_pem":       material.ServerKeyPEM,
			"authorized_keys_text": material.AuthorizedKeysText,
			"provision_signer_pub": material.ProvisionSignerPub,
		},
	})
	if err != nil {
		return Document{}, err
	}
	return decode("security.bu", rendered)
}

// BuildLibrary renders every *.bu fragment under the library root, sorted,
// returning one Document per fragment in sort order. Rendering uses the
// project root as the effective directory-functions root and as the
// primary include/list_files searchpath (project root first, library root
// fallback), so a fragment shared across hosts still sees host-local
// overrides, per spec.md's Design Note on template engine isolation.
func (b *Builder) BuildLibrary(ctx context.Context, environment map[string]any) ([]Document, error) {
	names, err := b.loader.ListLibraryTemplates()
	if err != nil {
		return nil, err
	}
	return renderSorted(ctx, names, b.roots.Library, b.roots.Project, environment)
}

// BuildProject renders every *.bu fragment under the project root, sorted,
// using the same project-rooted searchpath as BuildLibrary.
func (b *Builder) BuildProject(ctx context.Context, environment map[string]any) ([]Document, error) {
	names, err := b.loader.ListProjectTemplates()
	if err != nil {
		return nil, err
	}
	return renderSorted(ctx, names, b.roots.Project, b.roots.Project, environment)
}

// renderSorted renders each name (relative to contentRoot) concurrently via
// errgroup, using an OverlayLoader rooted at (dirFuncsRoot, contentRoot) so
// nested include/list_files calls see dirFuncsRoot first. Results are
// returned in the same order as names: the fan-out is for I/O latency
// only, not for reordering, so the merge in C4 sees a deterministic
// precedence sequence.
func renderSorted(ctx context.Context, names []string, contentRoot, dirFuncsRoot string, environment map[string]any) ([]Document, error) {
	if len(names) == 0 {
		return nil, nil
	}

	contentLoader, err := templating.NewFileLoader(contentRoot)
	if err != nil {
		return nil, err
	}
	dirFuncsLoader, err := templating.NewFileLoader(dirFuncsRoot)
	if err != nil {
		return nil, err
	}
	overlay := templating.NewOverlayLoader(dirFuncsLoader, contentLoader)

	templates := make(map[string]string, len(names))
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(contentRoot, name))
		if err != nil {
			return nil, fmt.Errorf("read fragment %q: %w", name, err)
		}
		templates[name] = string(content)
	}

	engine, err := templating.NewWithLoader(overlay, dirFuncsRoot, templates, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	rendered := make([]string, len(names))
	group, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := engine.RenderToError(name, map[string]interface{}{
				"environment": environment,
			})
			if err != nil {
				return err
			}
			rendered[i] = out
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	docs := make([]Document, len(names))
	for i, name := range names {
		doc, err := decode(name, rendered[i])
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}
	return docs, nil
}

// renderAdHoc renders a single piece of template content that is not
// backed by a file on either source root (the seed document and the
// internal security template), with dirFuncsRoot (the project root)
// available to it for list_files, raw_import, and include.
func renderAdHoc(name, content, dirFuncsRoot string, context map[string]interface{}) (string, error) {
	return templating.RenderOnce(dirFuncsRoot, name, content, nil, nil, context)
}
