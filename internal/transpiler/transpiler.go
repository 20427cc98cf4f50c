package transpiler

import (
	"context"

	"butane-transpile/internal/document"
	"butane-transpile/internal/environment"
	"butane-transpile/internal/ignition"
	"butane-transpile/internal/merge"
	"butane-transpile/internal/reconciler"
	"butane-transpile/internal/source"
)

// Transpile is the pure function at the heart of the repository: it
// builds D_seed, D_security, D_library, D_project (C3), merges them under
// fixed precedence and inlines every local: reference (C4), then emits
// both Ignition JSON (C5) and the reconciler program (C6) from the same
// merged tree. No operation suspends on external events; ctx governs only
// cancellation at I/O boundaries (file reads, concurrent fragment
// rendering), per spec.md §5 — the function either returns both
// artifacts or fails with no partial output.
func Transpile(ctx context.Context, req Request) (Result, error) {
	env := environment.Build(req.ResourceID, req.Hostname, req.Environment)

	roots := source.Roots{Library: req.SourceRoot.Library, Project: req.SourceRoot.Project}
	loader := source.NewLoader(roots)
	builder := document.NewBuilder(roots, loader)

	library, err := builder.BuildLibrary(ctx, env)
	if err != nil {
		return Result{}, err
	}
	project, err := builder.BuildProject(ctx, env)
	if err != nil {
		return Result{}, err
	}
	security, err := builder.BuildSecurity(ctx, document.SecurityMaterial{
		RootCAPEM:          req.Security.RootCAPEM,
		RootBundlePEM:      req.Security.RootBundlePEM,
		ServerCertPEM:      req.Security.ServerCertPEM,
		ServerKeyPEM:       req.Security.ServerKeyPEM,
		AuthorizedKeysText: req.Security.AuthorizedKeysText,
		ProvisionSignerPub: req.Security.ProvisionSignerPub,
	}, env)
	if err != nil {
		return Result{}, err
	}
	seed, err := builder.BuildSeed(ctx, req.SeedDocument, env)
	if err != nil {
		return Result{}, err
	}

	// Precedence low to high: D_library < D_project < D_security < D_seed.
	ordered := append(append(library, project...), security, seed)

	mergedTree, warnings, err := merge.Merge(ordered, loader, roots.Project, env)
	if err != nil {
		return Result{}, err
	}

	ignitionJSON, err := ignition.Emit(mergedTree)
	if err != nil {
		return Result{}, err
	}

	reconcilerProgram, err := reconciler.Emit(ctx, mergedTree, loader, roots.Project, env)
	if err != nil {
		return Result{}, err
	}

	return Result{
		IgnitionJSON:      ignitionJSON,
		ReconcilerProgram: reconcilerProgram,
		MergedTree:        mergedTree,
		Warnings:          warnings,
	}, nil
}
