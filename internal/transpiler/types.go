// Package transpiler wires the Template Engine, Source Loader, Document
// Builder, Merger & Inliner, Ignition Emitter, Reconciler Emitter, and
// Environment components into the single Transpile entry point.
package transpiler

import (
	"context"

	"butane-transpile/internal/document"
	"butane-transpile/internal/merge"
)

// SecurityBundle is supplied by the (out-of-scope) certificate authority
// collaborator; the core embeds its PEM and authorized-keys fields as
// File/Link entries at the conventional paths in spec.md §6.4.
// ProvisionSignerPub is passed into the security fragment's context but is
// not written to any file.
type SecurityBundle struct {
	RootCAPEM          string
	RootBundlePEM      string
	ServerCertPEM      string
	ServerKeyPEM       string
	AuthorizedKeysText string
	ProvisionSignerPub string
}

// SourceRoot locates the library and project fragment roots.
type SourceRoot struct {
	Library string
	Project string
}

// Request bundles every input Transpile needs.
type Request struct {
	ResourceID   string
	Hostname     string
	Security     SecurityBundle
	SeedDocument string
	SourceRoot   SourceRoot
	Environment  map[string]any
}

// Result bundles Transpile's two derived artifacts, the merged tree (for
// downstream collaborators projecting fields like storage.luks.clevis),
// and any accumulated non-fatal warnings.
type Result struct {
	IgnitionJSON      []byte
	ReconcilerProgram string
	MergedTree        document.Document
	Warnings          []merge.Warning
}

// ListenConfig configures the one-shot HTTPS delivery collaborator. The
// core never calls Deliver; this type exists only so wiring code has a
// typed seam to pass through.
type ListenConfig struct {
	Address string
	Port    int
}

// HTTPDelivery is the one-shot HTTPS delivery collaborator.
type HTTPDelivery interface {
	Deliver(ctx context.Context, ignitionJSON []byte, listen ListenConfig) (url string, err error)
}

// ReconcileTransport is the remote deploy-and-execute collaborator.
type ReconcileTransport interface {
	Execute(ctx context.Context, program string, host string) error
}

// ClevisEntry is a read-only projection of a storage.luks.clevis entry
// passed to VolumeProvisioner.
type ClevisEntry struct {
	Device string
	Config map[string]any
}

// VolumeProvisioner is the virtualization driver collaborator.
type VolumeProvisioner interface {
	Prepare(ctx context.Context, ignitionJSON []byte, clevis []ClevisEntry) error
}
