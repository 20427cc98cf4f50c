// Package environment builds the Transpiler's Environment (C7): a flat
// map[string]any composed low-to-high from built-in defaults, host
// overrides, and identity fields derived from the resource ID and hostname.
//
// The result is handed to the Template Engine (C1) as render context.
// Lookup of an unresolved key is not this package's concern: C1 runs with
// StrictUndefined enabled, so an unresolved reference surfaces as a
// TemplateError at render time.
package environment

import "maps"

// Build composes the Environment for a single Transpile invocation.
//
// Precedence, low to high:
//  1. built-in defaults (locale, internal/podman/nspawn CIDR blocks,
//     feature flags, debug toggles)
//  2. host-specific overrides
//  3. identity fields derived from resourceID and hostname
//
// Maps are merged recursively so an override naming a single nested key
// (e.g. network.internal_cidr) does not clobber its siblings.
func Build(resourceID, hostname string, overrides map[string]any) map[string]any {
	env := builtinDefaults()
	mergeInto(env, overrides)
	mergeInto(env, identityFields(resourceID, hostname))
	return env
}

// identityFields derives the Environment's identity layer from the host's
// resource ID and hostname. HOSTNAME mirrors hostname under the
// conventional shell-environment-variable spelling, since reconciler
// fragments quote it that way.
func identityFields(resourceID, hostname string) map[string]any {
	return map[string]any{
		"resource_id": resourceID,
		"hostname":    hostname,
		"HOSTNAME":    hostname,
	}
}

// mergeInto merges src into dst in place, recursing into nested
// map[string]any values so that partial overrides only replace the keys
// they name.
func mergeInto(dst, src map[string]any) {
	for key, value := range src {
		if srcMap, ok := value.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				merged := maps.Clone(dstMap)
				mergeInto(merged, srcMap)
				dst[key] = merged
				continue
			}
		}
		dst[key] = value
	}
}
