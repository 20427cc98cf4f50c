package reconciler

import "regexp"

// servicePattern pairs a fully-anchored regex with the capture group that
// names the service it identifies. spec.md's Design Note on service-name
// extraction explicitly calls for anchored matches ("implementers should
// not guess at the unanchored variant's intent"), so every pattern here is
// wrapped in ^...$ even though the corpus table prints them bare.
type servicePattern struct {
	re *regexp.Regexp
}

// serviceNamePatterns is the ordered table from spec.md §4.6: the first
// match wins, and well-formed input never matches more than one pattern
// for the same path.
var serviceNamePatterns = []servicePattern{
	{regexp.MustCompile(`^/etc/systemd/system/([^/]+)\.[^.]+$`)},
	{regexp.MustCompile(`^/etc/systemd/system/([^/]+)\.[^.]+\.d/.+\.conf$`)},
	{regexp.MustCompile(`^/etc/local/environment/([^/]+)\.env$`)},
	{regexp.MustCompile(`^/etc/containers/environment/([^/]+)\.env$`)},
	{regexp.MustCompile(`^/etc/compose/environment/([^/]+)\.env$`)},
	{regexp.MustCompile(`^/etc/containers/systemd/([^/.]+)\..+$`)},
	{regexp.MustCompile(`^/etc/containers/build/([^/]+)/.+$`)},
	{regexp.MustCompile(`^/etc/compose/build/([^/]+)/.+$`)},
}

// extractServiceName reports the service name a managed path maps to for
// the purpose of the service_changed accumulator, and whether any pattern
// matched at all.
func extractServiceName(path string) (string, bool) {
	for _, p := range serviceNamePatterns {
		if m := p.re.FindStringSubmatch(path); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// hostEtcRemap names the three File targets rewritten to the alternate
// host-etc mount point on emission into the reconciler program (spec.md
// §4.6 Path remapping); these three are never rewritten in the Ignition
// JSON, which always sees the original /etc path.
var hostEtcRemap = map[string]string{
	"/etc/hosts":       "/host_etc/hosts",
	"/etc/hostname":    "/host_etc/hostname",
	"/etc/resolv.conf": "/host_etc/resolv.conf",
}

// remapPath rewrites path to its /host_etc equivalent when it names one
// of the three remapped targets, and returns it unchanged otherwise.
func remapPath(path string) string {
	if remapped, ok := hostEtcRemap[path]; ok {
		return remapped
	}
	return path
}
