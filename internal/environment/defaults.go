package environment

// builtinDefaults returns the lowest-precedence layer of the Environment:
// values every fragment can rely on being present regardless of host
// overrides. Host overrides and identity fields are merged on top of this
// by Build.
func builtinDefaults() map[string]any {
	return map[string]any{
		"locale":   "en_US.UTF-8",
		"timezone": "UTC",
		"network": map[string]any{
			"internal_cidr": "10.88.0.0/16",
			"podman_cidr":   "10.89.0.0/16",
			"nspawn_cidr":   "10.90.0.0/16",
		},
		"features": map[string]any{
			"selinux_enforcing": true,
			"firewall_enabled":  true,
		},
		"debug": map[string]any{
			"verbose_reconcile": false,
		},
	}
}
