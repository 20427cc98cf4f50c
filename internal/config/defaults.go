package config

// Default values for configuration fields.
const (
	// DefaultVerbose is the INFO log level (1). setDefaults does not apply
	// it: an unset Verbose stays 0 (WARNING).
	DefaultVerbose = 1

	// DefaultIgnitionPath is the default output path for Ignition JSON.
	DefaultIgnitionPath = "ignition.json"

	// DefaultReconcilerPath is the default output path for the reconciler
	// program.
	DefaultReconcilerPath = "reconcile.sls"

	// DefaultSeedDocument is the default path to the seed fragment (D_seed).
	DefaultSeedDocument = "seed.bu"
)

// setDefaults applies default values to unset configuration fields.
// This modifies the config in-place and should be called after parsing
// the configuration and before validation.
func setDefaults(cfg *Config) {
	// Logging defaults
	// Note: Verbose level 0 is valid (WARNING), so we don't set a default;
	// the zero value already means WARNING.

	// Output defaults
	if cfg.Output.IgnitionPath == "" {
		cfg.Output.IgnitionPath = DefaultIgnitionPath
	}
	if cfg.Output.ReconcilerPath == "" {
		cfg.Output.ReconcilerPath = DefaultReconcilerPath
	}

	// Source defaults
	if cfg.Source.SeedDocument == "" {
		cfg.Source.SeedDocument = DefaultSeedDocument
	}
}
