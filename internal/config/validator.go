package config

import (
	"fmt"
)

// ValidateStructure performs basic structural validation on the configuration.
// Validates required fields and value ranges. Does NOT validate template
// syntax, check that paths exist on disk, or parse PEM material - those are
// the Source Loader's and Security material reader's job.
func ValidateStructure(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if err := validateSourceConfig(&cfg.Source); err != nil {
		return fmt.Errorf("source: %w", err)
	}

	if err := validateHostConfig(&cfg.Host); err != nil {
		return fmt.Errorf("host: %w", err)
	}

	if err := validateOutputConfig(&cfg.Output); err != nil {
		return fmt.Errorf("output: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	return nil
}

// validateSourceConfig validates the source root configuration.
func validateSourceConfig(sc *SourceConfig) error {
	if sc.LibraryRoot == "" {
		return fmt.Errorf("library_root cannot be empty")
	}
	if sc.ProjectRoot == "" {
		return fmt.Errorf("project_root cannot be empty")
	}
	if sc.SeedDocument == "" {
		return fmt.Errorf("seed_document cannot be empty (expected default %q)", DefaultSeedDocument)
	}

	return nil
}

// validateHostConfig validates the host identity configuration.
func validateHostConfig(hc *HostConfig) error {
	if hc.ResourceID == "" {
		return fmt.Errorf("resource_id cannot be empty")
	}
	if hc.Hostname == "" {
		return fmt.Errorf("hostname cannot be empty")
	}

	return nil
}

// validateOutputConfig validates the output path configuration.
// This validation is called AFTER setDefaults(), so paths must be non-empty.
func validateOutputConfig(oc *OutputConfig) error {
	if oc.IgnitionPath == "" {
		return fmt.Errorf("ignition_path cannot be empty (expected default %q)", DefaultIgnitionPath)
	}
	if oc.ReconcilerPath == "" {
		return fmt.Errorf("reconciler_path cannot be empty (expected default %q)", DefaultReconcilerPath)
	}

	return nil
}

// validateLoggingConfig validates the logging configuration.
func validateLoggingConfig(lc *LoggingConfig) error {
	if lc.Verbose < 0 || lc.Verbose > 2 {
		return fmt.Errorf("verbose must be 0 (WARNING), 1 (INFO), or 2 (DEBUG), got %d", lc.Verbose)
	}

	return nil
}
