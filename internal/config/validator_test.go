package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Source: SourceConfig{
			LibraryRoot:  "/srv/library",
			ProjectRoot:  "/srv/project",
			SeedDocument: "/srv/project/seed.bu",
		},
		Host: HostConfig{
			ResourceID: "host-0001",
			Hostname:   "node01.example.com",
		},
		Output: OutputConfig{
			IgnitionPath:   "ignition.json",
			ReconcilerPath: "reconcile.sls",
		},
		Logging: LoggingConfig{
			Verbose: 1,
		},
	}
}

func TestValidateStructure_Success(t *testing.T) {
	err := ValidateStructure(validConfig())
	assert.NoError(t, err)
}

func TestValidateStructure_NilConfig(t *testing.T) {
	err := ValidateStructure(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config is nil")
}

func TestValidateSourceConfig_EmptyLibraryRoot(t *testing.T) {
	cfg := validConfig()
	cfg.Source.LibraryRoot = ""

	err := ValidateStructure(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "library_root cannot be empty")
}

func TestValidateSourceConfig_EmptyProjectRoot(t *testing.T) {
	cfg := validConfig()
	cfg.Source.ProjectRoot = ""

	err := ValidateStructure(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "project_root cannot be empty")
}

func TestValidateSourceConfig_EmptySeedDocument(t *testing.T) {
	cfg := validConfig()
	cfg.Source.SeedDocument = ""

	err := ValidateStructure(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "seed_document cannot be empty")
}

func TestValidateHostConfig_EmptyResourceID(t *testing.T) {
	cfg := validConfig()
	cfg.Host.ResourceID = ""

	err := ValidateStructure(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "resource_id cannot be empty")
}

func TestValidateHostConfig_EmptyHostname(t *testing.T) {
	cfg := validConfig()
	cfg.Host.Hostname = ""

	err := ValidateStructure(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "hostname cannot be empty")
}

func TestValidateOutputConfig_EmptyIgnitionPath(t *testing.T) {
	cfg := validConfig()
	cfg.Output.IgnitionPath = ""

	err := ValidateStructure(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ignition_path cannot be empty")
}

func TestValidateOutputConfig_EmptyReconcilerPath(t *testing.T) {
	cfg := validConfig()
	cfg.Output.ReconcilerPath = ""

	err := ValidateStructure(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reconciler_path cannot be empty")
}

func TestValidateLoggingConfig_InvalidVerbose(t *testing.T) {
	tests := []struct {
		name    string
		verbose int
	}{
		{"negative", -1},
		{"too large", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logging.Verbose = tt.verbose

			err := ValidateStructure(cfg)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "verbose must be")
		})
	}
}

func TestValidateLoggingConfig_ValidVerbose(t *testing.T) {
	for _, v := range []int{0, 1, 2} {
		cfg := validConfig()
		cfg.Logging.Verbose = v

		err := ValidateStructure(cfg)
		assert.NoError(t, err)
	}
}
