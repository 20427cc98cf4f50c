package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_Success(t *testing.T) {
	yamlConfig := `
source:
  library_root: /srv/library
  project_root: /srv/project
  seed_document: /srv/project/seed.bu

host:
  resource_id: host-0001
  hostname: node01.example.com

logging:
  verbose: 1
`

	cfg, err := parseConfig(yamlConfig)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/srv/library", cfg.Source.LibraryRoot)
	assert.Equal(t, "node01.example.com", cfg.Host.Hostname)
	assert.Equal(t, 1, cfg.Logging.Verbose)
}

func TestParseConfig_EmptyString(t *testing.T) {
	cfg, err := parseConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config YAML is empty")
}

func TestParseConfig_InvalidYAML(t *testing.T) {
	yamlConfig := `
source:
  library_root: /srv/library
  invalid_indentation
`

	cfg, err := parseConfig(yamlConfig)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to unmarshal YAML")
}

func TestParseConfig_PartialConfig(t *testing.T) {
	// Test that parsing works even with minimal config
	// (validation is separate from parsing)
	yamlConfig := `
host:
  resource_id: host-0001
  hostname: node01.example.com
`

	cfg, err := parseConfig(yamlConfig)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Zero values should be present for unset fields
	assert.Equal(t, "", cfg.Output.IgnitionPath) // Will be set by defaults
	assert.Equal(t, 0, cfg.Logging.Verbose)
}

func TestParseConfig_WithEnvironmentOverrides(t *testing.T) {
	yamlConfig := `
source:
  library_root: /srv/library
  project_root: /srv/project

host:
  resource_id: host-0001
  hostname: node01.example.com

environment:
  - /srv/project/env/base.yaml
  - /srv/project/env/node01.yaml
`

	cfg, err := parseConfig(yamlConfig)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.Len(t, cfg.Environment, 2)
	assert.Equal(t, "/srv/project/env/base.yaml", cfg.Environment[0])
	assert.Equal(t, "/srv/project/env/node01.yaml", cfg.Environment[1])
}

func TestParseConfig_WithAllSections(t *testing.T) {
	yamlConfig := `
source:
  library_root: /srv/library
  project_root: /srv/project
  seed_document: /srv/project/seed.bu

host:
  resource_id: host-0001
  hostname: node01.example.com

security:
  root_ca_pem_path: /srv/security/root-ca.pem
  server_cert_pem_path: /srv/security/server-cert.pem

output:
  ignition_path: /out/ignition.json
  reconciler_path: /out/reconcile.sls

logging:
  verbose: 2

environment:
  - /srv/project/env/base.yaml
`

	cfg, err := parseConfig(yamlConfig)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/srv/library", cfg.Source.LibraryRoot)
	assert.Equal(t, "host-0001", cfg.Host.ResourceID)
	assert.Equal(t, "/srv/security/root-ca.pem", cfg.Security.RootCAPEMPath)
	assert.Equal(t, "/out/ignition.json", cfg.Output.IgnitionPath)
	assert.Equal(t, 2, cfg.Logging.Verbose)
	assert.Len(t, cfg.Environment, 1)
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	yamlConfig := `
source:
  library_root: /srv/library
  project_root: /srv/project

host:
  resource_id: host-0001
  hostname: node01.example.com
`

	cfg, err := LoadConfig(yamlConfig)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultIgnitionPath, cfg.Output.IgnitionPath)
	assert.Equal(t, DefaultReconcilerPath, cfg.Output.ReconcilerPath)
	assert.Equal(t, DefaultSeedDocument, cfg.Source.SeedDocument)
}
