package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfig_UnmarshalYAML(t *testing.T) {
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
  authorized_keys_path: /srv/security/authorized_keys

output:
  ignition_path: /out/ignition.json
  reconciler_path: /out/reconcile.sls

logging:
  verbose: 2

environment:
  - /srv/project/env/base.yaml
  - /srv/project/env/node01.yaml
`

	var cfg Config
	err := yaml.Unmarshal([]byte(yamlConfig), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "/srv/library", cfg.Source.LibraryRoot)
	assert.Equal(t, "/srv/project", cfg.Source.ProjectRoot)
	assert.Equal(t, "/srv/project/seed.bu", cfg.Source.SeedDocument)

	assert.Equal(t, "host-0001", cfg.Host.ResourceID)
	assert.Equal(t, "node01.example.com", cfg.Host.Hostname)

	assert.Equal(t, "/srv/security/root-ca.pem", cfg.Security.RootCAPEMPath)
	assert.Equal(t, "/srv/security/authorized_keys", cfg.Security.AuthorizedKeysPath)

	assert.Equal(t, "/out/ignition.json", cfg.Output.IgnitionPath)
	assert.Equal(t, "/out/reconcile.sls", cfg.Output.ReconcilerPath)

	assert.Equal(t, 2, cfg.Logging.Verbose)

	require.Len(t, cfg.Environment, 2)
	assert.Equal(t, "/srv/project/env/base.yaml", cfg.Environment[0])
}

func TestConfig_UnmarshalYAML_EmptyConfig(t *testing.T) {
	var cfg Config
	err := yaml.Unmarshal([]byte(""), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Source.LibraryRoot)
	assert.Equal(t, 0, cfg.Logging.Verbose)
	assert.Nil(t, cfg.Environment)
}
