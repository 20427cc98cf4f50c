// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides data models for the butane-transpile CLI
// configuration.
//
// These models represent the structure of the configuration YAML loaded
// from disk (via --config / BUTANE_TRANSPILE_CONFIG) and are distinct from
// the Transpiler's internal Environment (C7), which is a flat key/value map
// consumed only by template rendering.
package config

// Config is the root configuration structure loaded from the config file.
type Config struct {
	// Source locates the library and project fragment roots consumed by
	// the Source Loader (C2).
	Source SourceConfig `yaml:"source"`

	// Host identifies the single host this invocation transpiles for.
	Host HostConfig `yaml:"host"`

	// Security points at the PEM/text material forwarded verbatim into the
	// SecurityBundle passed to Transpile.
	Security SecurityConfig `yaml:"security"`

	// Output configures where the emitted Ignition JSON and reconciler
	// program are written.
	Output OutputConfig `yaml:"output"`

	// Logging configures logging behavior.
	Logging LoggingConfig `yaml:"logging"`

	// Environment lists paths to YAML files merged, in order, on top of
	// the Transpiler's built-in Environment defaults (C7). Later files
	// take precedence over earlier ones.
	Environment []string `yaml:"environment"`
}

// SourceConfig locates the two fragment roots merged by the Source Loader.
type SourceConfig struct {
	// LibraryRoot is the lower-precedence root shared across hosts.
	LibraryRoot string `yaml:"library_root"`

	// ProjectRoot is the higher-precedence root specific to this project.
	ProjectRoot string `yaml:"project_root"`

	// SeedDocument is the path to the highest-precedence fragment (D_seed),
	// applied after D_library, D_project, and D_security.
	SeedDocument string `yaml:"seed_document"`
}

// HostConfig identifies the host being transpiled for.
type HostConfig struct {
	// ResourceID is the opaque identifier used to derive host identity
	// fields in the Environment (C7).
	ResourceID string `yaml:"resource_id"`

	// Hostname is the host's configured hostname.
	Hostname string `yaml:"hostname"`
}

// SecurityConfig points at the file paths of the certificate-authority
// material forwarded into SecurityBundle. The loader reads these files
// verbatim; it never generates or validates key material itself.
type SecurityConfig struct {
	RootCAPEMPath          string `yaml:"root_ca_pem_path"`
	RootBundlePEMPath      string `yaml:"root_bundle_pem_path"`
	ServerCertPEMPath      string `yaml:"server_cert_pem_path"`
	ServerKeyPEMPath       string `yaml:"server_key_pem_path"`
	AuthorizedKeysPath     string `yaml:"authorized_keys_path"`
	ProvisionSignerPubPath string `yaml:"provision_signer_pub_path"`
}

// OutputConfig configures where Transpile's results are written on disk.
type OutputConfig struct {
	// IgnitionPath is the output path for the emitted Ignition JSON.
	// Default: ignition.json
	IgnitionPath string `yaml:"ignition_path"`

	// ReconcilerPath is the output path for the emitted reconciler program.
	// Default: reconcile.sls
	ReconcilerPath string `yaml:"reconciler_path"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Verbose controls log level: 0=WARNING, 1=INFO, 2=DEBUG
	// Default: 0 (setDefaults leaves an unset value at WARNING)
	Verbose int `yaml:"verbose"`
}
