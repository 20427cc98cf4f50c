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

// Package main provides the CLI entrypoint for the butane-transpile tool.
//
// It accepts its configuration file location via a flag, an environment
// variable, or a default, exactly as the teacher's controller does for its
// own settings:
//
//   - Config path: --config flag, BUTANE_TRANSPILE_CONFIG env var, or
//     "butane-transpile.yaml" default.
//
// The tool runs once and exits: it reads the configured source roots,
// transpiles them into Ignition JSON and a reconciler program, writes both
// to the configured output paths, and returns a non-zero exit status on any
// error.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"flag"

	_ "github.com/KimMachineGun/automemlimit"
	"gopkg.in/yaml.v3"

	"butane-transpile/internal/config"
	"butane-transpile/internal/logging"
	"butane-transpile/internal/transpiler"
)

// DefaultConfigPath is the default location of the CLI configuration file.
const DefaultConfigPath = "butane-transpile.yaml"

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "",
		"Path to the butane-transpile configuration file (env: BUTANE_TRANSPILE_CONFIG)")
	flag.Parse()

	if configPath == "" {
		configPath = os.Getenv("BUTANE_TRANSPILE_CONFIG")
	}
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	logger := logging.NewLogger(os.Getenv("VERBOSE_LEVEL"))
	slog.SetDefault(logger)

	gomaxprocs := runtime.GOMAXPROCS(0)
	var gomemlimit string
	if limit := debug.SetMemoryLimit(-1); limit != math.MaxInt64 {
		gomemlimit = fmt.Sprintf("%d bytes (%.2f MiB)", limit, float64(limit)/(1024*1024))
	} else {
		gomemlimit = "unlimited"
	}
	logger.Info("butane-transpile starting",
		"config", configPath,
		"gomaxprocs", gomaxprocs,
		"gomemlimit", gomemlimit)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, logger, configPath); err != nil {
		if ctx.Err() == nil {
			logger.Error("transpile failed", "error", err)
			cancel()
			os.Exit(1) //nolint:gocritic // exitAfterDefer: cancel() called explicitly before exit
		}
	}

	logger.Info("butane-transpile done")
}

func run(ctx context.Context, logger *slog.Logger, configPath string) error {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", configPath, err)
	}

	cfg, err := config.LoadConfig(string(raw))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.ValidateStructure(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger = logging.NewLogger(logging.LevelFromVerbosity(cfg.Logging.Verbose))
	slog.SetDefault(logger)

	seedPath := cfg.Source.SeedDocument
	seedBytes, err := os.ReadFile(seedPath)
	if err != nil {
		return fmt.Errorf("reading seed document %s: %w", seedPath, err)
	}

	overrides, err := loadEnvironmentOverrides(cfg.Environment)
	if err != nil {
		return fmt.Errorf("loading environment overrides: %w", err)
	}

	security, err := loadSecurityBundle(cfg.Security)
	if err != nil {
		return fmt.Errorf("loading security material: %w", err)
	}

	req := transpiler.Request{
		ResourceID:   cfg.Host.ResourceID,
		Hostname:     cfg.Host.Hostname,
		Security:     security,
		SeedDocument: string(seedBytes),
		SourceRoot: transpiler.SourceRoot{
			Library: cfg.Source.LibraryRoot,
			Project: cfg.Source.ProjectRoot,
		},
		Environment: overrides,
	}

	result, err := transpiler.Transpile(ctx, req)
	if err != nil {
		return fmt.Errorf("transpile: %w", err)
	}

	for _, w := range result.Warnings {
		logger.Warn(w.Message, "path", w.Path)
	}

	if err := os.WriteFile(cfg.Output.IgnitionPath, result.IgnitionJSON, 0o644); err != nil {
		return fmt.Errorf("writing ignition JSON to %s: %w", cfg.Output.IgnitionPath, err)
	}
	if err := os.WriteFile(cfg.Output.ReconcilerPath, []byte(result.ReconcilerProgram), 0o644); err != nil {
		return fmt.Errorf("writing reconciler program to %s: %w", cfg.Output.ReconcilerPath, err)
	}

	logger.Info("wrote transpile output",
		"ignition_path", cfg.Output.IgnitionPath,
		"reconciler_path", cfg.Output.ReconcilerPath,
		"warnings", len(result.Warnings))

	return nil
}

// loadEnvironmentOverrides reads each YAML file in order and merges it on
// top of the previous one, so later files in the list take precedence —
// the same low-to-high composition the Environment component (C7) itself
// uses for its own layers.
func loadEnvironmentOverrides(paths []string) (map[string]any, error) {
	merged := map[string]any{}
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		var layer map[string]any
		if err := yaml.Unmarshal(raw, &layer); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, err)
		}
		for k, v := range layer {
			merged[k] = v
		}
	}
	return merged, nil
}

// loadSecurityBundle reads each configured PEM/text file verbatim. A blank
// path leaves the corresponding field empty rather than failing. Transpile
// omits the authorized_keys file when its text is empty; the CA, bundle,
// server certificate and key files and their credstore links are always
// emitted, with empty contents when their material is absent.
func loadSecurityBundle(cfg config.SecurityConfig) (transpiler.SecurityBundle, error) {
	read := func(path string) (string, error) {
		if path == "" {
			return "", nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var bundle transpiler.SecurityBundle
	var err error

	if bundle.RootCAPEM, err = read(cfg.RootCAPEMPath); err != nil {
		return bundle, fmt.Errorf("root_ca_pem_path: %w", err)
	}
	if bundle.RootBundlePEM, err = read(cfg.RootBundlePEMPath); err != nil {
		return bundle, fmt.Errorf("root_bundle_pem_path: %w", err)
	}
	if bundle.ServerCertPEM, err = read(cfg.ServerCertPEMPath); err != nil {
		return bundle, fmt.Errorf("server_cert_pem_path: %w", err)
	}
	if bundle.ServerKeyPEM, err = read(cfg.ServerKeyPEMPath); err != nil {
		return bundle, fmt.Errorf("server_key_pem_path: %w", err)
	}
	if bundle.AuthorizedKeysText, err = read(cfg.AuthorizedKeysPath); err != nil {
		return bundle, fmt.Errorf("authorized_keys_path: %w", err)
	}
	if bundle.ProvisionSignerPub, err = read(cfg.ProvisionSignerPubPath); err != nil {
		return bundle, fmt.Errorf("provision_signer_pub_path: %w", err)
	}

	return bundle, nil
}
