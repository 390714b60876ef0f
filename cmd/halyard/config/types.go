// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
)

// HalyardConfig is the operator's persistent configuration, stored at
// ~/.halyard/halyard.yaml and created with defaults on first run.
type HalyardConfig struct {
	// Catalog locates the module catalog and module sources.
	Catalog CatalogConfig `yaml:"catalog"`

	// Build controls artifact production.
	Build BuildConfig `yaml:"build"`

	// Store configures the artifact object store.
	Store StoreConfig `yaml:"store"`

	// Infra configures the infrastructure-as-code tool.
	Infra InfraConfig `yaml:"infra"`

	// Runtime configures the project runtime stack.
	Runtime RuntimeConfig `yaml:"runtime"`

	// Logging controls log output.
	Logging LoggingConfig `yaml:"logging"`
}

type CatalogConfig struct {
	// Path to the modules.yaml catalog file.
	Path string `yaml:"path"`

	// ModulesDir holds one source directory per catalog module.
	ModulesDir string `yaml:"modules_dir"`
}

type BuildConfig struct {
	// OutputDir receives archives and digest records.
	OutputDir string `yaml:"output_dir"`

	// EntryPoint is the file every function unit must contain.
	EntryPoint string `yaml:"entry_point"`

	// Concurrency bounds parallel unit builds.
	Concurrency int `yaml:"concurrency" validate:"gte=0"`

	// Installer selects the shared-layer dependency installer:
	// "copy" (vendored deps) or "pip".
	Installer string `yaml:"installer" validate:"omitempty,oneof=copy pip"`
}

type StoreConfig struct {
	// Bucket is the GCS bucket artifacts deploy to.
	Bucket string `yaml:"bucket"`

	// CredentialsFile is an optional service account key path; empty means
	// application default credentials.
	CredentialsFile string `yaml:"credentials_file,omitempty"`

	// Prefix is prepended to every object key.
	Prefix string `yaml:"prefix"`
}

type InfraConfig struct {
	// PlanDir holds the terraform plan.
	PlanDir string `yaml:"plan_dir"`

	// Binary overrides the terraform executable name.
	Binary string `yaml:"binary,omitempty"`
}

type RuntimeConfig struct {
	// StackDir contains the compose file for the runtime services.
	StackDir string `yaml:"stack_dir"`

	// Binary overrides the compose executable name.
	Binary string `yaml:"binary,omitempty"`
}

type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Dir enables JSON file logging when set.
	Dir string `yaml:"dir,omitempty"`
}

// DefaultConfig returns the configuration written on first run. Paths are
// rooted in the user's home directory so a fresh install works without
// edits.
func DefaultConfig() HalyardConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".halyard")
	return HalyardConfig{
		Catalog: CatalogConfig{
			Path:       filepath.Join(base, "modules.yaml"),
			ModulesDir: filepath.Join(base, "modules"),
		},
		Build: BuildConfig{
			OutputDir:   filepath.Join(base, "build"),
			EntryPoint:  "handler.py",
			Concurrency: 4,
			Installer:   "copy",
		},
		Store: StoreConfig{
			Bucket: "",
			Prefix: "artifacts",
		},
		Infra: InfraConfig{
			PlanDir: filepath.Join(base, "infra"),
		},
		Runtime: RuntimeConfig{
			StackDir: filepath.Join(base, "stack"),
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(base, "logs"),
		},
	}
}
