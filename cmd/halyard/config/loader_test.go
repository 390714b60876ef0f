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
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestCreateDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".halyard", "halyard.yaml")

	if err := createDefault(configPath); err != nil {
		t.Fatalf("createDefault() failed: %v", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	var cfg HalyardConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	if cfg.Build.EntryPoint != "handler.py" {
		t.Errorf("Build.EntryPoint = %q, want handler.py", cfg.Build.EntryPoint)
	}
	if cfg.Build.Concurrency != 4 {
		t.Errorf("Build.Concurrency = %d, want 4", cfg.Build.Concurrency)
	}
	if cfg.Build.Installer != "copy" {
		t.Errorf("Build.Installer = %q, want copy", cfg.Build.Installer)
	}
	if cfg.Store.Prefix != "artifacts" {
		t.Errorf("Store.Prefix = %q, want artifacts", cfg.Store.Prefix)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestCreateDefault_DirectoryCreation(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "deep", "nested", "path", "halyard.yaml")

	if err := createDefault(configPath); err != nil {
		t.Fatalf("createDefault() failed with nested path: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(configPath)); os.IsNotExist(err) {
		t.Fatal("nested directories were not created")
	}
}

func TestDefaultConfig_PathsUnderHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory on this system")
	}

	cfg := DefaultConfig()
	paths := []string{
		cfg.Catalog.Path,
		cfg.Catalog.ModulesDir,
		cfg.Build.OutputDir,
		cfg.Infra.PlanDir,
		cfg.Runtime.StackDir,
		cfg.Logging.Dir,
	}
	for _, p := range paths {
		if !strings.HasPrefix(p, filepath.Join(home, ".halyard")) {
			t.Errorf("default path %q should live under ~/.halyard", p)
		}
	}
}

func TestPath(t *testing.T) {
	p, err := Path()
	if err != nil {
		t.Skip("no home directory on this system")
	}
	if filepath.Base(p) != "halyard.yaml" {
		t.Errorf("Path() = %q, want .../halyard.yaml", p)
	}
}
