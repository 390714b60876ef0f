// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Bindings maps derived variable names to artifact store locations.
//
// The manifest written from this map is the sole hand-off contract to the
// infrastructure-provisioning tool; deploy has no knowledge of how that tool
// consumes the values.
type Bindings map[string]string

// BindingName derives the deterministic variable name for an artifact:
// module and artifact name uppercased and joined with underscores, hyphens
// normalized to underscores. Example: ("access", "layer") -> "ACCESS_LAYER".
func BindingName(module, artifact string) string {
	sanitize := func(s string) string {
		return strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	}
	return sanitize(module) + "_" + sanitize(artifact)
}

// Add records one binding, rejecting duplicate derived names.
//
// Two modules whose names and artifact names collapse to the same derived
// key (e.g. "data"+"store_x" and "data_store"+"x") are a validation error:
// silently picking a winner would hand the infrastructure tool the wrong
// object.
func (b Bindings) Add(module, artifact, location string) error {
	name := BindingName(module, artifact)
	if existing, ok := b[name]; ok {
		return fmt.Errorf("%w: %s already bound to %s", ErrBindingConflict, name, existing)
	}
	b[name] = location
	return nil
}

// Write persists the manifest as sorted KEY=value lines.
//
// The file is written to a temp path and renamed into place so a concurrent
// reader never observes a partially written manifest.
func (b Bindings) Write(path string) error {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%s\n", k, b[k])
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".bindings-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename manifest: %w", err)
	}
	success = true
	return nil
}
