// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/halyardtools/halyard/cmd/halyard/config"
	"github.com/halyardtools/halyard/services/pipeline/build"
	"github.com/halyardtools/halyard/services/pipeline/deploy"
)

func runDeploy(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	logger := newLogger("deployer")
	defer logger.Close()

	reg, err := loadRegistry()
	if err != nil {
		fail("%v", err)
	}
	resolved, err := resolveRequested(reg, args)
	if err != nil {
		fail("%v", err)
	}

	store, err := newStore(ctx)
	if err != nil {
		fail("%v", err)
	}
	defer store.Close()

	// An incremental build pass enumerates current artifacts; unchanged
	// modules cost only a digest walk.
	engine := newEngine(logger)
	var artifacts []build.Artifact
	for _, module := range resolved {
		moduleDir := filepath.Join(config.Global.Catalog.ModulesDir, module)
		report, err := engine.Build(ctx, moduleDir, build.Options{
			OutputDir:   config.Global.Build.OutputDir,
			EntryPoint:  config.Global.Build.EntryPoint,
			Concurrency: config.Global.Build.Concurrency,
		})
		if err != nil {
			fail("build %s: %v", module, err)
		}
		if report.HasFailures() {
			for _, f := range report.Failed {
				fmt.Printf("  FAILED  %s/%s: %v\n", module, f.Name, f.Err)
			}
			fail("cannot deploy %s with failed artifacts", module)
		}
		artifacts = append(artifacts, report.Artifacts()...)
	}

	prefix := deployPrefix
	if prefix == "" {
		prefix = config.Global.Store.Prefix
	}
	uploader := deploy.NewUploader(logger)
	report, err := uploader.Deploy(ctx, artifacts, store, deploy.Options{
		Prefix: prefix,
		Force:  deployForce,
	})
	if err != nil && !errors.Is(err, deploy.ErrUploadsFailed) {
		fail("%v", err)
	}

	for _, r := range report.Uploaded {
		fmt.Printf("  uploaded   %s/%s -> %s\n", r.Module, r.Name, r.Location)
	}
	for _, r := range report.Unchanged {
		fmt.Printf("  unchanged  %s/%s\n", r.Module, r.Name)
	}
	for _, f := range report.Failed {
		fmt.Printf("  FAILED     %s/%s: %v\n", f.Module, f.Name, f.Err)
	}
	if err != nil {
		fail("%v", err)
	}

	bindingsPath := deployBindings
	if bindingsPath == "" {
		bindingsPath = filepath.Join(config.Global.Build.OutputDir, "halyard.bindings.env")
	}
	if err := report.Bindings.Write(bindingsPath); err != nil {
		fail("write bindings manifest: %v", err)
	}
	fmt.Printf("Bindings manifest written to %s (%d entries)\n", bindingsPath, len(report.Bindings))
}
