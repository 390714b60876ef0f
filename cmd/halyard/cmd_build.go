// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/halyardtools/halyard/cmd/halyard/config"
	"github.com/halyardtools/halyard/services/pipeline/build"
)

func runBuild(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	logger := newLogger("builder")
	defer logger.Close()

	reg, err := loadRegistry()
	if err != nil {
		fail("%v", err)
	}
	resolved, err := resolveRequested(reg, args)
	if err != nil {
		fail("%v", err)
	}

	outputDir := buildOutputDir
	if outputDir == "" {
		outputDir = config.Global.Build.OutputDir
	}
	entryPoint := buildEntryPoint
	if entryPoint == "" {
		entryPoint = config.Global.Build.EntryPoint
	}

	engine := newEngine(logger)
	failed := false
	for _, module := range resolved {
		moduleDir := filepath.Join(config.Global.Catalog.ModulesDir, module)
		report, err := engine.Build(ctx, moduleDir, build.Options{
			OutputDir:    outputDir,
			ForceRebuild: buildForce,
			EntryPoint:   entryPoint,
			Concurrency:  config.Global.Build.Concurrency,
		})
		if err != nil {
			fail("build %s: %v", module, err)
		}

		fmt.Printf("%s: %d built, %d unchanged, %d failed\n",
			module, len(report.Built), len(report.Skipped), len(report.Failed))
		for _, a := range report.Built {
			fmt.Printf("  built   %-20s %s (%d bytes)\n", a.Name, a.LocalPath, a.SizeBytes)
		}
		for _, f := range report.Failed {
			fmt.Printf("  FAILED  %-20s %v\n", f.Name, f.Err)
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}
