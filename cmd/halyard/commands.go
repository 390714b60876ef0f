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

	"github.com/spf13/cobra"

	"github.com/halyardtools/halyard/cmd/halyard/config"
)

// --- Global Command Variables ---
var (
	// provision flags
	projectID    string
	projectDir   string
	moduleList   []string
	resumeFrom   string
	skipPhases   string
	dryRun       bool
	cleanup      bool
	forceRebuild bool
	forceUpload  bool

	// build flags
	buildForce      bool
	buildOutputDir  string
	buildEntryPoint string

	// deploy flags
	deployForce    bool
	deployPrefix   string
	deployBindings string
	deployBucket   string

	// global overrides
	catalogPath string

	rootCmd = &cobra.Command{
		Use:   "halyard",
		Short: "A cli to build and provision dependency-aware project modules",
		Long: `Halyard assembles projects from a catalog of modules, builds their
deployment artifacts incrementally, uploads them to an artifact store,
and provisions the backing infrastructure in resumable phases.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := config.Load(); err != nil {
				fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
				os.Exit(1)
			}
		},
	}

	// --- Provisioning ---
	provisionCmd = &cobra.Command{
		Use:   "provision",
		Short: "Run the full provisioning workflow for a project",
		Long: `Runs the phase sequence preflight -> assemble -> build-validate ->
deploy-infra -> start-runtime, checkpointing after every phase. A failed
run can be continued with --resume-from without repeating completed work.`,
		Run: runProvision, // Defined in cmd_provision.go
	}

	// --- Build ---
	buildCmd = &cobra.Command{
		Use:   "build [module...]",
		Short: "Build deployment artifacts for modules, skipping unchanged ones",
		Run:   runBuild, // Defined in cmd_build.go
	}

	// --- Deploy ---
	deployCmd = &cobra.Command{
		Use:   "deploy [module...]",
		Short: "Upload built artifacts and write the variable-binding manifest",
		Run:   runDeploy, // Defined in cmd_deploy.go
	}

	// --- Module Catalog ---
	modulesCmd = &cobra.Command{
		Use:   "modules",
		Short: "Inspect the module catalog",
	}
	modulesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List every module declared in the catalog",
		Run:   runModulesList, // Defined in cmd_modules.go
	}
	modulesResolveCmd = &cobra.Command{
		Use:   "resolve [module...]",
		Short: "Print the dependency-resolved install order for the named modules",
		Run:   runModulesResolve, // Defined in cmd_modules.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "",
		"Module catalog path (default: from config)")

	rootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().StringVar(&projectID, "project-id", "", "Identifier of the project to provision (required)")
	provisionCmd.Flags().StringVar(&projectDir, "project-dir", "", "Workspace the project is assembled into (default: ./<project-id>)")
	provisionCmd.Flags().StringSliceVar(&moduleList, "modules", nil, "Modules to include (default: every module the catalog marks required)")
	provisionCmd.Flags().StringVar(&resumeFrom, "resume-from", "", "Resume a failed run from the named phase")
	provisionCmd.Flags().StringVar(&skipPhases, "skip-phases", "", "Comma-separated phases to skip")
	provisionCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report intended actions without mutating anything")
	provisionCmd.Flags().BoolVar(&cleanup, "cleanup", false, "Remove the checkpoint and build output instead of provisioning")
	provisionCmd.Flags().BoolVar(&forceRebuild, "force-rebuild", false, "Rebuild every artifact regardless of content digests")
	provisionCmd.Flags().BoolVar(&forceUpload, "force-upload", false, "Upload every artifact regardless of remote digests")

	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Rebuild every artifact regardless of content digests")
	buildCmd.Flags().StringVarP(&buildOutputDir, "out", "o", "", "Artifact output directory (default: from config)")
	buildCmd.Flags().StringVar(&buildEntryPoint, "entry-point", "", "Entry point file every unit must contain (default: from config)")

	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().BoolVar(&deployForce, "force", false, "Upload every artifact regardless of remote digests")
	deployCmd.Flags().StringVar(&deployPrefix, "prefix", "", "Object key prefix (default: from config)")
	deployCmd.Flags().StringVar(&deployBindings, "bindings", "", "Variable-binding manifest path (default: <output-dir>/halyard.bindings.env)")
	deployCmd.Flags().StringVar(&deployBucket, "bucket", "", "Artifact store bucket (default: from config)")

	rootCmd.AddCommand(modulesCmd)
	modulesCmd.AddCommand(modulesListCmd)
	modulesCmd.AddCommand(modulesResolveCmd)
}
