// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/halyardtools/halyard/cmd/halyard/config"
	"github.com/halyardtools/halyard/services/pipeline/deploy"
	"github.com/halyardtools/halyard/services/pipeline/workflow"
)

// nopStore stands in for the artifact store on dry runs so no GCS
// connection is opened for a run that must not mutate anything.
type nopStore struct{}

func (nopStore) Put(ctx context.Context, key string, payload io.Reader, digest string) error {
	return nil
}

func (nopStore) HeadDigest(ctx context.Context, key string) (string, error) {
	return "", fmt.Errorf("%w: %s", deploy.ErrObjectNotFound, key)
}

func (nopStore) URL(key string) string {
	return "dry-run://" + key
}

func runProvision(cmd *cobra.Command, args []string) {
	if projectID == "" {
		fail("--project-id is required")
	}
	ctx := cmd.Context()
	logger := newLogger("provisioner")
	defer logger.Close()

	reg, err := loadRegistry()
	if err != nil {
		fail("%v", err)
	}

	var store deploy.ArtifactStore
	if dryRun {
		store = nopStore{}
	} else {
		gcs, err := newStore(ctx)
		if err != nil {
			fail("%v", err)
		}
		defer gcs.Close()
		store = gcs
	}

	runner, err := workflow.NewRunner(workflow.RunnerConfig{
		Logger:   logger,
		Registry: reg,
		Engine:   newEngine(logger),
		Store:    store,
		Assembler: workflow.CopyAssembler{},
		Provisioner: workflow.TerraformProvisioner{
			WorkDir: config.Global.Infra.PlanDir,
			Binary:  config.Global.Infra.Binary,
		},
		Runtime: workflow.ComposeRuntime{
			StackDir: config.Global.Runtime.StackDir,
			Binary:   config.Global.Runtime.Binary,
		},
		ModulesDir: config.Global.Catalog.ModulesDir,
	})
	if err != nil {
		fail("%v", err)
	}

	workDir := projectDir
	if workDir == "" {
		workDir = filepath.Join(".", projectID)
	}
	opts := workflow.RunOptions{
		ProjectID:    projectID,
		ProjectDir:   workDir,
		BuildDir:     config.Global.Build.OutputDir,
		Modules:      moduleList,
		DryRun:       dryRun,
		ForceRebuild: forceRebuild,
		ForceUpload:  forceUpload,
		UploadPrefix: config.Global.Store.Prefix,
		EntryPoint:   config.Global.Build.EntryPoint,
	}

	if cleanup {
		if err := runner.Cleanup(opts); err != nil {
			fail("cleanup: %v", err)
		}
		fmt.Println("Cleanup complete.")
		return
	}

	if resumeFrom != "" {
		phase, err := workflow.ParsePhase(resumeFrom)
		if err != nil {
			fail("%v", err)
		}
		opts.ResumeFrom = phase
	}
	if skipPhases != "" {
		phases, err := workflow.ParsePhases(skipPhases)
		if err != nil {
			fail("%v", err)
		}
		opts.SkipPhases = phases
	}

	if err := runner.Run(ctx, opts); err != nil {
		fmt.Printf("\nProvisioning failed: %v\n", err)
		fmt.Printf("Checkpoint: %s\n", runner.CheckpointPath())
		fmt.Printf("After fixing the problem, resume with:\n")
		fmt.Printf("  halyard provision --project-id %s --resume-from <failed-phase>\n", projectID)
		fail("provisioning halted")
	}

	if dryRun {
		fmt.Printf("Dry run complete for project %s. Nothing was changed.\n", projectID)
		return
	}
	fmt.Printf("Project %s provisioned successfully.\n", projectID)
}
