// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/halyardtools/halyard/pkg/logging"
	"github.com/halyardtools/halyard/services/pipeline/build"
	"github.com/halyardtools/halyard/services/pipeline/deploy"
	"github.com/halyardtools/halyard/services/pipeline/registry"
)

var tracer = otel.Tracer("halyard/pipeline/workflow")

// RunnerConfig wires the runner's collaborators.
type RunnerConfig struct {
	Logger      *logging.Logger
	Registry    *registry.Registry
	Engine      *build.Engine
	Uploader    *deploy.Uploader
	Store       deploy.ArtifactStore
	Assembler   Assembler
	Provisioner Provisioner
	Runtime     Runtime

	// ModulesDir is the source root holding one directory per catalog
	// module.
	ModulesDir string

	// CheckpointPath is where run state is persisted. Defaults to
	// DefaultCheckpointPath().
	CheckpointPath string
}

// RunOptions parameterize a single provisioning run.
type RunOptions struct {
	// ProjectID identifies the project being provisioned.
	ProjectID string

	// ProjectDir is the workspace the project is assembled into.
	ProjectDir string

	// BuildDir receives build artifacts and digest records.
	BuildDir string

	// BindingsPath is where the variable-binding manifest is written.
	// Defaults to {BuildDir}/halyard.bindings.env.
	BindingsPath string

	// Modules are the requested module names. Empty means every module
	// the catalog marks required.
	Modules []string

	// ResumeFrom skips all phases strictly before the named phase,
	// re-reading checkpoint-recorded paths instead of recomputing them.
	ResumeFrom Phase

	// SkipPhases are skipped by policy, independent of resume semantics.
	SkipPhases []Phase

	// DryRun reports intended actions without mutating any external
	// state: no files written, no uploads, no infra changes, and no
	// checkpoint.
	DryRun bool

	// ForceRebuild and ForceUpload bypass the digest skip checks.
	ForceRebuild bool
	ForceUpload  bool

	// UploadPrefix prefixes every artifact store key.
	UploadPrefix string

	// EntryPoint overrides the unit entry point file name.
	EntryPoint string
}

// Runner executes the provisioning phase sequence.
type Runner struct {
	logger         *logging.Logger
	registry       *registry.Registry
	engine         *build.Engine
	uploader       *deploy.Uploader
	store          deploy.ArtifactStore
	assembler      Assembler
	provisioner    Provisioner
	runtime        Runtime
	modulesDir     string
	checkpointPath string
}

// NewRunner creates a workflow runner.
//
// Registry, Store, Assembler, Provisioner, and Runtime are required; the
// logger, engine, and uploader default when nil.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("%w: registry must not be nil", ErrInvalidInput)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: artifact store must not be nil", ErrInvalidInput)
	}
	if cfg.Assembler == nil {
		return nil, fmt.Errorf("%w: assembler must not be nil", ErrInvalidInput)
	}
	if cfg.Provisioner == nil {
		return nil, fmt.Errorf("%w: provisioner must not be nil", ErrInvalidInput)
	}
	if cfg.Runtime == nil {
		return nil, fmt.Errorf("%w: runtime must not be nil", ErrInvalidInput)
	}
	if cfg.ModulesDir == "" {
		return nil, fmt.Errorf("%w: modules dir must not be empty", ErrInvalidInput)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	engine := cfg.Engine
	if engine == nil {
		engine = build.NewEngine(logger)
	}
	uploader := cfg.Uploader
	if uploader == nil {
		uploader = deploy.NewUploader(logger)
	}
	checkpointPath := cfg.CheckpointPath
	if checkpointPath == "" {
		var err error
		checkpointPath, err = DefaultCheckpointPath()
		if err != nil {
			return nil, err
		}
	}

	return &Runner{
		logger:         logger,
		registry:       cfg.Registry,
		engine:         engine,
		uploader:       uploader,
		store:          cfg.Store,
		assembler:      cfg.Assembler,
		provisioner:    cfg.Provisioner,
		runtime:        cfg.Runtime,
		modulesDir:     cfg.ModulesDir,
		checkpointPath: checkpointPath,
	}, nil
}

// CheckpointPath returns where this runner persists run state.
func (r *Runner) CheckpointPath() string {
	return r.checkpointPath
}

// runState is the in-memory state threaded through phase functions.
type runState struct {
	cp        Checkpoint
	modules   registry.ResolvedModuleSet
	artifacts []build.Artifact
}

// Run executes the phase sequence for one provisioning run.
//
// Description:
//
//	Runs Preflight, Assemble, BuildValidate, DeployInfra, and StartRuntime
//	in order, persisting a checkpoint after each phase transition. On a
//	phase failure the checkpoint names the failed phase and the run halts;
//	it never auto-retries. A later invocation with ResumeFrom skips all
//	phases strictly before the named one. SkipPhases is honored
//	independent of resume. In dry-run mode every phase only reports its
//	intended actions and no checkpoint is written.
//
// Outputs:
//
//	error - ErrPhaseFailed wrapping the failing phase's error, or a
//	        checkpoint/validation error before any phase ran.
func (r *Runner) Run(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		return fmt.Errorf("%w: nil context", ErrInvalidInput)
	}
	if opts.ProjectID == "" {
		return fmt.Errorf("%w: project id must not be empty", ErrInvalidInput)
	}
	if opts.BindingsPath == "" {
		opts.BindingsPath = filepath.Join(opts.BuildDir, "halyard.bindings.env")
	}

	state := &runState{
		cp: Checkpoint{
			ProjectID: opts.ProjectID,
			RunID:     uuid.NewString(),
			Paths: Paths{
				ProjectDir:   opts.ProjectDir,
				BuildDir:     opts.BuildDir,
				BindingsPath: opts.BindingsPath,
			},
		},
	}

	startIdx := 0
	if opts.ResumeFrom != "" {
		if opts.ResumeFrom.Index() < 0 {
			return fmt.Errorf("%w: %q", ErrInvalidPhase, opts.ResumeFrom)
		}
		cp, err := LoadCheckpoint(r.checkpointPath)
		if err != nil {
			return err
		}
		if cp.ProjectID != opts.ProjectID {
			return fmt.Errorf("%w: checkpoint is for %q, requested %q",
				ErrProjectMismatch, cp.ProjectID, opts.ProjectID)
		}
		// Resume re-reads recorded paths and the resolved module order
		// rather than recomputing them.
		state.cp.Paths = cp.Paths
		state.modules = cp.Modules
		state.cp.Modules = cp.Modules
		opts.ProjectDir = cp.Paths.ProjectDir
		opts.BuildDir = cp.Paths.BuildDir
		opts.BindingsPath = cp.Paths.BindingsPath
		startIdx = opts.ResumeFrom.Index()
		r.logger.Info("resuming from checkpoint",
			"phase", opts.ResumeFrom,
			"checkpoint", r.checkpointPath,
			"failed_run", cp.RunID,
		)
	}

	skip := make(map[Phase]bool, len(opts.SkipPhases))
	for _, p := range opts.SkipPhases {
		skip[p] = true
	}

	log := r.logger.With("project_id", opts.ProjectID, "run_id", state.cp.RunID)

	for i, phase := range PhaseOrder {
		if i < startIdx {
			log.Info("phase already complete, resume skips it", "phase", phase)
			continue
		}
		if skip[phase] {
			log.Info("phase skipped by policy", "phase", phase)
			continue
		}

		if err := r.runPhase(ctx, phase, state, opts); err != nil {
			if !opts.DryRun {
				state.cp.LastPhase = phase
				state.cp.LastStatus = StatusFailed
				state.cp.LastMessage = err.Error()
				state.cp.Timestamp = time.Now()
				if saveErr := SaveCheckpoint(state.cp, r.checkpointPath); saveErr != nil {
					log.Error("checkpoint save failed", "error", saveErr)
				}
			}
			log.Error("phase failed",
				"phase", phase,
				"error", err,
				"remediation", fmt.Sprintf("halyard provision --project-id %s --resume-from %s", opts.ProjectID, phase),
				"checkpoint", r.checkpointPath,
			)
			return fmt.Errorf("%w: %s: %v", ErrPhaseFailed, phase, err)
		}

		if !opts.DryRun {
			state.cp.LastPhase = phase
			state.cp.LastStatus = StatusComplete
			state.cp.LastMessage = fmt.Sprintf("phase %s complete", phase)
			state.cp.Timestamp = time.Now()
			if err := SaveCheckpoint(state.cp, r.checkpointPath); err != nil {
				return fmt.Errorf("persist checkpoint after %s: %w", phase, err)
			}
		}
		log.Info("phase complete", "phase", phase)
	}

	if !opts.DryRun {
		if err := DeleteCheckpoint(r.checkpointPath); err != nil {
			return err
		}
	}
	log.Info("provisioning complete")
	return nil
}

// Cleanup removes the checkpoint and build output for a project.
func (r *Runner) Cleanup(opts RunOptions) error {
	if err := DeleteCheckpoint(r.checkpointPath); err != nil {
		return err
	}
	if opts.BuildDir != "" {
		if err := os.RemoveAll(opts.BuildDir); err != nil {
			return fmt.Errorf("remove build dir: %w", err)
		}
	}
	r.logger.Info("cleanup complete", "checkpoint", r.checkpointPath, "build_dir", opts.BuildDir)
	return nil
}

// runPhase dispatches one phase with tracing.
func (r *Runner) runPhase(ctx context.Context, phase Phase, state *runState, opts RunOptions) error {
	ctx, span := tracer.Start(ctx, "workflow.phase",
		trace.WithAttributes(
			attribute.String("phase", string(phase)),
			attribute.String("project_id", opts.ProjectID),
			attribute.Bool("dry_run", opts.DryRun),
		),
	)
	defer span.End()

	var err error
	switch phase {
	case PhasePreflight:
		err = r.phasePreflight(ctx, state, opts)
	case PhaseAssemble:
		err = r.phaseAssemble(ctx, state, opts)
	case PhaseBuildValidate:
		err = r.phaseBuildValidate(ctx, state, opts)
	case PhaseDeployInfra:
		err = r.phaseDeployInfra(ctx, state, opts)
	case PhaseStartRuntime:
		err = r.phaseStartRuntime(ctx, state, opts)
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidPhase, phase)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// phasePreflight verifies inputs and external tooling before anything
// mutates.
func (r *Runner) phasePreflight(ctx context.Context, state *runState, opts RunOptions) error {
	info, err := os.Stat(r.modulesDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("modules dir %s not usable: %v", r.modulesDir, err)
	}
	if opts.DryRun {
		r.logger.Info("dry-run: would validate provisioner tooling")
		return nil
	}
	if err := r.provisioner.Validate(ctx); err != nil {
		return err
	}
	return nil
}

// phaseAssemble resolves the module set and copies module sources into the
// project workspace.
func (r *Runner) phaseAssemble(ctx context.Context, state *runState, opts RunOptions) error {
	if len(state.modules) == 0 {
		requested := opts.Modules
		if len(requested) == 0 {
			requested = r.registry.Required()
		}
		resolved, err := r.registry.Resolve(requested)
		if err != nil {
			return err
		}
		state.modules = resolved
		state.cp.Modules = resolved
	}
	r.logger.Info("module set resolved", "modules", strings.Join(state.modules, ", "))

	for _, module := range state.modules {
		srcDir := filepath.Join(r.modulesDir, module)
		if _, err := os.Stat(srcDir); err != nil {
			return fmt.Errorf("module %s source missing at %s: %w", module, srcDir, err)
		}
		if opts.DryRun {
			r.logger.Info("dry-run: would assemble module", "module", module, "into", opts.ProjectDir)
			continue
		}
		if err := r.assembler.Assemble(ctx, module, srcDir, opts.ProjectDir); err != nil {
			return fmt.Errorf("assemble %s: %w", module, err)
		}
	}
	return nil
}

// phaseBuildValidate builds every resolved module and validates the
// reports. Per-unit failures are aggregated into one phase error so the
// operator sees the full picture before deciding to resume.
func (r *Runner) phaseBuildValidate(ctx context.Context, state *runState, opts RunOptions) error {
	if opts.DryRun {
		for _, module := range state.modules {
			r.logger.Info("dry-run: would build module", "module", module, "out", opts.BuildDir)
		}
		return nil
	}

	artifacts, failures, err := r.buildModules(ctx, state.modules, opts)
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		return fmt.Errorf("build failures: %s", strings.Join(failures, "; "))
	}
	state.artifacts = artifacts
	return nil
}

// phaseDeployInfra uploads artifacts, writes the variable-binding manifest,
// and applies the infrastructure plan.
func (r *Runner) phaseDeployInfra(ctx context.Context, state *runState, opts RunOptions) error {
	if opts.DryRun {
		r.logger.Info("dry-run: would upload artifacts and apply infrastructure",
			"modules", len(state.modules), "bindings", opts.BindingsPath)
		return nil
	}

	// On resume the build phase was skipped, so re-enumerate artifacts
	// from the build output; digest records make this a no-op rebuild.
	if len(state.artifacts) == 0 {
		artifacts, failures, err := r.buildModules(ctx, state.modules, opts)
		if err != nil {
			return err
		}
		if len(failures) > 0 {
			return fmt.Errorf("artifact enumeration failures: %s", strings.Join(failures, "; "))
		}
		state.artifacts = artifacts
	}

	report, err := r.uploader.Deploy(ctx, state.artifacts, r.store, deploy.Options{
		Prefix: opts.UploadPrefix,
		Force:  opts.ForceUpload,
	})
	if err != nil {
		return err
	}
	if err := report.Bindings.Write(opts.BindingsPath); err != nil {
		return err
	}
	r.logger.Info("bindings manifest written",
		"path", opts.BindingsPath,
		"uploaded", len(report.Uploaded),
		"unchanged", len(report.Unchanged),
	)

	return r.provisioner.Apply(ctx, opts.BindingsPath)
}

// phaseStartRuntime brings the project runtime up.
func (r *Runner) phaseStartRuntime(ctx context.Context, state *runState, opts RunOptions) error {
	if opts.DryRun {
		r.logger.Info("dry-run: would start runtime services")
		return nil
	}
	return r.runtime.Start(ctx)
}

// buildModules builds every module in install order and flattens the
// usable artifacts.
func (r *Runner) buildModules(ctx context.Context, modules registry.ResolvedModuleSet, opts RunOptions) ([]build.Artifact, []string, error) {
	var artifacts []build.Artifact
	var failures []string
	for _, module := range modules {
		moduleDir := filepath.Join(opts.ProjectDir, "modules", module)
		report, err := r.engine.Build(ctx, moduleDir, build.Options{
			OutputDir:    opts.BuildDir,
			ForceRebuild: opts.ForceRebuild,
			EntryPoint:   opts.EntryPoint,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build %s: %w", module, err)
		}
		for _, f := range report.Failed {
			failures = append(failures, fmt.Sprintf("%s/%s: %v", module, f.Name, f.Err))
		}
		artifacts = append(artifacts, report.Artifacts()...)
	}
	return artifacts, failures, nil
}
