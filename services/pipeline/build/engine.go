// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/halyardtools/halyard/pkg/logging"
)

var tracer = otel.Tracer("halyard/pipeline/build")

// Module source layout: an optional shared-dependency directory plus one
// directory per deployable unit.
const (
	layerDirName = "layer"
	unitsDirName = "functions"

	// layerArtifactName is the fixed artifact name of the shared bundle.
	layerArtifactName = "layer"
)

// EngineOption is a functional option for configuring Engine.
type EngineOption func(*Engine)

// Engine builds one module's deployment artifacts incrementally.
type Engine struct {
	logger    *logging.Logger
	installer Installer
}

// NewEngine creates a build engine.
//
// Default configuration:
//   - installer: CopyInstaller (vendored shared dependencies)
func NewEngine(logger *logging.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		logger:    logger,
		installer: CopyInstaller{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Default()
	}
	return e
}

// WithInstaller sets the shared-layer dependency installer.
func WithInstaller(i Installer) EngineOption {
	return func(e *Engine) {
		e.installer = i
	}
}

// Build produces the module's artifacts, skipping any whose inputs are
// unchanged since the previous build.
//
// Description:
//
//	Processes the module's shared-layer bundle (if a layer directory
//	exists) and one archive per unit directory. Each artifact's input
//	subtree is digested and compared against the record left by the
//	previous build; unchanged inputs with an existing archive skip the
//	rebuild unless Options.ForceRebuild is set. Unit builds run
//	concurrently; the shared layer is built first since units may depend
//	on it existing.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	modulePath - Root of the module's source tree.
//	opts - Build options. OutputDir must be set.
//
// Outputs:
//
//	*Report - Built/skipped/failed accounting. Never nil on success.
//	error - Non-nil only for whole-module problems (bad layout, bad
//	        output directory). Per-unit failures land in Report.Failed.
//
// Side Effects:
//
//	Writes archives and digest records under opts.OutputDir. No network.
func (e *Engine) Build(ctx context.Context, modulePath string, opts Options) (*Report, error) {
	ctx, span := tracer.Start(ctx, "build.module")
	defer span.End()

	if opts.OutputDir == "" {
		return nil, fmt.Errorf("%w: output directory not set", ErrInvalidModule)
	}
	info, err := os.Stat(modulePath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidModule, modulePath)
	}

	moduleName := filepath.Base(modulePath)
	span.SetAttributes(
		attribute.String("module.name", moduleName),
		attribute.Bool("build.force", opts.ForceRebuild),
	)

	layerDir := filepath.Join(modulePath, layerDirName)
	hasLayer := dirExists(layerDir)
	units, err := listUnits(filepath.Join(modulePath, unitsDirName))
	if err != nil {
		return nil, err
	}
	if !hasLayer && len(units) == 0 {
		return nil, fmt.Errorf("%w: %s has no %s/ directory and no %s/ units",
			ErrInvalidModule, modulePath, layerDirName, unitsDirName)
	}

	moduleOutDir := filepath.Join(opts.OutputDir, moduleName)
	if err := os.MkdirAll(moduleOutDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	report := &Report{
		Module: moduleName,
		RunID:  uuid.NewString(),
	}
	log := e.logger.With("module", moduleName, "run_id", report.RunID)

	// Shared layer first: units that depend on it must never observe a
	// missing bundle.
	if hasLayer {
		artifact, built, err := e.buildLayer(ctx, moduleName, layerDir, moduleOutDir, opts)
		switch {
		case err != nil:
			log.Error("shared layer build failed", "error", err)
			report.Failed = append(report.Failed, Failure{Name: layerArtifactName, Err: err})
		case built:
			log.Info("shared layer built", "size_bytes", artifact.SizeBytes)
			report.Built = append(report.Built, artifact)
		default:
			log.Info("shared layer unchanged, skipping")
			report.Skipped = append(report.Skipped, artifact)
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	g.SetLimit(concurrency)

	for _, unit := range units {
		g.Go(func() error {
			artifact, built, err := e.buildUnit(gctx, moduleName, unit, modulePath, moduleOutDir, opts)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				// Scoped to this unit. Remaining units keep building.
				log.Error("unit build failed", "unit", unit, "error", err)
				report.Failed = append(report.Failed, Failure{Name: unit, Err: err})
			case built:
				log.Info("unit built", "unit", unit, "size_bytes", artifact.SizeBytes)
				report.Built = append(report.Built, artifact)
			default:
				log.Info("unit unchanged, skipping", "unit", unit)
				report.Skipped = append(report.Skipped, artifact)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	sortFailures(report)
	span.SetAttributes(
		attribute.Int("build.built", len(report.Built)),
		attribute.Int("build.skipped", len(report.Skipped)),
		attribute.Int("build.failed", len(report.Failed)),
	)
	if report.HasFailures() {
		span.SetStatus(codes.Error, "partial build failure")
	}

	log.Info("module build complete",
		"built", len(report.Built),
		"skipped", len(report.Skipped),
		"failed", len(report.Failed),
	)
	return report, nil
}

// buildLayer stages and archives the shared-dependency bundle.
// Returns built=false when the prior archive was reused.
func (e *Engine) buildLayer(ctx context.Context, moduleName, layerDir, moduleOutDir string, opts Options) (Artifact, bool, error) {
	digest, err := TreeDigest(layerDir)
	if err != nil {
		return Artifact{}, false, err
	}

	outPath := filepath.Join(moduleOutDir, layerArtifactName+".zip")
	artifact := Artifact{
		Module:      moduleName,
		Name:        layerArtifactName,
		Kind:        KindSharedLayer,
		ContentHash: digest,
		LocalPath:   outPath,
	}

	if !opts.ForceRebuild && digest == readDigestRecord(moduleOutDir, layerArtifactName) {
		if info, err := os.Stat(outPath); err == nil {
			artifact.SizeBytes = info.Size()
			return artifact, false, nil
		}
	}

	staging, err := os.MkdirTemp("", "halyard-layer-*")
	if err != nil {
		return Artifact{}, false, fmt.Errorf("%w: %v", ErrStagingFailed, err)
	}
	defer os.RemoveAll(staging)

	if err := e.installer.Install(ctx, layerDir, staging); err != nil {
		return Artifact{}, false, fmt.Errorf("%w: %v", ErrStagingFailed, err)
	}

	size, err := archiveTree(staging, outPath)
	if err != nil {
		return Artifact{}, false, err
	}
	artifact.SizeBytes = size

	if err := writeDigestRecord(moduleOutDir, layerArtifactName, digest); err != nil {
		return Artifact{}, false, err
	}
	return artifact, true, nil
}

// buildUnit archives one deployable unit directory.
// Returns built=false when the prior archive was reused.
func (e *Engine) buildUnit(ctx context.Context, moduleName, unit, modulePath, moduleOutDir string, opts Options) (Artifact, bool, error) {
	if ctx.Err() != nil {
		return Artifact{}, false, ctx.Err()
	}

	unitDir := filepath.Join(modulePath, unitsDirName, unit)
	entryPoint := opts.EntryPoint
	if entryPoint == "" {
		entryPoint = DefaultEntryPoint
	}
	if _, err := os.Stat(filepath.Join(unitDir, entryPoint)); err != nil {
		return Artifact{}, false, fmt.Errorf("%w: %s/%s", ErrMissingEntryPoint, unit, entryPoint)
	}

	digest, err := TreeDigest(unitDir)
	if err != nil {
		return Artifact{}, false, err
	}

	outPath := filepath.Join(moduleOutDir, unit+".zip")
	artifact := Artifact{
		Module:      moduleName,
		Name:        unit,
		Kind:        KindFunctionUnit,
		ContentHash: digest,
		LocalPath:   outPath,
	}

	if !opts.ForceRebuild && digest == readDigestRecord(moduleOutDir, unit) {
		if info, err := os.Stat(outPath); err == nil {
			artifact.SizeBytes = info.Size()
			return artifact, false, nil
		}
	}

	size, err := archiveTree(unitDir, outPath)
	if err != nil {
		return Artifact{}, false, err
	}
	artifact.SizeBytes = size

	if err := writeDigestRecord(moduleOutDir, unit, digest); err != nil {
		return Artifact{}, false, err
	}
	return artifact, true, nil
}

// dirExists reports whether path exists and is a directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// listUnits returns the unit directory names under unitsDir, sorted.
// A missing units directory is not an error; modules may be layer-only.
func listUnits(unitsDir string) ([]string, error) {
	entries, err := os.ReadDir(unitsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read units dir: %w", err)
	}
	var units []string
	for _, entry := range entries {
		if entry.IsDir() {
			units = append(units, entry.Name())
		}
	}
	sort.Strings(units)
	return units, nil
}

// sortFailures orders the failure list by artifact name so reports are
// stable regardless of unit build completion order.
func sortFailures(r *Report) {
	sort.Slice(r.Failed, func(i, j int) bool {
		return r.Failed[i].Name < r.Failed[j].Name
	})
}
