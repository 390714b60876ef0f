// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package build

import (
	"fmt"
	"sort"
)

// ArtifactKind classifies a produced package.
type ArtifactKind string

const (
	// KindSharedLayer is the module's bundled third-party dependencies.
	KindSharedLayer ArtifactKind = "shared-layer"

	// KindFunctionUnit is one deployable unit archive.
	KindFunctionUnit ArtifactKind = "function-unit"
)

// Artifact is one produced package.
//
// Artifacts are immutable once created. When inputs change a new artifact
// supersedes the old one; nothing mutates in place.
type Artifact struct {
	// Module is the owning module name.
	Module string `json:"module"`

	// Name identifies the artifact within the module ("layer" for the
	// shared bundle, the unit directory name otherwise).
	Name string `json:"name"`

	// Kind is shared-layer or function-unit.
	Kind ArtifactKind `json:"kind"`

	// ContentHash is the digest over the full input source subtree used to
	// produce this artifact.
	ContentHash string `json:"content_hash"`

	// SizeBytes is the size of the output archive.
	SizeBytes int64 `json:"size_bytes"`

	// LocalPath is where the archive was written.
	LocalPath string `json:"local_path"`
}

// Failure records one artifact that could not be built.
type Failure struct {
	// Name is the artifact name that failed.
	Name string `json:"name"`

	// Err is the underlying error.
	Err error `json:"error"`
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("build %s: %v", f.Name, f.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (f Failure) Unwrap() error {
	return f.Err
}

// Report is the full outcome of building one module.
//
// Rather than failing fast, the engine reports every artifact's disposition
// so the operator sees the whole picture of a partially successful build.
type Report struct {
	// Module is the module that was built.
	Module string `json:"module"`

	// RunID correlates this report with logs and checkpoints.
	RunID string `json:"run_id"`

	// Built lists artifacts rebuilt during this invocation.
	Built []Artifact `json:"built"`

	// Skipped lists artifacts whose inputs were unchanged and whose prior
	// archives were reused.
	Skipped []Artifact `json:"skipped"`

	// Failed lists artifacts that could not be produced.
	Failed []Failure `json:"failed"`
}

// Artifacts returns every usable artifact (built plus skipped) in a stable
// order: shared layer first, then units.
func (r *Report) Artifacts() []Artifact {
	all := make([]Artifact, 0, len(r.Built)+len(r.Skipped))
	all = append(all, r.Built...)
	all = append(all, r.Skipped...)
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Kind != all[j].Kind {
			return all[i].Kind == KindSharedLayer
		}
		return all[i].Name < all[j].Name
	})
	return all
}

// HasFailures reports whether any artifact failed to build.
func (r *Report) HasFailures() bool {
	return len(r.Failed) > 0
}

// Options control a single Build invocation.
type Options struct {
	// OutputDir is where archives and digest records are written. One
	// subdirectory per module is created beneath it.
	OutputDir string

	// ForceRebuild bypasses the content-digest skip check.
	ForceRebuild bool

	// EntryPoint is the file every unit directory must contain.
	// Default: "handler.py".
	EntryPoint string

	// Concurrency bounds parallel unit builds. Default: 4.
	Concurrency int
}

// DefaultEntryPoint is the unit entry point used when Options.EntryPoint is
// empty.
const DefaultEntryPoint = "handler.py"

// DefaultConcurrency bounds parallel unit builds when Options.Concurrency
// is zero.
const DefaultConcurrency = 4
