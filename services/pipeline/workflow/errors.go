// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package workflow drives the fixed provisioning sequence
// preflight -> assemble -> build-validate -> deploy-infra -> start-runtime,
// persisting a checkpoint after each phase so a failed run resumes from the
// failed phase instead of restarting.
//
// Phases run strictly one at a time. A process interrupted mid-phase leaves
// no checkpoint update, so on restart that phase re-runs from its start;
// phase implementations are safe to re-execute (the build engine's digest
// skip and the uploader's remote-digest check already provide this).
//
// The checkpoint is the orchestrator's only durable output. It is passed
// into and returned from phase execution as an explicit value, never held
// as ambient global state, which keeps phase functions independently
// testable.
package workflow

import "errors"

// Sentinel errors for workflow execution.
var (
	// ErrInvalidInput is returned for malformed arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidPhase is returned when a phase name cannot be parsed.
	ErrInvalidPhase = errors.New("unknown workflow phase")

	// ErrPhaseFailed wraps the underlying error of the phase that halted
	// the run.
	ErrPhaseFailed = errors.New("workflow phase failed")

	// ErrCheckpointCorrupt is returned when a checkpoint fails its
	// integrity checksum.
	ErrCheckpointCorrupt = errors.New("checkpoint integrity check failed")

	// ErrCheckpointVersionMismatch is returned when a checkpoint was
	// written by an incompatible format version.
	ErrCheckpointVersionMismatch = errors.New("checkpoint version mismatch")

	// ErrProjectMismatch is returned when a resume run names a different
	// project than the checkpoint records.
	ErrProjectMismatch = errors.New("checkpoint belongs to a different project")

	// ErrNoCheckpoint is returned when a resume is requested but no
	// checkpoint exists.
	ErrNoCheckpoint = errors.New("no checkpoint to resume from")
)
