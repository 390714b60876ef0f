// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"fmt"
	"strings"
)

// Phase is one ordered, atomic step of the provisioning workflow.
type Phase string

const (
	// PhasePreflight verifies external tooling and input layout before
	// anything mutates.
	PhasePreflight Phase = "preflight"

	// PhaseAssemble resolves the module set and copies module sources into
	// the project workspace.
	PhaseAssemble Phase = "assemble"

	// PhaseBuildValidate builds every resolved module's artifacts and
	// validates the build reports.
	PhaseBuildValidate Phase = "build-validate"

	// PhaseDeployInfra uploads artifacts, writes the variable-binding
	// manifest, and applies the infrastructure plan.
	PhaseDeployInfra Phase = "deploy-infra"

	// PhaseStartRuntime starts the project's runtime services.
	PhaseStartRuntime Phase = "start-runtime"
)

// PhaseOrder is the fixed execution sequence.
var PhaseOrder = []Phase{
	PhasePreflight,
	PhaseAssemble,
	PhaseBuildValidate,
	PhaseDeployInfra,
	PhaseStartRuntime,
}

// ParsePhase converts a user-supplied phase name (as used by --resume-from
// and --skip-phases) to a Phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	if p.Index() < 0 {
		return "", fmt.Errorf("%w: %q (valid: %s)", ErrInvalidPhase, s, phaseNames())
	}
	return p, nil
}

// ParsePhases converts a comma-separated skip list.
func ParsePhases(csv string) ([]Phase, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}
	var phases []Phase
	for _, part := range strings.Split(csv, ",") {
		p, err := ParsePhase(part)
		if err != nil {
			return nil, err
		}
		phases = append(phases, p)
	}
	return phases, nil
}

// Index returns the phase's position in PhaseOrder, or -1.
func (p Phase) Index() int {
	for i, q := range PhaseOrder {
		if p == q {
			return i
		}
	}
	return -1
}

func phaseNames() string {
	names := make([]string, len(PhaseOrder))
	for i, p := range PhaseOrder {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

// Status is a checkpoint's recorded outcome for its last phase.
type Status string

const (
	// StatusRunning marks a phase in progress.
	StatusRunning Status = "running"

	// StatusComplete marks a phase that finished cleanly.
	StatusComplete Status = "complete"

	// StatusFailed marks the phase that halted the run.
	StatusFailed Status = "failed"

	// StatusWarning marks a phase that finished with non-fatal problems.
	StatusWarning Status = "warning"
)
