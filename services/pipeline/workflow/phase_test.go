// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"errors"
	"testing"
)

func TestParsePhase(t *testing.T) {
	tests := []struct {
		in      string
		want    Phase
		wantErr bool
	}{
		{"preflight", PhasePreflight, false},
		{"assemble", PhaseAssemble, false},
		{"build-validate", PhaseBuildValidate, false},
		{"deploy-infra", PhaseDeployInfra, false},
		{"start-runtime", PhaseStartRuntime, false},
		{"  Deploy-Infra  ", PhaseDeployInfra, false},
		{"deploy", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePhase(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPhase) {
				t.Errorf("ParsePhase(%q): expected ErrInvalidPhase, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePhase(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePhase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParsePhases(t *testing.T) {
	got, err := ParsePhases("preflight, start-runtime")
	if err != nil {
		t.Fatalf("ParsePhases: %v", err)
	}
	if len(got) != 2 || got[0] != PhasePreflight || got[1] != PhaseStartRuntime {
		t.Errorf("unexpected phases: %v", got)
	}

	if got, err := ParsePhases(""); err != nil || got != nil {
		t.Errorf("empty list should parse to nil, got %v, %v", got, err)
	}

	if _, err := ParsePhases("preflight,bogus"); !errors.Is(err, ErrInvalidPhase) {
		t.Errorf("expected ErrInvalidPhase, got %v", err)
	}
}

func TestPhaseIndex_MatchesOrder(t *testing.T) {
	for i, p := range PhaseOrder {
		if p.Index() != i {
			t.Errorf("phase %s: Index() = %d, want %d", p, p.Index(), i)
		}
	}
	if Phase("nope").Index() != -1 {
		t.Error("unknown phase should index to -1")
	}
}
