// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import (
	"fmt"
	"strings"
)

// Resolve computes the closed, deduplicated, dependency-ordered module set
// for a requested subset of the catalog.
//
// Description:
//
//	Expands the requested names through their declared dependencies and
//	returns an install order where every module's dependencies appear at a
//	strictly earlier index. Duplicate requests collapse to a single
//	occurrence. Requested core modules are seeded in ascending tier order so
//	tier drives install ordering among independent core modules.
//
// Inputs:
//
//	requested - Module names to install. Duplicates are tolerated.
//
// Outputs:
//
//	ResolvedModuleSet - The install order. Nil on error.
//	error - ErrUnknownModule if any requested or transitively referenced
//	        name is absent from the catalog; ErrDependencyCycle if the
//	        declared dependencies contain a cycle.
//
// Side Effects:
//
//	None. Resolve is a pure function over the registry and its inputs.
func (r *Registry) Resolve(requested []string) (ResolvedModuleSet, error) {
	// Dedupe the request while preserving first-occurrence order.
	seen := make(map[string]bool, len(requested))
	seeds := make([]string, 0, len(requested))
	for _, name := range requested {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := r.modules[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
		}
		seeds = append(seeds, name)
	}
	r.sortSeeds(seeds)

	res := &resolution{
		registry: r,
		resolved: make(ResolvedModuleSet, 0, len(seeds)),
		state:    make(map[string]visitState, len(seeds)),
	}
	for _, name := range seeds {
		if err := res.visit(name); err != nil {
			return nil, err
		}
	}
	return res.resolved, nil
}

// visitState tracks a module's progress through resolution. The in-progress
// state is what turns an accidental cycle into a reported error instead of
// infinite recursion.
type visitState int

const (
	stateUnvisited visitState = iota
	stateInProgress
	stateDone
)

type resolution struct {
	registry *Registry
	resolved ResolvedModuleSet
	state    map[string]visitState
	// stack holds the active dependency chain for cycle reporting.
	stack []string
}

// visit appends name's dependencies, then name itself, to the resolved set.
func (res *resolution) visit(name string) error {
	switch res.state[name] {
	case stateDone:
		return nil
	case stateInProgress:
		return fmt.Errorf("%w: %s", ErrDependencyCycle, res.cyclePath(name))
	}

	desc, ok := res.registry.modules[name]
	if !ok {
		// Load already validated references, so this only fires for a
		// registry constructed by hand in tests.
		return fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}

	res.state[name] = stateInProgress
	res.stack = append(res.stack, name)

	for _, dep := range desc.Dependencies {
		if err := res.visit(dep); err != nil {
			return err
		}
	}

	res.stack = res.stack[:len(res.stack)-1]
	res.state[name] = stateDone
	res.resolved = append(res.resolved, name)
	return nil
}

// cyclePath renders the dependency chain that closed the cycle, e.g.
// "a -> b -> a".
func (res *resolution) cyclePath(repeat string) string {
	start := 0
	for i, n := range res.stack {
		if n == repeat {
			start = i
			break
		}
	}
	parts := append(append([]string{}, res.stack[start:]...), repeat)
	return strings.Join(parts, " -> ")
}
