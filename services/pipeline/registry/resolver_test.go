// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCatalog builds a registry from descriptors without going through YAML.
func testCatalog(t *testing.T, modules ...ModuleDescriptor) *Registry {
	t.Helper()
	r := &Registry{modules: make(map[string]ModuleDescriptor, len(modules))}
	for _, m := range modules {
		r.modules[m.Name] = m
		r.order = append(r.order, m.Name)
	}
	return r
}

func TestResolve_DependencyClosure(t *testing.T) {
	r := testCatalog(t,
		ModuleDescriptor{Name: "access", Type: ModuleTypeCore, Tier: 1},
		ModuleDescriptor{Name: "ai", Type: ModuleTypeCore, Tier: 2, Dependencies: []string{"access"}},
		ModuleDescriptor{Name: "eval", Type: ModuleTypeFunctional, Dependencies: []string{"ai"}},
	)

	resolved, err := r.Resolve([]string{"eval"})
	require.NoError(t, err)
	assert.Equal(t, ResolvedModuleSet{"access", "ai", "eval"}, resolved)
}

func TestResolve_DependencyOrdering(t *testing.T) {
	r := testCatalog(t,
		ModuleDescriptor{Name: "base", Type: ModuleTypeCore, Tier: 0},
		ModuleDescriptor{Name: "store", Type: ModuleTypeCore, Tier: 1, Dependencies: []string{"base"}},
		ModuleDescriptor{Name: "api", Type: ModuleTypeFunctional, Dependencies: []string{"store"}},
		ModuleDescriptor{Name: "jobs", Type: ModuleTypeFunctional, Dependencies: []string{"store", "base"}},
	)

	resolved, err := r.Resolve([]string{"api", "jobs"})
	require.NoError(t, err)

	for _, name := range resolved {
		desc, ok := r.Get(name)
		require.True(t, ok)
		for _, dep := range desc.Dependencies {
			assert.Less(t, resolved.Index(dep), resolved.Index(name),
				"dependency %s must precede %s", dep, name)
		}
	}
}

func TestResolve_Idempotence(t *testing.T) {
	r := testCatalog(t,
		ModuleDescriptor{Name: "a", Type: ModuleTypeCore, Tier: 0},
		ModuleDescriptor{Name: "b", Type: ModuleTypeFunctional, Dependencies: []string{"a"}},
	)

	withDup, err := r.Resolve([]string{"a", "a", "b"})
	require.NoError(t, err)
	withoutDup, err := r.Resolve([]string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, withoutDup, withDup)
	assert.Equal(t, 1, countOccurrences(withDup, "a"))
}

func TestResolve_SharedDependencyAppearsOnce(t *testing.T) {
	r := testCatalog(t,
		ModuleDescriptor{Name: "shared", Type: ModuleTypeCore, Tier: 0},
		ModuleDescriptor{Name: "left", Type: ModuleTypeFunctional, Dependencies: []string{"shared"}},
		ModuleDescriptor{Name: "right", Type: ModuleTypeFunctional, Dependencies: []string{"shared"}},
	)

	resolved, err := r.Resolve([]string{"left", "right"})
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(resolved, "shared"))
	assert.Len(t, resolved, 3)
}

func TestResolve_UnknownModule(t *testing.T) {
	r := testCatalog(t,
		ModuleDescriptor{Name: "a", Type: ModuleTypeCore, Tier: 0},
	)

	t.Run("requested name", func(t *testing.T) {
		_, err := r.Resolve([]string{"nope"})
		assert.ErrorIs(t, err, ErrUnknownModule)
	})

	t.Run("transitive reference", func(t *testing.T) {
		// Hand-built registry bypasses Load's referential validation.
		broken := testCatalog(t,
			ModuleDescriptor{Name: "a", Type: ModuleTypeCore, Dependencies: []string{"ghost"}},
		)
		_, err := broken.Resolve([]string{"a"})
		assert.ErrorIs(t, err, ErrUnknownModule)
	})
}

func TestResolve_CycleDetection(t *testing.T) {
	r := testCatalog(t,
		ModuleDescriptor{Name: "a", Type: ModuleTypeFunctional, Dependencies: []string{"b"}},
		ModuleDescriptor{Name: "b", Type: ModuleTypeFunctional, Dependencies: []string{"a"}},
	)

	_, err := r.Resolve([]string{"a"})
	require.ErrorIs(t, err, ErrDependencyCycle)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestResolve_SelfCycle(t *testing.T) {
	r := testCatalog(t,
		ModuleDescriptor{Name: "loop", Type: ModuleTypeFunctional, Dependencies: []string{"loop"}},
	)

	_, err := r.Resolve([]string{"loop"})
	assert.ErrorIs(t, err, ErrDependencyCycle)
}

func TestResolve_CoreTierOrdering(t *testing.T) {
	// Independent core modules install by ascending tier regardless of
	// request order; functional modules follow.
	r := testCatalog(t,
		ModuleDescriptor{Name: "tier2", Type: ModuleTypeCore, Tier: 2},
		ModuleDescriptor{Name: "tier0", Type: ModuleTypeCore, Tier: 0},
		ModuleDescriptor{Name: "feat", Type: ModuleTypeFunctional},
	)

	resolved, err := r.Resolve([]string{"feat", "tier2", "tier0"})
	require.NoError(t, err)
	assert.Equal(t, ResolvedModuleSet{"tier0", "tier2", "feat"}, resolved)
}

func TestResolve_EmptyRequest(t *testing.T) {
	r := testCatalog(t,
		ModuleDescriptor{Name: "a", Type: ModuleTypeCore},
	)

	resolved, err := r.Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func countOccurrences(set ResolvedModuleSet, name string) int {
	n := 0
	for _, m := range set {
		if m == name {
			n++
		}
	}
	return n
}
