// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

// ModuleType classifies a catalog module.
//
// Core modules form the platform substrate and are installed in tier order.
// Functional modules sit on top and are ordered purely by their declared
// dependencies.
type ModuleType string

const (
	// ModuleTypeCore is a platform module. Tier controls install ordering
	// among core modules.
	ModuleTypeCore ModuleType = "core"

	// ModuleTypeFunctional is a feature module. Tier is ignored.
	ModuleTypeFunctional ModuleType = "functional"
)

// ModuleDescriptor is one installable module as declared in the catalog.
//
// Descriptors are loaded once and never mutated at runtime. Every name in
// Dependencies must resolve to another descriptor in the same catalog;
// unresolved references fail catalog validation.
type ModuleDescriptor struct {
	// Name is the unique catalog key for this module.
	// Must match [a-z0-9_-]+ (enforced during catalog load).
	Name string `yaml:"name" validate:"required"`

	// Type is either "core" or "functional".
	Type ModuleType `yaml:"type" validate:"required,oneof=core functional"`

	// Tier orders core modules during project assembly. Lower tiers install
	// first. Ignored for functional modules.
	Tier int `yaml:"tier" validate:"gte=0"`

	// Dependencies lists the names of modules that must be installed before
	// this one.
	Dependencies []string `yaml:"dependencies"`

	// Required marks modules that every project must include.
	Required bool `yaml:"required"`
}

// ResolvedModuleSet is a dependency-satisfying install order.
//
// Every module's dependencies appear at a strictly earlier index, and each
// module appears exactly once regardless of how many requesters or
// dependents named it.
type ResolvedModuleSet []string

// Contains reports whether name is part of the resolved set.
func (s ResolvedModuleSet) Contains(name string) bool {
	return s.Index(name) >= 0
}

// Index returns the position of name in the install order, or -1.
func (s ResolvedModuleSet) Index(name string) int {
	for i, n := range s {
		if n == name {
			return i
		}
	}
	return -1
}
