// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validModuleNamePattern restricts module names to lowercase alphanumerics,
// underscore and hyphen, so derived artifact keys stay predictable.
var validModuleNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// catalogDocument is the on-disk shape of modules.yaml.
type catalogDocument struct {
	Modules []ModuleDescriptor `yaml:"modules"`
}

// Registry is the loaded, validated module catalog.
//
// Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	modules map[string]ModuleDescriptor
	// order preserves catalog declaration order for listing.
	order []string
}

// Load reads and validates a module catalog from a YAML file.
//
// Description:
//
//	Parses the catalog document, validates each descriptor structurally
//	(validator tags plus the module-name pattern), and verifies that every
//	declared dependency resolves to another catalog entry. Any failure is
//	fatal: a catalog is either fully valid or unusable.
//
// Inputs:
//
//	path - Path to the catalog YAML file.
//
// Outputs:
//
//	*Registry - The immutable catalog. Never nil on success.
//	error - ErrInvalidCatalog, ErrDuplicateModule, or ErrUnknownModule.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidCatalog, path, err)
	}
	return Parse(data)
}

// Parse validates a catalog document already held in memory.
//
// See Load for the validation rules.
func Parse(data []byte) (*Registry, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(doc.Modules) == 0 {
		return nil, fmt.Errorf("%w: catalog declares no modules", ErrInvalidCatalog)
	}

	validate := validator.New()
	r := &Registry{
		modules: make(map[string]ModuleDescriptor, len(doc.Modules)),
		order:   make([]string, 0, len(doc.Modules)),
	}

	for _, m := range doc.Modules {
		if err := validate.Struct(m); err != nil {
			return nil, fmt.Errorf("%w: module %q: %v", ErrInvalidCatalog, m.Name, err)
		}
		if !validModuleNamePattern.MatchString(m.Name) {
			return nil, fmt.Errorf("%w: module name %q must match [a-z0-9_-]+", ErrInvalidCatalog, m.Name)
		}
		if _, exists := r.modules[m.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateModule, m.Name)
		}
		r.modules[m.Name] = m
		r.order = append(r.order, m.Name)
	}

	// Referential validation: every dependency must name a catalog entry.
	for _, m := range doc.Modules {
		for _, dep := range m.Dependencies {
			if _, ok := r.modules[dep]; !ok {
				return nil, fmt.Errorf("%w: %s (declared by %s)", ErrUnknownModule, dep, m.Name)
			}
		}
	}

	return r, nil
}

// Get returns the descriptor for name.
func (r *Registry) Get(name string) (ModuleDescriptor, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Names returns all module names in catalog declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Required returns the names of all modules marked required, sorted so core
// modules come first by ascending tier.
func (r *Registry) Required() []string {
	var names []string
	for _, name := range r.order {
		if r.modules[name].Required {
			names = append(names, name)
		}
	}
	r.sortSeeds(names)
	return names
}

// Len returns the number of catalog entries.
func (r *Registry) Len() int {
	return len(r.modules)
}

// sortSeeds orders a name slice for resolution seeding: core modules by
// ascending tier, then functional modules in their given order. The sort is
// stable so catalog declaration order breaks ties.
func (r *Registry) sortSeeds(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		a, b := r.modules[names[i]], r.modules[names[j]]
		if a.Type != b.Type {
			return a.Type == ModuleTypeCore
		}
		if a.Type == ModuleTypeCore {
			return a.Tier < b.Tier
		}
		return false
	})
}
