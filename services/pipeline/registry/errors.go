// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package registry loads the declarative module catalog and resolves a
// requested module set into a dependency-ordered install sequence.
//
// The catalog is an immutable, read-only input. Every validation problem
// (unknown module name, duplicate entry, dependency cycle) is fatal and
// surfaced before any build or infrastructure action begins; resolution has
// no partial-success mode.
//
// # Thread Safety
//
// A Registry is immutable after Load and safe for concurrent use.
package registry

import "errors"

// Sentinel errors for catalog loading and resolution.
var (
	// ErrInvalidCatalog is returned when the catalog document cannot be
	// parsed or a descriptor fails structural validation.
	ErrInvalidCatalog = errors.New("invalid module catalog")

	// ErrDuplicateModule is returned when two catalog entries share a name.
	ErrDuplicateModule = errors.New("duplicate module in catalog")

	// ErrUnknownModule is returned when a requested or transitively
	// referenced module name is absent from the catalog.
	ErrUnknownModule = errors.New("unknown module")

	// ErrDependencyCycle is returned when resolution detects a cycle in the
	// declared dependencies. Cycles are reported, never silently broken.
	ErrDependencyCycle = errors.New("dependency cycle detected")
)
