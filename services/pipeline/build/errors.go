// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package build produces versioned deployment artifacts from a module source
// tree: one shared-layer bundle plus one archive per deployable unit.
//
// The engine is incremental. Before rebuilding an artifact it computes a
// content digest over the artifact's input subtree and compares it against
// the digest recorded by the previous build. An unchanged digest with an
// existing output archive skips the rebuild, so build cost scales with
// changed modules rather than total module count.
//
// A failure in one unit is scoped to that unit; the engine keeps processing
// the remaining units and reports built/skipped/failed lists.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Concurrent builds of the same module
// into the same output directory are not supported.
package build

import "errors"

// Sentinel errors for module builds.
var (
	// ErrInvalidModule is returned when the module path is missing or has
	// neither a shared layer directory nor any unit directories.
	ErrInvalidModule = errors.New("invalid module source layout")

	// ErrMissingEntryPoint is returned when a unit directory lacks its
	// entry point file. Fatal for that unit only.
	ErrMissingEntryPoint = errors.New("unit entry point not found")

	// ErrStagingFailed is returned when shared dependencies cannot be
	// installed into the staging root.
	ErrStagingFailed = errors.New("shared layer staging failed")

	// ErrDigestRecord is returned when a digest record file cannot be
	// written. The build itself succeeded; only the skip bookkeeping for
	// the next run is affected.
	ErrDigestRecord = errors.New("digest record write failed")
)
