// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package deploy uploads build artifacts to a remote artifact store and
// emits the variable-binding manifest consumed by the downstream
// infrastructure tool.
//
// Uploads are checksum-gated: before each upload the uploader asks the store
// for the remote object's current content digest and skips the transfer when
// it matches the local artifact. The store is always the oracle — the
// uploader never trusts a local cache of "already uploaded", so drift
// introduced by out-of-band store changes is self-correcting.
//
// One artifact's upload failure never blocks the rest of the batch; failures
// are aggregated and returned after all artifacts are processed.
package deploy

import "errors"

// Sentinel errors for artifact deployment.
var (
	// ErrObjectNotFound is returned by ArtifactStore.HeadDigest when the
	// key has no stored object.
	ErrObjectNotFound = errors.New("object not found in artifact store")

	// ErrUploadsFailed is the aggregate error returned when one or more
	// artifacts could not be uploaded. Per-artifact detail is in the
	// report's Failed list.
	ErrUploadsFailed = errors.New("one or more artifact uploads failed")

	// ErrBindingConflict is returned when two artifacts derive the same
	// variable-binding name. There is no precedence rule; conflicting
	// catalogs must be fixed, not guessed at.
	ErrBindingConflict = errors.New("conflicting variable binding name")
)
