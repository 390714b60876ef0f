// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CheckpointVersion is the current checkpoint format version (semver).
const CheckpointVersion = "1.0.0"

// Paths are the resolved filesystem locations a resumed run re-reads
// instead of recomputing.
type Paths struct {
	// ProjectDir is the assembled project workspace.
	ProjectDir string `json:"project_dir"`

	// BuildDir is the artifact output directory.
	BuildDir string `json:"build_dir"`

	// BindingsPath is where the variable-binding manifest is written.
	BindingsPath string `json:"bindings_path"`
}

// Checkpoint is the persisted state of one in-flight provisioning run.
//
// A single record exists per project, overwritten after each phase
// transition and deleted on successful completion. Everything else in the
// pipeline is recomputed from source each run.
type Checkpoint struct {
	// ProjectID identifies the provisioning run's project.
	ProjectID string `json:"project_id"`

	// RunID correlates the checkpoint with logs and reports.
	RunID string `json:"run_id"`

	// LastPhase is the most recently attempted phase.
	LastPhase Phase `json:"last_phase"`

	// LastStatus records how that phase ended.
	LastStatus Status `json:"last_status"`

	// LastMessage is the human-readable outcome detail.
	LastMessage string `json:"last_message"`

	// Timestamp is when this record was written.
	Timestamp time.Time `json:"timestamp"`

	// Paths are the resolved locations needed to resume.
	Paths Paths `json:"paths"`

	// Modules is the resolved install order, so a resumed run does not
	// re-resolve against a possibly edited catalog mid-flight.
	Modules []string `json:"modules"`
}

// serializableCheckpoint is the on-disk format.
type serializableCheckpoint struct {
	Checkpoint Checkpoint `json:"checkpoint"`
	Version    string     `json:"version"`
	Checksum   string     `json:"checksum"`
}

// checksum calculates SHA256 over the checkpoint and version for integrity
// verification. The checksum field itself is excluded.
func checksum(cp Checkpoint) (string, error) {
	data := struct {
		Checkpoint Checkpoint `json:"checkpoint"`
		Version    string     `json:"version"`
	}{
		Checkpoint: cp,
		Version:    CheckpointVersion,
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal for checksum: %w", err)
	}
	sum := sha256.Sum256(jsonData)
	return hex.EncodeToString(sum[:]), nil
}

// SaveCheckpoint serializes the checkpoint to a file.
//
// Description:
//
//	Writes the record atomically using temp file + rename so readers and
//	interrupted writers never observe a torn checkpoint. The parent
//	directory is created if missing.
//
// Inputs:
//
//	cp - The checkpoint to persist. ProjectID must not be empty.
//	path - Destination file path.
//
// Outputs:
//
//	error - Non-nil if serialization or the file write fails.
func SaveCheckpoint(cp Checkpoint, path string) error {
	if cp.ProjectID == "" {
		return fmt.Errorf("%w: checkpoint project id must not be empty", ErrInvalidInput)
	}
	if path == "" {
		return fmt.Errorf("%w: checkpoint path must not be empty", ErrInvalidInput)
	}

	sum, err := checksum(cp)
	if err != nil {
		return err
	}
	record := serializableCheckpoint{
		Checkpoint: cp,
		Version:    CheckpointVersion,
		Checksum:   sum,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	success = true
	return nil
}

// LoadCheckpoint reads and verifies a checkpoint from a file.
//
// Description:
//
//	Loads a previously saved checkpoint, verifying format version and
//	integrity checksum. A corrupt or version-mismatched record is an
//	error, never silently reinterpreted.
//
// Outputs:
//
//	*Checkpoint - The loaded record. Never nil on success.
//	error - ErrNoCheckpoint if the file does not exist,
//	        ErrCheckpointVersionMismatch or ErrCheckpointCorrupt on a bad
//	        record, or an I/O error.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNoCheckpoint, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var record serializableCheckpoint
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}

	if record.Version != CheckpointVersion {
		return nil, fmt.Errorf("%w: got %s, want %s",
			ErrCheckpointVersionMismatch, record.Version, CheckpointVersion)
	}

	expected, err := checksum(record.Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("compute checksum for verification: %w", err)
	}
	if record.Checksum != expected {
		return nil, ErrCheckpointCorrupt
	}

	cp := record.Checkpoint
	return &cp, nil
}

// DeleteCheckpoint removes the checkpoint file. Missing files are not an
// error; completion is idempotent.
func DeleteCheckpoint(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// DefaultCheckpointPath is the well-known per-operator checkpoint location:
// ~/.halyard/state/provision.checkpoint.json.
func DefaultCheckpointPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".halyard", "state", "provision.checkpoint.json"), nil
}
