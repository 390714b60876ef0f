// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package build

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
)

// Installer stages a module's shared third-party dependencies into a clean
// staging root, ready for archiving.
//
// The interface keeps the engine testable without shelling out to a real
// package manager.
type Installer interface {
	// Install populates stagingDir from the dependency declarations found
	// in layerDir. stagingDir exists and is empty when called.
	Install(ctx context.Context, layerDir, stagingDir string) error
}

// CopyInstaller stages the layer directory by copying it verbatim.
//
// This is the default: modules that vendor their shared dependencies need no
// package-manager step, and it keeps Build free of network access.
type CopyInstaller struct{}

// Install copies every regular file from layerDir into stagingDir,
// preserving relative paths.
func (CopyInstaller) Install(ctx context.Context, layerDir, stagingDir string) error {
	return filepath.WalkDir(layerDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(layerDir, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(stagingDir, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, dst)
	})
}

// PipInstaller stages dependencies by running pip against the layer's
// requirements file. Used when modules declare (rather than vendor) their
// shared dependencies.
type PipInstaller struct {
	// Python is the interpreter to invoke. Default: "python3".
	Python string

	// RequirementsFile is the declaration file inside the layer directory.
	// Default: "requirements.txt".
	RequirementsFile string
}

// Install runs "python -m pip install -r <requirements> -t <stagingDir>".
func (p PipInstaller) Install(ctx context.Context, layerDir, stagingDir string) error {
	python := p.Python
	if python == "" {
		python = "python3"
	}
	reqFile := p.RequirementsFile
	if reqFile == "" {
		reqFile = "requirements.txt"
	}

	reqPath := filepath.Join(layerDir, reqFile)
	if _, err := os.Stat(reqPath); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStagingFailed, reqPath, err)
	}

	cmd := exec.CommandContext(ctx, python, "-m", "pip", "install",
		"--quiet", "--no-input",
		"-r", reqPath,
		"-t", stagingDir,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: pip install: %v", ErrStagingFailed, err)
	}
	return nil
}

// copyFile copies src to dst, creating parent directories as needed.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
