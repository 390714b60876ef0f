// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package build

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TreeDigest computes a content digest over every regular file beneath root.
//
// Description:
//
//	Collects the relative path of each file, sorts the list, hashes each
//	file's content with SHA-256, and digests the concatenated
//	"path\nhash\n" lines. The result is independent of filesystem
//	traversal order but changes when any file's content changes or a file
//	is added, removed, or renamed.
//
// Inputs:
//
//	root - Directory to digest. Must exist.
//
// Outputs:
//
//	string - 64 lowercase hex characters.
//	error - Non-nil if root cannot be walked or a file cannot be read.
func TreeDigest(root string) (string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)

	tree := sha256.New()
	for _, rel := range paths {
		fileHash, err := hashFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(tree, "%s\n%s\n", rel, fileHash)
	}
	return hex.EncodeToString(tree.Sum(nil)), nil
}

// hashFile returns the SHA-256 of one file's content as lowercase hex.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// digestRecordPath is the hidden per-artifact digest file used for next-run
// comparison, e.g. ".layer.hash".
func digestRecordPath(moduleOutDir, artifactName string) string {
	return filepath.Join(moduleOutDir, fmt.Sprintf(".%s.hash", artifactName))
}

// readDigestRecord returns the digest recorded by the previous build, or ""
// if no record exists.
func readDigestRecord(moduleOutDir, artifactName string) string {
	data, err := os.ReadFile(digestRecordPath(moduleOutDir, artifactName))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// writeDigestRecord persists the digest for next-run comparison.
// Written atomically so an interrupted build never leaves a torn record.
func writeDigestRecord(moduleOutDir, artifactName, digest string) error {
	path := digestRecordPath(moduleOutDir, artifactName)
	tmp, err := os.CreateTemp(moduleOutDir, ".hash-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDigestRecord, err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(digest + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrDigestRecord, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrDigestRecord, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: %v", ErrDigestRecord, err)
	}
	success = true
	return nil
}
