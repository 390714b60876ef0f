// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package build

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// archiveEpoch is the fixed timestamp stamped on every zip entry so that
// identical inputs produce byte-identical archives. The zip format cannot
// represent times before 1980.
var archiveEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// archiveTree writes a deterministic zip of every regular file beneath root.
//
// Entries are added in sorted relative-path order with a fixed modification
// time, so the archive bytes depend only on file paths and contents. The
// archive is written to a temp file and renamed into place.
func archiveTree(root, outPath string) (int64, error) {
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
		return 0, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)

	outDir := filepath.Dir(outPath)
	tmp, err := os.CreateTemp(outDir, ".archive-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp archive: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, rel := range paths {
		if err := addZipEntry(zw, root, rel); err != nil {
			zw.Close()
			tmp.Close()
			return 0, err
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("finalize archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return 0, fmt.Errorf("rename archive: %w", err)
	}
	success = true

	info, err := os.Stat(outPath)
	if err != nil {
		return 0, fmt.Errorf("stat archive: %w", err)
	}
	return info.Size(), nil
}

// addZipEntry streams one file into the archive under its relative path.
func addZipEntry(zw *zip.Writer, root, rel string) error {
	src := filepath.Join(root, filepath.FromSlash(rel))
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	hdr := &zip.FileHeader{
		Name:     rel,
		Method:   zip.Deflate,
		Modified: archiveEpoch,
	}
	hdr.SetMode(0644)

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("add entry %s: %w", rel, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write entry %s: %w", rel, err)
	}
	return nil
}
