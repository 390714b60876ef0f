// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package build

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
}

func TestTreeDigest(t *testing.T) {
	t.Run("deterministic across creation order", func(t *testing.T) {
		a := t.TempDir()
		writeTree(t, a, map[string]string{
			"one.txt":     "alpha",
			"sub/two.txt": "beta",
		})

		b := t.TempDir()
		writeTree(t, b, map[string]string{
			"sub/two.txt": "beta",
			"one.txt":     "alpha",
		})

		da, err := TreeDigest(a)
		if err != nil {
			t.Fatalf("TreeDigest: %v", err)
		}
		db, err := TreeDigest(b)
		if err != nil {
			t.Fatalf("TreeDigest: %v", err)
		}
		if da != db {
			t.Errorf("digests differ for identical trees: %s vs %s", da, db)
		}
		if len(da) != 64 {
			t.Errorf("len(digest) = %d, want 64", len(da))
		}
	})

	t.Run("content change changes digest", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"f.txt": "v1"})
		before, err := TreeDigest(root)
		if err != nil {
			t.Fatalf("TreeDigest: %v", err)
		}

		writeTree(t, root, map[string]string{"f.txt": "v2"})
		after, err := TreeDigest(root)
		if err != nil {
			t.Fatalf("TreeDigest: %v", err)
		}
		if before == after {
			t.Error("digest unchanged after content edit")
		}
	})

	t.Run("added file changes digest", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"f.txt": "v1"})
		before, _ := TreeDigest(root)

		writeTree(t, root, map[string]string{"g.txt": "new"})
		after, _ := TreeDigest(root)
		if before == after {
			t.Error("digest unchanged after file added")
		}
	})

	t.Run("removed file changes digest", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"f.txt": "v1", "g.txt": "v2"})
		before, _ := TreeDigest(root)

		if err := os.Remove(filepath.Join(root, "g.txt")); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		after, _ := TreeDigest(root)
		if before == after {
			t.Error("digest unchanged after file removed")
		}
	})

	t.Run("rename changes digest", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"f.txt": "same"})
		before, _ := TreeDigest(root)

		if err := os.Rename(filepath.Join(root, "f.txt"), filepath.Join(root, "h.txt")); err != nil {
			t.Fatalf("Rename: %v", err)
		}
		after, _ := TreeDigest(root)
		if before == after {
			t.Error("digest unchanged after rename")
		}
	})

	t.Run("missing root returns error", func(t *testing.T) {
		_, err := TreeDigest(filepath.Join(t.TempDir(), "absent"))
		if err == nil {
			t.Error("TreeDigest = nil, want error")
		}
	})
}

func TestDigestRecord_Roundtrip(t *testing.T) {
	dir := t.TempDir()

	if got := readDigestRecord(dir, "layer"); got != "" {
		t.Errorf("readDigestRecord on empty dir = %q, want empty", got)
	}

	if err := writeDigestRecord(dir, "layer", "abc123"); err != nil {
		t.Fatalf("writeDigestRecord: %v", err)
	}
	if got := readDigestRecord(dir, "layer"); got != "abc123" {
		t.Errorf("readDigestRecord = %q, want abc123", got)
	}

	// Record file is hidden, per the build-output contract.
	if _, err := os.Stat(filepath.Join(dir, ".layer.hash")); err != nil {
		t.Errorf("expected .layer.hash record file: %v", err)
	}
}
