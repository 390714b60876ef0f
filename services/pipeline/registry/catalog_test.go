// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const validCatalog = `
modules:
  - name: access
    type: core
    tier: 1
    required: true
  - name: ai
    type: core
    tier: 2
    dependencies: [access]
  - name: eval
    type: functional
    dependencies: [ai]
`

func TestLoad(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "modules.yaml")
		if err := os.WriteFile(path, []byte(validCatalog), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		r, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if r.Len() != 3 {
			t.Errorf("Len() = %d, want 3", r.Len())
		}

		ai, ok := r.Get("ai")
		if !ok {
			t.Fatal("Get(ai) not found")
		}
		if ai.Type != ModuleTypeCore || ai.Tier != 2 {
			t.Errorf("ai = %+v, want core tier 2", ai)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if !errors.Is(err, ErrInvalidCatalog) {
			t.Errorf("Load = %v, want ErrInvalidCatalog", err)
		}
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "malformed yaml",
			doc:     "modules: [unclosed",
			wantErr: ErrInvalidCatalog,
		},
		{
			name:    "empty catalog",
			doc:     "modules: []",
			wantErr: ErrInvalidCatalog,
		},
		{
			name: "bad module type",
			doc: `
modules:
  - name: a
    type: sideways
`,
			wantErr: ErrInvalidCatalog,
		},
		{
			name: "uppercase module name",
			doc: `
modules:
  - name: Access
    type: core
`,
			wantErr: ErrInvalidCatalog,
		},
		{
			name: "duplicate names",
			doc: `
modules:
  - name: a
    type: core
  - name: a
    type: functional
`,
			wantErr: ErrDuplicateModule,
		},
		{
			name: "unresolved dependency",
			doc: `
modules:
  - name: a
    type: core
    dependencies: [missing]
`,
			wantErr: ErrUnknownModule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_Required(t *testing.T) {
	doc := `
modules:
  - name: feat
    type: functional
    required: true
  - name: base2
    type: core
    tier: 2
    required: true
  - name: base1
    type: core
    tier: 1
    required: true
  - name: optional
    type: functional
`
	r, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := r.Required()
	want := []string{"base1", "base2", "feat"}
	if len(got) != len(want) {
		t.Fatalf("Required() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Required()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
