// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := tt.level.toSlogLevel(); got != tt.want {
			t.Errorf("Level(%d).toSlogLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	defer logger.Close()

	if logger.config.Level != LevelInfo {
		t.Errorf("default level = %v, want LevelInfo", logger.config.Level)
	}
	if logger.config.Service != "halyard" {
		t.Errorf("default service = %v, want halyard", logger.config.Service)
	}
}

func TestNew_WithLogDir(t *testing.T) {
	tmpDir := t.TempDir()
	logger := New(Config{
		LogDir:  tmpDir,
		Service: "test",
		Quiet:   true,
	})
	defer logger.Close()

	if logger.file == nil {
		t.Fatal("logger.file is nil when LogDir specified")
	}
	files, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || !strings.HasPrefix(files[0].Name(), "test_") {
		t.Errorf("expected one test_*.log file, got %v", files)
	}
}

func TestNew_WithLogDir_DefaultServiceName(t *testing.T) {
	tmpDir := t.TempDir()
	logger := New(Config{LogDir: tmpDir, Quiet: true})
	defer logger.Close()

	files, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "halyard_") {
			found = true
		}
	}
	if !found {
		t.Error("expected log file with 'halyard_' prefix")
	}
}

func TestNew_UnwritableLogDir(t *testing.T) {
	logger := New(Config{
		LogDir: "/proc/definitely/not/writable",
		Quiet:  true,
	})
	defer logger.Close()

	// Logger degrades to working without the file destination.
	if logger.file != nil {
		t.Error("logger.file should be nil for an unwritable LogDir")
	}
	logger.Info("still works")
}

func TestLogger_LevelFiltering(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelWarn,
		Exporter: exporter,
		Quiet:    true,
	})
	defer logger.Close()

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")
	time.Sleep(50 * time.Millisecond)

	entries := exporter.Entries()
	if len(entries) != 2 {
		t.Errorf("expected 2 exported entries (warn+error), got %d", len(entries))
	}
}

func TestLogger_ExportedEntryShape(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelInfo,
		Service:  "cli",
		Exporter: exporter,
		Quiet:    true,
	})
	defer logger.Close()

	logger.Info("upload complete", "count", 42)
	time.Sleep(50 * time.Millisecond)

	entries := exporter.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != LevelInfo || e.Message != "upload complete" || e.Service != "cli" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Attrs["count"] != 42 {
		t.Errorf("Attrs[count] = %v, want 42", e.Attrs["count"])
	}
}

func TestLogger_With_SharesResources(t *testing.T) {
	tmpDir := t.TempDir()
	logger := New(Config{
		LogDir:  tmpDir,
		Service: "test",
		Quiet:   true,
	})
	defer logger.Close()

	child := logger.With("run_id", "abc")
	if child.file != logger.file {
		t.Error("child logger should share the file handle")
	}
	child.Info("from child")
}

func TestLogger_FileContentIsJSON(t *testing.T) {
	tmpDir := t.TempDir()
	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  tmpDir,
		Service: "file-test",
		Quiet:   true,
	})

	logger.Info("digest match", "key", "value")
	logger.Close()

	files, _ := os.ReadDir(tmpDir)
	if len(files) == 0 {
		t.Fatal("no log file created")
	}
	content, err := os.ReadFile(filepath.Join(tmpDir, files[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "digest match") {
		t.Error("log file missing the message")
	}
	if !strings.Contains(string(content), "\"key\":\"value\"") {
		t.Error("file logs should be JSON")
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelInfo,
		Exporter: exporter,
		Quiet:    true,
	})
	defer logger.Close()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Info("concurrent", "n", n)
		}(i)
	}
	wg.Wait()
	time.Sleep(100 * time.Millisecond)

	if got := len(exporter.Entries()); got != 100 {
		t.Errorf("expected 100 entries, got %d", got)
	}
}

// errorExporter fails on demand to exercise Close error paths.
type errorExporter struct {
	exportErr error
	flushErr  error
	closeErr  error
}

func (e *errorExporter) Export(ctx context.Context, entry LogEntry) error { return e.exportErr }
func (e *errorExporter) Flush(ctx context.Context) error                  { return e.flushErr }
func (e *errorExporter) Close() error                                     { return e.closeErr }

func TestLogger_Close_ExporterFlushError(t *testing.T) {
	logger := New(Config{
		Exporter: &errorExporter{flushErr: errors.New("flush failed")},
		Quiet:    true,
	})

	err := logger.Close()
	if err == nil || !strings.Contains(err.Error(), "flush exporter") {
		t.Errorf("expected flush error, got %v", err)
	}
}

func TestLogger_ExportErrorSilentlyDropped(t *testing.T) {
	logger := New(Config{
		Level:    LevelInfo,
		Exporter: &errorExporter{exportErr: errors.New("export failed")},
		Quiet:    true,
	})
	defer logger.Close()

	// Must not panic or surface the exporter error.
	logger.Info("test")
	time.Sleep(50 * time.Millisecond)
}

func TestMultiHandler_FansOut(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	mh := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&buf1, opts),
		slog.NewTextHandler(&buf2, opts),
	}}

	record := slog.Record{Level: slog.LevelInfo, Message: "fan out"}
	if err := mh.Handle(context.Background(), record); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if buf1.Len() == 0 || buf2.Len() == 0 {
		t.Error("both handlers should receive the record")
	}
}

func TestMultiHandler_RespectsPerHandlerLevels(t *testing.T) {
	var debugBuf, errorBuf bytes.Buffer
	mh := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	}}

	if !mh.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled via the debug handler")
	}

	record := slog.Record{Level: slog.LevelInfo, Message: "info"}
	_ = mh.Handle(context.Background(), record)
	if debugBuf.Len() == 0 {
		t.Error("debug handler should receive info records")
	}
	if errorBuf.Len() != 0 {
		t.Error("error-level handler should filter info records")
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	tests := []struct {
		input string
		want  string
	}{
		{"~/logs", filepath.Join(home, "logs")},
		{"~", home},
		{"/var/log", "/var/log"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := expandPath(tt.input); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestArgsToMap(t *testing.T) {
	got := argsToMap([]any{"k1", "v1", "k2", 42, 123, "dropped", "orphan"})
	if len(got) != 2 || got["k1"] != "v1" || got["k2"] != 42 {
		t.Errorf("argsToMap() = %v", got)
	}
}

func TestBufferedExporter_EntriesReturnsCopy(t *testing.T) {
	e := NewBufferedExporter()
	_ = e.Export(context.Background(), LogEntry{Message: "original"})

	first := e.Entries()
	first[0].Message = "modified"

	if e.Entries()[0].Message != "original" {
		t.Error("Entries() must return a copy")
	}
}

func TestWriterExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	e := NewWriterExporter(&buf)

	err := e.Export(context.Background(), LogEntry{
		Timestamp: time.Now(),
		Level:     LevelInfo,
		Message:   "written out",
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(buf.String(), "written out") || !strings.Contains(buf.String(), "INFO") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
