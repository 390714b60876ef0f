// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/halyardtools/halyard/cmd/halyard/config"
	"github.com/halyardtools/halyard/pkg/logging"
	"github.com/halyardtools/halyard/services/pipeline/build"
	"github.com/halyardtools/halyard/services/pipeline/deploy"
	"github.com/halyardtools/halyard/services/pipeline/registry"
)

// newLogger builds a logger from the config's logging section.
func newLogger(service string) *logging.Logger {
	level := logging.LevelInfo
	switch config.Global.Logging.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  config.Global.Logging.Dir,
		Service: service,
	})
}

// loadRegistry loads the module catalog, honoring the --catalog override.
func loadRegistry() (*registry.Registry, error) {
	path := catalogPath
	if path == "" {
		path = config.Global.Catalog.Path
	}
	reg, err := registry.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return reg, nil
}

// newEngine builds the engine with the installer the config selects.
func newEngine(logger *logging.Logger) *build.Engine {
	var opts []build.EngineOption
	if config.Global.Build.Installer == "pip" {
		opts = append(opts, build.WithInstaller(build.PipInstaller{}))
	}
	return build.NewEngine(logger, opts...)
}

// newStore connects to the GCS bucket, honoring the --bucket override.
func newStore(ctx context.Context) (*deploy.GCSStore, error) {
	bucket := deployBucket
	if bucket == "" {
		bucket = config.Global.Store.Bucket
	}
	if bucket == "" {
		return nil, fmt.Errorf("store.bucket is not set; edit your halyard.yaml or pass --bucket")
	}
	return deploy.NewGCSStore(ctx, bucket, config.Global.Store.CredentialsFile)
}

// resolveRequested resolves the named modules, defaulting to the catalog's
// required set when none are given.
func resolveRequested(reg *registry.Registry, names []string) (registry.ResolvedModuleSet, error) {
	if len(names) == 0 {
		names = reg.Required()
	}
	return reg.Resolve(names)
}

// fail prints an error and exits. Command Run functions use it for
// unrecoverable setup problems.
func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
