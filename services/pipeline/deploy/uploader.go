// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/halyardtools/halyard/pkg/logging"
	"github.com/halyardtools/halyard/services/pipeline/build"
)

var tracer = otel.Tracer("halyard/pipeline/deploy")

// DefaultConcurrency bounds parallel uploads when Options.Concurrency is
// zero.
const DefaultConcurrency = 4

// Options control a Deploy invocation.
type Options struct {
	// Prefix is prepended to every object key, e.g. "artifacts".
	Prefix string

	// Force uploads every artifact regardless of the remote digest.
	Force bool

	// Concurrency bounds parallel uploads. Default: 4.
	Concurrency int
}

// Result records one artifact's deployment outcome.
type Result struct {
	// Module and Name identify the artifact.
	Module string `json:"module"`
	Name   string `json:"name"`

	// Key is the object key in the store.
	Key string `json:"key"`

	// Location is the store URL handed to the infrastructure tool.
	Location string `json:"location"`

	// Digest is the artifact's content hash.
	Digest string `json:"digest"`
}

// Failure records one artifact that could not be uploaded.
type Failure struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Err    error  `json:"error"`
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("upload %s/%s: %v", f.Module, f.Name, f.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (f Failure) Unwrap() error {
	return f.Err
}

// Report is the full outcome of deploying one artifact batch.
type Report struct {
	// Uploaded lists artifacts whose content differed from the store.
	Uploaded []Result `json:"uploaded"`

	// Unchanged lists artifacts skipped because the remote digest matched.
	Unchanged []Result `json:"unchanged"`

	// Failed lists artifacts that could not be uploaded.
	Failed []Failure `json:"failed"`

	// Bindings maps derived variable names to store locations for every
	// artifact that is present in the store (uploaded or unchanged).
	Bindings Bindings `json:"bindings"`
}

// Uploader deploys build artifacts to an artifact store.
type Uploader struct {
	logger *logging.Logger
}

// NewUploader creates an uploader.
func NewUploader(logger *logging.Logger) *Uploader {
	if logger == nil {
		logger = logging.Default()
	}
	return &Uploader{logger: logger}
}

// Deploy uploads each artifact whose content differs from the stored copy
// and assembles the variable-binding manifest.
//
// Description:
//
//	For every artifact the store is asked for the current remote digest —
//	never a cached belief about remote state — and the upload is skipped
//	when it matches the artifact's content hash (Options.Force overrides).
//	Uploads run concurrently; a failure on one artifact is recorded and
//	the rest of the batch proceeds. Bindings are assembled only after all
//	artifacts are processed so readers never observe a partial manifest.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	artifacts - Build output to deploy.
//	store - Destination artifact store.
//	opts - Deployment options.
//
// Outputs:
//
//	*Report - Per-artifact accounting plus bindings. Never nil.
//	error - ErrUploadsFailed if any artifact failed, ErrBindingConflict if
//	        two artifacts derive the same binding name.
func (u *Uploader) Deploy(ctx context.Context, artifacts []build.Artifact, store ArtifactStore, opts Options) (*Report, error) {
	ctx, span := tracer.Start(ctx, "deploy.batch",
		trace.WithAttributes(attribute.Int("deploy.artifacts", len(artifacts))),
	)
	defer span.End()

	report := &Report{Bindings: make(Bindings)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	g.SetLimit(concurrency)

	for _, artifact := range artifacts {
		g.Go(func() error {
			res, uploaded, err := u.deployOne(gctx, artifact, store, opts)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				u.logger.Error("artifact upload failed",
					"module", artifact.Module, "artifact", artifact.Name, "error", err)
				report.Failed = append(report.Failed, Failure{
					Module: artifact.Module, Name: artifact.Name, Err: err,
				})
			case uploaded:
				u.logger.Info("artifact uploaded",
					"module", artifact.Module, "artifact", artifact.Name, "location", res.Location)
				report.Uploaded = append(report.Uploaded, res)
			default:
				u.logger.Info("artifact unchanged, skipping upload",
					"module", artifact.Module, "artifact", artifact.Name)
				report.Unchanged = append(report.Unchanged, res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	sortReport(report)

	// Bindings cover everything the store now holds for this batch.
	for _, res := range append(append([]Result{}, report.Uploaded...), report.Unchanged...) {
		if err := report.Bindings.Add(res.Module, res.Name, res.Location); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return report, err
		}
	}

	span.SetAttributes(
		attribute.Int("deploy.uploaded", len(report.Uploaded)),
		attribute.Int("deploy.unchanged", len(report.Unchanged)),
		attribute.Int("deploy.failed", len(report.Failed)),
	)
	if len(report.Failed) > 0 {
		span.SetStatus(codes.Error, ErrUploadsFailed.Error())
		return report, fmt.Errorf("%w: %d of %d", ErrUploadsFailed, len(report.Failed), len(artifacts))
	}
	return report, nil
}

// deployOne uploads a single artifact if the store's copy differs.
func (u *Uploader) deployOne(ctx context.Context, artifact build.Artifact, store ArtifactStore, opts Options) (Result, bool, error) {
	key := objectKey(opts.Prefix, artifact)
	res := Result{
		Module:   artifact.Module,
		Name:     artifact.Name,
		Key:      key,
		Location: store.URL(key),
		Digest:   artifact.ContentHash,
	}

	if !opts.Force {
		remote, err := store.HeadDigest(ctx, key)
		if err != nil && !errors.Is(err, ErrObjectNotFound) {
			return res, false, err
		}
		if err == nil && remote == artifact.ContentHash {
			return res, false, nil
		}
	}

	f, err := os.Open(artifact.LocalPath)
	if err != nil {
		return res, false, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	if err := store.Put(ctx, key, f, artifact.ContentHash); err != nil {
		return res, false, err
	}
	return res, true, nil
}

// objectKey derives the store key for an artifact:
// {prefix}/{module}/{name}.zip
func objectKey(prefix string, artifact build.Artifact) string {
	return path.Join(prefix, artifact.Module, artifact.Name+".zip")
}

// sortReport orders result lists by module then name so reports are stable
// regardless of upload completion order.
func sortReport(r *Report) {
	less := func(a, b Result) bool {
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		return a.Name < b.Name
	}
	sort.Slice(r.Uploaded, func(i, j int) bool { return less(r.Uploaded[i], r.Uploaded[j]) })
	sort.Slice(r.Unchanged, func(i, j int) bool { return less(r.Unchanged[i], r.Unchanged[j]) })
	sort.Slice(r.Failed, func(i, j int) bool {
		if r.Failed[i].Module != r.Failed[j].Module {
			return r.Failed[i].Module < r.Failed[j].Module
		}
		return r.Failed[i].Name < r.Failed[j].Name
	})
}
