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
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// digestMetadataKey is the object metadata key holding the content digest
// of the uploaded artifact.
const digestMetadataKey = "halyard-sha256"

// ArtifactStore is the object-storage interface the uploader deploys to.
//
// Any store with content-addressable lookup is interchangeable here; the
// uploader only needs Put, a digest probe, and a stable location string.
type ArtifactStore interface {
	// Put uploads the payload under key, recording digest so later
	// HeadDigest calls can answer without fetching the object.
	Put(ctx context.Context, key string, payload io.Reader, digest string) error

	// HeadDigest returns the content digest of the object currently stored
	// under key, or ErrObjectNotFound.
	HeadDigest(ctx context.Context, key string) (string, error)

	// URL returns the store location for key, e.g. "gs://bucket/key".
	URL(key string) string
}

// GCSStore implements ArtifactStore on a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a store backed by the named bucket.
//
// When saKeyPath is non-empty it is used as the service account credentials
// file; otherwise application default credentials apply.
func NewGCSStore(ctx context.Context, bucket, saKeyPath string) (*GCSStore, error) {
	var opts []option.ClientOption
	if saKeyPath != "" {
		if _, err := os.Stat(saKeyPath); err != nil {
			return nil, fmt.Errorf("service account key not found at %s: %w", saKeyPath, err)
		}
		opts = append(opts, option.WithCredentialsFile(saKeyPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Put streams the payload into the bucket, stamping the digest as object
// metadata for later HeadDigest probes.
func (s *GCSStore) Put(ctx context.Context, key string, payload io.Reader, digest string) error {
	obj := s.client.Bucket(s.bucket).Object(key)
	w := obj.NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	w.CacheControl = "no-cache, no-store, must-revalidate"
	w.Metadata = map[string]string{digestMetadataKey: digest}

	if _, err := io.Copy(w, payload); err != nil {
		w.Close()
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}
	return nil
}

// HeadDigest reads the stored object's digest from its metadata.
//
// An object uploaded by other means (no digest metadata) reports an empty
// digest, which never matches a local hash, so it is re-uploaded.
func (s *GCSStore) HeadDigest(ctx context.Context, key string) (string, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("head %s: %w", key, err)
	}
	return attrs.Metadata[digestMetadataKey], nil
}

// URL returns the gs:// location for key.
func (s *GCSStore) URL(key string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, key)
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
