// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package minio implements storage.ObjectStore for S3-compatible buckets.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/storage"
)

// Store implements storage.ObjectStore against a single bucket.
type Store struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

var _ storage.ObjectStore = (*Store)(nil)

// NewStore creates a store for the configured bucket.
// No network calls are made until the first operation.
func NewStore(config *Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, config.SessionToken),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: minio client: %w", core.ErrConnectivity, err)
	}

	return &Store{
		client: client,
		bucket: config.Bucket,
		logger: slog.Default().With("component", "minio-store", "bucket", config.Bucket),
	}, nil
}

// Get downloads the object stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapErr("get", key, err)
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			s.logger.Warn("failed to close object reader", "key", key, "err", cerr)
		}
	}()

	// GetObject is lazy; Stat surfaces missing keys before reading.
	info, err := reader.Stat()
	if err != nil {
		return nil, wrapErr("stat", key, err)
	}

	data := make([]byte, info.Size)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, wrapErr("read", key, err)
	}
	s.logger.Debug("downloaded object", "key", key, "size", info.Size)
	return data, nil
}

// Put uploads data under key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType(key)})
	if err != nil {
		return wrapErr("put", key, err)
	}
	s.logger.Debug("uploaded object", "key", key, "size", len(data))
	return nil
}

// List returns keys under prefix. Only "" and "/" are supported as delimiters.
func (s *Store) List(ctx context.Context, prefix, delimiter string) ([]string, error) {
	if delimiter != "" && delimiter != "/" {
		return nil, storage.Wrap("list", prefix, fmt.Errorf("%w: unsupported delimiter %q", storage.ErrInvalidKey, delimiter))
	}

	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: delimiter == "",
	}) {
		if obj.Err != nil {
			return nil, wrapErr("list", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Close is a no-op; the minio client holds no resources that need releasing.
func (s *Store) Close() error {
	return nil
}

// wrapErr classifies a minio error as not-found, storage or connectivity failure.
func wrapErr(op, key string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case minio.NoSuchKey, minio.NoSuchBucket:
		return storage.Wrap(op, key, fmt.Errorf("%w: %s", storage.ErrNotFound, resp.Message))
	case "":
		// Not an S3 error response: transport level failure.
		return storage.Wrap(op, key, fmt.Errorf("%w: %w", core.ErrConnectivity, err))
	default:
		return storage.Wrap(op, key, err)
	}
}

func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	case strings.HasSuffix(key, ".jsonl"):
		return "application/x-ndjson"
	case strings.HasSuffix(key, ".yml"), strings.HasSuffix(key, ".yaml"):
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}

