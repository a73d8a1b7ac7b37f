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


// Package corpus loads the passage dataset and its precomputed embeddings
// from the object store.
package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/retry"
	"github.com/poiesic/vibecheck/storage"
)

// ErrStoreRequired is returned when a loader is created without a store.
var ErrStoreRequired = errors.New("object store required")

// DefaultRetry is the loader retry budget: three attempts, five seconds apart.
var DefaultRetry = retry.Fixed(3, 5*time.Second)

// Dataset is everything a run shares read-only across work units.
type Dataset struct {
	Corpus     *core.Corpus
	Embeddings *core.EmbeddingMatrix
	Metadata   core.EmbeddingMetadata
}

// Loader fetches and validates the run inputs.
type Loader struct {
	store  storage.ObjectStore
	retry  retry.Policy
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithRetry overrides the fetch retry policy.
func WithRetry(p retry.Policy) Option {
	return func(l *Loader) {
		l.retry = p
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader reading from store.
func NewLoader(store storage.ObjectStore, opts ...Option) (*Loader, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	l := &Loader{
		store:  store,
		retry:  DefaultRetry,
		logger: slog.Default().With("component", "corpus-loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Load fetches the passages, embeddings and embedding metadata, then checks
// that the corpus is non-empty and aligned with the embedding matrix.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	start := time.Now()

	raw, err := l.fetch(ctx, storage.PassagesKey)
	if err != nil {
		return nil, err
	}
	corpus, err := DecodePassages(raw)
	if err != nil {
		return nil, err
	}
	if corpus.Len() == 0 {
		return nil, core.ErrEmptyCorpus
	}
	l.logger.Info("loaded passages", "count", corpus.Len())

	raw, err = l.fetch(ctx, storage.EmbeddingsKey)
	if err != nil {
		return nil, err
	}
	embeddings, err := DecodeNPY(raw)
	if err != nil {
		return nil, err
	}
	l.logger.Info("loaded embeddings", "rows", embeddings.Rows, "dim", embeddings.Dim)

	if err := core.ValidateAlignment(corpus, embeddings); err != nil {
		return nil, err
	}

	raw, err = l.fetch(ctx, storage.EmbeddingsMetadataKey)
	if err != nil {
		return nil, err
	}
	var meta core.EmbeddingMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrValidation, storage.EmbeddingsMetadataKey, err)
	}
	if meta.ModelName == "" {
		return nil, fmt.Errorf("%w: %s: embedding_model_name is empty", core.ErrValidation, storage.EmbeddingsMetadataKey)
	}

	l.logger.Info("dataset ready",
		"passages", corpus.Len(),
		"model", meta.ModelName,
		"elapsed", time.Since(start))

	return &Dataset{Corpus: corpus, Embeddings: embeddings, Metadata: meta}, nil
}

// fetch reads key, retrying transient store failures. Missing objects are
// not retried.
func (l *Loader) fetch(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	policy := l.retry.Only(func(err error) bool {
		return core.IsRecoverable(err) && !errors.Is(err, storage.ErrNotFound)
	})
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		var err error
		data, err = l.store.Get(ctx, key)
		if err != nil {
			l.logger.Warn("failed to fetch input", "key", key, "err", err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return data, nil
}
