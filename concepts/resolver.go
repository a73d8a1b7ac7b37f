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


package concepts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/retry"
	"github.com/poiesic/vibecheck/storage"
)

// Mode selects where the concept list comes from.
type Mode string

const (
	// ModeConfig reads the concept list from concepts.yml.
	ModeConfig Mode = "config"
	// ModeCustom processes exactly the caller-supplied identifiers.
	ModeCustom Mode = "custom"
)

// Resolver decides which concepts a run processes.
type Resolver struct {
	store  storage.ObjectStore
	retry  retry.Policy
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRetry overrides the concepts.yml fetch retry policy.
func WithRetry(p retry.Policy) ResolverOption {
	return func(r *Resolver) {
		r.retry = p
	}
}

// NewResolver creates a resolver reading concepts.yml from store.
func NewResolver(store storage.ObjectStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		retry:  retry.Fixed(3, 5*time.Second),
		logger: slog.Default().With("component", "concept-resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the concept identifiers to process.
//
// A nil custom slice selects config mode and reads concepts.yml. A non-nil
// slice selects custom mode: identifiers are trimmed and de-duplicated in
// order, and the store is never read. Either way an empty result fails with
// core.ErrNoConcepts.
func (r *Resolver) Resolve(ctx context.Context, custom []string) ([]string, Mode, error) {
	if custom != nil {
		ids := normalize(custom)
		if len(ids) == 0 {
			return nil, ModeCustom, core.ErrNoConcepts
		}
		r.logger.Info("using custom concept list", "count", len(ids))
		return ids, ModeCustom, nil
	}

	entries, err := r.Catalog(ctx)
	if err != nil {
		return nil, ModeConfig, err
	}
	ids := IDs(entries)
	if len(ids) == 0 {
		return nil, ModeConfig, core.ErrNoConcepts
	}
	r.logger.Info("loaded concept list", "key", storage.ConceptsKey, "count", len(ids))
	return ids, ModeConfig, nil
}

// Catalog reads and parses concepts.yml.
func (r *Resolver) Catalog(ctx context.Context) ([]Entry, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: no object store configured", core.ErrValidation)
	}
	var data []byte
	policy := r.retry.Only(func(err error) bool {
		return core.IsRecoverable(err) && !errors.Is(err, storage.ErrNotFound)
	})
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		var err error
		data, err = r.store.Get(ctx, storage.ConceptsKey)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", storage.ConceptsKey, err)
	}
	return ParseCatalog(data)
}

func normalize(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
