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


package badger

import (
	"context"
	"errors"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vibecheck/storage"
)

// Store implements storage.ObjectStore on top of a BadgerDB keyspace.
type Store struct {
	backend     *Backend
	ownsBackend bool
}

var _ storage.ObjectStore = (*Store)(nil)

// NewStore creates a Store that shares an existing backend.
// Closing the store does not close the backend.
func NewStore(backend *Backend) *Store {
	return &Store{backend: backend}
}

// OpenStore opens (or creates) an on-disk store at path.
func OpenStore(path string) (storage.ObjectStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, storage.Wrap("open", path, err)
	}
	return &Store{backend: backend, ownsBackend: true}, nil
}

// Close closes the underlying backend if the store opened it.
func (s *Store) Close() error {
	if s.ownsBackend && !s.backend.IsClosed() {
		return s.backend.Close()
	}
	return nil
}

// Get returns the object stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.check(ctx, key); err != nil {
		return nil, err
	}

	var data []byte
	err := s.backend.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeObjectKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, storage.Wrap("get", key, err)
	}
	return data, nil
}

// Put stores data under key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := s.check(ctx, key); err != nil {
		return err
	}

	err := s.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makeObjectKey(key), data)
	})
	return storage.Wrap("put", key, err)
}

// List returns keys under prefix, rolling up at delimiter when given.
func (s *Store) List(ctx context.Context, prefix, delimiter string) ([]string, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string
	err := s.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeObjectKey(prefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		last := ""
		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := objectKeyFromBadger(iter.Item().Key())
			if delimiter != "" {
				rest := key[len(prefix):]
				if idx := strings.Index(rest, delimiter); idx >= 0 {
					key = prefix + rest[:idx+len(delimiter)]
				}
			}
			// Iteration is lexical so rolled-up prefixes arrive adjacent.
			if key == last {
				continue
			}
			keys = append(keys, key)
			last = key
		}
		return nil
	})
	if err != nil {
		return nil, storage.Wrap("list", prefix, err)
	}
	return keys, nil
}

func (s *Store) check(ctx context.Context, key string) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if key == "" {
		return storage.Wrap("access", key, storage.ErrInvalidKey)
	}
	return ctx.Err()
}
