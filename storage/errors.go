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


package storage

import (
	"errors"
	"fmt"

	"github.com/poiesic/vibecheck/core"
)

var (
	// ErrNotFound indicates that the requested object was not found.
	ErrNotFound = fmt.Errorf("%w: object not found", core.ErrStorage)

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = fmt.Errorf("%w: storage is closed", core.ErrStorage)

	// ErrInvalidKey indicates an empty or malformed object key.
	ErrInvalidKey = errors.New("invalid object key")
)

// Wrap marks err as a storage failure for key, preserving ErrNotFound.
func Wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrStorage) {
		return fmt.Errorf("%s %q: %w", op, key, err)
	}
	return fmt.Errorf("%w: %s %q: %w", core.ErrStorage, op, key, err)
}
