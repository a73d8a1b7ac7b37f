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


// Package storage provides the object store abstraction used by vibecheck.
//
// The pipeline reads its inputs from, and publishes its artifacts to, a flat
// key-addressed object store. ObjectStore decouples that from the backend:
//
//   - storage/minio: S3-compatible buckets via minio-go (production)
//   - storage/badger: an embedded BadgerDB keyspace (local runs and tests)
//
// # Key Layout
//
// Inputs live at the bucket root (concepts.yml, passages_dataset.jsonl,
// passages_embeddings.npy, passages_embeddings_metadata.json). Outputs are
// written per concept and classifier:
//
//	{concept_id}/{classifier_id}/predictions.jsonl
//	{concept_id}/{classifier_id}/concept.json
//	{concept_id}/{classifier_id}/classifier.json
//	{concept_id}/{classifier_id}/stats.json
//
// # Errors
//
// Every error returned by a store wraps core.ErrStorage, so work units treat
// store failures as recoverable. Missing objects additionally match ErrNotFound.
//
// # Thread Safety
//
// All ObjectStore implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
