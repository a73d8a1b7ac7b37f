package storage

import (
	"path"
	"strings"
)

// Input objects supplied by the upstream embedding stage.
const (
	ConceptsKey           = "concepts.yml"
	PassagesKey           = "passages_dataset.jsonl"
	EmbeddingsKey         = "passages_embeddings.npy"
	EmbeddingsMetadataKey = "passages_embeddings_metadata.json"
)

// Output artifacts written per concept and classifier.
const (
	PredictionsFile = "predictions.jsonl"
	ConceptFile     = "concept.json"
	ClassifierFile  = "classifier.json"
	StatsFile       = "stats.json"
)

// OutputPrefix returns the directory-like prefix holding the artifacts for a
// concept and classifier, e.g. "Q123/abcd1234".
func OutputPrefix(conceptID, classifierID string) string {
	return conceptID + "/" + classifierID
}

// ArtifactKey joins an output prefix and an artifact file name.
func ArtifactKey(prefix, file string) string {
	return path.Join(prefix, file)
}

// ConceptPrefix returns the prefix under which all classifiers of a concept live.
func ConceptPrefix(conceptID string) string {
	return conceptID + "/"
}

// LastSegment returns the final non-empty path segment of a key or common prefix.
func LastSegment(key string) string {
	return path.Base(strings.TrimSuffix(key, "/"))
}
