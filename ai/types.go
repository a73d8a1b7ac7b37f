package ai

// ClassifierKind names a classifier family selectable from configuration.
type ClassifierKind string

const (
	// KindKeyword matches concept labels with word-boundary regular expressions.
	KindKeyword ClassifierKind = "keyword"

	// KindLLM asks a chat model to mark the passage spans expressing the concept.
	KindLLM ClassifierKind = "llm"
)

// ClassifierKinds lists the supported classifier families.
var ClassifierKinds = []ClassifierKind{KindKeyword, KindLLM}

// Valid reports whether k is a supported classifier family.
func (k ClassifierKind) Valid() bool {
	for _, known := range ClassifierKinds {
		if k == known {
			return true
		}
	}
	return false
}
