package concepts

import (
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/vibecheck/core"
	"gopkg.in/yaml.v3"
)

// Entry is one concepts.yml item. Entries may be written as a bare
// identifier or as a mapping with id (or wikibase_id), preferred_label and
// description.
type Entry struct {
	ID             string `json:"id"`
	PreferredLabel string `json:"preferred_label,omitempty"`
	Description    string `json:"description,omitempty"`
}

// ParseCatalog decodes a concepts.yml document. Entries without an
// identifier are rejected; duplicates keep their first occurrence.
func ParseCatalog(data []byte) ([]Entry, error) {
	var raw []any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: concepts.yml: %w", core.ErrValidation, err)
	}

	entries := make([]Entry, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, item := range raw {
		var e Entry
		switch v := item.(type) {
		case string:
			e.ID = v
		case map[string]any:
			e.ID = stringField(v, "id")
			if e.ID == "" {
				e.ID = stringField(v, "wikibase_id")
			}
			e.PreferredLabel = stringField(v, "preferred_label")
			e.Description = stringField(v, "description")
		default:
			return nil, fmt.Errorf("%w: concepts.yml entry %d: unsupported type %T", core.ErrValidation, i, item)
		}
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			return nil, fmt.Errorf("%w: concepts.yml entry %d: missing id", core.ErrValidation, i)
		}
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		entries = append(entries, e)
	}
	return entries, nil
}

// IDs returns the sorted identifiers of entries.
func IDs(entries []Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	slices.Sort(ids)
	return ids
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
