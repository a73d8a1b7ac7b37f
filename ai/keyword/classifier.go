// Package keyword provides a classifier that marks occurrences of a
// concept's labels in text.
//
// Matching is case-insensitive and restricted to whole words. Matches of the
// preferred or alternative labels that overlap a match of a negative label
// are discarded, so "flood fill" can be excluded from "flood".
package keyword

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/vibecheck/ai"
	"github.com/poiesic/vibecheck/core"
)

// Name is the classifier family name.
const Name = "KeywordClassifier"

// Classifier implements ai.BatchClassifier with label regular expressions.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	concept  core.Concept
	positive *regexp.Regexp
	negative *regexp.Regexp
}

var _ ai.BatchClassifier = (*Classifier)(nil)

// New builds a keyword classifier for concept.
//
// Returns ai.Classifier interface to enforce abstraction.
func New(concept *core.Concept) (ai.Classifier, error) {
	return newClassifier(concept)
}

func newClassifier(concept *core.Concept) (*Classifier, error) {
	if err := core.ValidateConcept(concept); err != nil {
		return nil, err
	}

	labels := append([]string{concept.PreferredLabel}, concept.AlternativeLabels...)
	positive, err := compileLabels(labels)
	if err != nil {
		return nil, err
	}
	if positive == nil {
		return nil, fmt.Errorf("%w: concept %s has no usable labels", core.ErrInvalidConcept, concept.ID)
	}
	negative, err := compileLabels(concept.NegativeLabels)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		concept:  *concept,
		positive: positive,
		negative: negative,
	}, nil
}

// compileLabels builds one case-insensitive alternation of the labels,
// longest first so the longest label wins at a position.
// Returns nil when no label is usable.
func compileLabels(labels []string) (*regexp.Regexp, error) {
	cleaned := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || slices.Contains(cleaned, l) {
			continue
		}
		cleaned = append(cleaned, l)
	}
	if len(cleaned) == 0 {
		return nil, nil
	}
	slices.SortStableFunc(cleaned, func(a, b string) int {
		return utf8.RuneCountInString(b) - utf8.RuneCountInString(a)
	})

	quoted := make([]string, len(cleaned))
	for i, l := range cleaned {
		quoted[i] = regexp.QuoteMeta(l)
	}
	re, err := regexp.Compile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
	if err != nil {
		return nil, fmt.Errorf("%w: compile labels: %w", core.ErrInvalidConcept, err)
	}
	return re, nil
}

// ID hashes the classifier family with the concept definition.
func (c *Classifier) ID() string {
	return core.ContentHash(Name, c.concept.Fingerprint())
}

// Name returns "KeywordClassifier".
func (c *Classifier) Name() string {
	return Name
}

func (c *Classifier) String() string {
	return fmt.Sprintf("%s(%q)", Name, c.concept.PreferredLabel)
}

// Predict returns one span per whole-word label match not covered by a
// negative label. Offsets are in characters.
func (c *Classifier) Predict(ctx context.Context, text string) ([]core.Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches := wordMatches(c.positive, text)
	if len(matches) == 0 {
		return []core.Span{}, nil
	}
	var excluded [][2]int
	if c.negative != nil {
		excluded = wordMatches(c.negative, text)
	}

	spans := make([]core.Span, 0, len(matches))
	for _, m := range matches {
		if overlaps(excluded, m) {
			continue
		}
		start := utf8.RuneCountInString(text[:m[0]])
		spans = append(spans, core.Span{
			Start: start,
			End:   start + utf8.RuneCountInString(text[m[0]:m[1]]),
			Label: c.concept.ID,
		})
	}
	return spans, nil
}

// PredictBatch predicts each text in order.
func (c *Classifier) PredictBatch(ctx context.Context, texts []string) ([][]core.Span, error) {
	out := make([][]core.Span, len(texts))
	for i, text := range texts {
		spans, err := c.Predict(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = spans
	}
	return out, nil
}

// wordMatches returns byte ranges of non-overlapping matches of re that
// start and end on word boundaries.
func wordMatches(re *regexp.Regexp, text string) [][2]int {
	var out [][2]int
	offset := 0
	for offset <= len(text) {
		loc := re.FindStringIndex(text[offset:])
		if loc == nil {
			break
		}
		start, end := offset+loc[0], offset+loc[1]
		if end > start && isBoundary(text, start) && isBoundary(text, end) {
			out = append(out, [2]int{start, end})
			offset = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		if size == 0 {
			break
		}
		offset = start + size
	}
	return out
}

// isBoundary reports whether byte position i in text is not inside a word.
func isBoundary(text string, i int) bool {
	if i == 0 || i == len(text) {
		return true
	}
	before, _ := utf8.DecodeLastRuneInString(text[:i])
	after, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(before) || !isWordRune(after)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func overlaps(ranges [][2]int, m [2]int) bool {
	for _, r := range ranges {
		if m[0] < r[1] && r[0] < m[1] {
			return true
		}
	}
	return false
}

// Factory builds keyword classifiers.
type Factory struct{}

// NewFactory returns a factory for keyword classifiers.
func NewFactory() ai.ClassifierFactory {
	return Factory{}
}

// Create builds a keyword classifier for concept.
func (Factory) Create(_ context.Context, concept *core.Concept) (ai.Classifier, error) {
	return New(concept)
}
