package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/storage"
)

// Artifacts is everything published for one concept and classifier.
type Artifacts struct {
	Predictions []core.LabelledPassage
	Concept     *core.Concept
	Classifier  core.ClassifierInfo
	Stats       core.Stats
}

// Publisher writes inference artifacts to the object store.
type Publisher struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

// NewPublisher creates a publisher writing to store.
func NewPublisher(store storage.ObjectStore, logger *slog.Logger) (*Publisher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		store:  store,
		logger: logger.With("component", "publisher"),
	}, nil
}

// Publish writes predictions.jsonl, concept.json, classifier.json and
// stats.json under prefix. Stats are written last so their presence marks a
// complete output directory.
func (p *Publisher) Publish(ctx context.Context, prefix string, a Artifacts) error {
	predictions, err := EncodePredictions(a.Predictions)
	if err != nil {
		return err
	}

	objects := []struct {
		file string
		data any
	}{
		{storage.ConceptFile, a.Concept},
		{storage.ClassifierFile, a.Classifier},
		{storage.StatsFile, a.Stats},
	}

	key := storage.ArtifactKey(prefix, storage.PredictionsFile)
	p.logger.Info("pushing predictions", "key", key, "count", len(a.Predictions))
	if err := p.store.Put(ctx, key, predictions); err != nil {
		return storage.Wrap("put", key, err)
	}

	for _, obj := range objects {
		data, err := json.Marshal(obj.data)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", core.ErrValidation, obj.file, err)
		}
		key := storage.ArtifactKey(prefix, obj.file)
		if err := p.store.Put(ctx, key, data); err != nil {
			return storage.Wrap("put", key, err)
		}
	}
	return nil
}

// EncodePredictions renders labelled passages as JSON lines separated by
// newlines, with no trailing newline.
func EncodePredictions(passages []core.LabelledPassage) ([]byte, error) {
	var buf bytes.Buffer
	for i, lp := range passages {
		line, err := json.Marshal(lp)
		if err != nil {
			return nil, fmt.Errorf("%w: encode prediction %d: %w", core.ErrValidation, i, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

// DecodePredictions parses the output of EncodePredictions. Blank lines are
// skipped.
func DecodePredictions(data []byte) ([]core.LabelledPassage, error) {
	var out []core.LabelledPassage
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var lp core.LabelledPassage
		if err := dec.Decode(&lp); err != nil {
			return nil, fmt.Errorf("%w: predictions line %d: %w", core.ErrValidation, line, err)
		}
		if lp.Spans == nil {
			lp.Spans = []core.Span{}
		}
		out = append(out, lp)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read predictions: %w", core.ErrValidation, err)
	}
	return out, nil
}
