package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/poiesic/vibecheck/core"
)

// DecodePassages parses a JSON-lines passage dataset. Each line is an object
// holding the passage text under core.ColumnText; every other field is kept
// as passthrough metadata. Numbers are preserved verbatim as json.Number.
func DecodePassages(data []byte) (*core.Corpus, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	corpus := &core.Corpus{}
	for row := 0; ; row++ {
		var fields map[string]any
		if err := dec.Decode(&fields); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: passages row %d: %w", core.ErrValidation, row, err)
		}

		text, ok := fields[core.ColumnText].(string)
		if !ok {
			return nil, fmt.Errorf("%w: passages row %d: missing %q", core.ErrValidation, row, core.ColumnText)
		}
		delete(fields, core.ColumnText)

		corpus.Passages = append(corpus.Passages, core.Passage{
			Row:      row,
			Text:     text,
			Metadata: fields,
		})
	}
	return corpus, nil
}

// EncodePassages writes a corpus in the format read by DecodePassages.
func EncodePassages(corpus *core.Corpus) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, p := range corpus.Passages {
		fields := make(map[string]any, len(p.Metadata)+1)
		for k, v := range p.Metadata {
			fields[k] = v
		}
		fields[core.ColumnText] = p.Text
		if err := enc.Encode(fields); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
