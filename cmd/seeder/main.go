// Command seeder writes a small synthetic run input set into a local store:
// passages, their embeddings, the embedding metadata and concepts.yml.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/vibecheck/ai"
	"github.com/poiesic/vibecheck/ai/openai"
	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/corpus"
	"github.com/poiesic/vibecheck/selection"
	"github.com/poiesic/vibecheck/storage"
	"github.com/poiesic/vibecheck/storage/badger"
)

var sentences = []string{
	"Coastal flooding displaced thousands of households along the delta.",
	"The national adaptation plan prioritises flood defences in river basins.",
	"Flash floods destroyed crops and irrigation canals in the northern provinces.",
	"Early warning systems reduced flood casualties by half within a decade.",
	"Insurance schemes now cover smallholders against flood and drought losses.",
	"Prolonged drought has left reservoirs at a third of their capacity.",
	"Drought-resistant seed varieties were distributed to farming cooperatives.",
	"Water rationing was introduced after the third consecutive dry season.",
	"The ministry will publish a drought contingency plan every two years.",
	"Groundwater extraction permits were tightened during the drought emergency.",
	"Heatwaves are projected to double in frequency by mid-century.",
	"Urban heat islands raise night-time temperatures in dense districts.",
	"Hospitals adopted heat-health action plans for vulnerable patients.",
	"Outdoor work is suspended when the heat index exceeds the threshold.",
	"Cool roofs were mandated for new public buildings.",
	"Wildfire smoke degraded air quality across three regions.",
	"Controlled burns are scheduled outside the peak wildfire season.",
	"Firefighting capacity was expanded with two additional air tankers.",
	"Land clearing near forest edges increases wildfire risk.",
	"Sea level rise threatens freshwater aquifers on low-lying islands.",
	"Mangrove restoration protects shorelines from storm surge.",
	"Managed retreat was offered to residents of the eroding coast.",
	"Tidal gauges recorded a rise of four millimetres per year.",
	"The carbon tax will rise gradually until the end of the decade.",
	"Revenue from emissions trading funds household energy rebates.",
	"Coal-fired plants must close or retrofit capture technology by 2035.",
	"Renewable auctions attracted record bids for offshore wind.",
	"Net metering lets households sell rooftop solar to the grid.",
	"Methane leaks from pipelines must be reported quarterly.",
	"Electric buses replaced the diesel fleet in the capital.",
	"Fuel economy standards apply to all new light vehicles.",
	"Rail freight subsidies aim to shift cargo off the highways.",
	"Building codes require heat pumps in new residential construction.",
	"Energy audits are compulsory for large industrial consumers.",
	"A just transition fund supports workers leaving the mining sector.",
	"Reforestation targets cover two million hectares of degraded land.",
	"Payments for ecosystem services reward communities that protect forests.",
	"Peatland rewetting reduces emissions and flood peaks downstream.",
	"Climate finance commitments were reaffirmed at the regional summit.",
	"The loss and damage facility will disburse its first grants next year.",
}

var corpusTypes = []string{"Laws and Policies", "UNFCCC", "MCF"}

var regions = []string{
	"East Asia & Pacific",
	"Europe & Central Asia",
	"Latin America & Caribbean",
	"Middle East & North Africa",
	"North America",
	"South Asia",
	"Sub-Saharan Africa",
}

const conceptsYML = `- id: Q374
  preferred_label: flood
  description: An overflow of water that submerges land that is usually dry
- id: Q1073
  preferred_label: drought
- id: Q1233
  preferred_label: heatwave
- id: Q1829
  preferred_label: wildfire
`

var (
	seedFileName   = flag.String("src", "", "file of passages, one per line")
	dbPath         = flag.String("db", "./vibecheck_db", "path to the BadgerDB directory")
	embeddingHost  = flag.String("embedding-host", "http://localhost:11434/v1", "embedding service host URL")
	embeddingModel = flag.String("embedding-model", "embeddinggemma", "embedding model name")
	batchSize      = flag.Int("batch-size", 16, "passages embedded per request")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// syntheticPassage builds passage row i with plausible document metadata.
func syntheticPassage(i int, text string) core.Passage {
	year := 2010 + i%15
	return core.Passage{
		Row:  i,
		Text: text,
		Metadata: map[string]any{
			core.ColumnDocumentID:      fmt.Sprintf("CCLW.executive.%d.%d", 1000+i/4, i%4),
			core.ColumnTextBlockID:     fmt.Sprintf("b%d", i),
			core.ColumnPageNumber:      1 + i%12,
			core.ColumnTranslated:      i%5 == 0,
			core.ColumnPublicationTS:   time.Date(year, time.Month(1+i%12), 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
			core.ColumnCorpusType:      corpusTypes[i%len(corpusTypes)],
			core.ColumnWorldBankRegion: regions[i%len(regions)],
		},
	}
}

// embedBatched embeds passages in batches and returns the row-major,
// unit-normalised embedding matrix.
func embedBatched(ctx context.Context, embedder ai.Embedder, passages []core.Passage, batchSize int) (*core.EmbeddingMatrix, error) {
	m := &core.EmbeddingMatrix{Rows: len(passages)}
	batch := make([]string, 0, batchSize)

	flush := func() error {
		vectors, err := embedder.EmbedTexts(ctx, batch)
		if err != nil {
			return err
		}
		for _, v := range vectors {
			if m.Dim == 0 {
				m.Dim = len(v)
			}
			if len(v) != m.Dim {
				return fmt.Errorf("embedding dimension changed from %d to %d", m.Dim, len(v))
			}
			m.Data = append(m.Data, selection.NormalizeVector(v)...)
		}
		slog.Info("embedded batch", "size", len(batch), "total", len(m.Data)/max(m.Dim, 1))
		batch = batch[:0]
		return nil
	}

	for _, p := range passages {
		batch = append(batch, p.Text)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	// Process any remaining passages
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func main() {
	ctx := context.Background()

	store, err := badger.OpenStore(*dbPath)
	if err != nil {
		panic(err)
	}
	defer store.Close()

	aiConfig := ai.NewConfig(
		ai.WithHost(*embeddingHost),
		ai.WithEmbeddingModel(*embeddingModel),
	)
	provider, err := openai.NewProvider(aiConfig)
	if err != nil {
		panic(err)
	}
	defer provider.Close()

	embedder, err := provider.Embedder(*embeddingModel)
	if err != nil {
		panic(err)
	}

	// Determine source of seed data
	var source iter.Seq[string]
	if seedFileName != nil && *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(sentences)
	}

	c := &core.Corpus{}
	for line := range source {
		c.Passages = append(c.Passages, syntheticPassage(len(c.Passages), line))
	}

	embeddings, err := embedBatched(ctx, embedder, c.Passages, *batchSize)
	if err != nil {
		panic(err)
	}

	passages, err := corpus.EncodePassages(c)
	if err != nil {
		panic(err)
	}
	metadata, err := json.Marshal(core.EmbeddingMetadata{ModelName: *embeddingModel})
	if err != nil {
		panic(err)
	}

	objects := []struct {
		key  string
		data []byte
	}{
		{storage.PassagesKey, passages},
		{storage.EmbeddingsKey, corpus.EncodeNPY(embeddings)},
		{storage.EmbeddingsMetadataKey, metadata},
		{storage.ConceptsKey, []byte(conceptsYML)},
	}
	for _, obj := range objects {
		if err := store.Put(ctx, obj.key, obj.data); err != nil {
			panic(err)
		}
	}

	slog.Info("seeded store", "path", *dbPath, "passages", c.Len(), "dim", embeddings.Dim)
}
