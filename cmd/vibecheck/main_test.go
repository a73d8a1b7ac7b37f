package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/vibecheck/ai"
	"github.com/poiesic/vibecheck/browse"
	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/corpus"
	"github.com/poiesic/vibecheck/storage"
	"github.com/poiesic/vibecheck/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %s not found", name)
	return nil
}

func findFlag[T cli.Flag](t *testing.T, cmd *cli.Command, name string) T {
	t.Helper()
	for _, flag := range cmd.Flags {
		if f, ok := flag.(T); ok && flag.Names()[0] == name {
			return f
		}
	}
	var zero T
	t.Fatalf("flag %s not found on %s", name, cmd.Name)
	return zero
}

func TestRunCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "run")

	t.Run("concept is repeatable", func(t *testing.T) {
		f := findFlag[*cli.StringSliceFlag](t, cmd, "concept")
		assert.Contains(t, f.Aliases, "c")
	})

	t.Run("workers defaults to three", func(t *testing.T) {
		assert.Equal(t, 3, findFlag[*cli.IntFlag](t, cmd, "workers").Value)
	})

	t.Run("selection defaults", func(t *testing.T) {
		assert.InDelta(t, 0.65, findFlag[*cli.Float64Flag](t, cmd, "threshold").Value, 1e-9)
		assert.Equal(t, 10_000, findFlag[*cli.IntFlag](t, cmd, "min-passages").Value)
		assert.Equal(t, 100_000, findFlag[*cli.IntFlag](t, cmd, "max-passages").Value)
	})

	t.Run("bucket reads BUCKET_NAME", func(t *testing.T) {
		assert.Equal(t, []string{"BUCKET_NAME"}, findFlag[*cli.StringFlag](t, cmd, "bucket").EnvVars)
	})

	t.Run("classifier defaults to keyword", func(t *testing.T) {
		assert.Equal(t, "keyword", findFlag[*cli.StringFlag](t, cmd, "classifier").Value)
	})
}

func TestServeCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "serve")
	assert.Equal(t, browse.DefaultAddress, findFlag[*cli.StringFlag](t, cmd, "address").Value)
	assert.Equal(t, 15*time.Minute, findFlag[*cli.DurationFlag](t, cmd, "cache-ttl").Value)
	assert.Equal(t, "s3", findFlag[*cli.StringFlag](t, cmd, "store").Value)
}

func TestRunCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid log level", []string{"--log-level", "loud", "run"}, "invalid log level"},
		{"invalid workers", []string{"run", "--workers", "0"}, "invalid run configuration"},
		{"invalid selection", []string{"run", "--min-passages", "10", "--max-passages", "5"}, "invalid run configuration"},
		{"unknown store", []string{"run", "--store", "ftp"}, "invalid store"},
		{"local store needs a path", []string{"run", "--store", "local"}, "local-path is required"},
		{"s3 store needs a bucket", []string{"run", "--store", "s3", "--bucket", ""}, "Bucket is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BUCKET_NAME", "")
			err := newApp().Run(append([]string{"vibecheck"}, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAIConfigFrom(t *testing.T) {
	var got *ai.Config
	var gotErr error
	app := &cli.App{
		Name:  "vibecheck",
		Flags: runFlags(),
		Action: func(c *cli.Context) error {
			got, gotErr = aiConfigFrom(c)
			return nil
		},
	}

	require.NoError(t, app.Run([]string{"vibecheck", "--classifier", "LLM", "--embedding-host", "http://embed:11434"}))
	require.NoError(t, gotErr)
	assert.Equal(t, ai.KindLLM, got.Classifier)
	assert.Equal(t, "http://embed:11434/v1", got.EmbeddingHost)
	assert.Equal(t, got.EmbeddingHost, got.ClassifierHost)

	require.NoError(t, app.Run([]string{"vibecheck", "--classifier", "regex"}))
	assert.Error(t, gotErr)
}

// embeddingServer answers OpenAI-style embedding requests with [1] for
// every input.
func embeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{1}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func seedLocalStore(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()
	store, err := badger.OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	sims := []float32{0.9, 0.1, 0.8, 0.2}
	c := &core.Corpus{}
	for i := range sims {
		c.Passages = append(c.Passages, core.Passage{
			Row:      i,
			Text:     fmt.Sprintf("passage %d mentions a flood", i),
			Metadata: map[string]any{core.ColumnDocumentID: fmt.Sprintf("doc-%d", i)},
		})
	}
	passages, err := corpus.EncodePassages(c)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, storage.PassagesKey, passages))
	require.NoError(t, store.Put(ctx, storage.EmbeddingsKey, corpus.EncodeNPY(&core.EmbeddingMatrix{Rows: 4, Dim: 1, Data: sims})))
	require.NoError(t, store.Put(ctx, storage.EmbeddingsMetadataKey, []byte(`{"embedding_model_name":"test-embedder"}`)))
	require.NoError(t, store.Put(ctx, storage.ConceptsKey, []byte("- id: Q1\n  preferred_label: flood\n")))
}

func TestRunCommand_LocalStore(t *testing.T) {
	path := t.TempDir()
	seedLocalStore(t, path)
	srv := embeddingServer(t)

	err := newApp().Run([]string{
		"vibecheck", "--log-level", "error", "run",
		"--store", "local",
		"--local-path", path,
		"--embedding-host", srv.URL,
		"--threshold", "0.5",
		"--min-passages", "1",
		"--max-passages", "10",
		"--seed", "7",
	})
	require.NoError(t, err)

	store, err := badger.OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	prefixes, err := store.List(context.Background(), storage.ConceptPrefix("Q1"), "/")
	require.NoError(t, err)
	require.Len(t, prefixes, 1)

	stats, err := store.Get(context.Background(), strings.TrimSuffix(prefixes[0], "/")+"/"+storage.StatsFile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n_positive_passages":2,"n_negative_passages":0,"percentage":100}`, string(stats))
}
