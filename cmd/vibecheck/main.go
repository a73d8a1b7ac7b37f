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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/vibecheck"
	"github.com/poiesic/vibecheck/ai"
	"github.com/poiesic/vibecheck/ai/openai"
	"github.com/poiesic/vibecheck/browse"
	"github.com/poiesic/vibecheck/concepts"
	"github.com/poiesic/vibecheck/inference"
	"github.com/poiesic/vibecheck/metrics"
	"github.com/poiesic/vibecheck/progress"
	"github.com/poiesic/vibecheck/selection"
	"github.com/poiesic/vibecheck/storage"
	"github.com/poiesic/vibecheck/storage/badger"
	"github.com/poiesic/vibecheck/storage/minio"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vibecheck",
		Usage: "Run concept classifiers over an embedded passage corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run inference for every configured concept, or only the given ones",
				Action: runCommand,
				Flags:  append(storeFlags(), runFlags()...),
			},
			{
				Name:   "serve",
				Usage:  "Serve the results browse API",
				Action: serveCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:  "address",
						Usage: "Listen address",
						Value: browse.DefaultAddress,
					},
					&cli.DurationFlag{
						Name:  "cache-ttl",
						Usage: "How long store reads are cached (0 disables caching)",
						Value: browse.DefaultCacheTTL,
					},
				),
			},
		},
	}
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "store",
			Usage: "Object store backend (s3, local)",
			Value: "s3",
		},
		&cli.StringFlag{
			Name:    "bucket",
			Usage:   "Bucket holding the inputs and published results",
			EnvVars: []string{"BUCKET_NAME"},
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "S3 endpoint host[:port]",
			Value: "s3.amazonaws.com",
		},
		&cli.StringFlag{
			Name:    "access-key",
			Usage:   "S3 access key ID",
			EnvVars: []string{"AWS_ACCESS_KEY_ID"},
		},
		&cli.StringFlag{
			Name:    "secret-key",
			Usage:   "S3 secret access key",
			EnvVars: []string{"AWS_SECRET_ACCESS_KEY"},
		},
		&cli.StringFlag{
			Name:    "session-token",
			Usage:   "S3 session token for temporary credentials",
			EnvVars: []string{"AWS_SESSION_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "S3 region",
			Value:   "eu-west-1",
			EnvVars: []string{"AWS_REGION"},
		},
		&cli.BoolFlag{
			Name:  "use-ssl",
			Usage: "Use https for S3",
			Value: true,
		},
		&cli.StringFlag{
			Name:  "local-path",
			Usage: "Path to the BadgerDB directory used by the local store",
		},
	}
}

func runFlags() []cli.Flag {
	defaults := inference.DefaultConfig()
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "concept",
			Aliases: []string{"c"},
			Usage:   "Concept ID to process (repeatable); defaults to every concept in concepts.yml",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Number of concepts processed concurrently",
			Value: defaults.Workers,
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of passages per classifier call",
			Value: defaults.BatchSize,
		},
		&cli.IntFlag{
			Name:  "progress-every",
			Usage: "Report progress every N batches",
			Value: defaults.ProgressEvery,
		},
		&cli.Float64Flag{
			Name:  "threshold",
			Usage: "Similarity above which passages are selected first",
			Value: selection.DefaultThreshold,
		},
		&cli.IntFlag{
			Name:  "min-passages",
			Usage: "Passages to select per concept before giving up on back-filling",
			Value: selection.DefaultMinPassages,
		},
		&cli.IntFlag{
			Name:  "max-passages",
			Usage: "Maximum passages selected per concept",
			Value: selection.DefaultMaxPassages,
		},
		&cli.StringFlag{
			Name:  "classifier",
			Usage: "Classifier family (keyword, llm)",
			Value: string(ai.KindKeyword),
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "classifier-host",
			Usage: "Chat service host URL for LLM classifiers (defaults to embedding-host if not specified)",
		},
		&cli.StringFlag{
			Name:  "classifier-model",
			Usage: "Chat model used by LLM classifiers",
			Value: ai.DefaultConfig().ClassifierModel,
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Bearer token for the AI services",
			Value:   "none",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "concept-service",
			Usage: "Base URL of a concept metadata service, consulted before concepts.yml",
		},
		&cli.Uint64Flag{
			Name:  "seed",
			Usage: "Seed for the prediction shuffle, for reproducible output order",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Abort the run after this long (0 means no limit)",
		},
		&cli.StringFlag{
			Name:  "metrics-address",
			Usage: "Serve Prometheus metrics on this address while running",
		},
	}
}

func runCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := c.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cfg, err := runConfig(c)
	if err != nil {
		return err
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	aiConfig, err := aiConfigFrom(c)
	if err != nil {
		return err
	}
	provider, err := openai.NewProvider(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create AI provider: %w", err)
	}
	defer provider.Close()

	lookup, err := conceptLookup(c, store)
	if err != nil {
		return err
	}

	m := metrics.NewMetrics(metrics.Config{
		Address:                 c.String("metrics-address"),
		ServiceName:             "vibecheck",
		EnableDefaultCollectors: true,
	})
	if c.String("metrics-address") != "" {
		go func() {
			if err := m.Serve(ctx); err != nil {
				slog.Error("metrics server stopped", "err", err)
			}
		}()
	}

	opts := []vibecheck.Option{
		vibecheck.WithConfig(cfg),
		vibecheck.WithReporter(progress.Multi{progress.NewLogReporter(nil), m}),
		vibecheck.WithObserver(m),
	}
	if c.IsSet("seed") {
		opts = append(opts, vibecheck.WithSeed(c.Uint64("seed")))
	}

	pipeline, err := vibecheck.NewFromProvider(store, provider, lookup, opts...)
	if err != nil {
		return err
	}

	mode := concepts.ModeConfig
	ids := c.StringSlice("concept")
	if len(ids) > 0 {
		mode = concepts.ModeCustom
	}

	fmt.Fprintf(os.Stderr, "Store: %s\n", storeDescription(c))
	fmt.Fprintf(os.Stderr, "Classifier: %s\n", aiConfig.Classifier)
	fmt.Fprintf(os.Stderr, "Workers: %d\n", cfg.Inference.Workers)
	fmt.Fprintln(os.Stderr)

	if _, err := pipeline.Run(ctx, mode, ids); err != nil {
		return fmt.Errorf("inference failed: %w", err)
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	gin.SetMode(gin.ReleaseMode)
	m := metrics.NewMetrics(metrics.Config{ServiceName: "vibecheck-browse", EnableDefaultCollectors: true})
	server, err := browse.NewServer(store,
		browse.WithAddress(c.String("address")),
		browse.WithCacheTTL(c.Duration("cache-ttl")),
		browse.WithMetrics(m),
		browse.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer server.Close()

	return server.Serve(ctx)
}

func runConfig(c *cli.Context) (vibecheck.Config, error) {
	cfg := vibecheck.DefaultConfig()
	cfg.Inference.Workers = c.Int("workers")
	cfg.Inference.BatchSize = c.Int("batch-size")
	cfg.Inference.ProgressEvery = c.Int("progress-every")
	cfg.Inference.Selection = selection.Policy{
		Threshold:   float32(c.Float64("threshold")),
		MinPassages: c.Int("min-passages"),
		MaxPassages: c.Int("max-passages"),
	}
	if err := cfg.Inference.Validate(); err != nil {
		return vibecheck.Config{}, fmt.Errorf("invalid run configuration: %w", err)
	}
	return cfg, nil
}

func aiConfigFrom(c *cli.Context) (*ai.Config, error) {
	embeddingHost := c.String("embedding-host")
	classifierHost := c.String("classifier-host")
	if classifierHost == "" {
		classifierHost = embeddingHost
	}

	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(embeddingHost),
		ai.WithClassifierHost(classifierHost),
		ai.WithClassifierModel(c.String("classifier-model")),
		ai.WithClassifier(ai.ClassifierKind(strings.ToLower(c.String("classifier")))),
		ai.WithAPIKey(c.String("api-key")),
	)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return cfg, nil
}

func conceptLookup(c *cli.Context, store storage.ObjectStore) (concepts.Lookup, error) {
	catalog := concepts.NewCatalogLookup(store)
	serviceURL := c.String("concept-service")
	if serviceURL == "" {
		return catalog, nil
	}
	service, err := concepts.NewHTTPLookup(serviceURL, 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid concept service: %w", err)
	}
	return concepts.Chain{service, catalog}, nil
}

func openStore(c *cli.Context) (storage.ObjectStore, error) {
	switch strings.ToLower(c.String("store")) {
	case "s3":
		cfg := minio.NewConfig(
			minio.WithEndpoint(c.String("endpoint")),
			minio.WithCredentials(c.String("access-key"), c.String("secret-key")),
			minio.WithBucket(c.String("bucket")),
			minio.WithRegion(c.String("region")),
			minio.WithSSL(c.Bool("use-ssl")),
		)
		cfg.SessionToken = c.String("session-token")
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid store configuration: %w", err)
		}
		store, err := minio.NewStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to object store: %w", err)
		}
		return store, nil
	case "local":
		path := c.String("local-path")
		if path == "" {
			return nil, fmt.Errorf("local-path is required for the local store")
		}
		store, err := badger.OpenStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open local store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("invalid store %q: must be one of s3, local", c.String("store"))
	}
}

func storeDescription(c *cli.Context) string {
	if strings.ToLower(c.String("store")) == "local" {
		return "local " + c.String("local-path")
	}
	return fmt.Sprintf("s3://%s (%s)", c.String("bucket"), c.String("endpoint"))
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
