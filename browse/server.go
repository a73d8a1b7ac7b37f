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


package browse

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/vibecheck/metrics"
	"github.com/poiesic/vibecheck/storage"
)

// DefaultAddress is the listen address used when none is configured.
const DefaultAddress = ":8080"

// fetchConcurrency bounds concurrent classifier metadata reads per request.
const fetchConcurrency = 8

// Server is the results browse API.
type Server struct {
	store   storage.ObjectStore
	cache   *cache
	metrics *metrics.Metrics
	router  *gin.Engine
	address string
	logger  *slog.Logger
}

type options struct {
	address  string
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*options)

// WithAddress sets the listen address used by Serve.
func WithAddress(address string) Option {
	return func(o *options) {
		o.address = address
	}
}

// WithCacheTTL sets how long store reads are cached. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
	}
}

// WithMetrics exposes m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewServer creates a browse server reading from store.
func NewServer(store storage.ObjectStore, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("browse: object store required")
	}

	o := options{
		address:  DefaultAddress,
		cacheTTL: DefaultCacheTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c, err := newCache(o.cacheTTL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:   store,
		cache:   c,
		metrics: o.metrics,
		address: o.address,
		logger:  o.logger.With("component", "browse"),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))

	router.GET("/healthz", s.health)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/concepts", s.listConcepts)
		api.GET("/concepts/:concept_id/classifiers", s.listClassifiers)
		api.GET("/concepts/:concept_id/classifiers/:classifier_id", s.getClassifier)
		api.GET("/concepts/:concept_id/classifiers/:classifier_id/stats", s.getStats)
		api.GET("/predictions/:concept_id/:classifier_id", s.listPredictions)
		api.GET("/predictions/:concept_id/:classifier_id/download", s.downloadPredictions)
	}
	return router
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving browse API", "address", s.address)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// Close releases the cache.
func (s *Server) Close() {
	s.cache.close()
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}
