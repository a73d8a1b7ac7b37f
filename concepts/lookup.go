package concepts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/storage"
)

// ErrUnknownConcept indicates no lookup source knows the concept.
var ErrUnknownConcept = fmt.Errorf("%w: unknown concept", core.ErrValidation)

// Lookup resolves a concept identifier to its current metadata.
// Implementations must be thread-safe for concurrent use.
type Lookup interface {
	Lookup(ctx context.Context, id string) (*core.Concept, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, id string) (*core.Concept, error)

// Lookup calls f.
func (f LookupFunc) Lookup(ctx context.Context, id string) (*core.Concept, error) {
	return f(ctx, id)
}

// HTTPLookup fetches concepts from a JSON concept service at
// {BaseURL}/concepts/{id}. The response body is decoded into core.Concept.
type HTTPLookup struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPLookup creates an HTTP lookup against baseURL.
func NewHTTPLookup(baseURL string, timeout time.Duration) (*HTTPLookup, error) {
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("%w: invalid concept service url %q", core.ErrValidation, baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPLookup{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  slog.Default().With("component", "concept-lookup"),
	}, nil
}

// Lookup fetches the concept. Unknown concepts map to ErrUnknownConcept and
// transport or server failures to core.ErrConnectivity.
func (h *HTTPLookup) Lookup(ctx context.Context, id string) (*core.Concept, error) {
	endpoint := h.baseURL + "/concepts/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrValidation, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: concept %s: %w", core.ErrConnectivity, id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrUnknownConcept, id)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: concept %s: status %d: %s",
			core.ErrConnectivity, id, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var concept core.Concept
	if err := json.NewDecoder(resp.Body).Decode(&concept); err != nil {
		return nil, fmt.Errorf("%w: concept %s: %w", core.ErrValidation, id, err)
	}
	if concept.ID == "" {
		concept.ID = id
	}
	if err := core.ValidateConcept(&concept); err != nil {
		return nil, err
	}
	h.logger.Debug("fetched concept", "id", id, "label", concept.PreferredLabel)
	return &concept, nil
}

// CatalogLookup serves concepts from the concepts.yml entries in the object
// store. The catalog is re-read on every lookup so edits between runs are seen.
type CatalogLookup struct {
	resolver *Resolver
}

// NewCatalogLookup creates a lookup backed by concepts.yml in store.
func NewCatalogLookup(store storage.ObjectStore) *CatalogLookup {
	return &CatalogLookup{resolver: NewResolver(store)}
}

// Lookup finds id in the catalog. Entries without a preferred label use the
// identifier as their label.
func (c *CatalogLookup) Lookup(ctx context.Context, id string) (*core.Concept, error) {
	entries, err := c.resolver.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID != id {
			continue
		}
		label := e.PreferredLabel
		if label == "" {
			label = e.ID
		}
		return &core.Concept{ID: e.ID, PreferredLabel: label, Description: e.Description}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownConcept, id)
}

// Chain tries each lookup in order, moving on when a lookup does not know
// the concept. Any other error stops the chain.
type Chain []Lookup

// Lookup returns the first successful result.
func (c Chain) Lookup(ctx context.Context, id string) (*core.Concept, error) {
	err := fmt.Errorf("%w: %s", ErrUnknownConcept, id)
	for _, l := range c {
		concept, lerr := l.Lookup(ctx, id)
		if lerr == nil {
			return concept, nil
		}
		if !errors.Is(lerr, ErrUnknownConcept) {
			return nil, lerr
		}
		err = lerr
	}
	return nil, err
}
