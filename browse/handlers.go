package browse

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/vibecheck/concepts"
	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/inference"
	"github.com/poiesic/vibecheck/storage"
	"golang.org/x/sync/errgroup"
)

var errInvalidID = errors.New("invalid identifier")

// ConceptSummary is one entry of the concept listing.
type ConceptSummary struct {
	WikibaseID     string `json:"wikibase_id"`
	PreferredLabel string `json:"preferred_label"`
	Description    string `json:"description"`
	NClassifiers   int    `json:"n_classifiers"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listConcepts(c *gin.Context) {
	summaries, err := cached(s.cache, "concepts", func() ([]ConceptSummary, int64, error) {
		out, err := s.loadConcepts(c.Request.Context())
		return out, int64(len(out)) * 128, err
	})
	if err != nil {
		s.logger.Error("failed to list concepts", "err", err)
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, summaries)
}

// loadConcepts enriches concepts.yml entries from the latest concept.json
// written for each concept.
func (s *Server) loadConcepts(ctx context.Context) ([]ConceptSummary, error) {
	data, err := s.store.Get(ctx, storage.ConceptsKey)
	if err != nil {
		return nil, err
	}
	entries, err := concepts.ParseCatalog(data)
	if err != nil {
		return nil, err
	}

	keys, err := s.store.List(ctx, "", "")
	if err != nil {
		return nil, err
	}
	conceptFiles := make(map[string][]string)
	for _, key := range keys {
		parts := strings.Split(key, "/")
		if len(parts) >= 3 && parts[len(parts)-1] == storage.ConceptFile {
			conceptFiles[parts[0]] = append(conceptFiles[parts[0]], key)
		}
	}

	out := make([]ConceptSummary, 0, len(entries))
	for _, e := range entries {
		summary := ConceptSummary{
			WikibaseID:     e.ID,
			PreferredLabel: cmp.Or(e.PreferredLabel, e.ID),
			Description:    cmp.Or(e.Description, "Concept "+e.ID),
		}

		files := conceptFiles[e.ID]
		if len(files) == 0 {
			out = append(out, summary)
			continue
		}
		slices.Sort(files)
		latest := files[len(files)-1]

		raw, err := s.store.Get(ctx, latest)
		if err != nil {
			s.logger.Warn("failed to fetch concept metadata", "key", latest, "err", err)
			out = append(out, summary)
			continue
		}
		var concept core.Concept
		if err := json.Unmarshal(raw, &concept); err != nil {
			s.logger.Warn("failed to decode concept metadata", "key", latest, "err", err)
			out = append(out, summary)
			continue
		}
		summary.PreferredLabel = cmp.Or(concept.PreferredLabel, summary.PreferredLabel)
		summary.Description = cmp.Or(concept.Description, summary.Description)
		summary.NClassifiers = len(files)
		out = append(out, summary)
	}
	return out, nil
}

func (s *Server) listClassifiers(c *gin.Context) {
	conceptID, ok := pathID(c, "concept_id")
	if !ok {
		return
	}
	ids, err := cached(s.cache, "classifiers-"+conceptID, func() ([]string, int64, error) {
		out, err := s.loadClassifierIDs(c.Request.Context(), conceptID)
		return out, int64(len(out)) * 32, err
	})
	if err != nil {
		s.logger.Error("failed to list classifiers", "concept_id", conceptID, "err", err)
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, ids)
}

// loadClassifierIDs returns the classifiers run for a concept, newest
// first. Classifiers whose metadata cannot be read sort last.
func (s *Server) loadClassifierIDs(ctx context.Context, conceptID string) ([]string, error) {
	prefixes, err := s.store.List(ctx, storage.ConceptPrefix(conceptID), "/")
	if err != nil {
		return nil, err
	}

	type dated struct {
		id   string
		date time.Time
		ok   bool
	}
	var found []dated
	for _, p := range prefixes {
		if strings.HasSuffix(p, "/") {
			found = append(found, dated{id: storage.LastSegment(p)})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i := range found {
		g.Go(func() error {
			info, err := s.fetchClassifier(gctx, conceptID, found[i].id)
			if err != nil {
				s.logger.Warn("could not fetch classifier metadata",
					"concept_id", conceptID, "classifier_id", found[i].id, "err", err)
				return nil
			}
			if t, err := time.Parse(time.DateOnly, info.Date); err == nil {
				found[i].date = t
				found[i].ok = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(found, func(a, b dated) int {
		switch {
		case a.ok && b.ok:
			return b.date.Compare(a.date)
		case a.ok:
			return -1
		case b.ok:
			return 1
		default:
			return 0
		}
	})

	ids := make([]string, len(found))
	for i, f := range found {
		ids[i] = f.id
	}
	return ids, nil
}

func (s *Server) getClassifier(c *gin.Context) {
	conceptID, classifierID, ok := pathIDs(c)
	if !ok {
		return
	}
	info, err := cached(s.cache, "classifier-"+conceptID+"-"+classifierID, func() (core.ClassifierInfo, int64, error) {
		info, err := s.fetchClassifier(c.Request.Context(), conceptID, classifierID)
		return info, 256, err
	})
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, info)
}

func (s *Server) fetchClassifier(ctx context.Context, conceptID, classifierID string) (core.ClassifierInfo, error) {
	var info core.ClassifierInfo
	key := storage.ArtifactKey(storage.OutputPrefix(conceptID, classifierID), storage.ClassifierFile)
	err := s.getJSON(ctx, key, &info)
	return info, err
}

func (s *Server) getStats(c *gin.Context) {
	conceptID, classifierID, ok := pathIDs(c)
	if !ok {
		return
	}
	stats, err := cached(s.cache, "stats-"+conceptID+"-"+classifierID, func() (core.Stats, int64, error) {
		var stats core.Stats
		key := storage.ArtifactKey(storage.OutputPrefix(conceptID, classifierID), storage.StatsFile)
		err := s.getJSON(c.Request.Context(), key, &stats)
		return stats, 64, err
	})
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondOK(c, stats)
}

func (s *Server) listPredictions(c *gin.Context) {
	conceptID, classifierID, ok := pathIDs(c)
	if !ok {
		return
	}

	query := c.Request.URL.Query()
	filter, err := ParseFilter(query)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	page, err := parseInt(query, "page", 1)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	pageSize, err := parseInt(query, "page_size", DefaultPageSize)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	predictions, err := cached(s.cache, "predictions-"+conceptID+"-"+classifierID, func() ([]core.LabelledPassage, int64, error) {
		raw, err := s.store.Get(c.Request.Context(), predictionsKey(conceptID, classifierID))
		if err != nil {
			return nil, 0, err
		}
		decoded, err := inference.DecodePredictions(raw)
		return decoded, int64(len(raw)), err
	})
	if err != nil {
		s.logger.Error("failed to load predictions",
			"concept_id", conceptID, "classifier_id", classifierID, "err", err)
		respondError(c, statusFor(err), err)
		return
	}

	respondOK(c, Paginate(filter.Apply(predictions), page, pageSize))
}

func (s *Server) downloadPredictions(c *gin.Context) {
	conceptID, classifierID, ok := pathIDs(c)
	if !ok {
		return
	}
	raw, err := s.store.Get(c.Request.Context(), predictionsKey(conceptID, classifierID))
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	filename := fmt.Sprintf("%s-%s-predictions.jsonl", conceptID, classifierID)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/x-ndjson", raw)
}

func (s *Server) getJSON(ctx context.Context, key string, v any) error {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decode %s: %w", core.ErrValidation, key, err)
	}
	return nil
}

func predictionsKey(conceptID, classifierID string) string {
	return storage.ArtifactKey(storage.OutputPrefix(conceptID, classifierID), storage.PredictionsFile)
}

func pathID(c *gin.Context, name string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		respondError(c, http.StatusBadRequest, fmt.Errorf("%w: %s %s", errInvalidID, name, strconv.Quote(id)))
		return "", false
	}
	return id, true
}

func pathIDs(c *gin.Context) (string, string, bool) {
	conceptID, ok := pathID(c, "concept_id")
	if !ok {
		return "", "", false
	}
	classifierID, ok := pathID(c, "classifier_id")
	if !ok {
		return "", "", false
	}
	return conceptID, classifierID, true
}
