package browse

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/vibecheck/core"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// Filter narrows a prediction listing. Zero values match everything.
type Filter struct {
	Translated           *bool
	CorpusType           string
	WorldBankRegion      string
	PublicationYearStart int
	PublicationYearEnd   int
	DocumentID           string
	Search               string
	HasPredictions       *bool

	searchRe *regexp.Regexp
}

// ParseFilter reads filter parameters from a query string. Search is
// compiled as a case-insensitive regular expression; when it does not
// compile it is matched as a plain case-insensitive substring instead.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		CorpusType:      q.Get("corpus_type"),
		WorldBankRegion: q.Get("world_bank_region"),
		DocumentID:      q.Get("document_id"),
		Search:          strings.TrimSpace(q.Get("search")),
	}

	var err error
	if f.Translated, err = parseBool(q, "translated"); err != nil {
		return Filter{}, err
	}
	if f.HasPredictions, err = parseBool(q, "has_predictions"); err != nil {
		return Filter{}, err
	}
	if f.PublicationYearStart, err = parseInt(q, "publication_year_start", 0); err != nil {
		return Filter{}, err
	}
	if f.PublicationYearEnd, err = parseInt(q, "publication_year_end", 0); err != nil {
		return Filter{}, err
	}

	if f.Search != "" {
		if re, err := regexp.Compile("(?i)" + f.Search); err == nil {
			f.searchRe = re
		}
	}
	return f, nil
}

// Match reports whether a labelled passage passes every set filter.
func (f Filter) Match(lp core.LabelledPassage) bool {
	md := lp.Metadata

	if f.Translated != nil {
		translated := strings.EqualFold(metaString(md, core.ColumnTranslated), "true")
		if translated != *f.Translated {
			return false
		}
	}
	if f.CorpusType != "" && metaString(md, core.ColumnCorpusType) != f.CorpusType {
		return false
	}
	if f.WorldBankRegion != "" && metaString(md, core.ColumnWorldBankRegion) != f.WorldBankRegion {
		return false
	}

	if f.PublicationYearStart > 0 || f.PublicationYearEnd > 0 {
		// Unparseable dates are not excluded.
		if year, ok := publicationYear(metaString(md, core.ColumnPublicationTS)); ok {
			if f.PublicationYearStart > 0 && year < f.PublicationYearStart {
				return false
			}
			if f.PublicationYearEnd > 0 && year > f.PublicationYearEnd {
				return false
			}
		}
	}

	if f.DocumentID != "" {
		docID := strings.ToLower(metaString(md, core.ColumnDocumentID))
		if !strings.Contains(docID, strings.ToLower(f.DocumentID)) {
			return false
		}
	}

	if f.Search != "" {
		if f.searchRe != nil {
			if !f.searchRe.MatchString(lp.Text) {
				return false
			}
		} else if !strings.Contains(strings.ToLower(lp.Text), strings.ToLower(f.Search)) {
			return false
		}
	}

	if f.HasPredictions != nil && (len(lp.Spans) > 0) != *f.HasPredictions {
		return false
	}
	return true
}

// Apply returns the passages matching f, preserving order.
func (f Filter) Apply(passages []core.LabelledPassage) []core.LabelledPassage {
	out := make([]core.LabelledPassage, 0, len(passages))
	for _, lp := range passages {
		if f.Match(lp) {
			out = append(out, lp)
		}
	}
	return out
}

// Page is one page of a filtered prediction listing.
type Page struct {
	Predictions []core.LabelledPassage `json:"predictions"`
	Total       int                    `json:"total"`
	Page        int                    `json:"page"`
	PageSize    int                    `json:"page_size"`
	TotalPages  int                    `json:"total_pages"`
}

// Paginate slices passages into 1-based pages. Pages past the end are empty.
func Paginate(passages []core.LabelledPassage, page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, MaxPageSize)

	total := len(passages)
	start := total
	if page-1 < total/pageSize+1 {
		start = min((page-1)*pageSize, total)
	}
	end := min(start+pageSize, total)
	return Page{
		Predictions: passages[start:end:end],
		Total:       total,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  (total + pageSize - 1) / pageSize,
	}
}

func parseBool(q url.Values, key string) (*bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", key, raw)
	}
	return &v, nil
}

func parseInt(q url.Values, key string, fallback int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

func publicationYear(ts string) (int, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return 0, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}

// metaString renders a metadata value the way the upstream dataset writes
// it: booleans as "True"/"False", numbers in their JSON form.
func metaString(md map[string]any, key string) string {
	switch v := md[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(v)
	}
}
