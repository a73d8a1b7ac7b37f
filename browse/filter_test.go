package browse

import (
	"encoding/json"
	"math"
	"net/url"
	"testing"

	"github.com/poiesic/vibecheck/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passage(text, doc string, positive bool, extra map[string]any) core.LabelledPassage {
	md := map[string]any{core.ColumnDocumentID: doc}
	for k, v := range extra {
		md[k] = v
	}
	lp := core.LabelledPassage{Text: text, Spans: []core.Span{}, Metadata: md}
	if positive {
		lp.Spans = []core.Span{{Start: 0, End: 4, Label: "Q1"}}
	}
	return lp
}

func fixturePassages() []core.LabelledPassage {
	return []core.LabelledPassage{
		passage("Flood defences were raised", "CCLW.doc.1", true, map[string]any{
			core.ColumnTranslated:      "True",
			core.ColumnCorpusType:      "Laws and Policies",
			core.ColumnWorldBankRegion: "Europe & Central Asia",
			core.ColumnPublicationTS:   "2019-05-01T00:00:00Z",
		}),
		passage("Drought relief fund", "CCLW.doc.2", false, map[string]any{
			core.ColumnTranslated:      "False",
			core.ColumnCorpusType:      "UNFCCC",
			core.ColumnWorldBankRegion: "South Asia",
			core.ColumnPublicationTS:   "2022-11-30T00:00:00",
		}),
		passage("Coastal flooding (storm surge)", "UNFCCC.doc.3", true, map[string]any{
			core.ColumnTranslated:      false,
			core.ColumnCorpusType:      "UNFCCC",
			core.ColumnWorldBankRegion: "South Asia",
			core.ColumnPublicationTS:   "not a date",
		}),
	}
}

func docIDs(passages []core.LabelledPassage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = p.Metadata[core.ColumnDocumentID].(string)
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"no filters", "", []string{"CCLW.doc.1", "CCLW.doc.2", "UNFCCC.doc.3"}},
		{"translated", "translated=true", []string{"CCLW.doc.1"}},
		{"not translated", "translated=false", []string{"CCLW.doc.2", "UNFCCC.doc.3"}},
		{"corpus type", "corpus_type=UNFCCC", []string{"CCLW.doc.2", "UNFCCC.doc.3"}},
		{"region", "world_bank_region=Europe+%26+Central+Asia", []string{"CCLW.doc.1"}},
		{"year start keeps unparseable", "publication_year_start=2020", []string{"CCLW.doc.2", "UNFCCC.doc.3"}},
		{"year range", "publication_year_start=2018&publication_year_end=2020", []string{"CCLW.doc.1", "UNFCCC.doc.3"}},
		{"document id substring", "document_id=cclw", []string{"CCLW.doc.1", "CCLW.doc.2"}},
		{"search regex", "search=flood(ing)?%5Cb", []string{"CCLW.doc.1", "UNFCCC.doc.3"}},
		{"search case insensitive", "search=DROUGHT", []string{"CCLW.doc.2"}},
		{"invalid regex falls back to substring", "search=(storm", []string{"UNFCCC.doc.3"}},
		{"has predictions", "has_predictions=true", []string{"CCLW.doc.1", "UNFCCC.doc.3"}},
		{"no predictions", "has_predictions=false", []string{"CCLW.doc.2"}},
		{"combined", "corpus_type=UNFCCC&has_predictions=true", []string{"UNFCCC.doc.3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			f, err := ParseFilter(q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, docIDs(f.Apply(fixturePassages())))
		})
	}
}

func TestParseFilter_Invalid(t *testing.T) {
	for _, query := range []string{"translated=maybe", "has_predictions=2x", "publication_year_start=abc", "publication_year_end=-1"} {
		q, err := url.ParseQuery(query)
		require.NoError(t, err)
		_, err = ParseFilter(q)
		assert.Error(t, err, query)
	}
}

func TestMetaString(t *testing.T) {
	md := map[string]any{
		"s": "x",
		"n": json.Number("0.75"),
		"t": true,
		"f": false,
		"i": 3,
	}
	assert.Equal(t, "x", metaString(md, "s"))
	assert.Equal(t, "0.75", metaString(md, "n"))
	assert.Equal(t, "True", metaString(md, "t"))
	assert.Equal(t, "False", metaString(md, "f"))
	assert.Equal(t, "3", metaString(md, "i"))
	assert.Equal(t, "", metaString(md, "missing"))
}

func TestPaginate(t *testing.T) {
	passages := make([]core.LabelledPassage, 120)

	p := Paginate(passages, 1, 0)
	assert.Len(t, p.Predictions, DefaultPageSize)
	assert.Equal(t, 120, p.Total)
	assert.Equal(t, 3, p.TotalPages)

	p = Paginate(passages, 3, 50)
	assert.Len(t, p.Predictions, 20)

	p = Paginate(passages, 9, 50)
	assert.Empty(t, p.Predictions)
	assert.NotNil(t, p.Predictions)

	p = Paginate(passages, math.MaxInt, 50)
	assert.Empty(t, p.Predictions)
	assert.Equal(t, 120, p.Total)

	p = Paginate(passages, math.MaxInt/49, 50)
	assert.Empty(t, p.Predictions)

	p = Paginate(passages, 1, 5000)
	assert.Equal(t, MaxPageSize, p.PageSize)
	assert.Len(t, p.Predictions, 120)

	p = Paginate(nil, 1, 10)
	assert.Zero(t, p.TotalPages)
}
