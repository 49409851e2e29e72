// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/caseforge/pkg/types"
)

const semanticJSON = `{"total":2,"offset":0,"data":[
 {"paperId":"abc","title":"Exercise for neck pain","abstract":"A review.","year":2019,
  "publicationDate":"2019-07-04","venue":"J Orthop Sports Phys Ther","url":"https://www.semanticscholar.org/paper/abc",
  "publicationTypes":["MetaAnalysis","JournalArticle"],
  "authors":[{"authorId":"1","name":"Ann Gross"}],"externalIds":{"DOI":"10.1/xyz"}},
 {"paperId":"def","title":"Neck pain outcomes","year":2015,"authors":[],"externalIds":{}}
]}`

func TestSemanticScholarSearch(t *testing.T) {
	var captured *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, semanticJSON)
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	b := &SemanticScholarBackend{Client: ts.Client(), APIKey: "key-1"}
	q := buildStrategies(Request{Condition: "neck pain", Specialization: "Orthopedic"})[2]
	records, err := b.Search(context.Background(), q, 4)
	require.NoError(t, err)

	assert.Equal(t, "neck pain orthopedic treatment", captured.URL.Query().Get("query"))
	assert.Equal(t, "4", captured.URL.Query().Get("limit"))
	assert.Equal(t, "key-1", captured.Header.Get("x-api-key"))

	require.Len(t, records, 2)
	assert.Equal(t, "10.1/xyz", records[0].ID)
	assert.Equal(t, "J Orthop Sports Phys Ther", records[0].Source)
	assert.Equal(t, []string{"Meta Analysis", "Journal Article"}, records[0].PublicationTypes)
	assert.Equal(t, types.LevelI, Classify(records[0].Title, records[0].PublicationTypes))
	assert.Equal(t, 2019, records[0].Date.Year())

	assert.Equal(t, "def", records[1].ID)
	assert.Equal(t, sourceSemanticScholar, records[1].Source)
	assert.Equal(t, 2015, records[1].Date.Year())
	assert.Equal(t, "https://www.semanticscholar.org/paper/def", canonicalURL(records[1]))
}

func TestSemanticScholarHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()
	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	_, err := (&SemanticScholarBackend{Client: ts.Client()}).Search(context.Background(), buildStrategies(lbpRequest())[0], 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestSplitCamel(t *testing.T) {
	assert.Equal(t, "Meta Analysis", splitCamel("MetaAnalysis"))
	assert.Equal(t, "Review", splitCamel("Review"))
	assert.Equal(t, "", splitCamel(""))
}
