// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/caseforge/internal/httputil"
	"github.com/pdiddy/caseforge/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const (
	sourceSemanticScholar = "semantic_scholar"
	semanticFields        = "title,abstract,authors,externalIds,year,publicationDate,venue,url,publicationTypes"
)

// SemanticScholarBackend queries the Semantic Scholar graph API. It does
// not accept boolean syntax, so queries are sent in their plain form.
type SemanticScholarBackend struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return sourceSemanticScholar }

// Search queries the Semantic Scholar API and returns up to maxResults records.
func (b *SemanticScholarBackend) Search(ctx context.Context, query Query, maxResults int) ([]types.SearchRecord, error) {
	q := query.Plain()
	if q == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(maxResults)},
		"fields": {semanticFields},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	records := make([]types.SearchRecord, 0, len(sr.Data))
	for _, paper := range sr.Data {
		r := types.SearchRecord{
			ID:       paper.PaperID,
			Title:    paper.Title,
			Abstract: paper.Abstract,
			Source:   paper.Venue,
			URL:      paper.URL,
			Authors:  []string{},
		}
		if paper.ExternalIDs.DOI != "" {
			r.ID = paper.ExternalIDs.DOI
		}
		if r.Source == "" {
			r.Source = sourceSemanticScholar
		}
		for _, a := range paper.Authors {
			r.Authors = append(r.Authors, a.Name)
		}
		for _, pt := range paper.PublicationTypes {
			r.PublicationTypes = append(r.PublicationTypes, splitCamel(pt))
		}

		if paper.PublicationDate != "" {
			if t, parseErr := time.Parse("2006-01-02", paper.PublicationDate); parseErr == nil {
				r.Date = t
			}
		} else if paper.Year > 0 {
			r.Date = time.Date(paper.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		}

		records = append(records, r)
	}
	return records, nil
}

// splitCamel turns Semantic Scholar type tags such as "MetaAnalysis" into
// "Meta Analysis" so they match the classification keywords.
func splitCamel(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID          string              `json:"paperId"`
	Title            string              `json:"title"`
	Abstract         string              `json:"abstract"`
	Year             int                 `json:"year"`
	PublicationDate  string              `json:"publicationDate"`
	Venue            string              `json:"venue"`
	URL              string              `json:"url"`
	PublicationTypes []string            `json:"publicationTypes"`
	Authors          []semanticAuthor    `json:"authors"`
	ExternalIDs      semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI    string `json:"DOI"`
	PubMed string `json:"PubMed"`
}
