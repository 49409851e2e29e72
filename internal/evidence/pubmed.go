// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/caseforge/internal/httputil"
	"github.com/pdiddy/caseforge/pkg/types"
)

// pubmedBaseURL is the NCBI E-utilities root. Declared as a var so tests
// can substitute an httptest server.
var pubmedBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

const (
	sourcePubMed = "pubmed"
	pubmedTool   = "caseforge"
)

// PubMedBackend searches PubMed in two steps: esearch for PMIDs, then one
// efetch for the article details of every PMID.
type PubMedBackend struct {
	Client    *http.Client
	APIKey    string
	Email     string
	UserAgent string

	limiter *rate.Limiter
}

// NewPubMedBackend returns a backend that paces requests to rps per second.
// NCBI allows 3 requests per second without a key and 10 with one.
func NewPubMedBackend(cfg types.SearchConfig) *PubMedBackend {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 3
		if cfg.APIKey != "" {
			rps = 10
		}
	}
	return &PubMedBackend{
		Client:    &http.Client{Timeout: cfg.Timeout},
		APIKey:    cfg.APIKey,
		Email:     cfg.Email,
		UserAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Name returns the backend identifier.
func (b *PubMedBackend) Name() string { return sourcePubMed }

// Search returns up to maxResults PubMed records for the query.
func (b *PubMedBackend) Search(ctx context.Context, query Query, maxResults int) ([]types.SearchRecord, error) {
	term := query.Boolean()
	if term == "" {
		return nil, fmt.Errorf("empty PubMed query")
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	ids, err := b.searchIDs(ctx, term, maxResults)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return b.fetchArticles(ctx, ids)
}

func (b *PubMedBackend) searchIDs(ctx context.Context, term string, maxResults int) ([]string, error) {
	params := b.params()
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmode", "json")
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("sort", "relevance")

	resp, err := b.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("PubMed esearch: %w", err)
	}
	defer resp.Body.Close()

	var sr esearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing PubMed esearch response: %w", err)
	}
	if sr.Result.Error != "" {
		return nil, fmt.Errorf("PubMed esearch: %s", sr.Result.Error)
	}
	return sr.Result.IDList, nil
}

func (b *PubMedBackend) fetchArticles(ctx context.Context, ids []string) ([]types.SearchRecord, error) {
	params := b.params()
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")

	resp, err := b.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("PubMed efetch: %w", err)
	}
	defer resp.Body.Close()

	var set pubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing PubMed efetch response: %w", err)
	}

	records := make([]types.SearchRecord, 0, len(set.Articles))
	for _, a := range set.Articles {
		records = append(records, a.record())
	}
	return records, nil
}

func (b *PubMedBackend) params() url.Values {
	params := url.Values{"tool": {pubmedTool}}
	if b.APIKey != "" {
		params.Set("api_key", b.APIKey)
	}
	if b.Email != "" {
		params.Set("email", b.Email)
	}
	return params
}

func (b *PubMedBackend) get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pubmedBaseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp, nil
}

// E-utilities JSON and XML structures.
type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
		Error  string   `json:"ERROR"`
	} `json:"esearchresult"`
}

type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    markup `xml:"ArticleTitle"`
			Abstract struct {
				Texts []abstractText `xml:"AbstractText"`
			} `xml:"Abstract"`
			Authors []pubmedAuthor `xml:"AuthorList>Author"`
			Journal struct {
				Title   string `xml:"Title"`
				ISOAbbr string `xml:"ISOAbbreviation"`
				PubDate struct {
					Year        string `xml:"Year"`
					Month       string `xml:"Month"`
					Day         string `xml:"Day"`
					MedlineDate string `xml:"MedlineDate"`
				} `xml:"JournalIssue>PubDate"`
			} `xml:"Journal"`
			PublicationTypes []string `xml:"PublicationTypeList>PublicationType"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
}

type markup struct {
	Inner string `xml:",innerxml"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	markup
}

type pubmedAuthor struct {
	LastName       string `xml:"LastName"`
	Initials       string `xml:"Initials"`
	CollectiveName string `xml:"CollectiveName"`
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// text strips inline markup such as <i> and unescapes entities.
func (m markup) text() string {
	s := tagPattern.ReplaceAllString(m.Inner, "")
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

func (a pubmedArticle) record() types.SearchRecord {
	art := a.Citation.Article
	r := types.SearchRecord{
		ID:               strings.TrimSpace(a.Citation.PMID),
		Title:            art.Title.text(),
		Source:           sourcePubMed,
		PublicationTypes: art.PublicationTypes,
		Authors:          []string{},
	}
	if r.ID != "" {
		r.URL = "https://pubmed.ncbi.nlm.nih.gov/" + r.ID + "/"
	}

	var parts []string
	for _, t := range art.Abstract.Texts {
		body := t.text()
		if body == "" {
			continue
		}
		if t.Label != "" {
			body = t.Label + ": " + body
		}
		parts = append(parts, body)
	}
	r.Abstract = strings.Join(parts, " ")

	for _, au := range art.Authors {
		switch {
		case au.LastName != "":
			r.Authors = append(r.Authors, strings.TrimSpace(au.LastName+" "+au.Initials))
		case au.CollectiveName != "":
			r.Authors = append(r.Authors, au.CollectiveName)
		}
	}

	journal := art.Journal.ISOAbbr
	if journal == "" {
		journal = art.Journal.Title
	}
	if journal != "" {
		r.Source = journal
	}
	pd := art.Journal.PubDate
	r.Date = parsePubDate(pd.Year, pd.Month, pd.Day, pd.MedlineDate)
	return r
}

// parsePubDate builds a date from PubMed's split fields. Month may be a
// number or an abbreviation; MedlineDate ("2019 Nov-Dec") is used when
// Year is absent.
func parsePubDate(year, month, day, medline string) time.Time {
	if year == "" && len(medline) >= 4 {
		year = medline[:4]
	}
	y, err := strconv.Atoi(year)
	if err != nil || y <= 0 {
		return time.Time{}
	}
	m := time.January
	if month != "" {
		if n, err := strconv.Atoi(month); err == nil && n >= 1 && n <= 12 {
			m = time.Month(n)
		} else if t, err := time.Parse("Jan", month[:min(3, len(month))]); err == nil {
			m = t.Month()
		}
	}
	d := 1
	if n, err := strconv.Atoi(day); err == nil && n >= 1 && n <= 31 {
		d = n
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
