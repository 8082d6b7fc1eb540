// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/citeverify/internal/normalize"
	"github.com/pdiddy/citeverify/pkg/types"
)

// semanticPaperBase is the Semantic Scholar Graph API paper endpoint.
// Declared as a var so tests can substitute an httptest server.
var semanticPaperBase = "https://api.semanticscholar.org/graph/v1/paper"

const semanticFields = "title,authors,year,externalIds,venue,citationCount,publicationTypes"

// SemanticScholar queries the Semantic Scholar Graph API. The API key is
// optional; without one the public rate limit is about one request per
// second.
type SemanticScholar struct {
	fetch *fetcher
	base  string
	limit int
}

// NewSemanticScholar builds the Semantic Scholar source.
func NewSemanticScholar(cfg types.RegistryConfig, httpCfg types.HTTPConfig, log *zap.Logger) *SemanticScholar {
	base := cfg.BaseURL
	if base == "" {
		base = semanticPaperBase
	}
	f := newFetcher(types.RegistrySemanticScholar, cfg, httpCfg, log)
	if cfg.APIKey != "" {
		f.headers["x-api-key"] = cfg.APIKey
	}
	return &SemanticScholar{
		fetch: f,
		base:  base,
		limit: searchLimit(cfg.SearchLimit, 100),
	}
}

// Name returns the source identifier.
func (s *SemanticScholar) Name() string { return types.RegistrySemanticScholar }

func (s *SemanticScholar) Search(ctx context.Context, query string) ([]types.Candidate, error) {
	params := url.Values{
		"query":  {query},
		"limit":  {strconv.Itoa(s.limit)},
		"fields": {semanticFields},
	}

	var resp semanticResponse
	if _, err := s.fetch.getJSON(ctx, s.base+"/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	out := make([]types.Candidate, 0, len(resp.Data))
	for _, p := range resp.Data {
		out = append(out, p.candidate())
	}
	return out, nil
}

func (s *SemanticScholar) LookupByDOI(ctx context.Context, doi string) (*types.Candidate, error) {
	if doi == "" {
		return nil, fmt.Errorf("empty DOI")
	}
	reqURL := s.base + "/DOI:" + doi + "?" + url.Values{"fields": {semanticFields}}.Encode()

	var p semanticPaper
	found, err := s.fetch.getJSON(ctx, reqURL, &p)
	if err != nil || !found {
		return nil, err
	}
	c := p.candidate()
	return &c, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID          string           `json:"paperId"`
	Title            string           `json:"title"`
	Year             int              `json:"year"`
	Venue            string           `json:"venue"`
	CitationCount    int              `json:"citationCount"`
	ExternalIDs      map[string]any   `json:"externalIds"`
	Authors          []semanticAuthor `json:"authors"`
	PublicationTypes []string         `json:"publicationTypes"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

func (p semanticPaper) candidate() types.Candidate {
	names := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		names = append(names, a.Name)
	}
	var doi string
	if v, ok := p.ExternalIDs["DOI"].(string); ok {
		doi = normalize.NormalizeDOI(v)
	}
	retracted := retractedTitle(p.Title)
	for _, pt := range p.PublicationTypes {
		if strings.EqualFold(pt, "Retraction") {
			retracted = true
		}
	}
	return types.Candidate{
		Title:         p.Title,
		Authors:       joinAuthors(names),
		Year:          p.Year,
		DOI:           doi,
		Venue:         p.Venue,
		CitationCount: p.CitationCount,
		IsRetracted:   retracted,
	}
}
