// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/pdiddy/citeverify/internal/normalize"
	"github.com/pdiddy/citeverify/pkg/types"
)

// openAlexWorksBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexWorksBase = "https://api.openalex.org/works"

const openAlexSelect = "title,display_name,doi,publication_year,authorships,primary_location,cited_by_count,is_retracted"

// OpenAlex queries the OpenAlex API. It is the default primary registry.
type OpenAlex struct {
	fetch *fetcher
	base  string
	email string
	limit int
}

// NewOpenAlex builds the OpenAlex source from its registry configuration.
func NewOpenAlex(cfg types.RegistryConfig, httpCfg types.HTTPConfig, log *zap.Logger) *OpenAlex {
	base := cfg.BaseURL
	if base == "" {
		base = openAlexWorksBase
	}
	return &OpenAlex{
		fetch: newFetcher(types.RegistryOpenAlex, cfg, httpCfg, log),
		base:  base,
		email: cfg.Email,
		limit: searchLimit(cfg.SearchLimit, 200),
	}
}

// Name returns the source identifier.
func (s *OpenAlex) Name() string { return types.RegistryOpenAlex }

func (s *OpenAlex) Search(ctx context.Context, query string) ([]types.Candidate, error) {
	params := url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(s.limit)},
		"select":   {openAlexSelect},
	}
	if s.email != "" {
		params.Set("mailto", s.email)
	}

	var resp openAlexResponse
	if _, err := s.fetch.getJSON(ctx, s.base+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	out := make([]types.Candidate, 0, len(resp.Results))
	for _, w := range resp.Results {
		out = append(out, w.candidate())
	}
	return out, nil
}

func (s *OpenAlex) LookupByDOI(ctx context.Context, doi string) (*types.Candidate, error) {
	if doi == "" {
		return nil, fmt.Errorf("empty DOI")
	}
	reqURL := s.base + "/doi:" + doi
	if s.email != "" {
		reqURL += "?" + url.Values{"mailto": {s.email}}.Encode()
	}

	var w openAlexWork
	found, err := s.fetch.getJSON(ctx, reqURL, &w)
	if err != nil || !found {
		return nil, err
	}
	c := w.candidate()
	return &c, nil
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	Title           string               `json:"title"`
	DisplayName     string               `json:"display_name"`
	DOI             string               `json:"doi"`
	PublicationYear int                  `json:"publication_year"`
	Authorships     []openAlexAuthorship `json:"authorships"`
	PrimaryLocation *openAlexLocation    `json:"primary_location"`
	CitedByCount    int                  `json:"cited_by_count"`
	IsRetracted     bool                 `json:"is_retracted"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexLocation struct {
	Source *struct {
		DisplayName string `json:"display_name"`
	} `json:"source"`
}

func (w openAlexWork) candidate() types.Candidate {
	title := w.Title
	if title == "" {
		title = w.DisplayName
	}
	names := make([]string, 0, len(w.Authorships))
	for _, a := range w.Authorships {
		names = append(names, a.Author.DisplayName)
	}
	var venue string
	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		venue = w.PrimaryLocation.Source.DisplayName
	}
	return types.Candidate{
		Title:         title,
		Authors:       joinAuthors(names),
		Year:          w.PublicationYear,
		DOI:           normalize.NormalizeDOI(w.DOI),
		Venue:         venue,
		CitationCount: w.CitedByCount,
		IsRetracted:   w.IsRetracted || retractedTitle(title),
	}
}

func searchLimit(n, max int) int {
	if n <= 0 {
		n = types.DefaultSearchLimit
	}
	if n > max {
		n = max
	}
	return n
}
