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

// crossrefWorksBase is the Crossref REST works endpoint. Declared as a var
// so tests can substitute an httptest server.
var crossrefWorksBase = "https://api.crossref.org/works"

// Crossref queries the Crossref REST API.
type Crossref struct {
	fetch *fetcher
	base  string
	email string
	limit int
}

// NewCrossref builds the Crossref source from its registry configuration.
func NewCrossref(cfg types.RegistryConfig, httpCfg types.HTTPConfig, log *zap.Logger) *Crossref {
	base := cfg.BaseURL
	if base == "" {
		base = crossrefWorksBase
	}
	return &Crossref{
		fetch: newFetcher(types.RegistryCrossref, cfg, httpCfg, log),
		base:  base,
		email: cfg.Email,
		limit: searchLimit(cfg.SearchLimit, 100),
	}
}

// Name returns the source identifier.
func (s *Crossref) Name() string { return types.RegistryCrossref }

func (s *Crossref) Search(ctx context.Context, query string) ([]types.Candidate, error) {
	params := url.Values{
		"query.bibliographic": {query},
		"rows":                {strconv.Itoa(s.limit)},
	}
	if s.email != "" {
		params.Set("mailto", s.email)
	}

	var resp crossrefListResponse
	if _, err := s.fetch.getJSON(ctx, s.base+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	out := make([]types.Candidate, 0, len(resp.Message.Items))
	for _, item := range resp.Message.Items {
		out = append(out, item.candidate())
	}
	return out, nil
}

func (s *Crossref) LookupByDOI(ctx context.Context, doi string) (*types.Candidate, error) {
	if doi == "" {
		return nil, fmt.Errorf("empty DOI")
	}
	reqURL := s.base + "/" + doi
	if s.email != "" {
		reqURL += "?" + url.Values{"mailto": {s.email}}.Encode()
	}

	var resp crossrefItemResponse
	found, err := s.fetch.getJSON(ctx, reqURL, &resp)
	if err != nil || !found {
		return nil, err
	}
	c := resp.Message.candidate()
	return &c, nil
}

// Crossref API JSON structures.
type crossrefListResponse struct {
	Message struct {
		Items []crossrefItem `json:"items"`
	} `json:"message"`
}

type crossrefItemResponse struct {
	Message crossrefItem `json:"message"`
}

type crossrefItem struct {
	Title          []string         `json:"title"`
	Author         []crossrefAuthor `json:"author"`
	DOI            string           `json:"DOI"`
	ContainerTitle []string         `json:"container-title"`
	Publisher      string           `json:"publisher"`
	ReferencedBy   int              `json:"is-referenced-by-count"`
	Issued         crossrefDate     `json:"issued"`
	PublishedPrint crossrefDate     `json:"published-print"`
	UpdatedBy      []crossrefUpdate `json:"updated-by"`
	UpdateTo       []crossrefUpdate `json:"update-to"`
	Type           string           `json:"type"`
	Subtype        string           `json:"subtype"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

type crossrefUpdate struct {
	Type string `json:"type"`
}

func (d crossrefDate) year() int {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return d.DateParts[0][0]
}

func (item crossrefItem) candidate() types.Candidate {
	var title string
	if len(item.Title) > 0 {
		title = item.Title[0]
	}
	names := make([]string, 0, len(item.Author))
	for _, a := range item.Author {
		switch {
		case a.Family != "" && a.Given != "":
			names = append(names, a.Given+" "+a.Family)
		case a.Family != "":
			names = append(names, a.Family)
		default:
			names = append(names, a.Name)
		}
	}
	var venue string
	if len(item.ContainerTitle) > 0 {
		venue = item.ContainerTitle[0]
	}
	year := item.Issued.year()
	if year == 0 {
		year = item.PublishedPrint.year()
	}

	return types.Candidate{
		Title:         title,
		Authors:       joinAuthors(names),
		Year:          year,
		DOI:           normalize.NormalizeDOI(item.DOI),
		Venue:         venue,
		CitationCount: item.ReferencedBy,
		IsRetracted:   item.retracted(title),
	}
}

// retracted reports a retraction notice by title, by type, or by an
// updated-by or update-to relation of type retraction or withdrawal.
func (item crossrefItem) retracted(title string) bool {
	if retractedTitle(title) || strings.EqualFold(item.Type, "retraction") || strings.EqualFold(item.Subtype, "retraction") {
		return true
	}
	for _, u := range item.UpdatedBy {
		if u.retraction() {
			return true
		}
	}
	for _, u := range item.UpdateTo {
		if u.retraction() {
			return true
		}
	}
	return false
}

func (u crossrefUpdate) retraction() bool {
	return strings.EqualFold(u.Type, "retraction") || strings.EqualFold(u.Type, "withdrawal")
}
