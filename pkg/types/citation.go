// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the citeverify engine:
// the input Citation, the per-registry Candidate and RegistryMatch, the
// VerificationResult produced by the cross-validator, and the duplicate
// annotations added after the batch pass.
package types

import "strings"

// Citation is one bibliography entry as produced by the file-parsing
// collaborator. It is read-only for the whole verification pipeline.
// Title is expected to be non-empty; every other field is optional.
type Citation struct {
	// Key is unique within a batch (e.g. the BibTeX cite key).
	Key string `json:"key" yaml:"key"`

	// Title is the title as written by the citing author.
	Title string `json:"title" yaml:"title"`

	// Authors is the free-text author string ("Smith, J. and Doe, A.").
	Authors string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, or 0 when absent.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the journal, conference, or publisher.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// DOI is lower-case with any resolver prefix stripped.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`
}

// HasAuthors reports whether the citation carries a non-blank author string.
func (c Citation) HasAuthors() bool {
	return strings.TrimSpace(c.Authors) != ""
}

// Candidate is one record returned by a registry, already mapped from the
// registry's wire shape into the fields the engine compares.
type Candidate struct {
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	Year          int    `json:"year,omitempty"`
	DOI           string `json:"doi,omitempty"`
	Venue         string `json:"venue,omitempty"`
	CitationCount int    `json:"citation_count,omitempty"`
	IsRetracted   bool   `json:"is_retracted,omitempty"`
}

// MatchLevel names the fallback level that produced a RegistryMatch.
type MatchLevel string

const (
	LevelNone            MatchLevel = ""
	LevelDOI             MatchLevel = "doi"
	LevelExactTitle      MatchLevel = "exact_title"
	LevelNormalizedTitle MatchLevel = "normalized_title"
	LevelAuthorYear      MatchLevel = "author_year"
)

// RegistryMatch is the outcome of looking one citation up in one registry.
// It is produced fresh per call; only the registry client's cache keeps it.
type RegistryMatch struct {
	Found            bool       `json:"found"`
	CanonicalTitle   string     `json:"canonical_title,omitempty"`
	CanonicalAuthors string     `json:"canonical_authors,omitempty"`
	CanonicalYear    int        `json:"canonical_year,omitempty"`
	DOI              string     `json:"doi,omitempty"`
	Venue            string     `json:"venue,omitempty"`
	CitationCount    int        `json:"citation_count,omitempty"`
	IsRetracted      bool       `json:"is_retracted,omitempty"`
	SourceName       string     `json:"source_name"`
	Confidence       float64    `json:"confidence"`
	Level            MatchLevel `json:"level,omitempty"`
	Cached           bool       `json:"cached,omitempty"`
}

// NewMatch builds a found RegistryMatch from an accepted candidate.
func NewMatch(c Candidate, source string, confidence float64, level MatchLevel) RegistryMatch {
	return RegistryMatch{
		Found:            true,
		CanonicalTitle:   c.Title,
		CanonicalAuthors: c.Authors,
		CanonicalYear:    c.Year,
		DOI:              c.DOI,
		Venue:            c.Venue,
		CitationCount:    c.CitationCount,
		IsRetracted:      c.IsRetracted,
		SourceName:       source,
		Confidence:       confidence,
		Level:            level,
	}
}

// NotFound returns the empty match for source.
func NotFound(source string) RegistryMatch {
	return RegistryMatch{SourceName: source}
}
