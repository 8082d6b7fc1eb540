// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"math"

	"github.com/pdiddy/citeverify/internal/normalize"
	"github.com/pdiddy/citeverify/internal/similarity"
	"github.com/pdiddy/citeverify/pkg/types"
)

// corroborationTarget is the number of distinct sources that earns full
// source-corroboration credit.
const corroborationTarget = 3

// YearScore grades year agreement: 1.0 exact, 0.8 within one year, 0.5
// within two, 0.2 otherwise. A missing year on either side scores 0.2.
func YearScore(cited, canonical int) float64 {
	if cited <= 0 || canonical <= 0 {
		return 0.2
	}
	switch d := abs(cited - canonical); {
	case d == 0:
		return 1.0
	case d == 1:
		return 0.8
	case d == 2:
		return 0.5
	default:
		return 0.2
	}
}

// Breakdown computes the sub-scores for one registry match. A match
// resolved by DOI counts as a full title match.
func Breakdown(cit types.Citation, m types.RegistryMatch, distinctSources int) types.ScoreBreakdown {
	title := similarity.TitleSimilarity(cit.Title, m.CanonicalTitle) / 100
	if m.Level == types.LevelDOI {
		title = 1
	}

	var doi float64
	if cd, md := normalize.NormalizeDOI(cit.DOI), normalize.NormalizeDOI(m.DOI); cd != "" && cd == md {
		doi = 1
	}

	return types.ScoreBreakdown{
		Title:   title,
		Author:  similarity.AuthorSimilarity(cit.Authors, m.CanonicalAuthors) / 100,
		Year:    YearScore(cit.Year, m.CanonicalYear),
		DOI:     doi,
		Sources: math.Min(1, float64(distinctSources)/corroborationTarget),
	}
}

// Confidence fuses a breakdown into a 0-100 score rounded to one decimal.
func Confidence(b types.ScoreBreakdown, w types.Weights) float64 {
	sum := w.Title*b.Title + w.Author*b.Author + w.Year*b.Year + w.DOI*b.DOI + w.Sources*b.Sources
	c := math.Round(sum*1000) / 10
	return math.Max(0, math.Min(100, c))
}

// factors lists the sub-scores below full credit, in fixed order.
func factors(b types.ScoreBreakdown) []types.Factor {
	all := []types.Factor{
		{Name: "title", Score: b.Title},
		{Name: "author", Score: b.Author},
		{Name: "year", Score: b.Year},
		{Name: "doi", Score: b.DOI},
		{Name: "sources", Score: b.Sources},
	}
	out := all[:0]
	for _, f := range all {
		if f.Score < 1 {
			out = append(out, f)
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
