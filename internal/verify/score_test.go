// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/citeverify/pkg/types"
)

func TestYearScore(t *testing.T) {
	tests := []struct {
		cited, canonical int
		want             float64
	}{
		{2020, 2020, 1.0},
		{2020, 2021, 0.8},
		{2021, 2020, 0.8},
		{2020, 2022, 0.5},
		{2020, 2017, 0.2},
		{0, 2020, 0.2},
		{2020, 0, 0.2},
	}
	for _, tt := range tests {
		if got := YearScore(tt.cited, tt.canonical); got != tt.want {
			t.Errorf("YearScore(%d, %d) = %v, want %v", tt.cited, tt.canonical, got, tt.want)
		}
	}
}

func TestConfidence(t *testing.T) {
	w := types.DefaultWeights()
	tests := []struct {
		name string
		b    types.ScoreBreakdown
		want float64
	}{
		{"perfect", types.ScoreBreakdown{Title: 1, Author: 1, Year: 1, DOI: 1, Sources: 1}, 100},
		{"nothing", types.ScoreBreakdown{}, 0},
		{"title only", types.ScoreBreakdown{Title: 1}, 40},
		{"rounds to one decimal", types.ScoreBreakdown{Title: 1, Sources: 1.0 / 3.0}, 43.3},
		{"clamped", types.ScoreBreakdown{Title: 2, Author: 2, Year: 2, DOI: 2, Sources: 2}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Confidence(tt.b, w))
		})
	}
}

func TestBreakdown(t *testing.T) {
	cit := types.Citation{Title: "Deep Learning", Authors: "LeCun, Y. and Bengio, Y.", Year: 2015, DOI: "doi:10.1038/NATURE14539"}

	t.Run("doi level is a full title match", func(t *testing.T) {
		m := types.RegistryMatch{Found: true, CanonicalTitle: "Something else", CanonicalAuthors: "Yann LeCun", CanonicalYear: 2016, DOI: "10.1038/nature14539", Level: types.LevelDOI}
		b := Breakdown(cit, m, 2)
		assert.Equal(t, 1.0, b.Title)
		assert.Equal(t, 0.5, b.Author)
		assert.Equal(t, 0.8, b.Year)
		assert.Equal(t, 1.0, b.DOI)
		assert.InDelta(t, 2.0/3.0, b.Sources, 1e-9)
	})

	t.Run("search level scores the title", func(t *testing.T) {
		m := types.RegistryMatch{Found: true, CanonicalTitle: "Deep Learning for Vision", Level: types.LevelExactTitle}
		b := Breakdown(cit, m, 5)
		assert.InDelta(t, 0.65, b.Title, 1e-9)
		assert.Zero(t, b.DOI, "registry has no DOI")
		assert.Equal(t, 1.0, b.Sources, "corroboration caps at one")
	})
}

func TestBuildIssues_TitleBands(t *testing.T) {
	tests := []struct {
		title float64
		want  types.Severity
	}{
		{0.25, types.SeverityCritical},
		{0.299, types.SeverityCritical},
		{0.30, types.SeverityMajor},
		{0.59, types.SeverityMajor},
		{0.60, types.SeverityMinor},
		{0.79, types.SeverityMinor},
	}
	for _, tt := range tests {
		issues := buildIssues(types.Citation{}, types.RegistryMatch{}, types.ScoreBreakdown{Title: tt.title}, "")
		if assert.Len(t, issues, 1) {
			assert.Equal(t, types.IssueTitleMismatch, issues[0].Kind)
			assert.Equal(t, tt.want, issues[0].Severity, "title %.3f", tt.title)
		}
	}
	assert.Empty(t, buildIssues(types.Citation{}, types.RegistryMatch{}, types.ScoreBreakdown{Title: 0.8}, ""))
}

func TestBuildIssues_YearBands(t *testing.T) {
	full := types.ScoreBreakdown{Title: 1}
	tests := []struct {
		cited, canonical int
		want             []types.Severity
	}{
		{2020, 2020, nil},
		{2020, 2025, []types.Severity{types.SeverityMinor}},
		{2020, 2026, []types.Severity{types.SeverityCritical}},
		{2020, 2014, []types.Severity{types.SeverityCritical}},
		{0, 2020, nil},
	}
	for _, tt := range tests {
		issues := buildIssues(types.Citation{Year: tt.cited}, types.RegistryMatch{CanonicalYear: tt.canonical}, full, "")
		var got []types.Severity
		for _, i := range issues {
			got = append(got, i.Severity)
		}
		assert.Equal(t, tt.want, got, "%d vs %d", tt.cited, tt.canonical)
	}
}

func TestBuildIssues_Order(t *testing.T) {
	cit := types.Citation{Year: 2000}
	m := types.RegistryMatch{CanonicalYear: 2010, DOI: "10.1/x", Venue: "Nature"}
	issues := buildIssues(cit, m, types.ScoreBreakdown{Title: 0.1}, "openalex")
	assert.Equal(t, []types.IssueKind{
		types.IssueTitleMismatch,
		types.IssueYearMismatch,
		types.IssueMissingDOI,
		types.IssueMissingVenue,
		types.IssueRetracted,
	}, kinds(issues))
}
