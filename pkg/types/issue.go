// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// IssueKind identifies the rule that produced an Issue.
type IssueKind string

const (
	IssueTitleMismatch IssueKind = "title_mismatch"
	IssueYearMismatch  IssueKind = "year_mismatch"
	IssueMissingDOI    IssueKind = "missing_doi"
	IssueMissingVenue  IssueKind = "missing_venue"
	IssueRetracted     IssueKind = "retracted"
	IssueLowConfidence IssueKind = "low_confidence"
	IssueDuplicate     IssueKind = "duplicate"
)

// Severity grades an Issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

// Factor is one sub-score that pulled a confidence value down.
type Factor struct {
	// Name is one of "title", "author", "year", "doi", "sources".
	Name string `json:"name" yaml:"name"`

	// Score is the sub-score in [0, 1].
	Score float64 `json:"score" yaml:"score"`
}

// Issue is a tagged variant: Kind selects which payload fields are set.
// Issues are rendered to display strings only at the output boundary.
type Issue struct {
	Kind     IssueKind `json:"kind" yaml:"kind"`
	Severity Severity  `json:"severity" yaml:"severity"`

	// IssueTitleMismatch: title similarity in [0, 100].
	Similarity float64 `json:"similarity,omitempty" yaml:"similarity,omitempty"`

	// IssueYearMismatch.
	CitedYear     int `json:"cited_year,omitempty" yaml:"cited_year,omitempty"`
	CanonicalYear int `json:"canonical_year,omitempty" yaml:"canonical_year,omitempty"`

	// IssueMissingDOI, IssueMissingVenue: the value the registry supplies.
	// IssueRetracted: the registry that flagged the retraction.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	// IssueLowConfidence.
	Confidence   float64  `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Factors      []Factor `json:"factors,omitempty" yaml:"factors,omitempty"`
	SourcesFound int      `json:"sources_found,omitempty" yaml:"sources_found,omitempty"`
	SourcesTotal int      `json:"sources_total,omitempty" yaml:"sources_total,omitempty"`

	// IssueDuplicate.
	GroupID    int    `json:"group_id,omitempty" yaml:"group_id,omitempty"`
	GroupSize  int    `json:"group_size,omitempty" yaml:"group_size,omitempty"`
	PrimaryKey string `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
}

// String renders the issue for display.
func (i Issue) String() string {
	switch i.Kind {
	case IssueTitleMismatch:
		return fmt.Sprintf("%s title mismatch: cited title is %.0f%% similar to the registry title", capitalize(string(i.Severity)), i.Similarity)
	case IssueYearMismatch:
		return fmt.Sprintf("%s year mismatch: cited %d, registry %d", capitalize(string(i.Severity)), i.CitedYear, i.CanonicalYear)
	case IssueMissingDOI:
		return fmt.Sprintf("Missing DOI: registry lists %s", i.Value)
	case IssueMissingVenue:
		return fmt.Sprintf("Missing venue: registry lists %q", i.Value)
	case IssueRetracted:
		if i.Value != "" {
			return fmt.Sprintf("Retracted: %s reports this work as retracted", i.Value)
		}
		return "Retracted: this work has been retracted"
	case IssueLowConfidence:
		return i.lowConfidenceString()
	case IssueDuplicate:
		return fmt.Sprintf("Duplicate of %s (group %d, %d citations)", i.PrimaryKey, i.GroupID, i.GroupSize)
	default:
		return string(i.Kind)
	}
}

func (i Issue) lowConfidenceString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Low confidence %.1f: ", i.Confidence)
	if i.SourcesFound == 0 {
		fmt.Fprintf(&b, "no registry matched (0 of %d sources)", i.SourcesTotal)
		return b.String()
	}
	parts := make([]string, 0, len(i.Factors))
	for _, f := range i.Factors {
		switch f.Name {
		case "title":
			parts = append(parts, fmt.Sprintf("title match %.0f%%", f.Score*100))
		case "author":
			parts = append(parts, fmt.Sprintf("author overlap %.0f%%", f.Score*100))
		case "year":
			parts = append(parts, fmt.Sprintf("year score %.0f%%", f.Score*100))
		case "doi":
			parts = append(parts, "no DOI match")
		case "sources":
			parts = append(parts, fmt.Sprintf("found in %d of %d sources", i.SourcesFound, i.SourcesTotal))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("found in %d of %d sources", i.SourcesFound, i.SourcesTotal))
	}
	b.WriteString(strings.Join(parts, ", "))
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
