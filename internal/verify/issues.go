// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"strings"

	"github.com/pdiddy/citeverify/pkg/types"
)

// Title similarity bands for mismatch severity, in percent.
const (
	titleCriticalBelow = 30.0
	titleMajorBelow    = 60.0
	titleMinorBelow    = 80.0

	// yearCriticalGap is the largest year difference still graded minor.
	yearCriticalGap = 5
)

// buildIssues assembles the rule-based issues for the selected match.
// The order is fixed: title, year, DOI, venue, retraction.
func buildIssues(cit types.Citation, m types.RegistryMatch, b types.ScoreBreakdown, retractedBy string) []types.Issue {
	var issues []types.Issue

	if sim := b.Title * 100; sim < titleMinorBelow {
		sev := types.SeverityMinor
		switch {
		case sim < titleCriticalBelow:
			sev = types.SeverityCritical
		case sim < titleMajorBelow:
			sev = types.SeverityMajor
		}
		issues = append(issues, types.Issue{Kind: types.IssueTitleMismatch, Severity: sev, Similarity: sim})
	}

	if cit.Year > 0 && m.CanonicalYear > 0 && cit.Year != m.CanonicalYear {
		sev := types.SeverityMinor
		if abs(cit.Year-m.CanonicalYear) > yearCriticalGap {
			sev = types.SeverityCritical
		}
		issues = append(issues, types.Issue{
			Kind:          types.IssueYearMismatch,
			Severity:      sev,
			CitedYear:     cit.Year,
			CanonicalYear: m.CanonicalYear,
		})
	}

	if strings.TrimSpace(cit.DOI) == "" && m.DOI != "" {
		issues = append(issues, types.Issue{Kind: types.IssueMissingDOI, Severity: types.SeverityMinor, Value: m.DOI})
	}

	if strings.TrimSpace(cit.Venue) == "" && m.Venue != "" {
		issues = append(issues, types.Issue{Kind: types.IssueMissingVenue, Severity: types.SeverityMinor, Value: m.Venue})
	}

	if retractedBy != "" {
		issues = append(issues, types.Issue{Kind: types.IssueRetracted, Severity: types.SeverityCritical, Value: retractedBy})
	}
	return issues
}
