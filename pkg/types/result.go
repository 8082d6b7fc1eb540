// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "math"

// Status is the verification outcome for one citation. A result moves
// from StatusPending to exactly one classification; StatusDuplicate is an
// overlay reported by DisplayStatus and never replaces the classification.
type Status string

const (
	StatusPending   Status = "pending"
	StatusVerified  Status = "verified"
	StatusWarning   Status = "warning"
	StatusIssue     Status = "issue"
	StatusRetracted Status = "retracted"
	StatusNotFound  Status = "not_found"
	StatusDuplicate Status = "duplicate"
)

// ScoreBreakdown holds the sub-scores, each in [0, 1], that the confidence
// of the selected candidate was fused from.
type ScoreBreakdown struct {
	Title   float64 `json:"title" yaml:"title"`
	Author  float64 `json:"author" yaml:"author"`
	Year    float64 `json:"year" yaml:"year"`
	DOI     float64 `json:"doi" yaml:"doi"`
	Sources float64 `json:"sources" yaml:"sources"`
}

// DuplicateInfo is attached by the duplicate detector to every member of a
// duplicate group.
type DuplicateInfo struct {
	GroupID    int    `json:"group_id" yaml:"group_id"`
	GroupSize  int    `json:"group_size" yaml:"group_size"`
	IsPrimary  bool   `json:"is_primary" yaml:"is_primary"`
	PrimaryKey string `json:"primary_key" yaml:"primary_key"`
}

// VerificationResult is created once per citation by the cross-validator
// and later amended, never replaced, by the duplicate detector.
type VerificationResult struct {
	Citation Citation `json:"citation" yaml:"citation"`

	Status     Status  `json:"status" yaml:"status"`
	Confidence float64 `json:"confidence" yaml:"confidence"`

	CanonicalTitle   string `json:"canonical_title,omitempty" yaml:"canonical_title,omitempty"`
	CanonicalAuthors string `json:"canonical_authors,omitempty" yaml:"canonical_authors,omitempty"`
	CanonicalYear    int    `json:"canonical_year,omitempty" yaml:"canonical_year,omitempty"`
	CanonicalVenue   string `json:"canonical_venue,omitempty" yaml:"canonical_venue,omitempty"`
	CanonicalDOI     string `json:"canonical_doi,omitempty" yaml:"canonical_doi,omitempty"`
	CitedByCount     int    `json:"cited_by_count,omitempty" yaml:"cited_by_count,omitempty"`
	IsRetracted      bool   `json:"is_retracted,omitempty" yaml:"is_retracted,omitempty"`

	// Issues keeps construction order.
	Issues []Issue `json:"issues,omitempty" yaml:"issues,omitempty"`

	// VerifiedBy lists the registries that found the work, in source order.
	VerifiedBy []string `json:"verified_by,omitempty" yaml:"verified_by,omitempty"`

	// SelectedSource is the registry whose candidate was selected.
	SelectedSource string          `json:"selected_source,omitempty" yaml:"selected_source,omitempty"`
	Breakdown      *ScoreBreakdown `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`

	Duplicate *DuplicateInfo `json:"duplicate,omitempty" yaml:"duplicate,omitempty"`
}

// Found reports whether any registry accepted a candidate for the citation.
func (r VerificationResult) Found() bool {
	return r.Status != StatusNotFound && r.Status != StatusPending
}

// DisplayStatus returns StatusDuplicate for non-primary members of a
// duplicate group and the classification otherwise.
func (r VerificationResult) DisplayStatus() Status {
	if r.Duplicate != nil && !r.Duplicate.IsPrimary {
		return StatusDuplicate
	}
	return r.Status
}

// HasIssue reports whether an issue of the given kind is present.
func (r VerificationResult) HasIssue(kind IssueKind) bool {
	for _, i := range r.Issues {
		if i.Kind == kind {
			return true
		}
	}
	return false
}

// DuplicateGroup lists the keys of citations that refer to the same work.
// MemberKeys[0] is the primary. Size is always at least 2.
type DuplicateGroup struct {
	GroupID    int      `json:"group_id" yaml:"group_id"`
	MemberKeys []string `json:"member_keys" yaml:"member_keys"`
	Size       int      `json:"size" yaml:"size"`
}

// Primary returns the key of the group's representative citation.
func (g DuplicateGroup) Primary() string {
	if len(g.MemberKeys) == 0 {
		return ""
	}
	return g.MemberKeys[0]
}

// Record is the flat, serializable form of a VerificationResult handed to
// the persistence and presentation layers. Every field except Status and
// Confidence is nullable.
type Record struct {
	Key                 string   `json:"key" yaml:"key"`
	Status              Status   `json:"status" yaml:"status"`
	Confidence          float64  `json:"confidence" yaml:"confidence"`
	CanonicalTitle      *string  `json:"canonical_title" yaml:"canonical_title"`
	CanonicalAuthors    *string  `json:"canonical_authors" yaml:"canonical_authors"`
	CanonicalYear       *int     `json:"canonical_year" yaml:"canonical_year"`
	Venue               *string  `json:"venue" yaml:"venue"`
	DOI                 *string  `json:"doi" yaml:"doi"`
	CitedByCount        *int     `json:"cited_by_count" yaml:"cited_by_count"`
	IsRetracted         *bool    `json:"is_retracted" yaml:"is_retracted"`
	Issues              []string `json:"issues" yaml:"issues"`
	VerifiedBy          []string `json:"verified_by" yaml:"verified_by"`
	DuplicateGroupID    *int     `json:"duplicate_group_id" yaml:"duplicate_group_id"`
	DuplicateGroupCount *int     `json:"duplicate_group_count" yaml:"duplicate_group_count"`
	IsPrimaryDuplicate  *bool    `json:"is_primary_duplicate" yaml:"is_primary_duplicate"`
}

// Record flattens r. Canonical fields are null when no registry matched.
func (r VerificationResult) Record() Record {
	rec := Record{
		Key:        r.Citation.Key,
		Status:     r.DisplayStatus(),
		Confidence: math.Round(r.Confidence*10) / 10,
		Issues:     make([]string, 0, len(r.Issues)),
		VerifiedBy: r.VerifiedBy,
	}
	for _, i := range r.Issues {
		rec.Issues = append(rec.Issues, i.String())
	}

	if r.Found() {
		rec.CanonicalTitle = optString(r.CanonicalTitle)
		rec.CanonicalAuthors = optString(r.CanonicalAuthors)
		if r.CanonicalYear > 0 {
			year := r.CanonicalYear
			rec.CanonicalYear = &year
		}
		rec.Venue = optString(r.CanonicalVenue)
		rec.DOI = optString(r.CanonicalDOI)
		count := r.CitedByCount
		rec.CitedByCount = &count
		retracted := r.IsRetracted
		rec.IsRetracted = &retracted
	}

	if r.Duplicate != nil {
		id, size, primary := r.Duplicate.GroupID, r.Duplicate.GroupSize, r.Duplicate.IsPrimary
		rec.DuplicateGroupID = &id
		rec.DuplicateGroupCount = &size
		rec.IsPrimaryDuplicate = &primary
	}
	return rec
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
