// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup finds citations in a batch that refer to the same work.
// It runs once over the whole batch after verification completes.
package dedup

import (
	"go.uber.org/zap"

	"github.com/pdiddy/citeverify/internal/metrics"
	"github.com/pdiddy/citeverify/internal/normalize"
	"github.com/pdiddy/citeverify/internal/similarity"
	"github.com/pdiddy/citeverify/pkg/types"
)

// Detector groups duplicate citations.
type Detector struct {
	cfg     types.DedupConfig
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger used to report duplicate groups.
func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// WithMetrics counts citations marked as duplicates in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Detector) { d.metrics = m }
}

// NewDetector returns a Detector. Zero thresholds take the defaults of
// 99.5% title and 80% author similarity.
func NewDetector(cfg types.DedupConfig, opts ...Option) *Detector {
	if cfg.TitleThreshold <= 0 {
		cfg.TitleThreshold = types.DefaultDuplicateTitleThreshold
	}
	if cfg.AuthorThreshold <= 0 {
		cfg.AuthorThreshold = types.DefaultDuplicateAuthorThreshold
	}
	d := &Detector{cfg: cfg, log: zap.NewNop()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// IsDuplicate applies the pair rules in precedence order. Two present DOIs
// decide on their own: different DOIs are never duplicates however similar
// the titles, equal DOIs always are. Otherwise the titles must be near
// identical, the years present and equal, and the authors largely shared.
func (d *Detector) IsDuplicate(a, b types.Citation) bool {
	da, db := normalize.NormalizeDOI(a.DOI), normalize.NormalizeDOI(b.DOI)
	if da != "" && db != "" {
		return da == db
	}
	if a.Year <= 0 || a.Year != b.Year {
		return false
	}
	if similarity.TitleSimilarity(a.Title, b.Title) < d.cfg.TitleThreshold {
		return false
	}
	return similarity.AuthorSimilarity(a.Authors, b.Authors) >= d.cfg.AuthorThreshold
}

// Detect compares every unassigned pair in batch order and annotates the
// results in place. Each citation joins at most one group, the first
// member is the primary, and later members are compared against the
// primary only. Group IDs start at 1.
func (d *Detector) Detect(results []types.VerificationResult) []types.DuplicateGroup {
	assigned := make([]bool, len(results))
	var groups []types.DuplicateGroup

	for i := range results {
		if assigned[i] {
			continue
		}
		members := []int{i}
		for j := i + 1; j < len(results); j++ {
			if assigned[j] {
				continue
			}
			if d.IsDuplicate(results[i].Citation, results[j].Citation) {
				members = append(members, j)
				assigned[j] = true
			}
		}
		if len(members) < 2 {
			continue
		}
		assigned[i] = true

		g := types.DuplicateGroup{GroupID: len(groups) + 1, Size: len(members)}
		for _, idx := range members {
			g.MemberKeys = append(g.MemberKeys, results[idx].Citation.Key)
		}
		d.annotate(results, members, g)
		groups = append(groups, g)

		d.log.Info("duplicate group",
			zap.Int("group_id", g.GroupID),
			zap.String("primary", g.Primary()),
			zap.Strings("members", g.MemberKeys))
	}
	return groups
}

func (d *Detector) annotate(results []types.VerificationResult, members []int, g types.DuplicateGroup) {
	primary := g.Primary()
	for k, idx := range members {
		r := &results[idx]
		r.Duplicate = &types.DuplicateInfo{
			GroupID:    g.GroupID,
			GroupSize:  g.Size,
			IsPrimary:  k == 0,
			PrimaryKey: primary,
		}
		if k == 0 {
			continue
		}
		r.Issues = append(r.Issues, types.Issue{
			Kind:       types.IssueDuplicate,
			Severity:   types.SeverityInfo,
			GroupID:    g.GroupID,
			GroupSize:  g.Size,
			PrimaryKey: primary,
		})
	}
	d.metrics.AddDuplicates(len(members) - 1)
}
