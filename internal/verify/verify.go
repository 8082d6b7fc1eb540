// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify cross-validates one citation against every configured
// registry, fuses the per-source evidence into a confidence score, and
// classifies the result.
package verify

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/citeverify/internal/metrics"
	"github.com/pdiddy/citeverify/internal/normalize"
	"github.com/pdiddy/citeverify/internal/registry"
	"github.com/pdiddy/citeverify/pkg/types"
)

// Lookuper resolves a citation in one registry. *registry.Client
// implements it.
type Lookuper interface {
	Name() string
	Lookup(ctx context.Context, cit types.Citation) types.RegistryMatch
}

// FromClients adapts registry clients to Lookupers, keeping their order.
func FromClients(clients []*registry.Client) []Lookuper {
	out := make([]Lookuper, len(clients))
	for i, c := range clients {
		out[i] = c
	}
	return out
}

// Verifier is the cross-validator. It holds no per-citation state and is
// safe for concurrent use.
type Verifier struct {
	clients []Lookuper
	cfg     types.VerifyConfig
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.log = l
		}
	}
}

// WithMetrics counts verifications by status in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) { v.metrics = m }
}

// New returns a Verifier over clients. Zero fields in cfg take defaults.
func New(clients []Lookuper, cfg types.VerifyConfig, opts ...Option) *Verifier {
	def := types.DefaultVerifyConfig()
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = def.LookupTimeout
	}
	if cfg.Weights == (types.Weights{}) {
		cfg.Weights = def.Weights
	}
	if cfg.VerifiedThreshold <= 0 {
		cfg.VerifiedThreshold = def.VerifiedThreshold
	}
	if cfg.WarningThreshold <= 0 {
		cfg.WarningThreshold = def.WarningThreshold
	}
	v := &Verifier{clients: clients, cfg: cfg, log: zap.NewNop()}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify looks cit up in every registry concurrently and returns its
// classified result. It blocks until every lookup returns or times out.
func (v *Verifier) Verify(ctx context.Context, cit types.Citation) types.VerificationResult {
	res := v.verify(ctx, cit)
	v.metrics.ObserveVerification(string(res.Status))
	v.log.Debug("verified citation",
		zap.String("key", cit.Key),
		zap.String("status", string(res.Status)),
		zap.Float64("confidence", res.Confidence),
		zap.Strings("verified_by", res.VerifiedBy))
	return res
}

func (v *Verifier) verify(ctx context.Context, cit types.Citation) types.VerificationResult {
	res := types.VerificationResult{Citation: cit, Status: types.StatusPending}

	if normalize.NormalizeTitle(cit.Title) == "" {
		v.log.Warn("citation has no usable title", zap.String("key", cit.Key))
		return v.notFound(res)
	}

	found := v.lookupAll(ctx, cit)
	if len(found) == 0 {
		return v.notFound(res)
	}

	distinct := make(map[string]struct{}, len(found))
	for _, m := range found {
		if _, dup := distinct[m.SourceName]; !dup {
			distinct[m.SourceName] = struct{}{}
			res.VerifiedBy = append(res.VerifiedBy, m.SourceName)
		}
	}

	bestIdx, bestConf := -1, math.Inf(-1)
	var bestBreakdown types.ScoreBreakdown
	for i, m := range found {
		b := Breakdown(cit, m, len(distinct))
		if c := Confidence(b, v.cfg.Weights); c > bestConf {
			bestIdx, bestConf, bestBreakdown = i, c, b
		}
	}
	best := found[bestIdx]

	res.Confidence = bestConf
	res.Breakdown = &bestBreakdown
	res.SelectedSource = best.SourceName
	res.CanonicalTitle = best.CanonicalTitle
	res.CanonicalAuthors = best.CanonicalAuthors
	res.CanonicalYear = best.CanonicalYear
	res.CanonicalVenue = best.Venue
	res.CanonicalDOI = best.DOI
	res.CitedByCount = best.CitationCount

	var retractedBy string
	if best.IsRetracted {
		retractedBy = best.SourceName
	}
	res.IsRetracted = best.IsRetracted

	res.Issues = buildIssues(cit, best, bestBreakdown, retractedBy)
	res.Status = v.classify(res.Confidence, res.Issues, res.IsRetracted)

	if res.Confidence < v.cfg.WarningThreshold {
		res.Issues = append(res.Issues, types.Issue{
			Kind:         types.IssueLowConfidence,
			Severity:     types.SeverityMajor,
			Confidence:   res.Confidence,
			Factors:      factors(bestBreakdown),
			SourcesFound: len(distinct),
			SourcesTotal: len(v.clients),
		})
	}
	return res
}

// lookupAll fans out to every client and returns the found matches in
// client order.
func (v *Verifier) lookupAll(ctx context.Context, cit types.Citation) []types.RegistryMatch {
	matches := make([]types.RegistryMatch, len(v.clients))
	var wg sync.WaitGroup
	for i, c := range v.clients {
		wg.Add(1)
		go func(i int, c Lookuper) {
			defer wg.Done()
			lctx, cancel := context.WithTimeout(ctx, v.cfg.LookupTimeout)
			defer cancel()
			matches[i] = c.Lookup(lctx, cit)
		}(i, c)
	}
	wg.Wait()

	found := matches[:0]
	for _, m := range matches {
		if m.Found {
			found = append(found, m)
		}
	}
	return found
}

func (v *Verifier) notFound(res types.VerificationResult) types.VerificationResult {
	res.Status = types.StatusNotFound
	res.Confidence = 0
	res.Issues = []types.Issue{{
		Kind:         types.IssueLowConfidence,
		Severity:     types.SeverityMajor,
		SourcesFound: 0,
		SourcesTotal: len(v.clients),
	}}
	return res
}

// classify applies the status rules in precedence order.
func (v *Verifier) classify(confidence float64, issues []types.Issue, retracted bool) types.Status {
	switch {
	case retracted:
		return types.StatusRetracted
	case confidence >= v.cfg.VerifiedThreshold && len(issues) == 0:
		return types.StatusVerified
	case confidence >= v.cfg.WarningThreshold || onlyMinor(issues):
		return types.StatusWarning
	default:
		return types.StatusIssue
	}
}

func onlyMinor(issues []types.Issue) bool {
	for _, i := range issues {
		if i.Severity != types.SeverityMinor && i.Severity != types.SeverityInfo {
			return false
		}
	}
	return true
}
