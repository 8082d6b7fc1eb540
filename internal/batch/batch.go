// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch verifies a list of citations with a bounded worker pool
// and then runs duplicate detection once over the finished batch.
package batch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/citeverify/internal/dedup"
	"github.com/pdiddy/citeverify/pkg/types"
)

// Verifier classifies a single citation. *verify.Verifier implements it.
type Verifier interface {
	Verify(ctx context.Context, cit types.Citation) types.VerificationResult
}

// Report is the outcome of one batch run.
type Report struct {
	BatchID string
	Results []types.VerificationResult
	Groups  []types.DuplicateGroup
	Elapsed time.Duration
}

// Counts tallies results by display status.
func (r *Report) Counts() map[types.Status]int {
	out := make(map[types.Status]int)
	for _, res := range r.Results {
		out[res.DisplayStatus()]++
	}
	return out
}

// Orchestrator runs batches. It is safe for concurrent use; each call to
// VerifyBatch gets its own batch ID.
type Orchestrator struct {
	verifier Verifier
	detector *dedup.Detector
	workers  int
	log      *zap.Logger

	progressMu sync.Mutex
	progress   io.Writer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger for batch start and finish events.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithProgress writes one line per finished citation to w.
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) { o.progress = w }
}

// New returns an Orchestrator. A nil detector uses default thresholds and
// a non-positive worker count uses types.DefaultWorkers.
func New(v Verifier, d *dedup.Detector, cfg types.BatchConfig, opts ...Option) *Orchestrator {
	if d == nil {
		d = dedup.NewDetector(types.DefaultDedupConfig())
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = types.DefaultWorkers
	}
	o := &Orchestrator{verifier: v, detector: d, workers: workers, log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Workers returns the size of the worker pool.
func (o *Orchestrator) Workers() int { return o.workers }

// VerifyBatch verifies every citation, at most Workers at a time, and then
// groups duplicates. Results are in input order.
//
// Registry and cache failures never surface here. The only error is the
// context's: if ctx ends before every citation is verified, the report
// holds what finished, unstarted or interrupted citations stay pending,
// and duplicate detection is skipped.
func (o *Orchestrator) VerifyBatch(ctx context.Context, cits []types.Citation) (*Report, error) {
	start := time.Now()
	rep := &Report{
		BatchID: uuid.NewString(),
		Results: make([]types.VerificationResult, len(cits)),
	}
	for i, c := range cits {
		rep.Results[i] = types.VerificationResult{Citation: c, Status: types.StatusPending}
	}

	log := o.log.With(zap.String("batch_id", rep.BatchID))
	log.Info("batch started", zap.Int("citations", len(cits)), zap.Int("workers", o.workers))

	var (
		g    errgroup.Group
		mu   sync.Mutex
		done int
	)
	g.SetLimit(o.workers)
	for i := range cits {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res := o.verifier.Verify(ctx, cits[i])
			if ctx.Err() != nil {
				return nil
			}
			rep.Results[i] = res

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			o.report(n, len(cits), res)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		rep.Elapsed = time.Since(start)
		log.Warn("batch interrupted",
			zap.Int("verified", done),
			zap.Int("citations", len(cits)),
			zap.Duration("duration", rep.Elapsed),
			zap.Error(err))
		return rep, fmt.Errorf("batch %s: %w", rep.BatchID, err)
	}

	rep.Groups = o.detector.Detect(rep.Results)
	rep.Elapsed = time.Since(start)
	log.Info("batch finished",
		zap.Int("citations", len(cits)),
		zap.Int("duplicate_groups", len(rep.Groups)),
		zap.Duration("duration", rep.Elapsed))
	return rep, nil
}

func (o *Orchestrator) report(n, total int, res types.VerificationResult) {
	if o.progress == nil {
		return
	}
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	fmt.Fprintf(o.progress, "[%d/%d] %s: %s (%.1f)\n", n, total, res.Citation.Key, res.Status, res.Confidence)
}
