// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/pdiddy/citeverify/internal/batch"
	"github.com/pdiddy/citeverify/internal/cache"
	"github.com/pdiddy/citeverify/internal/dedup"
	"github.com/pdiddy/citeverify/internal/metrics"
	"github.com/pdiddy/citeverify/internal/registry"
	"github.com/pdiddy/citeverify/internal/verify"
	"github.com/pdiddy/citeverify/pkg/types"
)

// engine bundles the wired pipeline for one CLI run.
type engine struct {
	orch    *batch.Orchestrator
	metrics *metrics.Metrics
	close   func() error
}

// newEngine opens the cache and builds the registry clients, verifier,
// duplicate detector, and orchestrator. A cache that cannot be opened is
// replaced by a no-op cache so the batch still runs.
func newEngine(ctx context.Context, cfg types.Config, log *zap.Logger, progress io.Writer) (*engine, error) {
	m := metrics.New()

	c, closeCache, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		log.Warn("cache unavailable, continuing without cache",
			zap.String("backend", string(cfg.Cache.Backend)),
			zap.Error(err))
		c, closeCache = cache.Nop{}, func() error { return nil }
	}

	clients, err := registry.Build(cfg, c, log, m)
	if err != nil {
		_ = closeCache()
		return nil, err
	}

	v := verify.New(verify.FromClients(clients), cfg.Verify,
		verify.WithLogger(log), verify.WithMetrics(m))
	d := dedup.NewDetector(cfg.Dedup, dedup.WithLogger(log), dedup.WithMetrics(m))

	opts := []batch.Option{batch.WithLogger(log)}
	if progress != nil {
		opts = append(opts, batch.WithProgress(progress))
	}
	return &engine{
		orch:    batch.New(v, d, cfg.Batch, opts...),
		metrics: m,
		close:   closeCache,
	}, nil
}
