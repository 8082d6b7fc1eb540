// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/citeverify/internal/cache"
	"github.com/pdiddy/citeverify/internal/metrics"
	"github.com/pdiddy/citeverify/pkg/types"
)

// NewSource constructs the built-in source named by cfg.Name.
func NewSource(cfg types.RegistryConfig, httpCfg types.HTTPConfig, log *zap.Logger) (Source, error) {
	switch cfg.Name {
	case types.RegistryOpenAlex:
		return NewOpenAlex(cfg, httpCfg, log), nil
	case types.RegistryCrossref:
		return NewCrossref(cfg, httpCfg, log), nil
	case types.RegistrySemanticScholar:
		return NewSemanticScholar(cfg, httpCfg, log), nil
	default:
		return nil, fmt.Errorf("unknown registry %q", cfg.Name)
	}
}

// Build creates one Client per enabled registry, in configuration order.
// All clients share c.
func Build(cfg types.Config, c cache.Cache, log *zap.Logger, m *metrics.Metrics) ([]*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = types.DefaultCacheTTL
	}

	var clients []*Client
	for _, rc := range cfg.Registries {
		if !rc.Enabled {
			continue
		}
		src, err := NewSource(rc, cfg.HTTP, log)
		if err != nil {
			return nil, err
		}
		clients = append(clients, NewClient(src,
			WithCache(c),
			WithThreshold(rc.EffectiveThreshold()),
			WithTTL(ttl),
			WithRateLimit(rc.RatePerSecond, rc.Burst),
			WithLogger(log),
			WithMetrics(m),
		))
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no registries enabled")
	}
	return clients, nil
}
