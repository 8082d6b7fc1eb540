// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry looks citations up in external bibliographic registries.
// A Client wraps one Source with a four-level fallback chain (DOI, exact
// title, normalized title, author and year), a per-source token bucket, and
// a shared response cache.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/pdiddy/citeverify/internal/cache"
	"github.com/pdiddy/citeverify/internal/metrics"
	"github.com/pdiddy/citeverify/internal/normalize"
	"github.com/pdiddy/citeverify/internal/similarity"
	"github.com/pdiddy/citeverify/pkg/types"
)

// DOIConfidence is the confidence assigned to a match resolved by DOI.
const DOIConfidence = 100.0

// Client is the registry client for one source. It is safe for concurrent
// use; identical in-flight lookups share one fallback chain.
type Client struct {
	src       Source
	cache     cache.Cache
	threshold float64
	ttl       time.Duration
	limiter   *rate.Limiter
	log       *zap.Logger
	metrics   *metrics.Metrics

	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context a shared fallback chain runs under. It is
// cancelled only once every caller waiting on it has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Option configures a Client.
type Option func(*Client)

// WithCache sets the response cache. The default stores nothing.
func WithCache(c cache.Cache) Option {
	return func(cl *Client) {
		if c != nil {
			cl.cache = c
		}
	}
}

// WithThreshold sets the minimum title similarity for accepting a search
// candidate.
func WithThreshold(t float64) Option {
	return func(cl *Client) { cl.threshold = t }
}

// WithTTL sets how long accepted search matches stay cached.
func WithTTL(ttl time.Duration) Option {
	return func(cl *Client) { cl.ttl = ttl }
}

// WithRateLimit installs a token bucket of perSecond requests with the
// given burst. A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cl *Client) {
		if perSecond <= 0 {
			cl.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		cl.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

// WithMetrics records lookups, cache outcomes, and durations in m. A nil
// m records nothing.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// NewClient wraps src. Without options the client accepts candidates at
// the secondary threshold, caches nothing, and is not rate limited.
func NewClient(src Source, opts ...Option) *Client {
	c := &Client{
		src:       src,
		cache:     cache.Nop{},
		threshold: types.DefaultSecondaryThreshold,
		ttl:       types.DefaultCacheTTL,
		log:       zap.NewNop(),
		flights:   make(map[string]*flight),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With(zap.String("source", src.Name()))
	return c
}

// Name returns the wrapped source's name.
func (c *Client) Name() string { return c.src.Name() }

// Threshold returns the acceptance threshold.
func (c *Client) Threshold() float64 { return c.threshold }

// Lookup runs the fallback chain for cit and returns the first accepted
// match, or a not-found match. Registry failures are logged and never
// returned: a failing level is treated as having no candidate.
//
// Concurrent lookups of the same citation share one chain. A caller whose
// ctx ends gets a not-found match without affecting the other callers.
func (c *Client) Lookup(ctx context.Context, cit types.Citation) types.RegistryMatch {
	if ctx.Err() != nil {
		return types.NotFound(c.src.Name())
	}
	key := flightKey(cit)
	f := c.join(ctx, key)
	defer c.leave(key, f)

	ch := c.group.DoChan(key, func() (any, error) {
		return c.lookup(f.ctx, cit), nil
	})
	select {
	case r := <-ch:
		return r.Val.(types.RegistryMatch)
	case <-ctx.Done():
		return types.NotFound(c.src.Name())
	}
}

func (c *Client) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops a waiter. The last one out cancels the chain and makes the
// group forget it, so a later caller never joins a cancelled chain.
func (c *Client) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
		c.group.Forget(key)
	}
}

func flightKey(cit types.Citation) string {
	return strings.Join([]string{
		normalize.NormalizeDOI(cit.DOI),
		normalize.NormalizeTitle(cit.Title),
		strings.ToLower(normalize.ExtractSurname(cit.Authors)),
		strconv.Itoa(cit.Year),
	}, "|")
}

// CacheKey is the cache key for a title looked up in the named source.
func CacheKey(source, title string) string {
	return source + ":" + normalize.NormalizeTitle(title)
}

func (c *Client) lookup(ctx context.Context, cit types.Citation) types.RegistryMatch {
	name := c.src.Name()
	start := time.Now()
	defer func() { c.metrics.ObserveDuration(name, time.Since(start)) }()

	if doi := normalize.NormalizeDOI(cit.DOI); doi != "" {
		m, ok, err := c.lookupDOI(ctx, cit, doi)
		if ok {
			return m
		}
		if exhausted(err) {
			c.giveUp(cit, types.LevelDOI)
			return types.NotFound(name)
		}
	}

	normTitle := normalize.NormalizeTitle(cit.Title)
	if normTitle == "" {
		c.log.Debug("title normalizes to empty, skipping search", zap.String("key", cit.Key))
		return types.NotFound(name)
	}

	cacheKey := name + ":" + normTitle
	if m, ok := c.cached(ctx, cacheKey); ok {
		return m
	}

	for _, step := range searchSteps(cit, normTitle) {
		if ctx.Err() != nil {
			break
		}
		m, ok, err := c.searchLevel(ctx, cit, step.level, step.query)
		if exhausted(err) {
			c.giveUp(cit, step.level)
			return types.NotFound(name)
		}
		if !ok {
			continue
		}
		c.store(ctx, cacheKey, m)
		return m
	}

	c.log.Debug("no candidate accepted", zap.String("key", cit.Key))
	return types.NotFound(name)
}

// exhausted reports whether err is a 429 or 5xx that outlasted the retry
// cap. The source is then skipped for the rest of the citation.
func exhausted(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}

func (c *Client) giveUp(cit types.Citation, level types.MatchLevel) {
	c.log.Info("source unavailable after retries, skipping citation",
		zap.String("key", cit.Key),
		zap.String("level", string(level)))
}

type searchStep struct {
	level types.MatchLevel
	query string
}

// searchSteps lists the title-based levels in fallback order. The
// normalized level is skipped when it would repeat the exact query, and the
// author-year level needs both a surname and a year.
func searchSteps(cit types.Citation, normTitle string) []searchStep {
	exact := strings.TrimSpace(cit.Title)
	steps := []searchStep{{types.LevelExactTitle, exact}}
	if normTitle != exact {
		steps = append(steps, searchStep{types.LevelNormalizedTitle, normTitle})
	}
	if surname := normalize.ExtractSurname(cit.Authors); surname != "" && cit.Year > 0 {
		steps = append(steps, searchStep{
			types.LevelAuthorYear,
			normTitle + " " + surname + " " + strconv.Itoa(cit.Year),
		})
	}
	return steps
}

func (c *Client) lookupDOI(ctx context.Context, cit types.Citation, doi string) (types.RegistryMatch, bool, error) {
	name := c.src.Name()
	if err := c.wait(ctx); err != nil {
		return types.RegistryMatch{}, false, nil
	}
	cand, err := c.src.LookupByDOI(ctx, doi)
	if err != nil {
		c.log.Warn("DOI lookup failed", zap.String("key", cit.Key), zap.String("doi", doi), zap.Error(err))
		c.metrics.ObserveLookup(name, string(types.LevelDOI), metrics.OutcomeError)
		return types.RegistryMatch{}, false, err
	}
	if cand == nil {
		c.metrics.ObserveLookup(name, string(types.LevelDOI), metrics.OutcomeNotFound)
		return types.RegistryMatch{}, false, nil
	}
	c.metrics.ObserveLookup(name, string(types.LevelDOI), metrics.OutcomeFound)
	if cand.DOI == "" {
		cand.DOI = doi
	}
	return types.NewMatch(*cand, name, DOIConfidence, types.LevelDOI), true, nil
}

func (c *Client) searchLevel(ctx context.Context, cit types.Citation, level types.MatchLevel, query string) (types.RegistryMatch, bool, error) {
	name := c.src.Name()
	if err := c.wait(ctx); err != nil {
		return types.RegistryMatch{}, false, nil
	}
	cands, err := c.src.Search(ctx, query)
	if err != nil {
		c.log.Warn("search failed",
			zap.String("key", cit.Key),
			zap.String("level", string(level)),
			zap.Error(err))
		c.metrics.ObserveLookup(name, string(level), metrics.OutcomeError)
		return types.RegistryMatch{}, false, err
	}

	best, sim, ok := BestCandidate(cit.Title, cands)
	if !ok || sim < c.threshold {
		c.log.Debug("no candidate above threshold",
			zap.String("key", cit.Key),
			zap.String("level", string(level)),
			zap.Int("candidates", len(cands)),
			zap.Float64("best_similarity", sim),
			zap.Float64("threshold", c.threshold))
		c.metrics.ObserveLookup(name, string(level), metrics.OutcomeNotFound)
		return types.RegistryMatch{}, false, nil
	}
	c.metrics.ObserveLookup(name, string(level), metrics.OutcomeFound)
	return types.NewMatch(best, name, sim, level), true, nil
}

// BestCandidate returns the candidate whose title is most similar to title.
// Ties keep the registry's ranking. ok is false when cands is empty.
func BestCandidate(title string, cands []types.Candidate) (types.Candidate, float64, bool) {
	bestIdx, bestSim := -1, -1.0
	for i, cand := range cands {
		if sim := similarity.TitleSimilarity(title, cand.Title); sim > bestSim {
			bestIdx, bestSim = i, sim
		}
	}
	if bestIdx < 0 {
		return types.Candidate{}, 0, false
	}
	return cands[bestIdx], bestSim, true
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return ctx.Err()
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) cached(ctx context.Context, key string) (types.RegistryMatch, bool) {
	data, err := c.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		c.metrics.ObserveCache(metrics.CacheMiss)
		return types.RegistryMatch{}, false
	}
	if err != nil {
		c.log.Warn("cache read failed", zap.String("cache_key", key), zap.Error(err))
		c.metrics.ObserveCache(metrics.CacheError)
		return types.RegistryMatch{}, false
	}

	var m types.RegistryMatch
	if err := json.Unmarshal(data, &m); err != nil || !m.Found {
		c.log.Warn("discarding corrupt cache entry", zap.String("cache_key", key), zap.Error(err))
		c.metrics.ObserveCache(metrics.CacheCorrupt)
		return types.RegistryMatch{}, false
	}
	c.metrics.ObserveCache(metrics.CacheHit)
	m.Cached = true
	m.SourceName = c.src.Name()
	return m, true
}

func (c *Client) store(ctx context.Context, key string, m types.RegistryMatch) {
	data, err := json.Marshal(m)
	if err != nil {
		c.log.Warn("encoding cache entry", zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.log.Warn("cache write failed", zap.String("cache_key", key), zap.Error(err))
	}
}
