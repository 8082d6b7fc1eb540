// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citeverify/internal/cache"
	"github.com/pdiddy/citeverify/internal/metrics"
	"github.com/pdiddy/citeverify/pkg/types"
)

// --- fake source ---

type fakeSource struct {
	name string

	mu       sync.Mutex
	byDOI    map[string]*types.Candidate
	doiErr   error
	results  map[string][]types.Candidate // by exact query
	errs     map[string]error             // by exact query
	fallback []types.Candidate            // for any other query
	delay    time.Duration                // before each search
	queries  []string
	dois     []string
}

func newFake(name string) *fakeSource {
	return &fakeSource{
		name:    name,
		byDOI:   map[string]*types.Candidate{},
		results: map[string][]types.Candidate{},
		errs:    map[string]error{},
	}
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Search(ctx context.Context, q string) ([]types.Candidate, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[q]; ok {
		return nil, err
	}
	if r, ok := f.results[q]; ok {
		return r, nil
	}
	return f.fallback, nil
}

func (f *fakeSource) LookupByDOI(_ context.Context, doi string) (*types.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dois = append(f.dois, doi)
	if f.doiErr != nil {
		return nil, f.doiErr
	}
	return f.byDOI[doi], nil
}

func (f *fakeSource) searchQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

const (
	citedTitle    = "Graph neural networks for molecular property prediction"
	registryTitle = "Graph neural networks for molecular toxicity prediction" // ~71% similar
)

func gnnCitation() types.Citation {
	return types.Citation{Key: "smith2020", Title: citedTitle, Authors: "Smith, J. and Doe, A.", Year: 2020}
}

// --- DOI level ---

func TestLookup_DOIHitIsFullConfidenceAndUncached(t *testing.T) {
	src := newFake("openalex")
	src.byDOI["10.1000/gnn"] = &types.Candidate{Title: "Something Else Entirely", Year: 2019, Venue: "JMLR"}
	mem := cache.NewMemory()
	c := NewClient(src, WithCache(mem), WithThreshold(70))

	cit := gnnCitation()
	cit.DOI = "https://doi.org/10.1000/GNN"
	m := c.Lookup(context.Background(), cit)

	require.True(t, m.Found)
	assert.Equal(t, DOIConfidence, m.Confidence)
	assert.Equal(t, types.LevelDOI, m.Level)
	assert.Equal(t, "10.1000/gnn", m.DOI, "DOI falls back to the queried one")
	assert.Equal(t, "openalex", m.SourceName)
	assert.Empty(t, src.searchQueries(), "DOI hit must not search")
	assert.Equal(t, 0, mem.Len(), "DOI hits are not cached")
}

func TestLookup_DOIMissFallsThroughToTitle(t *testing.T) {
	src := newFake("openalex")
	src.results[citedTitle] = []types.Candidate{{Title: citedTitle, Year: 2020}}
	c := NewClient(src, WithThreshold(70))

	cit := gnnCitation()
	cit.DOI = "10.1000/unknown"
	m := c.Lookup(context.Background(), cit)

	require.True(t, m.Found)
	assert.Equal(t, types.LevelExactTitle, m.Level)
	assert.Equal(t, 100.0, m.Confidence)
	assert.Equal(t, []string{"10.1000/unknown"}, src.dois)
}

func TestLookup_DOIErrorFallsThroughToTitle(t *testing.T) {
	src := newFake("crossref")
	src.doiErr = errors.New("connection reset by peer")
	src.fallback = []types.Candidate{{Title: citedTitle}}
	c := NewClient(src)

	cit := gnnCitation()
	cit.DOI = "10.1000/gnn"
	m := c.Lookup(context.Background(), cit)
	require.True(t, m.Found)
	assert.Equal(t, types.LevelExactTitle, m.Level)
}

func TestLookup_ExhaustedRetriesEndChain(t *testing.T) {
	tests := []struct {
		name    string
		doi     string
		doiErr  error
		errs    map[string]error
		queries int
	}{
		{
			name:   "DOI level 503",
			doi:    "10.1000/gnn",
			doiErr: &HTTPError{Source: "crossref", Status: 503},
		},
		{
			name:    "exact title 429",
			errs:    map[string]error{citedTitle: &HTTPError{Source: "crossref", Status: 429}},
			queries: 1,
		},
		{
			name: "normalized title 502",
			errs: map[string]error{
				"graph neural networks molecular property prediction": &HTTPError{Source: "crossref", Status: 502},
			},
			queries: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFake("crossref")
			src.doiErr = tt.doiErr
			for q, err := range tt.errs {
				src.errs[q] = err
			}
			// Nothing matches at the exact level; a later level would accept.
			src.results[citedTitle] = nil
			src.fallback = []types.Candidate{{Title: citedTitle}}

			cit := gnnCitation()
			cit.DOI = tt.doi
			m := NewClient(src).Lookup(context.Background(), cit)
			assert.False(t, m.Found)
			assert.Equal(t, "crossref", m.SourceName)
			assert.Len(t, src.searchQueries(), tt.queries)
		})
	}
}

// --- title levels ---

func TestLookup_ExactTitleAcceptedAndCached(t *testing.T) {
	src := newFake("openalex")
	src.results[citedTitle] = []types.Candidate{
		{Title: "Unrelated work on galaxies"},
		{Title: registryTitle, Authors: "John Smith; Alice Doe", Year: 2020, DOI: "10.1/x", Venue: "NeurIPS", CitationCount: 12},
	}
	mem := cache.NewMemory()
	c := NewClient(src, WithCache(mem), WithThreshold(70))

	m := c.Lookup(context.Background(), gnnCitation())
	require.True(t, m.Found)
	assert.Equal(t, types.LevelExactTitle, m.Level)
	assert.Equal(t, registryTitle, m.CanonicalTitle)
	assert.InDelta(t, 100*5.0/7.0, m.Confidence, 0.01)
	assert.False(t, m.Cached)
	assert.Equal(t, 1, mem.Len())

	again := c.Lookup(context.Background(), gnnCitation())
	require.True(t, again.Found)
	assert.True(t, again.Cached)
	assert.Equal(t, m.CanonicalTitle, again.CanonicalTitle)
	assert.Equal(t, m.CitationCount, again.CitationCount)
	assert.Len(t, src.searchQueries(), 1, "second lookup is served from cache")
}

func TestLookup_CacheKeyIsSourceAndNormalizedTitle(t *testing.T) {
	src := newFake("openalex")
	src.fallback = []types.Candidate{{Title: citedTitle}}
	mem := cache.NewMemory()
	c := NewClient(src, WithCache(mem))

	c.Lookup(context.Background(), gnnCitation())
	_, err := mem.Get(context.Background(), "openalex:graph neural networks molecular property prediction")
	assert.NoError(t, err)
	assert.Equal(t, "openalex:graph neural networks molecular property prediction", CacheKey("openalex", citedTitle))
}

func TestLookup_FallsBackToNormalizedTitle(t *testing.T) {
	src := newFake("openalex")
	src.results[citedTitle] = []types.Candidate{{Title: "Unrelated work on galaxies"}}
	src.results["graph neural networks molecular property prediction"] = []types.Candidate{{Title: citedTitle}}
	c := NewClient(src, WithThreshold(70))

	m := c.Lookup(context.Background(), gnnCitation())
	require.True(t, m.Found)
	assert.Equal(t, types.LevelNormalizedTitle, m.Level)
	assert.Equal(t, []string{citedTitle, "graph neural networks molecular property prediction"}, src.searchQueries())
}

func TestLookup_FallsBackToAuthorYear(t *testing.T) {
	src := newFake("openalex")
	src.fallback = []types.Candidate{{Title: "Unrelated work on galaxies"}}
	src.results["graph neural networks molecular property prediction Smith 2020"] = []types.Candidate{{Title: citedTitle}}
	c := NewClient(src, WithThreshold(70))

	m := c.Lookup(context.Background(), gnnCitation())
	require.True(t, m.Found)
	assert.Equal(t, types.LevelAuthorYear, m.Level)
	assert.Len(t, src.searchQueries(), 3)
}

func TestLookup_SkipsLevels(t *testing.T) {
	tests := []struct {
		name string
		cit  types.Citation
		want []string
	}{
		{
			name: "no year skips author-year",
			cit:  types.Citation{Title: citedTitle, Authors: "Smith, J."},
			want: []string{citedTitle, "graph neural networks molecular property prediction"},
		},
		{
			name: "no authors skips author-year",
			cit:  types.Citation{Title: citedTitle, Year: 2020},
			want: []string{citedTitle, "graph neural networks molecular property prediction"},
		},
		{
			name: "already normalized skips normalized level",
			cit:  types.Citation{Title: "deep learning", Authors: "LeCun, Y.", Year: 2015},
			want: []string{"deep learning", "deep learning LeCun 2015"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFake("openalex")
			c := NewClient(src)
			m := c.Lookup(context.Background(), tt.cit)
			assert.False(t, m.Found)
			assert.Equal(t, tt.want, src.searchQueries())
		})
	}
}

func TestLookup_ErrorsAtEveryLevelReturnNotFound(t *testing.T) {
	src := newFake("semantic_scholar")
	boom := errors.New("connection refused")
	cit := gnnCitation()
	src.errs[citedTitle] = boom
	src.errs["graph neural networks molecular property prediction"] = &HTTPError{Source: "semantic_scholar", Status: 400}
	src.errs["graph neural networks molecular property prediction Smith 2020"] = errors.New("parsing semantic_scholar response: unexpected EOF")
	mem := cache.NewMemory()
	m := metrics.New()
	c := NewClient(src, WithCache(mem), WithMetrics(m))

	got := c.Lookup(context.Background(), cit)
	assert.False(t, got.Found)
	assert.Equal(t, "semantic_scholar", got.SourceName)
	assert.Len(t, src.searchQueries(), 3, "every level is attempted despite errors")
	assert.Equal(t, 0, mem.Len(), "failures are not cached")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups().WithLabelValues("semantic_scholar", "exact_title", metrics.OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups().WithLabelValues("semantic_scholar", "author_year", metrics.OutcomeError)))
}

func TestLookup_ErrorThenSuccessAtLaterLevel(t *testing.T) {
	src := newFake("openalex")
	src.errs[citedTitle] = errors.New("timeout")
	src.results["graph neural networks molecular property prediction"] = []types.Candidate{{Title: citedTitle}}
	c := NewClient(src)

	m := c.Lookup(context.Background(), gnnCitation())
	require.True(t, m.Found)
	assert.Equal(t, types.LevelNormalizedTitle, m.Level)
}

func TestLookup_ThresholdPerRole(t *testing.T) {
	// 13/20 characters: 65% similar.
	cit := types.Citation{Title: "Deep Learning"}
	cands := []types.Candidate{{Title: "Deep Learning for Vision"}}

	primary := newFake("openalex")
	primary.fallback = cands
	assert.False(t, NewClient(primary, WithThreshold(types.DefaultPrimaryThreshold)).Lookup(context.Background(), cit).Found)

	secondary := newFake("crossref")
	secondary.fallback = cands
	m := NewClient(secondary, WithThreshold(types.DefaultSecondaryThreshold)).Lookup(context.Background(), cit)
	require.True(t, m.Found)
	assert.InDelta(t, 65.0, m.Confidence, 0.001)
}

func TestLookup_ThresholdIsInclusive(t *testing.T) {
	src := newFake("crossref")
	src.fallback = []types.Candidate{{Title: "Deep Learning for Vision"}}
	m := NewClient(src, WithThreshold(65)).Lookup(context.Background(), types.Citation{Title: "Deep Learning"})
	assert.True(t, m.Found)
}

func TestLookup_CorruptCacheEntryIsMiss(t *testing.T) {
	src := newFake("openalex")
	src.fallback = []types.Candidate{{Title: citedTitle}}
	mem := cache.NewMemory()
	require.NoError(t, mem.Set(context.Background(), CacheKey("openalex", citedTitle), []byte("{not json"), time.Hour))
	m := metrics.New()
	c := NewClient(src, WithCache(mem), WithMetrics(m))

	got := c.Lookup(context.Background(), gnnCitation())
	require.True(t, got.Found)
	assert.False(t, got.Cached)
	assert.Len(t, src.searchQueries(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests().WithLabelValues(metrics.CacheCorrupt)))
}

func TestLookup_EmptyTitleNotFound(t *testing.T) {
	src := newFake("openalex")
	m := NewClient(src).Lookup(context.Background(), types.Citation{Title: "  the of  "})
	assert.False(t, m.Found)
	assert.Empty(t, src.searchQueries())
}

func TestLookup_RateLimited(t *testing.T) {
	src := newFake("semantic_scholar")
	c := NewClient(src, WithRateLimit(20, 1))

	start := time.Now()
	// Three title-based levels: the second and third wait ~50ms each.
	c.Lookup(context.Background(), gnnCitation())
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestLookup_CancelledContext(t *testing.T) {
	src := newFake("openalex")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewClient(src, WithRateLimit(1, 1)).Lookup(ctx, gnnCitation())
	assert.False(t, m.Found)
	assert.Empty(t, src.searchQueries())
}

func TestLookup_ConcurrentIdenticalLookups(t *testing.T) {
	src := newFake("openalex")
	src.fallback = []types.Candidate{{Title: citedTitle}}
	c := NewClient(src, WithCache(cache.NewMemory()))

	var wg sync.WaitGroup
	results := make([]types.RegistryMatch, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Lookup(context.Background(), gnnCitation())
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.True(t, r.Found)
		assert.Equal(t, citedTitle, r.CanonicalTitle)
	}
}

func TestLookup_CallerDeadlineDoesNotLeakIntoSharedLookup(t *testing.T) {
	src := newFake("openalex")
	src.delay = 100 * time.Millisecond
	src.fallback = []types.Candidate{{Title: citedTitle}}
	c := NewClient(src)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var shortRes, liveRes types.RegistryMatch
	wg.Add(2)
	go func() {
		defer wg.Done()
		shortRes = c.Lookup(short, gnnCitation())
	}()
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		liveRes = c.Lookup(context.Background(), gnnCitation())
	}()
	wg.Wait()

	assert.False(t, shortRes.Found, "caller whose deadline passed")
	assert.Equal(t, "openalex", shortRes.SourceName)
	require.True(t, liveRes.Found, "caller with a live context")
	assert.Equal(t, citedTitle, liveRes.CanonicalTitle)
	assert.Len(t, src.searchQueries(), 1, "both callers shared one chain")
}

func TestLookup_AbandonedLookupIsNotReused(t *testing.T) {
	src := newFake("openalex")
	src.delay = 50 * time.Millisecond
	src.fallback = []types.Candidate{{Title: citedTitle}}
	c := NewClient(src)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.False(t, c.Lookup(ctx, gnnCitation()).Found)

	m := c.Lookup(context.Background(), gnnCitation())
	require.True(t, m.Found)
	assert.Equal(t, types.LevelExactTitle, m.Level)
}

// --- BestCandidate ---

func TestBestCandidate(t *testing.T) {
	_, _, ok := BestCandidate("anything", nil)
	assert.False(t, ok)

	cands := []types.Candidate{
		{Title: "Unrelated work on galaxies", DOI: "a"},
		{Title: citedTitle, DOI: "b"},
		{Title: citedTitle, DOI: "c"},
	}
	best, sim, ok := BestCandidate(citedTitle, cands)
	require.True(t, ok)
	assert.Equal(t, 100.0, sim)
	assert.Equal(t, "b", best.DOI, "ties keep registry order")
}

// --- Build ---

func TestBuild(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Registries[2].Enabled = false

	clients, err := Build(cfg, cache.NewMemory(), nil, nil)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, types.RegistryOpenAlex, clients[0].Name())
	assert.Equal(t, types.DefaultPrimaryThreshold, clients[0].Threshold())
	assert.Equal(t, types.RegistryCrossref, clients[1].Name())
	assert.Equal(t, types.DefaultSecondaryThreshold, clients[1].Threshold())
}

func TestBuild_Errors(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Registries = []types.RegistryConfig{{Name: "dblp", Enabled: true}}
	_, err := Build(cfg, nil, nil, nil)
	assert.ErrorContains(t, err, `unknown registry "dblp"`)

	cfg.Registries = nil
	_, err = Build(cfg, nil, nil, nil)
	assert.ErrorContains(t, err, "no registries enabled")
}

func TestHTTPErrorIs(t *testing.T) {
	assert.ErrorIs(t, &HTTPError{Status: 429}, ErrRateLimited)
	assert.ErrorIs(t, &HTTPError{Status: 502}, ErrUnavailable)
	assert.NotErrorIs(t, &HTTPError{Status: 400}, ErrUnavailable)
	assert.NotErrorIs(t, &HTTPError{Status: 503}, ErrRateLimited)
}
