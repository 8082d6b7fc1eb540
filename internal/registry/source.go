// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/citeverify/internal/httputil"
	"github.com/pdiddy/citeverify/pkg/types"
)

// Source is one external bibliographic registry. Implementations map the
// registry's wire format into types.Candidate and hold no mutable state
// beyond their HTTP client.
type Source interface {
	Name() string

	// Search returns candidates for a free-text query, best first as ranked
	// by the registry.
	Search(ctx context.Context, query string) ([]types.Candidate, error)

	// LookupByDOI resolves a bare, lower-case DOI. It returns nil, nil when
	// the registry does not know the DOI.
	LookupByDOI(ctx context.Context, doi string) (*types.Candidate, error)
}

var (
	// ErrRateLimited matches an HTTPError with status 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable matches an HTTPError with a 5xx status.
	ErrUnavailable = errors.New("registry unavailable")
)

// HTTPError is a non-2xx response from a registry after retries.
type HTTPError struct {
	Source string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.Source, e.Status)
}

// Is lets callers match ErrRateLimited and ErrUnavailable with errors.Is.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrUnavailable:
		return e.Status >= 500
	}
	return false
}

// fetcher performs GET requests for a source and decodes JSON bodies.
type fetcher struct {
	source    string
	retry     *httputil.Retryer
	userAgent string
	headers   map[string]string
}

func newFetcher(source string, cfg types.RegistryConfig, httpCfg types.HTTPConfig, log *zap.Logger) *fetcher {
	timeout := httpCfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ua := httpCfg.UserAgent
	if ua == "" {
		ua = types.DefaultUserAgent
	}
	return &fetcher{
		source: source,
		retry: &httputil.Retryer{
			Client:     &http.Client{Timeout: timeout},
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.RetryBaseDelay,
			Logger:     log.With(zap.String("source", source)),
		},
		userAgent: ua,
		headers:   make(map[string]string),
	}
}

// getJSON decodes the body at reqURL into v. It reports false without error
// on 404 so DOI lookups can distinguish "unknown" from "failed".
func (f *fetcher) getJSON(ctx context.Context, reqURL string, v any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")
	for k, val := range f.headers {
		req.Header.Set(k, val)
	}

	resp, err := f.retry.Do(ctx, req)
	if err != nil {
		return false, fmt.Errorf("%s request: %w", f.source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return false, &HTTPError{Source: f.source, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, fmt.Errorf("parsing %s response: %w", f.source, err)
	}
	return true, nil
}

// joinAuthors renders author names in registry order as "A; B; C".
func joinAuthors(names []string) string {
	out := names[:0:0]
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, "; ")
}

// retractedTitle reports whether a registry title carries a retraction
// notice prefix, which some registries use instead of a flag.
func retractedTitle(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	return strings.HasPrefix(t, "retracted:") || strings.HasPrefix(t, "retracted article:") || strings.HasPrefix(t, "[retracted]")
}
