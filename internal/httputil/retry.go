// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the registry sources.
package httputil

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// retryable responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// Retryable reports whether a response status warrants another attempt:
// 429 Too Many Requests and every 5xx.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Retryer executes HTTP requests with exponential backoff.
type Retryer struct {
	Client *http.Client

	// MaxRetries is the number of retries after the first attempt.
	// Zero selects the default (3).
	MaxRetries int

	// BaseDelay is the first backoff. Zero selects RetryBaseDelay.
	BaseDelay time.Duration

	Logger *zap.Logger
}

// Do executes req and retries on 429, 5xx, and transport errors. The delay
// starts at BaseDelay and doubles each attempt: 2 s, 4 s, 8 s.
//
// The body of each retried response is drained and closed before sleeping.
// If the context is cancelled during a backoff wait Do returns ctx.Err().
// After exhausting retries the last response is returned so the caller can
// inspect it, or the last transport error if no response was received.
func (r *Retryer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	maxRetries := r.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	base := r.BaseDelay
	if base <= 0 {
		base = RetryBaseDelay
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			if attempt >= maxRetries {
				return nil, err
			}
		} else {
			if !Retryable(resp.StatusCode) || attempt >= maxRetries {
				return resp, nil
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * base
		fields := []zap.Field{
			zap.String("url", req.URL.Redacted()),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		} else {
			fields = append(fields, zap.Int("status", resp.StatusCode))
		}
		log.Debug("retrying request", fields...)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
