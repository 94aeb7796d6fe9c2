// Stylescout - Outfit Product Discovery and Verification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stylescout

package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/stylescout/internal/models"
)

const userAgent = "stylescout/1.0"

// maxResponseBytes caps provider response bodies. Shopping APIs return a
// few hundred KB at most; anything larger is a misbehaving endpoint.
const maxResponseBytes = 4 << 20

// jsonClient is the shared outbound HTTP helper for provider adapters.
// It retries transient transport failures with exponential backoff and
// converts everything else into a typed ProviderError.
type jsonClient struct {
	provider string
	client   *http.Client
}

func newJSONClient(provider string, timeout time.Duration) *jsonClient {
	return &jsonClient{
		provider: provider,
		client:   &http.Client{Timeout: timeout},
	}
}

// getJSON fetches url and decodes the response body into out.
// Retry policy: one retry with backoff for 5xx and transport errors.
// 401/403, 429, and 4xx schema problems are permanent.
func (c *jsonClient) getJSON(ctx context.Context, url string, header http.Header, out interface{}) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(models.NewProviderError(c.provider, models.ErrKindMalformed, err))
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil || isTimeout(err) {
				return backoff.Permanent(models.NewProviderError(c.provider, models.ErrKindTimeout, err))
			}
			return err // transport error, retryable
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(models.NewProviderError(c.provider, models.ErrKindAuth,
				fmt.Errorf("status %d", resp.StatusCode)))
		case resp.StatusCode == http.StatusTooManyRequests:
			return backoff.Permanent(models.NewProviderError(c.provider, models.ErrKindRateLimited,
				fmt.Errorf("status %d", resp.StatusCode)))
		case resp.StatusCode >= 500:
			return fmt.Errorf("status %d", resp.StatusCode) // retryable
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(models.NewProviderError(c.provider, models.ErrKindMalformed,
				fmt.Errorf("unexpected status %d", resp.StatusCode)))
		}

		body := io.LimitReader(resp.Body, maxResponseBytes)
		if err := json.NewDecoder(body).Decode(out); err != nil {
			return backoff.Permanent(models.NewProviderError(c.provider, models.ErrKindMalformed,
				fmt.Errorf("decode response: %w", err)))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if pe, ok := models.AsProviderError(err); ok {
			return pe
		}
		if ctx.Err() != nil {
			return models.NewProviderError(c.provider, models.ErrKindTimeout, err)
		}
		// Retries exhausted on a server error: the provider is answering
		// but not usefully, which the tracker treats like a bad schema.
		return models.NewProviderError(c.provider, models.ErrKindMalformed, err)
	}
	return nil
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
