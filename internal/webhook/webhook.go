// Package webhook fans a JSON payload out to a resource's or search's
// callback URLs, bounding concurrency the way the teacher's web fetch tool
// bounds concurrent fetches with errgroup.SetLimit, and deduplicating
// identical URLs the way HttpxWebClient.send_resource_callbacks deduplicated
// nothing explicitly — the original relied on callers not repeating URLs;
// this implementation enforces it instead of trusting the caller.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultRetries is the number of delivery attempts made per URL before a
// callback counts as failed (spec.md §4.4).
const DefaultRetries = 3

// Client posts a JSON payload to a set of URLs concurrently, bounded by
// maxConcurrency, tolerating individual failures (a single dead callback
// must not block delivery to the others).
type Client struct {
	httpClient     *http.Client
	maxConcurrency int
	timeout        time.Duration
	retries        int
}

func NewClient(httpClient *http.Client, maxConcurrency int, timeout time.Duration, retries int) *Client {
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	if maxConcurrency > 64 {
		maxConcurrency = 64
	}
	if retries <= 0 {
		retries = DefaultRetries
	}
	return &Client{httpClient: httpClient, maxConcurrency: maxConcurrency, timeout: timeout, retries: retries}
}

// Fanout delivers payload to every URL in urls, deduplicated within this one
// invocation. It returns an error only if every delivery failed; partial
// failure is logged but not fatal, since a single broken subscriber
// shouldn't block the pipeline from advancing.
func (c *Client) Fanout(ctx context.Context, urls []string, payload any) error {
	deduped := dedupe(urls)
	if len(deduped) == 0 {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(c.maxConcurrency)
	failures := make([]error, len(deduped))
	for i, u := range deduped {
		i, u := i, u
		g.Go(func() error {
			failures[i] = c.deliverWithRetry(ctx, u, body)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, err := range failures {
		if err != nil {
			failed++
			log.Error().Err(err).Str("url", deduped[i]).Msg("webhook: delivery failed")
		}
	}
	if failed == len(deduped) {
		return fmt.Errorf("all %d webhook deliveries failed", failed)
	}
	return nil
}

// deliverWithRetry attempts delivery up to c.retries times with the same
// capped-exponential backoff dispatch.Consumer uses between stage retries.
func (c *Client) deliverWithRetry(ctx context.Context, url string, body []byte) error {
	retries := c.retries
	if retries <= 0 {
		retries = 1
	}
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		lastErr = c.deliver(ctx, url, body)
		if lastErr == nil {
			return nil
		}
		log.Warn().Err(lastErr).Str("url", url).Int("attempt", attempt+1).Msg("webhook: delivery attempt failed")
	}
	return lastErr
}

func (c *Client) deliver(ctx context.Context, url string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: status %d", url, resp.StatusCode)
	}
	return nil
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
