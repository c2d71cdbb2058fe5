// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the outlet adapters.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

// RetryBaseDelay controls the base duration for linear backoff between
// fetch attempts. Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

const defaultRetries = 3

// browserAgents is rotated across requests; news sites routinely refuse
// the default Go client string.
var browserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// browserHeaders returns request headers imitating a desktop browser, with
// the Referer set to the page's own origin.
func browserHeaders(pageURL string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", browserAgents[rand.Intn(len(browserAgents))])
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("DNT", "1")
	h.Set("Upgrade-Insecure-Requests", "1")
	if u, err := url.Parse(pageURL); err == nil && u.Scheme != "" {
		h.Set("Referer", u.Scheme+"://"+u.Host)
	}
	return h
}

// FetchHTML retrieves the page at pageURL with bounded retry: a fixed
// attempt count and a linearly growing delay between attempts. The
// per-attempt timeout comes from the client. Exhausted retries return the
// last error; a timeout here is recoverable for the caller, which skips the
// one URL rather than failing the run.
func FetchHTML(ctx context.Context, client *http.Client, pageURL string, retries int) ([]byte, error) {
	if retries <= 0 {
		retries = defaultRetries
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * RetryBaseDelay):
			}
		}

		body, err := fetchOnce(ctx, client, pageURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetching %s: %w", pageURL, lastErr)
}

func fetchOnce(ctx context.Context, client *http.Client, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = browserHeaders(pageURL)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused by the next attempt.
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
