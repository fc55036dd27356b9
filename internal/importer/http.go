// Package importer pulls product images from marketplace CDNs so a looked-up
// product can start the workflow with an original image.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

const maxImageBytes = 20 << 20

// HTTPClient is a rate-limited HTTP client for CDN downloads.
type HTTPClient struct {
	client      *http.Client
	rateLimit   time.Duration
	lastRequest time.Time
	mu          sync.Mutex
	userAgents  []string
}

// NewHTTPClient creates a client allowing requestsPerMinute requests.
// Zero disables rate limiting.
func NewHTTPClient(requestsPerMinute int, timeout time.Duration) *HTTPClient {
	var rateLimit time.Duration
	if requestsPerMinute > 0 {
		rateLimit = time.Minute / time.Duration(requestsPerMinute)
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		rateLimit: rateLimit,
		userAgents: []string{
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		},
	}
}

func (c *HTTPClient) wait(ctx context.Context, url string) error {
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < c.rateLimit {
		wait := c.rateLimit - elapsed
		c.lastRequest = time.Now().Add(wait)
		c.mu.Unlock()

		slog.Debug("rate limiting", "wait", wait, "url", url)
		select {
		case <-time.After(wait):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()
	return nil
}

// Get fetches url and returns the body and its Content-Type.
func (c *HTTPClient) Get(ctx context.Context, url string) ([]byte, string, error) {
	if err := c.wait(ctx, url); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.randomUserAgent())
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxImageBytes {
		return nil, "", fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

func (c *HTTPClient) randomUserAgent() string {
	//nolint:gosec // math/rand is fine for user-agent rotation, not security-sensitive
	return c.userAgents[rand.Intn(len(c.userAgents))]
}
