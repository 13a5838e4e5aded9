package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// maxBodySize bounds how much of a response we read. Search pages are well
// under this; anything larger is not worth parsing.
const maxBodySize = 8 << 20

// Fetcher retrieves search pages over a shared session. Every request gets a
// randomized user agent from the pool and a realistic desktop header set to
// reduce fingerprinting. The http.Client carries the cookie jar and
// connection pool for the whole run.
type Fetcher struct {
	client     *http.Client
	userAgents []string
	logger     *slog.Logger
}

func NewFetcher(client *http.Client, userAgents []string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:     client,
		userAgents: userAgents,
		logger:     logger.With("component", "fetcher"),
	}
}

// NewSessionClient builds the HTTP client shared by all rows of a run.
func NewSessionClient(timeout time.Duration, jar http.CookieJar) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Jar:     jar,
	}
}

// Fetch performs a single GET. It returns the body only when the status is a
// success and the body looks like an HTML document; any other outcome is an
// error for the retry driver to count as one failed attempt.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return "", fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	html := string(body)
	if !strings.Contains(strings.ToLower(html), "<html") {
		return "", ErrNotHTML
	}

	return html, nil
}

func (f *Fetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgents[rand.Intn(len(f.userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.6")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
