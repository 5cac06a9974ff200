package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"slices"
	"time"

	apperr "estatescrapers/pkg/errors"
	"estatescrapers/services/cache"

	"golang.org/x/net/html/charset"
)

// Fetcher retrieves one URL and wraps the response body in a Page
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Safari/605.1.15",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
		"https://duckduckgo.com/",
	}
)

// HTTPFetcher is the plain fetcher. A rate-limited response sets a per-host
// block key in the shared cache so further fetches of that host short-circuit
// until the block expires.
type HTTPFetcher struct {
	client    *http.Client
	cacheSvc  cache.Service
	blockTime time.Duration
	rnd       *mathrand.Rand
}

// NewHTTPFetcher creates the plain HTTP fetcher
func NewHTTPFetcher(timeout time.Duration, cacheSvc cache.Service, blockTime time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		cacheSvc:  cacheSvc,
		blockTime: blockTime,
		rnd:       mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

func blockKey(host string) string {
	return "block:" + host
}

// Fetch sends a GET with randomized browser headers and converts the
// response body to UTF-8
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	page, err := NewPage(rawURL, nil)
	if err != nil {
		return nil, err
	}
	host := page.Host()

	if f.cacheSvc != nil {
		if _, err := f.cacheSvc.Get(blockKey(host)); err == nil {
			return nil, apperr.NewRateLimit(host, f.blockTime)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperr.NewFetch(host, "failed to create request", err)
	}

	req.Header.Set("User-Agent", userAgents[f.rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,de;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Referer", referers[f.rnd.Intn(len(referers))])
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.NewFetch(host, "request failed", err)
	}
	defer resp.Body.Close()

	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		if f.cacheSvc != nil {
			f.cacheSvc.Set(blockKey(host), []byte(resp.Header.Get("Retry-After")), f.blockTime)
		}
		return nil, apperr.NewRateLimit(host, f.blockTime)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.NewFetch(host, fmt.Sprintf("unexpected status code %d for %s", resp.StatusCode, rawURL), nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.NewFetch(host, "failed to read response body", err)
	}

	utf8Body, err := toUTF8(bodyBytes, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, apperr.NewFetch(host, "failed to decode response body", err)
	}

	page.Body = utf8Body
	return page, nil
}

// toUTF8 converts a response body to UTF-8 based on its detected encoding
func toUTF8(body []byte, contentType string) ([]byte, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || name == "UTF-8" {
		return body, nil
	}
	reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
