package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "estatescrapers/pkg/errors"
	"estatescrapers/services/cache"
)

func TestHTTPFetcherReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(5*time.Second, nil, time.Minute)
	page, err := f.Fetch(context.Background(), server.URL+"/liste/wien/wohnungen")
	require.NoError(t, err)
	assert.Contains(t, string(page.Body), "ok")
	assert.Equal(t, "/liste/wien/wohnungen", page.URL.Path)
}

func TestHTTPFetcherConvertsToUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Häuser" in latin-1
		w.Write([]byte{'H', 0xe4, 'u', 's', 'e', 'r'})
	}))
	defer server.Close()

	f := NewHTTPFetcher(5*time.Second, nil, time.Minute)
	page, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Häuser", string(page.Body))
}

func TestHTTPFetcherRejectsUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewHTTPFetcher(5*time.Second, nil, time.Minute)
	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	var se *apperr.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperr.ErrorTypeFetch, se.Type)
	assert.False(t, se.IsFatal())
}

func TestHTTPFetcherBlocksRateLimitedHosts(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := NewHTTPFetcher(5*time.Second, cache.NewMemoryService(), time.Minute)

	_, err := f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	var se *apperr.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperr.ErrorTypeRateLimit, se.Type)

	// the block is cached, so the host is not contacted again
	_, err = f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperr.ErrorTypeRateLimit, se.Type)
	assert.Equal(t, 1, requests)
}
