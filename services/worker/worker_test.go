package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatescrapers/internal/scraper"
	apperr "estatescrapers/pkg/errors"
	"estatescrapers/services/pipeline"
	"estatescrapers/services/publisher"
)

// testSite is a three-role adapter over canned url lists, so the crawl shape
// is fully controlled by each test
type testSite struct {
	domain     string
	listURLs   []string
	pagination map[string][]string
	details    map[string][]string
	dropAll    bool
}

func (s *testSite) adapter() scraper.Adapter {
	return scraper.Adapter{Home: s, List: s, Detail: s}
}

func (s *testSite) constructor() scraper.Constructor {
	return func() scraper.Adapter { return s.adapter() }
}

func (s *testSite) Domain() string      { return s.domain }
func (s *testSite) DynamicFetch() bool  { return false }
func (s *testSite) EntryURLs() []string { return []string{"https://www." + s.domain + "/"} }

func (s *testSite) ListURLs(page *scraper.Page) ([]string, error) {
	return s.listURLs, nil
}

func (s *testSite) PaginationURLs(page *scraper.Page) ([]string, error) {
	return s.pagination[page.URL.String()], nil
}

func (s *testSite) DetailURLs(page *scraper.Page) ([]string, error) {
	return s.details[page.URL.String()], nil
}

func (s *testSite) Extract(page *scraper.Page) (*scraper.RealEstate, error) {
	if s.dropAll {
		return nil, apperr.DropPage(s.domain, "not scrapable")
	}
	return &scraper.RealEstate{
		Location:    scraper.Location{Country: "AUT", City: "Graz"},
		ListingType: scraper.ListingSale,
		ObjectType:  "Wohnung",
		ScrapeURL:   page.URL.String(),
		ScrapedAt:   time.Now(),
	}, nil
}

// stubFetcher serves canned bodies and records every fetched url
type stubFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func (f *stubFetcher) Fetch(ctx context.Context, rawURL string) (*scraper.Page, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, rawURL)
	f.mu.Unlock()
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, apperr.NewFetch("", "unexpected status code 404 for "+rawURL, nil)
	}
	return scraper.NewPage(rawURL, []byte(body))
}

// memStore keeps committed records in memory and feeds them back as seen urls
type memStore struct {
	batches [][]*scraper.RealEstate
	seen    map[string]struct{}
}

func newMemStore() *memStore {
	return &memStore{seen: make(map[string]struct{})}
}

func (m *memStore) SeenURLs(ctx context.Context) (map[string]struct{}, error) {
	seen := make(map[string]struct{}, len(m.seen))
	for url := range m.seen {
		seen[url] = struct{}{}
	}
	return seen, nil
}

func (m *memStore) WriteBatch(ctx context.Context, records []*scraper.RealEstate) error {
	batch := make([]*scraper.RealEstate, len(records))
	copy(batch, records)
	m.batches = append(m.batches, batch)
	for _, r := range records {
		m.seen[r.ScrapeURL] = struct{}{}
	}
	return nil
}

func (m *memStore) Close() error { return nil }

func threePageSite() (*testSite, *stubFetcher) {
	site := &testSite{
		domain:   "example.org",
		listURLs: []string{"https://www.example.org/list"},
		pagination: map[string][]string{
			"https://www.example.org/list": {"https://www.example.org/list?page=2"},
		},
		details: map[string][]string{
			"https://www.example.org/list": {
				"https://www.example.org/item/1",
				"https://www.example.org/item/2",
			},
			"https://www.example.org/list?page=2": {
				"https://www.example.org/item/3",
			},
		},
	}
	fetcher := &stubFetcher{pages: map[string]string{
		"https://www.example.org/":            "<html>home</html>",
		"https://www.example.org/list":        "<html>list</html>",
		"https://www.example.org/list?page=2": "<html>list 2</html>",
		"https://www.example.org/item/1":      "<html>item</html>",
		"https://www.example.org/item/2":      "<html>item</html>",
		"https://www.example.org/item/3":      "<html>item</html>",
	}}
	return site, fetcher
}

func runOnce(t *testing.T, site *testSite, fetcher *stubFetcher, store *memStore) (*pipeline.Pipeline, error) {
	t.Helper()
	registry, err := scraper.NewRegistry(site.constructor())
	require.NoError(t, err)
	pipe, err := pipeline.New(context.Background(), store, publisher.Nop{}, 100)
	require.NoError(t, err)
	w := NewWorker(registry, fetcher, nil, pipe, 4, 2)
	runErr := w.Run(context.Background(), "")
	require.NoError(t, pipe.Close(context.Background()))
	return pipe, runErr
}

func TestWorkerCrawlsThreeTiers(t *testing.T) {
	site, fetcher := threePageSite()
	store := newMemStore()

	pipe, err := runOnce(t, site, fetcher, store)
	require.NoError(t, err)

	assert.Equal(t, 3, pipe.Committed())
	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 3)
	assert.Len(t, fetcher.fetched, 6)
}

func TestWorkerRerunCommitsNothing(t *testing.T) {
	site, fetcher := threePageSite()
	store := newMemStore()

	_, err := runOnce(t, site, fetcher, store)
	require.NoError(t, err)
	require.Len(t, store.batches, 1)

	// identical second run: every detail url is already persisted
	pipe, err := runOnce(t, site, fetcher, store)
	require.NoError(t, err)
	assert.Equal(t, 0, pipe.Committed())
	assert.Equal(t, 3, pipe.Duplicates())
	assert.Len(t, store.batches, 1)
}

func TestWorkerDropsFailedFetches(t *testing.T) {
	site, fetcher := threePageSite()
	delete(fetcher.pages, "https://www.example.org/item/2")
	store := newMemStore()

	pipe, err := runOnce(t, site, fetcher, store)
	require.NoError(t, err)
	assert.Equal(t, 2, pipe.Committed())
}

func TestWorkerDropsUnscrapablePages(t *testing.T) {
	site, fetcher := threePageSite()
	site.dropAll = true
	store := newMemStore()

	pipe, err := runOnce(t, site, fetcher, store)
	require.NoError(t, err)
	assert.Equal(t, 0, pipe.Committed())
}

func TestWorkerAbortsOnUnknownHost(t *testing.T) {
	site, fetcher := threePageSite()
	site.details["https://www.example.org/list"] = append(
		site.details["https://www.example.org/list"],
		"https://www.elsewhere.net/item/9",
	)
	store := newMemStore()

	_, err := runOnce(t, site, fetcher, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapter registered for host elsewhere.net")
}

func TestWorkerDoesNotRefetchVisitedURLs(t *testing.T) {
	site, fetcher := threePageSite()
	// the paginated page advertises the first page again
	site.pagination["https://www.example.org/list?page=2"] = []string{"https://www.example.org/list"}
	store := newMemStore()

	_, err := runOnce(t, site, fetcher, store)
	require.NoError(t, err)

	counts := make(map[string]int)
	for _, url := range fetcher.fetched {
		counts[url]++
	}
	for url, n := range counts {
		assert.Equal(t, 1, n, fmt.Sprintf("fetched %s %d times", url, n))
	}
}

func TestWorkerHonoursCancellation(t *testing.T) {
	site, fetcher := threePageSite()
	store := newMemStore()
	registry, err := scraper.NewRegistry(site.constructor())
	require.NoError(t, err)
	pipe, err := pipeline.New(context.Background(), store, publisher.Nop{}, 100)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewWorker(registry, fetcher, nil, pipe, 4, 2)
	err = w.Run(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}
