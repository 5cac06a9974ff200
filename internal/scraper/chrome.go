package scraper

import (
	"context"
	"time"

	apperr "estatescrapers/pkg/errors"

	"github.com/chromedp/chromedp"
)

// ChromeFetcher renders pages in a headless browser for sites whose home
// page declares DynamicFetch. One browser process serves the whole run.
type ChromeFetcher struct {
	allocCtx context.Context
	cancels  []context.CancelFunc
	timeout  time.Duration
}

// NewChromeFetcher starts a headless browser allocator
func NewChromeFetcher(timeout time.Duration, chromeBin string) *ChromeFetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgents[0]),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	return &ChromeFetcher{
		allocCtx: browserCtx,
		cancels:  []context.CancelFunc{cancelBrowser, cancelAlloc},
		timeout:  timeout,
	}
}

// Fetch navigates to the URL, waits for the document to settle and returns
// the rendered markup
func (f *ChromeFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	page, err := NewPage(rawURL, nil)
	if err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(f.allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.timeout)
	defer cancelTimeout()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancelTab()
		case <-done:
		}
	}()
	defer close(done)

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, apperr.NewFetch(page.Host(), "browser fetch failed for "+rawURL, err)
	}

	page.Body = []byte(html)
	return page, nil
}

// Close shuts the browser down
func (f *ChromeFetcher) Close() {
	for _, cancel := range f.cancels {
		cancel()
	}
}
