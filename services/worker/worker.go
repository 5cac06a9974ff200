package worker

import (
	"context"
	"net/url"

	"estatescrapers/internal/scraper"
	"estatescrapers/logger"
	apperr "estatescrapers/pkg/errors"
	"estatescrapers/services/pipeline"
)

type pageKind int

const (
	pageHome pageKind = iota
	pageList
	pageDetail
)

// task is one URL waiting to be fetched
type task struct {
	kind    pageKind
	url     string
	host    string
	domain  string
	dynamic bool
}

// result is one finished fetch handed back to the orchestrator
type result struct {
	task task
	page *scraper.Page
	err  error
}

// Worker drives one crawl run: home pages produce list pages, list pages
// produce further list pages and detail pages, detail pages produce records.
// Fetches run concurrently under a global and a per-host limit; everything
// else, extraction included, happens on the goroutine running Run, so
// adapters and the pipeline never see concurrent calls.
type Worker struct {
	registry *scraper.Registry
	fetcher  scraper.Fetcher
	dynamic  scraper.Fetcher
	pipe     *pipeline.Pipeline
	log      *logger.Logger

	concurrency int
	perHost     int

	fetched int
	dropped int
}

// NewWorker creates a worker. dynamic may be nil when no registered site
// needs a script-executing fetch; such sites then fall back to the plain
// fetcher.
func NewWorker(
	registry *scraper.Registry,
	fetcher scraper.Fetcher,
	dynamic scraper.Fetcher,
	pipe *pipeline.Pipeline,
	concurrency int,
	perHost int,
) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if perHost < 1 {
		perHost = 1
	}
	return &Worker{
		registry:    registry,
		fetcher:     fetcher,
		dynamic:     dynamic,
		pipe:        pipe,
		log:         logger.ForComponent("worker"),
		concurrency: concurrency,
		perHost:     perHost,
	}
}

// Run crawls all registered sites, or just onlyDomain when set, until no
// pages remain or ctx is cancelled. Configuration and storage errors abort
// the run; everything else drops the affected page and continues.
func (w *Worker) Run(ctx context.Context, onlyDomain string) error {
	entries, err := w.registry.Entries(onlyDomain)
	if err != nil {
		return err
	}

	visited := make(map[string]struct{})
	var pending []task
	for _, entry := range entries {
		t := task{
			kind:    pageHome,
			url:     entry.URL,
			host:    hostOf(entry.URL),
			domain:  entry.Domain,
			dynamic: entry.Dynamic,
		}
		visited[t.url] = struct{}{}
		pending = append(pending, t)
	}

	results := make(chan result, w.concurrency)
	hostSlots := make(map[string]chan struct{})
	inflight := 0

	dispatch := func(t task) {
		slots, ok := hostSlots[t.host]
		if !ok {
			slots = make(chan struct{}, w.perHost)
			hostSlots[t.host] = slots
		}
		go func() {
			slots <- struct{}{}
			defer func() { <-slots }()
			page, err := w.fetcherFor(t).Fetch(ctx, t.url)
			results <- result{task: t, page: page, err: err}
		}()
	}

	var runErr error
	for inflight > 0 || (len(pending) > 0 && ctx.Err() == nil && runErr == nil) {
		for len(pending) > 0 && inflight < w.concurrency && ctx.Err() == nil && runErr == nil {
			dispatch(pending[0])
			pending = pending[1:]
			inflight++
		}
		if inflight == 0 {
			break
		}

		res := <-results
		inflight--
		w.fetched++
		if ctx.Err() != nil || runErr != nil {
			continue // drain in-flight fetches, stop producing work
		}

		next, err := w.process(ctx, res)
		if err != nil {
			runErr = err
			continue
		}
		for _, t := range next {
			if _, seen := visited[t.url]; seen {
				continue
			}
			visited[t.url] = struct{}{}
			pending = append(pending, t)
		}
	}

	if runErr != nil {
		return runErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	w.log.Info().
		Int("pages_fetched", w.fetched).
		Int("pages_dropped", w.dropped).
		Int("records_committed", w.pipe.Committed()).
		Msg("Crawl run finished")
	return nil
}

func (w *Worker) fetcherFor(t task) scraper.Fetcher {
	if t.dynamic && w.dynamic != nil {
		return w.dynamic
	}
	return w.fetcher
}

// process handles one fetched page and returns the follow-up tasks. A
// returned error aborts the run.
func (w *Worker) process(ctx context.Context, res result) ([]task, error) {
	t := res.task
	log := w.log.WithField("site", t.domain)

	if res.err != nil {
		if apperr.IsFatal(res.err) {
			return nil, res.err
		}
		w.dropped++
		log.Warn().Err(res.err).Str("url", t.url).Msg("Fetch failed, dropping page")
		return nil, nil
	}

	adapter, err := w.registry.Lookup(res.page.Host())
	if err != nil {
		// the crawl only follows urls produced by registered adapters
		return nil, err
	}

	switch t.kind {
	case pageHome:
		urls, err := adapter.Home.ListURLs(res.page)
		if err != nil {
			if apperr.IsFatal(err) {
				return nil, err
			}
			w.dropped++
			log.Warn().Err(err).Str("url", t.url).Msg("Home page extraction failed, dropping page")
			return nil, nil
		}
		log.Debug().Int("list_urls", len(urls)).Str("url", t.url).Msg("Home page parsed")
		return w.followUps(pageList, urls)

	case pageList:
		var next []task
		paginated, err := adapter.List.PaginationURLs(res.page)
		switch {
		case err != nil && apperr.IsFatal(err):
			return nil, err
		case err != nil:
			// a malformed count costs this page's pagination, nothing else
			log.Warn().Err(err).Str("url", t.url).Msg("Pagination dropped")
		default:
			tasks, err := w.followUps(pageList, paginated)
			if err != nil {
				return nil, err
			}
			next = append(next, tasks...)
		}

		details, err := adapter.List.DetailURLs(res.page)
		if err != nil {
			if apperr.IsFatal(err) {
				return nil, err
			}
			w.dropped++
			log.Warn().Err(err).Str("url", t.url).Msg("List page extraction failed, dropping page")
			return next, nil
		}
		tasks, err := w.followUps(pageDetail, details)
		if err != nil {
			return nil, err
		}
		return append(next, tasks...), nil

	case pageDetail:
		record, err := adapter.Detail.Extract(res.page)
		if err != nil {
			switch {
			case apperr.IsDrop(err):
				w.dropped++
				log.Debug().Err(err).Str("url", t.url).Msg("Page dropped")
			case apperr.IsFatal(err):
				return nil, err
			default:
				w.dropped++
				log.Warn().Err(err).Str("url", t.url).Msg("Detail extraction failed, dropping page")
			}
			return nil, nil
		}
		if err := w.pipe.Process(ctx, record); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// followUps routes produced urls to their owning adapters. A url whose host
// no registered adapter owns aborts the run.
func (w *Worker) followUps(kind pageKind, urls []string) ([]task, error) {
	tasks := make([]task, 0, len(urls))
	for _, rawURL := range urls {
		host := hostOf(rawURL)
		adapter, err := w.registry.Lookup(host)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task{
			kind:    kind,
			url:     rawURL,
			host:    host,
			domain:  adapter.Home.Domain(),
			dynamic: adapter.Home.DynamicFetch(),
		})
	}
	return tasks, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return scraper.NormalizeHost(u.Host)
}
