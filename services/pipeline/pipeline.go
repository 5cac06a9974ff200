package pipeline

import (
	"context"
	"encoding/json"

	"estatescrapers/internal/scraper"
	"estatescrapers/logger"
	"estatescrapers/services/publisher"
	"estatescrapers/storage"
)

// DefaultBatchSize is the number of buffered records per storage commit
const DefaultBatchSize = 100

// Pipeline filters out records committed in previous runs and writes the
// rest to storage in fixed-size batches. It is owned by a single goroutine;
// none of its methods are safe for concurrent use.
type Pipeline struct {
	store     storage.Store
	pub       publisher.Publisher
	seen      map[string]struct{}
	buffer    []*scraper.RealEstate
	batchSize int
	log       *logger.Logger

	committed  int
	duplicates int
	invalid    int
}

// New creates a pipeline. The seen-URL set is loaded once here and stays
// read-only for the whole run, so duplicates within a single run are not
// caught — only records committed by earlier runs are.
func New(ctx context.Context, store storage.Store, pub publisher.Publisher, batchSize int) (*Pipeline, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	seen, err := store.SeenURLs(ctx)
	if err != nil {
		return nil, err
	}
	log := logger.ForComponent("pipeline")
	log.Debug().Int("seen_urls", len(seen)).Msg("Loaded previously scraped urls")
	return &Pipeline{
		store:     store,
		pub:       pub,
		seen:      seen,
		buffer:    make([]*scraper.RealEstate, 0, batchSize),
		batchSize: batchSize,
		log:       log,
	}, nil
}

// IsNew reports whether the record's scrape URL was absent from storage
// when the run started
func (p *Pipeline) IsNew(record *scraper.RealEstate) bool {
	_, exists := p.seen[record.ScrapeURL]
	return !exists
}

// Process validates and buffers one record, committing a batch whenever the
// threshold is reached. Duplicate records are dropped silently; invalid
// records are dropped with a log line. Storage errors propagate and abort
// the run.
func (p *Pipeline) Process(ctx context.Context, record *scraper.RealEstate) error {
	if err := record.Validate(); err != nil {
		p.invalid++
		p.log.Warn().Err(err).Str("url", record.ScrapeURL).Msg("Dropping invalid record")
		return nil
	}
	if !p.IsNew(record) {
		p.duplicates++
		return nil
	}

	p.buffer = append(p.buffer, record)
	if len(p.buffer) >= p.batchSize {
		return p.flush(ctx)
	}
	return nil
}

// flush commits the buffered records in one transaction and publishes them
func (p *Pipeline) flush(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}
	batch := p.buffer
	if err := p.store.WriteBatch(ctx, batch); err != nil {
		return err
	}
	p.committed += len(batch)
	p.buffer = p.buffer[:0]

	for _, record := range batch {
		payload, err := json.Marshal(record)
		if err != nil {
			p.log.Error().Err(err).Str("url", record.ScrapeURL).Msg("Failed to marshal record for publishing")
			continue
		}
		if err := p.pub.Publish(hostOf(record.ScrapeURL), payload); err != nil {
			p.log.Error().Err(err).Str("url", record.ScrapeURL).Msg("Failed to publish record")
		}
	}
	return nil
}

// Close flushes the remaining partial batch. The storage connection itself
// is closed by the caller that opened it.
func (p *Pipeline) Close(ctx context.Context) error {
	if err := p.flush(ctx); err != nil {
		return err
	}
	p.log.Info().
		Int("committed", p.committed).
		Int("duplicates", p.duplicates).
		Int("invalid", p.invalid).
		Msg("Pipeline closed")
	return nil
}

// Committed returns the number of records committed so far
func (p *Pipeline) Committed() int {
	return p.committed
}

// Duplicates returns the number of records dropped as already scraped
func (p *Pipeline) Duplicates() int {
	return p.duplicates
}

func hostOf(rawURL string) string {
	page, err := scraper.NewPage(rawURL, nil)
	if err != nil {
		return ""
	}
	return page.Host()
}
