package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"estatescrapers/config"
	"estatescrapers/internal/scraper"
	"estatescrapers/logger"
	"estatescrapers/services/cache"
	"estatescrapers/services/pipeline"
	"estatescrapers/services/publisher"
	"estatescrapers/services/worker"
	"estatescrapers/storage"
)

func main() {
	onlyDomain := flag.String("domain", "", "restrict the run to one registered domain, e.g. immowelt.at")
	flag.Parse()

	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	registry, err := scraper.DefaultRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build adapter registry")
	}
	entries, err := registry.Entries(*onlyDomain)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid domain filter")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Strs("domains", registry.Domains()).
		Int("entry_urls", len(entries)).
		Msg("Starting crawl worker")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	store, err := storage.NewPostgres(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	defer store.Close()

	pub := newPublisher(ctx, cfg)
	defer pub.Close()

	pipe, err := pipeline.New(ctx, store, pub, cfg.BatchSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize pipeline")
	}

	fetcher := scraper.NewHTTPFetcher(cfg.RequestTimeout, newBlockCache(cfg), cache.DefaultBlockTime)
	var dynamic scraper.Fetcher
	if needsDynamicFetch(entries) {
		chrome := scraper.NewChromeFetcher(cfg.RequestTimeout, cfg.ChromeBin)
		defer chrome.Close()
		dynamic = chrome
	}

	w := worker.NewWorker(registry, fetcher, dynamic, pipe, cfg.Concurrency, cfg.PerHostConcurrency)
	runErr := w.Run(ctx, *onlyDomain)

	// Flush the partial batch even when the run was cancelled
	if err := pipe.Close(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to flush remaining records")
	}
	if err := pub.TrimStreams(); err != nil {
		log.Error().Err(err).Msg("Failed to trim streams")
	}

	switch {
	case runErr == context.Canceled:
		log.Info().Msg("Crawl cancelled, shut down gracefully")
	case runErr != nil:
		log.Fatal().Err(runErr).Msg("Crawl aborted")
	default:
		log.Info().Msg("Crawl finished")
	}
}

// newBlockCache returns the shared memcache rate-limit cache, falling back to
// the in-process cache when no memcache address is configured
func newBlockCache(cfg *config.Config) cache.Service {
	if cfg.MemcacheAddr == "" {
		return cache.NewMemoryService()
	}
	logger.Info("Using memcache block cache at %s", cfg.MemcacheAddr)
	return cache.NewMemcacheService(cfg.MemcacheAddr)
}

// newPublisher returns the Redis stream publisher, or a no-op when Redis is
// not configured
func newPublisher(ctx context.Context, cfg *config.Config) publisher.Publisher {
	if cfg.RedisAddr == "" {
		return publisher.Nop{}
	}
	logger.Info("Publishing to Redis at %s (DB: %d, Stream: %s)", cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	return publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamCount, cfg.RedisStreamMaxLength)
}

// needsDynamicFetch reports whether any selected entry needs the
// script-executing fetcher
func needsDynamicFetch(entries []scraper.Entry) bool {
	for _, entry := range entries {
		if entry.Dynamic {
			return true
		}
	}
	return false
}
