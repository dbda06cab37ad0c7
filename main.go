package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/promoradar/config"
	"sjsage522/promoradar/internal/crawler"
	"sjsage522/promoradar/internal/expiry"
	"sjsage522/promoradar/internal/history"
	"sjsage522/promoradar/internal/promo"
	"sjsage522/promoradar/internal/radar"
	"sjsage522/promoradar/internal/snapshot"
	"sjsage522/promoradar/logger"
	"sjsage522/promoradar/services/cache"
	"sjsage522/promoradar/services/publisher"
	"sjsage522/promoradar/services/worker"

	"github.com/joho/godotenv"
)

func main() {
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

	brands, err := config.LoadBrands(cfg.BrandsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load brand catalog")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("scan_interval", cfg.ScanInterval).
		Int("brands", len(brands)).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	runner := newRunner(cfg, brands, services)
	w := worker.NewWorker(runner, cfg.ScanInterval, !cfg.IsProduction())

	// Start worker in a goroutine
	workerDone := make(chan struct{})
	go func() {
		log.Info().Int64("last_cycle", runner.Cycle()).Msg("Starting promo radar worker")
		w.Start(ctx)
		close(workerDone)
	}()

	// Wait for shutdown signal; SIGUSR1 requests a refresh
	for {
		sig := <-sigChan
		if sig == syscall.SIGUSR1 {
			if !w.Trigger() {
				log.Info().Msg("Refresh already pending")
			}
			continue
		}
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		break
	}
	cancel()

	// Graceful shutdown: an in-flight fetch is cancelled and the cycle stops before recording
	log.Info().Msg("Shutting down gracefully...")
	select {
	case <-workerDone:
	case <-time.After(cfg.FetchTimeout * 2):
		log.Warn().Msg("Worker did not stop in time")
	}
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	History   history.Store
	closers   []func() error
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			logger.Warn("Cleanup failed: %v", err)
		}
	}
}

// initializeServices initializes the history store and the optional cache and publisher
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	switch cfg.HistoryBackend {
	case "redis":
		store := history.NewRedisStore(cfg.RedisAddr, cfg.RedisDB, cfg.RedisHistoryKey)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, err
		}
		services.History = store
		services.closers = append(services.closers, store.Close)
		logger.Info("Deal history in Redis at %s (key: %s)", cfg.RedisAddr, cfg.RedisHistoryKey)
	default:
		store := history.OpenFileStore(cfg.HistoryFile)
		services.History = store
		logger.Info("Deal history in %s (%d deals tracked)", cfg.HistoryFile, store.Len())
	}

	// The block cache is optional; without it rate-limited brands are retried every cycle
	if cfg.MemcacheAddr != "" {
		cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := cacheService.Ping(); err != nil {
			logger.Warn("Memcache at %s unreachable, block window disabled: %v", cfg.MemcacheAddr, err)
		} else {
			services.Cache = cacheService
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.PublishEnabled {
		redisPublisher := publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(ctx); err != nil {
			logger.Warn("Redis at %s unreachable, cycle events will fail: %v", cfg.RedisAddr, err)
		}
		services.Publisher = redisPublisher
		services.closers = append(services.closers, redisPublisher.Close)
		logger.Info("Publishing cycle events to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	return services, nil
}

// newRunner wires the extraction pipeline into a cycle runner
func newRunner(cfg *config.Config, brands []config.BrandTarget, services *Services) *radar.Runner {
	extractor := promo.NewExtractor(nil, promo.Options{
		MaxPromoLength: cfg.MaxPromoLength,
		MinScore:       cfg.MinCandidateScore,
		HexGuardLength: cfg.HexGuardLength,
	})
	scanner := crawler.NewBrandScanner(extractor, nil, services.Cache, cfg.FetchTimeout, cfg.BlockTime)

	inferrer := expiry.New(time.Duration(cfg.LimitedTimeDays) * 24 * time.Hour)
	tracker := history.NewTracker(services.History, history.DefaultPolicy(), inferrer)
	persister := snapshot.NewPersister(cfg.SnapshotFile, cfg.PersistRetries)

	return radar.NewRunner(brands, scanner, tracker, persister, radar.Options{
		ScanDelay: cfg.ScanDelay,
		Publisher: services.Publisher,
	})
}
