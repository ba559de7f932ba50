package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dealmungchi/dealhound/config"
	"github.com/dealmungchi/dealhound/internal/deal"
	"github.com/dealmungchi/dealhound/logger"
	"github.com/dealmungchi/dealhound/services/affiliate"
	"github.com/dealmungchi/dealhound/services/bridge"
	"github.com/dealmungchi/dealhound/services/cache"
	"github.com/dealmungchi/dealhound/services/collector"
	"github.com/dealmungchi/dealhound/services/extractor"
	"github.com/dealmungchi/dealhound/services/hotlist"
	"github.com/dealmungchi/dealhound/services/store"
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

	log.Info().
		Str("environment", cfg.Environment).
		Str("mode", cfg.PipelineMode).
		Dur("sweep_interval", cfg.SweepInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Load the static tables
	targets, err := deal.LoadTargets(cfg.TargetsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load targets")
	}
	affiliateTable, err := affiliate.LoadTable(cfg.AffiliateMapFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load affiliate map")
	}

	log.Info().
		Int("target_count", len(targets)).
		Int("affiliate_mappings", len(affiliateTable)).
		Msg("Static tables loaded")

	// Wire the pipeline
	ext := extractor.New(services.Completer, cfg.ExtractTimeout)
	b := bridge.New(services.Store, services.Store, ext, affiliate.NewResolver(affiliateTable), services.HotList, targets)

	coll := collector.New(targets, services.Store, services.Cache, cfg.FetchTimeout, cfg.ScanCooldown)
	if cfg.PipelineMode == config.ModeEvent {
		// Each collected scan is handed to the bridge as it arrives.
		coll.SetScanHandler(func(ctx context.Context, rec deal.ScanRecord) {
			if err := b.HandleScan(ctx, rec); err != nil {
				log.Error().Err(err).Str("scan_id", rec.ID).Msg("Scan left pending")
			}
		})
	}

	// Run the pipeline loop
	done := make(chan struct{})
	go func() {
		defer close(done)
		runPipeline(ctx, cfg, coll, b)
	}()

	// Wait for shutdown signal or pipeline exit
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-done
	case <-done:
	}

	log.Info().Msg("Shutting down gracefully...")
}

// runPipeline collects and processes on the configured interval until
// the context is cancelled.
func runPipeline(ctx context.Context, cfg config.Config, coll *collector.Collector, b *bridge.Bridge) {
	log := logger.ForComponent("pipeline")

	for {
		start := time.Now()

		coll.Run(ctx)
		if cfg.PipelineMode == config.ModeSweep {
			if err := b.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("Sweep failed")
			}
		}

		log.Debug().Dur("elapsed", time.Since(start)).Msg("Pipeline pass complete")

		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.SweepInterval):
		}
	}
}

// Services holds all the initialized services
type Services struct {
	Store     *store.Postgres
	Cache     cache.CacheService
	HotList   hotlist.Publisher
	Completer *extractor.GeminiCompleter
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.HotList != nil {
		s.HotList.Close()
	}
	if s.Completer != nil {
		s.Completer.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg config.Config) (*Services, error) {
	services := &Services{}

	// Initialize the scan/deal store
	pg, err := store.NewPostgres(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("failed to migrate store: %w", err)
	}
	services.Store = pg

	logger.Info("Connected to Postgres")

	// Initialize the cooldown cache
	services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)

	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	// Initialize the hot-list publisher
	services.HotList = hotlist.NewRedisPublisher(
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.HotListKey,
		cfg.HotListCapacity,
	)

	logger.Info("Connected to Redis at %s (DB: %d, Key: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.HotListKey)

	// Initialize the completion client
	completer, err := extractor.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		services.Cleanup()
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}
	services.Completer = completer

	logger.Info("Completion client ready (model: %s)", cfg.GeminiModel)

	return services, nil
}
