package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/voucher-ledger-system/internal/cache"
	"github.com/fairyhunter13/voucher-ledger-system/internal/config"
	"github.com/fairyhunter13/voucher-ledger-system/internal/external"
	"github.com/fairyhunter13/voucher-ledger-system/internal/handler"
	"github.com/fairyhunter13/voucher-ledger-system/internal/repository"
	"github.com/fairyhunter13/voucher-ledger-system/internal/service"
	"github.com/fairyhunter13/voucher-ledger-system/internal/validator"
	"github.com/fairyhunter13/voucher-ledger-system/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// The snapshot cache is optional: the ledger row stays the source of
	// truth, so an unreachable Redis only costs read performance.
	var snapshotCache *cache.SnapshotCache
	var observers []service.RedemptionObserver
	if cfg.Redis.Enabled {
		redisClient, err := cache.Connect(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without snapshot cache")
		} else {
			snapshotCache = cache.New(redisClient, time.Duration(cfg.Redis.TTLSeconds)*time.Second)
			observers = append(observers, cache.NewInvalidator(snapshotCache))
			defer func() { _ = redisClient.Close() }()
		}
	}

	externalTimeout := time.Duration(cfg.External.TimeoutSeconds) * time.Second
	catalog := external.NewCatalogClient(external.NewClient(cfg.External.CatalogURL, externalTimeout))
	taxEngine := external.NewTaxClient(external.NewClient(cfg.External.TaxURL, externalTimeout))
	orders := external.NewOrderClient(external.NewClient(cfg.External.OrdersURL, externalTimeout))
	customers := external.NewCustomerClient(external.NewClient(cfg.External.CustomersURL, externalTimeout))
	renderer := external.NewRendererClient(external.NewClient(cfg.External.RendererURL, externalTimeout))

	voucherRepo := repository.NewVoucherRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)

	store := service.StoreSettings{
		Currency: cfg.Store.Currency,
		Jurisdiction: service.Jurisdiction{
			Country:  cfg.Store.Country,
			State:    cfg.Store.State,
			Postcode: cfg.Store.Postcode,
			City:     cfg.Store.City,
		},
	}

	// The artifact trigger observes mutations and is wired into the service
	// below; its recorder is the service itself, so construction happens in
	// two steps.
	var cacheIface service.SnapshotCacheInterface
	if snapshotCache != nil {
		cacheIface = snapshotCache
	}
	voucherService := service.NewVoucherService(
		pool, voucherRepo, templateRepo, catalog, taxEngine, orders, customers, store, cacheIface, observers...)

	artifactTrigger := service.NewArtifactTrigger(
		renderer, voucherService,
		cfg.Artifact.QueueSize, time.Duration(cfg.Artifact.TimeoutSeconds)*time.Second)
	go artifactTrigger.Start(ctx)

	allObservers := append(observers, artifactTrigger)
	voucherService = service.NewVoucherService(
		pool, voucherRepo, templateRepo, catalog, taxEngine, orders, customers, store, cacheIface, allObservers...)
	checkoutService := service.NewCheckoutService(pool, voucherRepo, templateRepo, allObservers...)

	sweepService := service.NewSweepService(pool, voucherRepo)
	go sweepService.Start(ctx, time.Duration(cfg.Sweep.IntervalSeconds)*time.Second)

	app := fiber.New(fiber.Config{
		AppName:      "Voucher Ledger System",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	validate := validator.New()
	voucherHandler := handler.NewVoucherHandler(voucherService, validate)
	templateHandler := handler.NewTemplateHandler(voucherService, validate)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, validate)
	healthHandler := handler.NewHealthHandler(pool)

	app.Get("/health", healthHandler.Check)

	app.Post("/api/templates", templateHandler.Create)
	app.Get("/api/templates/:id", templateHandler.Get)

	app.Post("/api/vouchers", voucherHandler.Issue)
	app.Get("/api/vouchers/:id", voucherHandler.Get)
	app.Post("/api/vouchers/:id/redeem", voucherHandler.Redeem)
	app.Put("/api/vouchers/:id/redemptions", voucherHandler.SetRedemptions)
	app.Post("/api/vouchers/:id/void", voucherHandler.Void)
	app.Post("/api/vouchers/:id/restore", voucherHandler.Restore)
	app.Post("/api/vouchers/:id/activate", voucherHandler.Activate)
	app.Post("/api/vouchers/:id/recalculate-tax", voucherHandler.RecalculateTax)

	app.Get("/api/checkout/coupons/:code", checkoutHandler.GetCoupon)
	app.Post("/api/orders/:id/status", checkoutHandler.OrderStatus)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	cancel() // stop sweep and artifact workers

	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
