package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/freyja-cart/internal"
	"github.com/dukerupert/freyja-cart/internal/address"
	"github.com/dukerupert/freyja-cart/internal/billing"
	"github.com/dukerupert/freyja-cart/internal/cache"
	"github.com/dukerupert/freyja-cart/internal/cookie"
	"github.com/dukerupert/freyja-cart/internal/events"
	"github.com/dukerupert/freyja-cart/internal/handler"
	"github.com/dukerupert/freyja-cart/internal/memory"
	"github.com/dukerupert/freyja-cart/internal/middleware"
	"github.com/dukerupert/freyja-cart/internal/postgres"
	"github.com/dukerupert/freyja-cart/internal/repository"
	"github.com/dukerupert/freyja-cart/internal/router"
	"github.com/dukerupert/freyja-cart/internal/routes"
	"github.com/dukerupert/freyja-cart/internal/service"
	"github.com/dukerupert/freyja-cart/internal/shipping"
	"github.com/dukerupert/freyja-cart/internal/tax"
	"github.com/dukerupert/freyja-cart/internal/telemetry"
	"github.com/dukerupert/freyja-cart/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize Sentry
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Enabled:     cfg.Sentry.Enabled,
		Environment: cfg.Sentry.Environment,
		Release:     cfg.Sentry.Release,
		SampleRate:  cfg.Sentry.SampleRate,
		Debug:       cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Run migrations over database/sql, then serve from a pgx pool
	logger.Info().Msg("Running database migrations...")
	sqlDB, err := internal.OpenMigrationDB(cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	version, err := internal.RunMigrations(sqlDB, logger)
	sqlDB.Close()
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info().Int64("version", version).Msg("Database migrations completed successfully")

	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	repo := repository.New(pool)

	catalog := postgres.NewCatalog(repo)
	store := postgres.NewSessionStore(repo, cfg.Cart.TTL)
	ledger := postgres.NewReservationLedger(repo)
	coupons := postgres.NewCouponRepository(repo)

	healthChecks := map[string]handler.Pinger{
		"postgres": handler.PingFunc(pool.Ping),
	}

	// Redis fronts the session store and holds price overrides when configured
	var sessions service.SessionStore = store
	var overrides service.PriceOverrideCache = memory.NewPriceOverrides()
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable at startup, cache will fall through")
		}
		sessions = cache.NewSessionCache(store, rdb, cfg.Redis.CacheTTL, logger)
		overrides = cache.NewPriceOverrides(rdb, cfg.Cart.TTL)
		healthChecks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		logger.Info().Msg("Redis session cache enabled")
	}

	// NATS carries cart events when configured
	var publisher service.EventPublisher = events.Noop{}
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL, logger)
		if err != nil {
			return fmt.Errorf("nats connection failed: %w", err)
		}
		defer nc.Drain()

		publisher = events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix)
		healthChecks["nats"] = handler.PingFunc(func(ctx context.Context) error {
			if nc.Status() != nats.CONNECTED {
				return fmt.Errorf("nats status %s", nc.Status())
			}
			return nil
		})
		logger.Info().Msg("NATS event publishing enabled")
	}

	taxCalculator, err := newTaxCalculator(cfg, logger)
	if err != nil {
		return err
	}

	shippingProvider, err := newShippingProvider(cfg, logger)
	if err != nil {
		return err
	}

	var feeSources []service.FeeSource
	if cfg.Fees.SmallOrderCents > 0 {
		feeSources = append(feeSources, service.SmallOrderFee{
			AmountCents:    cfg.Fees.SmallOrderCents,
			ThresholdCents: cfg.Fees.SmallOrderThresholdCents,
		})
	}

	totals, err := service.NewTotalsCalculator(service.TotalsConfig{
		Tax:        taxCalculator,
		Shipping:   shippingProvider,
		Coupons:    coupons,
		Overrides:  overrides,
		FeeSources: feeSources,
		Currency:   cfg.Cart.Currency,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize totals calculator: %w", err)
	}

	// Metrics share one registry so /metrics serves both HTTP and cart series
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cartMetrics := telemetry.NewCartMetrics(cfg.Metrics.Namespace, registry)
	httpMetrics := middleware.NewMetrics(cfg.Metrics.Namespace, registry)

	cartService, err := service.NewCartService(service.CartServiceConfig{
		Sessions:    sessions,
		Catalog:     catalog,
		Ledger:      ledger,
		Totals:      totals,
		Overrides:   overrides,
		Coupons:     coupons,
		Events:      publisher,
		Metrics:     cartMetrics,
		Reporter:    telemetry.NewReporter(nil),
		Addresses:   address.NewBasicValidator(),
		Logger:      logger,
		MaxAttempts: cfg.Cart.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize cart service: %w", err)
	}

	// Background cleanup of expired carts and reservations
	cleanup := worker.NewWorker(map[string]worker.Sweeper{
		"carts":        worker.SweepFunc(store.DeleteExpiredCarts),
		"reservations": worker.SweepFunc(ledger.DeleteExpiredReservations),
	}, cartMetrics, worker.Config{Interval: cfg.Worker.CleanupInterval}, logger)
	go func() {
		if err := cleanup.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("cleanup worker stopped")
		}
	}()

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	e := router.New(router.Config{
		Logger:         logger,
		Metrics:        httpMetrics,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		Timeout:        cfg.HTTP.RequestTimeout,
	})

	cartHandler := handler.NewCartHandler(cartService, cfg.Cart.PriceOverrideSecret)
	if cfg.Cart.CookieEnabled {
		cartHandler.WithCookies(cookie.NewConfig(cfg.Cart.CookieDomain, cfg.Env == "prod", cfg.Cart.TTL))
	}

	deps := routes.CartDeps{
		CartHandler:    cartHandler,
		HealthHandler:  handler.NewHealthHandler(healthChecks),
		MetricsHandler: httpMetrics.Handler(),
	}
	routes.RegisterCartRoutes(e, deps)
	routes.RegisterOpsRoutes(e, deps)

	// ==========================================================================
	// Start server
	// ==========================================================================

	addr := fmt.Sprintf(":%d", cfg.Port)
	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", addr).Msg("Starting cart server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("Shutting down cart server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// newTaxCalculator builds the calculator named by TAX_PROVIDER.
func newTaxCalculator(cfg *internal.Config, logger zerolog.Logger) (tax.Calculator, error) {
	switch cfg.Tax.Provider {
	case "percentage":
		logger.Info().Float64("rate", cfg.Tax.Rate).Msg("Using percentage tax calculator")
		return tax.NewPercentageCalculator(cfg.Tax.Rate), nil
	case "stripe":
		calc, err := billing.NewStripeTaxCalculator(billing.StripeConfig{
			APIKey:   cfg.Tax.StripeSecretKey,
			Currency: cfg.Cart.Currency,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Stripe tax calculator: %w", err)
		}
		logger.Info().Msg("Using Stripe tax calculator")
		return calc, nil
	default:
		return tax.NewNoTaxCalculator(), nil
	}
}

func newShippingProvider(cfg *internal.Config, logger zerolog.Logger) (shipping.Provider, error) {
	if cfg.Shipping.Provider == "easypost" {
		origin := cfg.Shipping.Origin
		provider, err := shipping.NewEasyPostProvider(shipping.EasyPostConfig{
			APIKey: cfg.Shipping.EasyPostAPIKey,
			Origin: shipping.ShippingAddress{
				Line1:      origin.Line1,
				City:       origin.City,
				State:      origin.State,
				PostalCode: origin.PostalCode,
				Country:    origin.Country,
			},
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize EasyPost provider: %w", err)
		}
		logger.Info().Msg("Using EasyPost shipping rates")
		return provider, nil
	}
	return shipping.NewFlatRateProvider([]shipping.FlatRate{
		{ServiceName: "Standard Shipping", ServiceCode: "standard", CostCents: cfg.Shipping.StandardCents, DaysMin: 5, DaysMax: 7, FreeAboveCents: cfg.Shipping.FreeThresholdCents},
		{ServiceName: "Express Shipping", ServiceCode: "express", CostCents: cfg.Shipping.ExpressCents, DaysMin: 2, DaysMax: 3},
	}), nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
