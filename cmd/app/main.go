package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wichananm65/priceflo-storefront/internal/admin"
	"github.com/wichananm65/priceflo-storefront/internal/ads"
	"github.com/wichananm65/priceflo-storefront/internal/affiliate"
	"github.com/wichananm65/priceflo-storefront/internal/analytics"
	"github.com/wichananm65/priceflo-storefront/internal/category"
	"github.com/wichananm65/priceflo-storefront/internal/config"
	"github.com/wichananm65/priceflo-storefront/internal/logging"
	"github.com/wichananm65/priceflo-storefront/internal/product"
	"github.com/wichananm65/priceflo-storefront/internal/refresh"
	"github.com/wichananm65/priceflo-storefront/internal/reports"
	"github.com/wichananm65/priceflo-storefront/internal/search"
	"github.com/wichananm65/priceflo-storefront/internal/stats"
	"github.com/wichananm65/priceflo-storefront/internal/upstream"
	"github.com/wichananm65/priceflo-storefront/internal/views"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	integrations, err := config.LoadIntegrations(cfg.IntegrationsFile)
	if err != nil {
		logger.Fatal("load integrations", zap.Error(err))
	}

	client := upstream.New(upstream.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		Retry:   cfg.Retry,
		Logger:  logger.Named("upstream"),
	})
	logger.Info("backend selected", zap.String("base_url", client.BaseURL()), zap.String("public_host", cfg.PublicHost))

	engine, err := views.NewEngine(views.NewFormatter(cfg.PriceLocale))
	if err != nil {
		logger.Fatal("load templates", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:               "priceflo-storefront",
		Views:                 engine,
		ErrorHandler:          views.ErrorHandler(logger),
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(logging.Middleware(logger))
	app.Use(compress.New())
	setupCORS(app)
	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   views.Static(),
		MaxAge: 3600,
	}))

	rewriter := affiliate.NewRewriter(integrations.Affiliates, logger.Named("affiliate"))
	statsCache := stats.NewCache(client, logger.Named("stats"))
	chrome := views.NewChrome(statsCache,
		ads.NewService(integrations.Ads, logger.Named("ads")),
		analytics.NewService(integrations.Analytics, logger.Named("analytics")))

	categoryService := category.NewService(category.NewAPIRepository(client), logger)
	category.NewHandler(categoryService).RegisterPublicRoutes(app)
	stats.NewHandler(statsCache).RegisterPublicRoutes(app)

	productService := product.NewService(product.NewAPIRepository(client), rewriter, logger.Named("product"), product.Options{
		Concurrency:     cfg.PriceConcurrency,
		StaleAfterHours: cfg.StaleAfterHours,
	})
	productHandler := product.NewHandler(productService, categoryService, chrome, search.NewDebouncer(search.DefaultWait), logger)
	productHandler.RegisterPublicRoutes(app)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()
		h, err := client.Health(ctx)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "degraded",
				"backend": upstream.Classify(err),
			})
		}
		return c.JSON(fiber.Map{"status": "ok", "backend": h})
	})

	adminCfg := cfg.Admin
	adminHandler := admin.NewHandler(admin.NewService(adminCfg), logger.Named("admin"))
	adminHandler.RegisterPublicRoutes(app)
	reports.NewHandler(reports.NewService(client, logger.Named("reports")), logger).
		RegisterProtectedRoutes(app, adminHandler.Middleware())
	if !adminCfg.Enabled() {
		logger.Warn("admin disabled: set ADMIN_USER, ADMIN_PASSWORD_HASH and JWT_SECRET to enable the report viewer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wg := &sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		refresh.Run(ctx, "stats", cfg.StatsRefresh, logger, statsCache.Refresh)
	}()
	go func() {
		defer wg.Done()
		refresh.Run(ctx, "affiliate", cfg.AffiliateRefresh, logger, func(ctx context.Context) error {
			return rewriter.Refresh(ctx, client)
		})
	}()

	go func() {
		logger.Info("server started", zap.String("addr", cfg.Addr))
		if err := app.Listen(cfg.Addr); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	wg.Wait()
	productService.Wait()
	logger.Info("graceful shutdown complete")
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
}
