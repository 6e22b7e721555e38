package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/startrader-api/internal/arbitrage"
	"github.com/ksred/startrader-api/internal/auth"
	"github.com/ksred/startrader-api/internal/cache"
	"github.com/ksred/startrader-api/internal/config"
	"github.com/ksred/startrader-api/internal/database"
	"github.com/ksred/startrader-api/internal/gateway"
	"github.com/ksred/startrader-api/internal/history"
	"github.com/ksred/startrader-api/internal/markets"
	"github.com/ksred/startrader-api/internal/names"
	"github.com/ksred/startrader-api/internal/positions"
	"github.com/ksred/startrader-api/internal/refresh"
	"github.com/ksred/startrader-api/internal/routing"
	"github.com/ksred/startrader-api/internal/ws"
	"github.com/ksred/startrader-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the market data API server with graceful
// shutdown support. It wires the upstream gateway, the snapshot cache and
// its refresh scheduler, the derivation services, and the API routes.
func main() {
	// Load .env if present; real environment variables take precedence
	if err := godotenv.Load(); err != nil {
		zlog.Debug().Msg("no .env file found, using environment")
	}

	cfg := config.Load()

	// Initialize database
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Select the upstream gateway
	var client gateway.Client
	if cfg.UpstreamMode == "live" {
		client = gateway.NewHTTPClient(cfg.UpstreamBaseURL, cfg.UpstreamAPIKey, cfg.UpstreamTimeout)
		zlog.Info().Str("base_url", cfg.UpstreamBaseURL).Msg("using live upstream gateway")
	} else {
		client = gateway.NewSimulatedClient()
		zlog.Info().Msg("using simulated upstream gateway")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)
	authService.RegisterAdminCredentials(auth.AdminAPIKey, auth.AdminAPISecret)

	snapshots := cache.NewSnapshotCache(cfg.MaxCacheAge)
	nameService := names.NewService(client)
	locations := positions.NewResolver(client, nil)

	scheduler := refresh.NewScheduler(client, snapshots, nameService, locations, refresh.Config{
		Interval:             cfg.RefreshInterval,
		StartupDelay:         cfg.StartupDelay,
		CallTimeout:          cfg.CallTimeout,
		MaxRetryAttempts:     cfg.MaxRetryAttempts,
		BaseBackoff:          cfg.BaseBackoff,
		MaxBackoff:           cfg.MaxBackoff,
		MaxRequestsPerMinute: cfg.MaxRequestsPerMinute,
		FailureThreshold:     cfg.MaxConsecutiveFailures,
		CircuitCooldown:      cfg.CircuitCooldown,
		TopOpportunities:     cfg.TopOpportunities,
	})

	engineService := arbitrage.NewService(snapshots)
	engineHandlers := arbitrage.NewGinHandlers(engineService)

	routingService := routing.NewService(snapshots, engineService)
	routingHandlers := routing.NewGinHandlers(routingService)

	historyService := history.NewService(db)
	historyHandlers := history.NewGinHandlers(historyService)

	hub := ws.NewHub()

	scheduler.SetHistory(historyService)
	scheduler.SetEngine(engineService)
	scheduler.SetBroadcaster(hub)

	marketsService := markets.NewService(snapshots, scheduler, nameService, locations)
	marketsHandlers := markets.NewGinHandlers(marketsService)

	// Start the background refresh loop
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	defer schedulerCancel()

	go scheduler.Start(schedulerCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg, authHandlers, marketsHandlers, engineHandlers, routingHandlers, historyHandlers)

	// Health check and live feed sit outside the versioned API
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"stats":  marketsService.GetCacheStatistics(),
		})
	})
	router.GET("/ws", hub.ServeHandler())

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Stop the refresh loop, then give outstanding requests 5 seconds
	schedulerCancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Query routes: Protected by JWT authentication
// - Admin routes: Protected by JWT authentication with the admin permission
// Parameters:
//   - router: The main Gin router instance
//   - cfg: Runtime configuration (JWT secret)
//   - authHandlers: Handlers for authentication endpoints
//   - marketsHandlers: Handlers for market, order, and statistics queries
//   - engineHandlers: Handlers for profit opportunity searches
//   - routingHandlers: Handlers for route generation
//   - historyHandlers: Handlers for refresh history queries
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandlers *auth.GinHandlers,
	marketsHandlers *markets.GinHandlers,
	engineHandlers *arbitrage.GinHandlers,
	routingHandlers *routing.GinHandlers,
	historyHandlers *history.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Market and order queries
		marketsGroup := v1.Group("/markets")
		marketsGroup.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			marketsGroup.GET("", marketsHandlers.GetMarketsHandler())
			marketsGroup.GET("/:market_id", marketsHandlers.GetMarketHandler())
			marketsGroup.GET("/:market_id/orders", marketsHandlers.GetMarketOrdersHandler())
		}

		ordersGroup := v1.Group("/orders")
		ordersGroup.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			ordersGroup.GET("", marketsHandlers.GetOrdersHandler())
		}

		statisticsGroup := v1.Group("/statistics")
		statisticsGroup.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			statisticsGroup.GET("", marketsHandlers.GetStatisticsHandler())
		}

		// Profit opportunity searches
		opportunitiesGroup := v1.Group("/opportunities")
		opportunitiesGroup.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			opportunitiesGroup.GET("", engineHandlers.FindOpportunitiesHandler())
			opportunitiesGroup.GET("/paged", engineHandlers.PagedOpportunitiesHandler())
			opportunitiesGroup.GET("/export", engineHandlers.ExportOpportunitiesHandler())
		}

		// Route generation
		routesGroup := v1.Group("/routes")
		routesGroup.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			routesGroup.GET("", routingHandlers.GenerateRoutesHandler())
			routesGroup.GET("/from/:market_id", routingHandlers.RouteFromMarketHandler())
		}

		// Refresh history
		historyGroup := v1.Group("/history")
		historyGroup.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			historyGroup.GET("/refreshes", historyHandlers.RecentCyclesHandler())
			historyGroup.GET("/refreshes/:cycle_id", historyHandlers.CycleHandler())
			historyGroup.GET("/opportunities", historyHandlers.RecentOpportunitiesHandler())
		}

		// Admin routes
		adminGroup := v1.Group("/admin")
		adminGroup.Use(middleware.AdminAuth(cfg.JWTSecret))
		{
			adminGroup.POST("/refresh", marketsHandlers.ForceRefreshHandler())
			adminGroup.POST("/cache/clear", marketsHandlers.ClearCacheHandler())
		}
	}
}
