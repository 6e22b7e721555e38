package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

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
)

const (
	numWorkers       = 5
	queriesPerWorker = 25
	serverAddress    = "http://localhost:8080"
	dataWaitTimeout  = 60 * time.Second
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	// Sort durations for percentile calculations
	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	// Calculate mean
	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	// Calculate median
	median = rs.durations[len(rs.durations)/2]

	// Calculate percentiles
	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the market data API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	mu        sync.Mutex
	stats     map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates with the API and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":          {name: "Authentication"},
			"markets":       {name: "List Markets"},
			"market":        {name: "Get Market"},
			"orders":        {name: "List Orders"},
			"opportunities": {name: "Find Opportunities"},
			"paged":         {name: "Paged Opportunities"},
			"routes":        {name: "Generate Routes"},
			"statistics":    {name: "Cache Statistics"},
			"history":       {name: "Refresh History"},
			"refresh":       {name: "Force Refresh"},
		},
	}

	// Get auth token (admin credentials so the forced refresh works too)
	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

func (sc *simulationClient) record(key string, start time.Time, failed bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	rs := sc.stats[key]
	rs.addDuration(time.Since(start))
	if failed {
		rs.failures++
	}
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate() (string, error) {
	start := time.Now()
	failed := false
	defer func() {
		sc.record("auth", start, failed)
	}()

	credentials := map[string]string{
		"api_key":    auth.AdminAPIKey,
		"api_secret": auth.AdminAPISecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		failed = true
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		failed = true
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		failed = true
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		failed = true
		return "", err
	}

	return result.Data.Token, nil
}

// doRequest performs an authenticated request and returns the response body.
// Every endpoint helper funnels through here so timing and failure counting
// stay consistent.
func (sc *simulationClient) doRequest(method, path, statsKey string) ([]byte, error) {
	start := time.Now()
	failed := false
	defer func() {
		sc.record(statsKey, start, failed)
	}()

	req, err := http.NewRequest(method, sc.baseURL+path, nil)
	if err != nil {
		failed = true
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.New().String())
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		failed = true
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		failed = true
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		failed = true
		return nil, fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// listMarkets retrieves all cached markets
func (sc *simulationClient) listMarkets() ([]marketSummary, error) {
	respBody, err := sc.doRequest("GET", "/api/v1/markets", "markets")
	if err != nil {
		return nil, err
	}

	var result struct {
		Data struct {
			Markets []marketSummary `json:"markets"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Data.Markets, nil
}

type marketSummary struct {
	MarketID   int64  `json:"market_id"`
	Name       string `json:"name"`
	PlanetName string `json:"planet_name"`
}

// getMarket retrieves a single market by ID
func (sc *simulationClient) getMarket(marketID int64) error {
	_, err := sc.doRequest("GET", fmt.Sprintf("/api/v1/markets/%d", marketID), "market")
	return err
}

// listOrders retrieves all cached orders
func (sc *simulationClient) listOrders() (int, error) {
	respBody, err := sc.doRequest("GET", "/api/v1/orders", "orders")
	if err != nil {
		return 0, err
	}

	var result struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Data.Count, nil
}

type opportunitySummary struct {
	ItemName     string  `json:"item_name"`
	TotalProfit  int64   `json:"total_profit"`
	MarginPct    float64 `json:"margin_percent"`
	SourceMarket string  `json:"source_market"`
	DestMarket   string  `json:"dest_market"`
	DistanceKm   float64 `json:"distance_km"`
}

// findOpportunities runs an opportunity search with the given query string
func (sc *simulationClient) findOpportunities(query string) ([]opportunitySummary, error) {
	respBody, err := sc.doRequest("GET", "/api/v1/opportunities"+query, "opportunities")
	if err != nil {
		return nil, err
	}

	var result struct {
		Data struct {
			Opportunities []opportunitySummary `json:"opportunities"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Data.Opportunities, nil
}

// pagedOpportunities runs a paginated opportunity search
func (sc *simulationClient) pagedOpportunities(page int) error {
	_, err := sc.doRequest("GET", fmt.Sprintf("/api/v1/opportunities/paged?page=%d&page_size=5", page), "paged")
	return err
}

type routeSummary struct {
	StartMarket   string  `json:"start_market"`
	Opportunities int     `json:"opportunities"`
	TotalProfit   int64   `json:"total_profit"`
	TotalDistance float64 `json:"total_distance_km"`
}

// generateRoutes asks the optimizer for trade routes
func (sc *simulationClient) generateRoutes(maxRoutes, maxStops int) ([]routeSummary, error) {
	respBody, err := sc.doRequest("GET",
		fmt.Sprintf("/api/v1/routes?max_routes=%d&max_stops=%d", maxRoutes, maxStops), "routes")
	if err != nil {
		return nil, err
	}

	var result struct {
		Data struct {
			Routes []routeSummary `json:"routes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Data.Routes, nil
}

type statisticsSummary struct {
	MarketCount         int     `json:"market_count"`
	OrderCount          int     `json:"order_count"`
	CacheAgeSeconds     float64 `json:"cache_age_seconds"`
	Stale               bool    `json:"stale"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	PartialFailures     int     `json:"partial_failures"`
	UpstreamAvailable   bool    `json:"upstream_available"`
	CircuitState        string  `json:"circuit_state"`
}

// getStatistics retrieves the cache health summary
func (sc *simulationClient) getStatistics() (*statisticsSummary, error) {
	respBody, err := sc.doRequest("GET", "/api/v1/statistics", "statistics")
	if err != nil {
		return nil, err
	}

	var result struct {
		Data statisticsSummary `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result.Data, nil
}

// recentHistory retrieves the recent refresh cycles
func (sc *simulationClient) recentHistory() error {
	_, err := sc.doRequest("GET", "/api/v1/history/refreshes?limit=5", "history")
	return err
}

// forceRefresh triggers an immediate refresh cycle
func (sc *simulationClient) forceRefresh() (string, error) {
	respBody, err := sc.doRequest("POST", "/api/v1/admin/refresh", "refresh")
	if err != nil {
		return "", err
	}

	var result struct {
		Data struct {
			Outcome          string `json:"outcome"`
			MarketsProcessed int    `json:"markets_processed"`
			OrdersFetched    int    `json:"orders_fetched"`
			DurationMs       int64  `json:"duration_ms"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	log.Info().
		Str("outcome", result.Data.Outcome).
		Int("markets_processed", result.Data.MarketsProcessed).
		Int("orders_fetched", result.Data.OrdersFetched).
		Int64("duration_ms", result.Data.DurationMs).
		Msg("Forced refresh complete")

	return result.Data.Outcome, nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\n📊 API Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the market data simulation
// It starts a local API server against the simulated upstream, primes the
// cache with a forced refresh, and hammers the query endpoints from
// concurrent workers
func main() {
	// Start the server in a goroutine
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	// Initialize simulation client
	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	// Prime the cache with an immediate refresh instead of waiting for the
	// scheduled cycle
	if _, err := simClient.forceRefresh(); err != nil {
		log.Warn().Err(err).Msg("Initial forced refresh failed, waiting for scheduled cycle")
	}

	if err := waitForData(simClient); err != nil {
		log.Fatal().Err(err).Msg("Cache never received data")
	}

	stats := struct {
		TotalQueries    int
		FailedQueries   int
		Opportunities   int
		BestProfit      int64
		BestItem        string
		RoutesGenerated int
		StartTime       time.Time
		Items           map[string]int
		Planets         map[string]int
	}{
		StartTime: time.Now(),
		Items:     make(map[string]int),
		Planets:   make(map[string]int),
	}
	var statsMu sync.Mutex

	// Collect the market list once so workers can query real IDs
	marketList, err := simClient.listMarkets()
	if err != nil || len(marketList) == 0 {
		log.Fatal().Err(err).Msg("Failed to list markets")
	}
	for _, m := range marketList {
		stats.Planets[m.PlanetName]++
	}

	log.Info().Int("markets", len(marketList)).Msg("Starting query workers")

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runQueryWorker(workerID, simClient, marketList, func(opps []opportunitySummary, routes []routeSummary, failed bool) {
				statsMu.Lock()
				defer statsMu.Unlock()
				stats.TotalQueries++
				if failed {
					stats.FailedQueries++
				}
				for _, opp := range opps {
					stats.Items[opp.ItemName]++
					if opp.TotalProfit > stats.BestProfit {
						stats.BestProfit = opp.TotalProfit
						stats.BestItem = opp.ItemName
					}
				}
				if len(opps) > stats.Opportunities {
					stats.Opportunities = len(opps)
				}
				stats.RoutesGenerated += len(routes)
			})
		}(i)
	}

	wg.Wait()

	// One more refresh so the history endpoints have multiple cycles
	if _, err := simClient.forceRefresh(); err != nil {
		log.Warn().Err(err).Msg("Final forced refresh failed")
	}

	finalStats, err := simClient.getStatistics()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read final statistics")
		finalStats = &statisticsSummary{}
	}

	// Print summary
	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("🚀 MARKET DATA SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
📊 Query Statistics
------------------
Total Queries:    %d
Failed Queries:   %d
Markets Cached:   %d
Orders Cached:    %d
Max Opportunities:%d
Routes Generated: %d
Best Single Trade:%d (%s)
Circuit State:    %s
Cache Stale:      %v
Duration:         %v

📈 Opportunity Item Distribution
--------------------
`, stats.TotalQueries, stats.FailedQueries, finalStats.MarketCount, finalStats.OrderCount,
		stats.Opportunities, stats.RoutesGenerated, stats.BestProfit, stats.BestItem,
		finalStats.CircuitState, finalStats.Stale, duration.Round(time.Millisecond))

	// Print item distribution with simple ASCII bar chart
	maxItemCount := 0
	for _, count := range stats.Items {
		if count > maxItemCount {
			maxItemCount = count
		}
	}

	for item, count := range stats.Items {
		barLength := int(float64(count) / float64(maxItemCount) * 20)
		bar := strings.Repeat("█", barLength)
		fmt.Printf("%-16s: %s (%d)\n", item, bar, count)
	}

	fmt.Println("\n📉 Markets per Planet")
	fmt.Println("------------------")
	for planet, count := range stats.Planets {
		barLength := int(float64(count) / float64(len(marketList)) * 20)
		bar := strings.Repeat("█", barLength)
		fmt.Printf("%-12s: %s (%d)\n", planet, bar, count)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	// Success rate calculation
	successRate := 100.0
	if stats.TotalQueries > 0 {
		successRate = float64(stats.TotalQueries-stats.FailedQueries) / float64(stats.TotalQueries) * 100
	}
	log.Info().
		Float64("success_rate", successRate).
		Int("total_queries", stats.TotalQueries).
		Int("failed_queries", stats.FailedQueries).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// waitForData polls the statistics endpoint until the cache holds at least
// one market
func waitForData(simClient *simulationClient) error {
	deadline := time.Now().Add(dataWaitTimeout)
	for time.Now().Before(deadline) {
		stats, err := simClient.getStatistics()
		if err == nil && stats.MarketCount > 0 {
			log.Info().
				Int("market_count", stats.MarketCount).
				Int("order_count", stats.OrderCount).
				Msg("Cache primed")
			return nil
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("no markets cached within %s", dataWaitTimeout)
}

// runQueryWorker hammers the query endpoints with randomized requests
// Runs as a worker goroutine, reporting each query's result via report
func runQueryWorker(workerID int, simClient *simulationClient, marketList []marketSummary, report func([]opportunitySummary, []routeSummary, bool)) {
	sortKeys := []string{"total_profit", "margin", "profit_per_unit", "distance"}

	for i := 0; i < queriesPerWorker; i++ {
		var opps []opportunitySummary
		var routes []routeSummary
		var err error

		switch rand.Intn(8) {
		case 0:
			_, err = simClient.listMarkets()
		case 1:
			market := marketList[rand.Intn(len(marketList))]
			err = simClient.getMarket(market.MarketID)
		case 2:
			_, err = simClient.listOrders()
		case 3:
			query := fmt.Sprintf("?sort_by=%s&limit=20", sortKeys[rand.Intn(len(sortKeys))])
			if rand.Intn(2) == 0 {
				query += fmt.Sprintf("&min_margin=%d", rand.Intn(20))
			}
			opps, err = simClient.findOpportunities(query)
		case 4:
			err = simClient.pagedOpportunities(rand.Intn(3) + 1)
		case 5:
			routes, err = simClient.generateRoutes(rand.Intn(3)+1, 8)
		case 6:
			_, err = simClient.getStatistics()
		case 7:
			err = simClient.recentHistory()
		}

		if err != nil {
			log.Error().Err(err).
				Int("worker_id", workerID).
				Msg("Query failed")
		}
		report(opps, routes, err != nil)

		// Random sleep between queries
		time.Sleep(time.Duration(rand.Intn(300)+50) * time.Millisecond)
	}
}

// startServer initializes and starts the market data API server against the
// simulated upstream with an aggressive refresh schedule
func startServer() error {
	cfg := config.Load()
	cfg.DatabasePath = "simulation.db"
	cfg.RefreshInterval = 15 * time.Second
	cfg.StartupDelay = 500 * time.Millisecond
	cfg.MaxRequestsPerMinute = 600

	// Initialize database
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	client := gateway.NewSimulatedClient()

	// Initialize services
	authService := auth.NewService(cfg.JWTSecret)
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
	routingService := routing.NewService(snapshots, engineService)
	historyService := history.NewService(db)
	hub := ws.NewHub()

	scheduler.SetHistory(historyService)
	scheduler.SetEngine(engineService)
	scheduler.SetBroadcaster(hub)

	marketsService := markets.NewService(snapshots, scheduler, nameService, locations)

	go scheduler.Start(context.Background())

	// Initialize router
	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	marketsHandlers := markets.NewGinHandlers(marketsService)
	engineHandlers := arbitrage.NewGinHandlers(engineService)
	routingHandlers := routing.NewGinHandlers(routingService)
	historyHandlers := history.NewGinHandlers(historyService)

	// Setup routes
	setupRoutes(router, cfg, authHandlers, marketsHandlers, engineHandlers, routingHandlers, historyHandlers)
	router.GET("/ws", hub.ServeHandler())

	// Start the server
	return router.Run(":8080")
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality and applies appropriate middleware
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

		// Query routes
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

		opportunitiesGroup := v1.Group("/opportunities")
		opportunitiesGroup.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			opportunitiesGroup.GET("", engineHandlers.FindOpportunitiesHandler())
			opportunitiesGroup.GET("/paged", engineHandlers.PagedOpportunitiesHandler())
			opportunitiesGroup.GET("/export", engineHandlers.ExportOpportunitiesHandler())
		}

		routesGroup := v1.Group("/routes")
		routesGroup.Use(middleware.JWTAuth(cfg.JWTSecret))
		{
			routesGroup.GET("", routingHandlers.GenerateRoutesHandler())
			routesGroup.GET("/from/:market_id", routingHandlers.RouteFromMarketHandler())
		}

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
