package markets

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ksred/startrader-api/internal/cache"
	"github.com/ksred/startrader-api/internal/names"
	"github.com/ksred/startrader-api/internal/positions"
	"github.com/ksred/startrader-api/internal/refresh"
	"github.com/ksred/startrader-api/internal/types"
	"github.com/ksred/startrader-api/pkg/response"
)

// Service is the query facade over the snapshot cache and the refresh
// scheduler. All reads are served from the latest committed snapshot; none
// of them ever block on a refresh in flight.
type Service struct {
	snapshots *cache.SnapshotCache
	scheduler *refresh.Scheduler
	names     *names.Service
	locations *positions.Resolver
}

func NewService(snapshots *cache.SnapshotCache, scheduler *refresh.Scheduler, nameSvc *names.Service, locations *positions.Resolver) *Service {
	return &Service{
		snapshots: snapshots,
		scheduler: scheduler,
		names:     nameSvc,
		locations: locations,
	}
}

// GetAllMarkets returns every market in the current snapshot, orders
// attached, sorted by market ID. Empty cache yields an empty slice.
func (s *Service) GetAllMarkets() []types.Market {
	return s.snapshots.GetAllMarkets()
}

// GetMarket returns one market by ID, or nil when it is not in the snapshot.
func (s *Service) GetMarket(marketID int64) *types.Market {
	return s.snapshots.GetMarket(marketID)
}

// GetAllOrders returns every order in the current snapshot.
func (s *Service) GetAllOrders() []types.Order {
	return s.snapshots.GetAllOrders()
}

// GetCacheStatistics assembles the freshness and health summary callers use
// to judge snapshot quality instead of receiving errors from queries.
func (s *Service) GetCacheStatistics() types.CacheStatistics {
	marketCount, orderCount := s.snapshots.Counts()
	playerCount, itemCount := s.names.Counts()
	status := s.scheduler.Status()

	return types.CacheStatistics{
		MarketCount:         marketCount,
		OrderCount:          orderCount,
		PlayerNameCount:     playerCount,
		ItemNameCount:       itemCount,
		LastRefreshAt:       s.snapshots.LastRefresh(),
		LastAttemptAt:       status.LastAttempt,
		NextAttemptAt:       status.NextAttempt,
		CacheAgeSeconds:     s.snapshots.Age().Seconds(),
		Stale:               s.snapshots.IsStale(),
		RefreshInProgress:   status.State == refresh.StateRefreshing,
		ConsecutiveFailures: status.ConsecutiveFailures,
		PartialFailures:     status.PartialFailures,
		UpstreamAvailable:   status.UpstreamAvailable,
		CircuitState:        status.CircuitState,
		LastCycleMs:         status.LastCycleMs,
	}
}

// ForceRefresh runs a refresh cycle immediately, bypassing backoff and an
// open circuit. Fails only when a cycle is already running.
func (s *Service) ForceRefresh(c *gin.Context) (*refresh.CycleResult, error) {
	return s.scheduler.ForceRefresh(c.Request.Context())
}

// ClearCache drops the snapshot and the market location table. The next
// cycle rebuilds both from upstream; name caches are kept so resolved and
// placeholder names are not re-fetched.
func (s *Service) ClearCache() {
	s.snapshots.Clear()
	s.locations.Reset()
	log.Info().Str("component", "markets").Msg("snapshot cache cleared")
}

type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for market endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GetMarketsHandler handles GET requests listing all cached markets
// Requires a valid JWT token
func (h *GinHandlers) GetMarketsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		markets := h.service.GetAllMarkets()
		response.Success(c, gin.H{
			"markets": markets,
			"count":   len(markets),
		})
	}
}

// GetMarketHandler handles GET requests for a single market
// Requires a valid JWT token
// URL parameter: market_id
func (h *GinHandlers) GetMarketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		marketID, err := strconv.ParseInt(c.Param("market_id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "market_id must be an integer")
			return
		}

		market := h.service.GetMarket(marketID)
		if market == nil {
			response.NotFound(c, "Market not found")
			return
		}

		response.Success(c, market)
	}
}

// GetOrdersHandler handles GET requests listing all cached orders
// Requires a valid JWT token
func (h *GinHandlers) GetOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders := h.service.GetAllOrders()
		response.Success(c, gin.H{
			"orders": orders,
			"count":  len(orders),
		})
	}
}

// GetMarketOrdersHandler handles GET requests for one market's order book
// Requires a valid JWT token
// URL parameter: market_id
func (h *GinHandlers) GetMarketOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		marketID, err := strconv.ParseInt(c.Param("market_id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "market_id must be an integer")
			return
		}

		market := h.service.GetMarket(marketID)
		if market == nil {
			response.NotFound(c, "Market not found")
			return
		}

		response.Success(c, gin.H{
			"market_id": market.MarketID,
			"orders":    market.Orders,
			"count":     len(market.Orders),
		})
	}
}

// GetStatisticsHandler handles GET requests for cache statistics
// Requires a valid JWT token
func (h *GinHandlers) GetStatisticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.service.GetCacheStatistics())
	}
}

// ForceRefreshHandler handles POST requests triggering an immediate refresh
// Requires a valid JWT token with the admin permission
func (h *GinHandlers) ForceRefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.service.ForceRefresh(c)
		if err != nil {
			if errors.Is(err, refresh.ErrRefreshInProgress) {
				response.Conflict(c, "A refresh cycle is already running")
				return
			}
			response.InternalError(c, err.Error())
			return
		}

		response.Success(c, result)
	}
}

// ClearCacheHandler handles POST requests clearing the snapshot cache
// Requires a valid JWT token with the admin permission
func (h *GinHandlers) ClearCacheHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.service.ClearCache()
		response.Success(c, gin.H{
			"cleared": true,
		})
	}
}
