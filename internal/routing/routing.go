package routing

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/startrader-api/internal/arbitrage"
	"github.com/ksred/startrader-api/internal/cache"
	"github.com/ksred/startrader-api/internal/types"
	"github.com/ksred/startrader-api/pkg/response"
)

const (
	// Intermediate pickups are considered only when the total base→pickup→
	// delivery distance stays within this multiple of the direct distance.
	detourFactor = 1.5

	defaultMaxRoutes = 3
	defaultMaxStops  = 8
	maxRouteLimit    = 10
	maxStopLimit     = 40
)

// Service builds multi-stop trade routes over the opportunity set. The
// optimizer is a greedy nearest-best heuristic: routes are good, not provably
// optimal, which keeps route building cheap on graphs with thousands of
// candidate edges.
type Service struct {
	snapshots *cache.SnapshotCache
	engine    *arbitrage.Service
	logger    zerolog.Logger
}

func NewService(snapshots *cache.SnapshotCache, engine *arbitrage.Service) *Service {
	return &Service{
		snapshots: snapshots,
		engine:    engine,
		logger:    log.With().Str("component", "route_optimizer").Logger(),
	}
}

// GenerateOptimizedRoutes builds up to maxRoutes disjoint routes from the
// filtered opportunity set. Each route starts at the source market of the
// best remaining opportunity; opportunities used by one route are excluded
// from the next. An empty opportunity set yields an empty slice.
func (s *Service) GenerateOptimizedRoutes(filter types.OpportunityFilter, maxRoutes, maxStops int) []types.Route {
	if maxRoutes <= 0 {
		maxRoutes = defaultMaxRoutes
	}
	if maxRoutes > maxRouteLimit {
		maxRoutes = maxRouteLimit
	}

	opportunities := s.engine.FindOpportunities(filter)
	positions := s.marketPositions()

	routes := make([]types.Route, 0, maxRoutes)
	used := make(map[pairKey]bool)

	for len(routes) < maxRoutes {
		remaining := make([]types.ProfitOpportunity, 0, len(opportunities))
		for _, opp := range opportunities {
			if !used[keyOf(opp)] {
				remaining = append(remaining, opp)
			}
		}
		if len(remaining) == 0 {
			break
		}

		base := remaining[0].SourceMarketID
		route, taken := s.buildRoute(base, remaining, maxStops, positions)
		if len(route.Stops) == 0 {
			break
		}
		for _, key := range taken {
			used[key] = true
		}
		routes = append(routes, route)
	}

	s.logger.Debug().
		Int("routes", len(routes)).
		Int("opportunities", len(opportunities)).
		Msg("route generation complete")

	return routes
}

// GenerateRoute builds a single route anchored at the given base market.
// Returns nil when the base market is not in the current snapshot.
func (s *Service) GenerateRoute(baseMarketID int64, filter types.OpportunityFilter, maxStops int) *types.Route {
	if s.snapshots.GetMarket(baseMarketID) == nil {
		return nil
	}
	opportunities := s.engine.FindOpportunities(filter)
	route, _ := s.buildRoute(baseMarketID, opportunities, maxStops, s.marketPositions())
	return &route
}

// pairKey identifies an opportunity by its order pair.
type pairKey struct {
	buyOrderID  int64
	sellOrderID int64
}

func keyOf(opp types.ProfitOpportunity) pairKey {
	return pairKey{buyOrderID: opp.BuyOrderID, sellOrderID: opp.SellOrderID}
}

// buildRoute grows one route greedily: from the current position, take the
// unused reachable opportunity with the best profit per kilometre travelled,
// deliver it, and continue from the delivery market until the stop budget or
// the candidate set runs out. The second return value lists the opportunity
// keys the route consumed.
func (s *Service) buildRoute(base int64, opportunities []types.ProfitOpportunity, maxStops int, positions map[int64]*types.Vector3) (types.Route, []pairKey) {
	if maxStops <= 0 {
		maxStops = defaultMaxStops
	}
	if maxStops > maxStopLimit {
		maxStops = maxStopLimit
	}

	candidates := make([]types.ProfitOpportunity, 0, len(opportunities))
	for _, opp := range opportunities {
		if withinDetour(base, opp, positions) {
			candidates = append(candidates, opp)
		}
	}

	route := types.Route{
		RouteID:       uuid.New().String(),
		StartMarketID: base,
	}
	if market := s.snapshots.GetMarket(base); market != nil {
		route.StartMarket = market.Name
	}

	taken := make(map[pairKey]bool)
	consumed := make([]pairKey, 0)
	current := base

	for len(route.Stops)+2 <= maxStops {
		bestIdx := -1
		bestScore := 0.0
		bestHaul := 0.0
		for i, opp := range candidates {
			if taken[keyOf(opp)] {
				continue
			}
			haul := distanceBetween(current, opp.SourceMarketID, positions) + opp.Distance
			score := float64(opp.TotalProfit) / maxFloat(haul, 1)
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
				bestHaul = haul
			}
		}
		if bestIdx == -1 {
			break
		}

		opp := candidates[bestIdx]
		taken[keyOf(opp)] = true
		consumed = append(consumed, keyOf(opp))

		route.Stops = append(route.Stops,
			types.RouteStop{
				MarketID: opp.SourceMarketID,
				Market:   opp.SourceMarket,
				Planet:   opp.SourcePlanet,
				Action:   types.StopPickup,
				ItemName: opp.ItemName,
				Quantity: opp.MaxQuantity,
				Distance: distanceBetween(current, opp.SourceMarketID, positions),
			},
			types.RouteStop{
				MarketID: opp.DestMarketID,
				Market:   opp.DestMarket,
				Planet:   opp.DestPlanet,
				Action:   types.StopDeliver,
				ItemName: opp.ItemName,
				Quantity: opp.MaxQuantity,
				Profit:   opp.TotalProfit,
				Distance: opp.Distance,
			},
		)
		route.Opportunities++
		route.TotalProfit += opp.TotalProfit
		route.TotalDistance += bestHaul
		current = opp.DestMarketID
	}

	return route, consumed
}

// withinDetour reports whether an opportunity is reachable from the base:
// either it starts there, or picking up at its source keeps the combined
// base→pickup→delivery distance within the detour cap of the direct leg.
func withinDetour(base int64, opp types.ProfitOpportunity, positions map[int64]*types.Vector3) bool {
	if opp.SourceMarketID == base {
		return true
	}
	toPickup := distanceBetween(base, opp.SourceMarketID, positions)
	direct := distanceBetween(base, opp.DestMarketID, positions)
	return toPickup+opp.Distance <= detourFactor*direct
}

func (s *Service) marketPositions() map[int64]*types.Vector3 {
	markets := s.snapshots.GetAllMarkets()
	positions := make(map[int64]*types.Vector3, len(markets))
	for _, market := range markets {
		positions[market.MarketID] = market.Position
	}
	return positions
}

// distanceBetween is the straight-line distance between two markets, zero
// when either position is unknown.
func distanceBetween(a, b int64, positions map[int64]*types.Vector3) float64 {
	pa, pb := positions[a], positions[b]
	if pa == nil || pb == nil {
		return 0
	}
	return types.Distance(*pa, *pb)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for route endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GenerateRoutesHandler handles GET requests generating optimized routes
// Requires a valid JWT token
// Query parameters: the opportunity filters plus max_routes and max_stops
func (h *GinHandlers) GenerateRoutesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter types.OpportunityFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		maxRoutes, err := strconv.Atoi(c.DefaultQuery("max_routes", strconv.Itoa(defaultMaxRoutes)))
		if err != nil {
			response.BadRequest(c, "max_routes must be an integer")
			return
		}
		maxStops, err := strconv.Atoi(c.DefaultQuery("max_stops", strconv.Itoa(defaultMaxStops)))
		if err != nil {
			response.BadRequest(c, "max_stops must be an integer")
			return
		}

		routes := h.service.GenerateOptimizedRoutes(filter, maxRoutes, maxStops)
		response.Success(c, gin.H{
			"routes": routes,
			"count":  len(routes),
		})
	}
}

// RouteFromMarketHandler handles GET requests generating a route from a market
// Requires a valid JWT token
// URL parameter: market_id
func (h *GinHandlers) RouteFromMarketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		marketID, err := strconv.ParseInt(c.Param("market_id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "market_id must be an integer")
			return
		}

		var filter types.OpportunityFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		maxStops, err := strconv.Atoi(c.DefaultQuery("max_stops", strconv.Itoa(defaultMaxStops)))
		if err != nil {
			response.BadRequest(c, "max_stops must be an integer")
			return
		}

		route := h.service.GenerateRoute(marketID, filter, maxStops)
		if route == nil {
			response.NotFound(c, "Market not found")
			return
		}

		response.Success(c, route)
	}
}
