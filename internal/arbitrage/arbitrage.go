package arbitrage

import (
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/startrader-api/internal/cache"
	"github.com/ksred/startrader-api/internal/types"
	"github.com/ksred/startrader-api/pkg/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// Service derives profit opportunities from the current market snapshot.
// Every search reads a consistent snapshot, so recomputing from the same
// data is deterministic.
type Service struct {
	snapshots *cache.SnapshotCache
	logger    zerolog.Logger
}

func NewService(snapshots *cache.SnapshotCache) *Service {
	return &Service{
		snapshots: snapshots,
		logger:    log.With().Str("component", "arbitrage_engine").Logger(),
	}
}

// sidedOrder is an order together with the market it sits on.
type sidedOrder struct {
	order  types.Order
	market types.Market
}

// FindOpportunities pairs every sell order with every buy order for the same
// item on a different market, keeps the pairs with positive profit, and
// applies the caller's filter and sort. An empty snapshot yields an empty
// result, not an error.
func (s *Service) FindOpportunities(filter types.OpportunityFilter) []types.ProfitOpportunity {
	markets := s.snapshots.GetAllMarkets()

	buys := make(map[int64][]sidedOrder)
	sells := make(map[int64][]sidedOrder)
	itemTypes := make([]int64, 0)
	seen := make(map[int64]bool)

	for _, market := range markets {
		for _, order := range market.Orders {
			if !seen[order.ItemType] {
				seen[order.ItemType] = true
				itemTypes = append(itemTypes, order.ItemType)
			}
			entry := sidedOrder{order: order, market: market}
			if order.IsBuy() {
				buys[order.ItemType] = append(buys[order.ItemType], entry)
			} else if order.IsSell() {
				sells[order.ItemType] = append(sells[order.ItemType], entry)
			}
		}
	}

	opportunities := make([]types.ProfitOpportunity, 0)
	for _, itemType := range itemTypes {
		itemBuys := buys[itemType]
		itemSells := sells[itemType]
		if len(itemBuys) == 0 || len(itemSells) == 0 {
			continue
		}

		for _, sell := range itemSells {
			for _, buy := range itemBuys {
				opp, ok := buildOpportunity(sell, buy)
				if !ok {
					continue
				}
				if !matchesFilter(opp, filter) {
					continue
				}
				opportunities = append(opportunities, opp)
			}
		}
	}

	sortOpportunities(opportunities, filter.SortBy, filter.SortOrder)

	if filter.Limit > 0 && len(opportunities) > filter.Limit {
		opportunities = opportunities[:filter.Limit]
	}

	s.logger.Debug().
		Int("markets", len(markets)).
		Int("opportunities", len(opportunities)).
		Msg("opportunity search complete")

	return opportunities
}

// PageOpportunities runs the same search and slices one page out of it.
func (s *Service) PageOpportunities(filter types.OpportunityFilter) types.OpportunityPage {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	all := s.FindOpportunities(filter)
	total := len(all)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return types.OpportunityPage{
		Opportunities: all[start:end],
		Total:         total,
		Page:          page,
		PageSize:      pageSize,
		TotalPages:    totalPages,
	}
}

// buildOpportunity derives the trade pairing for one sell/buy order pair.
// Pairs on the same market, with non-positive profit, or with no tradable
// quantity are rejected.
func buildOpportunity(sell, buy sidedOrder) (types.ProfitOpportunity, bool) {
	if sell.market.MarketID == buy.market.MarketID {
		return types.ProfitOpportunity{}, false
	}

	profitPerUnit := buy.order.Price - sell.order.Price
	if profitPerUnit <= 0 {
		return types.ProfitOpportunity{}, false
	}
	// Margin is undefined against a zero sell price; such orders are junk.
	if sell.order.Price <= 0 {
		return types.ProfitOpportunity{}, false
	}

	quantity := sell.order.SellQuantity
	if buy.order.BuyQuantity < quantity {
		quantity = buy.order.BuyQuantity
	}
	if quantity <= 0 {
		return types.ProfitOpportunity{}, false
	}

	totalProfit := profitPerUnit * quantity
	margin := float64(profitPerUnit) / float64(sell.order.Price) * 100

	distance := marketDistance(sell.market, buy.market)
	profitPerKm := 0.0
	if distance > 0 {
		profitPerKm = float64(totalProfit) / distance
	}

	return types.ProfitOpportunity{
		ItemType:       sell.order.ItemType,
		ItemName:       sell.order.ItemName,
		BuyOrderID:     buy.order.OrderID,
		SellOrderID:    sell.order.OrderID,
		BuyPrice:       buy.order.Price,
		SellPrice:      sell.order.Price,
		ProfitPerUnit:  profitPerUnit,
		MaxQuantity:    quantity,
		TotalProfit:    totalProfit,
		MarginPercent:  margin,
		SourceMarketID: sell.market.MarketID,
		SourceMarket:   sell.market.Name,
		SourcePlanet:   sell.market.PlanetName,
		DestMarketID:   buy.market.MarketID,
		DestMarket:     buy.market.Name,
		DestPlanet:     buy.market.PlanetName,
		Distance:       distance,
		ProfitPerKm:    profitPerKm,
	}, true
}

// marketDistance is the straight-line distance between two markets, zero
// when either position is unknown.
func marketDistance(a, b types.Market) float64 {
	if a.Position == nil || b.Position == nil {
		return 0
	}
	return types.Distance(*a.Position, *b.Position)
}

func matchesFilter(opp types.ProfitOpportunity, filter types.OpportunityFilter) bool {
	if filter.MinMargin > 0 && opp.MarginPercent < filter.MinMargin {
		return false
	}
	if filter.MinProfit > 0 && opp.TotalProfit < filter.MinProfit {
		return false
	}
	if filter.MaxDistance > 0 && opp.Distance > filter.MaxDistance {
		return false
	}
	if filter.ItemName != "" &&
		!strings.Contains(strings.ToLower(opp.ItemName), strings.ToLower(filter.ItemName)) {
		return false
	}
	return true
}

// sortOpportunities orders the result by the requested key. Unknown keys and
// the empty key fall back to total profit; the default direction is
// descending for every key except item name.
func sortOpportunities(opps []types.ProfitOpportunity, sortBy, sortOrder string) {
	ascending := false
	if sortBy == types.SortByItemName {
		ascending = true
	}
	switch sortOrder {
	case types.SortAsc:
		ascending = true
	case types.SortDesc:
		ascending = false
	}

	var less func(a, b types.ProfitOpportunity) bool
	switch sortBy {
	case types.SortByMargin:
		less = func(a, b types.ProfitOpportunity) bool { return a.MarginPercent < b.MarginPercent }
	case types.SortByProfitPerUnit:
		less = func(a, b types.ProfitOpportunity) bool { return a.ProfitPerUnit < b.ProfitPerUnit }
	case types.SortByDistance:
		less = func(a, b types.ProfitOpportunity) bool { return a.Distance < b.Distance }
	case types.SortByQuantity:
		less = func(a, b types.ProfitOpportunity) bool { return a.MaxQuantity < b.MaxQuantity }
	case types.SortByItemName:
		less = func(a, b types.ProfitOpportunity) bool { return a.ItemName < b.ItemName }
	default:
		less = func(a, b types.ProfitOpportunity) bool { return a.TotalProfit < b.TotalProfit }
	}

	sort.SliceStable(opps, func(i, j int) bool {
		if ascending {
			return less(opps[i], opps[j])
		}
		return less(opps[j], opps[i])
	})
}

type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for opportunity endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// FindOpportunitiesHandler handles GET requests for the opportunity search
// Requires a valid JWT token
// Query parameters: min_margin, min_profit, max_distance, item_name, sort_by, sort_order, limit
func (h *GinHandlers) FindOpportunitiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter types.OpportunityFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		opportunities := h.service.FindOpportunities(filter)
		response.Success(c, gin.H{
			"opportunities": opportunities,
			"count":         len(opportunities),
		})
	}
}

// PagedOpportunitiesHandler handles GET requests for the paginated opportunity search
// Requires a valid JWT token
// Query parameters: the search filters plus page and page_size
func (h *GinHandlers) PagedOpportunitiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter types.OpportunityFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		response.Success(c, h.service.PageOpportunities(filter))
	}
}

// ExportOpportunitiesHandler handles GET requests exporting the opportunity
// search as an xlsx workbook
// Requires a valid JWT token
func (h *GinHandlers) ExportOpportunitiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter types.OpportunityFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		opportunities := h.service.FindOpportunities(filter)
		workbook, err := BuildWorkbook(opportunities)
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}
		defer workbook.Close()

		c.Header("Content-Disposition", `attachment; filename="opportunities.xlsx"`)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := workbook.Write(c.Writer); err != nil {
			log.Error().Err(err).Msg("failed to stream opportunity workbook")
		}
	}
}
