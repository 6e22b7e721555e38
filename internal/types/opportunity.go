package types

// Sort keys accepted by the opportunity search.
const (
	SortByTotalProfit   = "total_profit"
	SortByMargin        = "margin"
	SortByProfitPerUnit = "profit_per_unit"
	SortByDistance      = "distance"
	SortByQuantity      = "quantity"
	SortByItemName      = "item_name"
)

// Sort directions. Total profit descending is the default when unspecified.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ProfitOpportunity is a matched buy/sell order pair for the same item on two
// different markets where the buy price exceeds the sell price. Goods are
// picked up at the source market (the sell order) and delivered to the
// destination market (the buy order).
type ProfitOpportunity struct {
	ItemType       int64   `json:"item_type"`
	ItemName       string  `json:"item_name"`
	BuyOrderID     int64   `json:"buy_order_id"`
	SellOrderID    int64   `json:"sell_order_id"`
	BuyPrice       int64   `json:"buy_price"`
	SellPrice      int64   `json:"sell_price"`
	ProfitPerUnit  int64   `json:"profit_per_unit"`
	MaxQuantity    int64   `json:"max_quantity"`
	TotalProfit    int64   `json:"total_profit"`
	MarginPercent  float64 `json:"margin_percent"`
	SourceMarketID int64   `json:"source_market_id"`
	SourceMarket   string  `json:"source_market"`
	SourcePlanet   string  `json:"source_planet"`
	DestMarketID   int64   `json:"dest_market_id"`
	DestMarket     string  `json:"dest_market"`
	DestPlanet     string  `json:"dest_planet"`
	Distance       float64 `json:"distance_km"`
	ProfitPerKm    float64 `json:"profit_per_km"`
}

// OpportunityFilter narrows and orders the opportunity search. Zero values
// leave the corresponding dimension unconstrained. Page and PageSize apply
// only to the paginated search.
type OpportunityFilter struct {
	MinMargin   float64 `form:"min_margin" json:"min_margin"`
	MinProfit   int64   `form:"min_profit" json:"min_profit"`
	MaxDistance float64 `form:"max_distance" json:"max_distance"`
	ItemName    string  `form:"item_name" json:"item_name"`
	SortBy      string  `form:"sort_by" json:"sort_by"`
	SortOrder   string  `form:"sort_order" json:"sort_order"`
	Limit       int     `form:"limit" json:"limit"`
	Page        int     `form:"page" json:"page"`
	PageSize    int     `form:"page_size" json:"page_size"`
}

// OpportunityPage is one page of a paginated opportunity search.
type OpportunityPage struct {
	Opportunities []ProfitOpportunity `json:"opportunities"`
	Total         int                 `json:"total"`
	Page          int                 `json:"page"`
	PageSize      int                 `json:"page_size"`
	TotalPages    int                 `json:"total_pages"`
}

// Route stop actions.
const (
	StopPickup  = "PICKUP"
	StopDeliver = "DELIVER"
)

// RouteStop is one leg of a trade route.
type RouteStop struct {
	MarketID int64   `json:"market_id"`
	Market   string  `json:"market"`
	Planet   string  `json:"planet"`
	Action   string  `json:"action"`
	ItemName string  `json:"item_name"`
	Quantity int64   `json:"quantity"`
	Profit   int64   `json:"profit,omitempty"`
	Distance float64 `json:"distance_km"`
}

// Route is a multi-stop trade route starting from a base market. Built by a
// greedy heuristic, so it is a good route, not a provably optimal one.
type Route struct {
	RouteID       string      `json:"route_id"`
	StartMarketID int64       `json:"start_market_id"`
	StartMarket   string      `json:"start_market"`
	Stops         []RouteStop `json:"stops"`
	Opportunities int         `json:"opportunities"`
	TotalProfit   int64       `json:"total_profit"`
	TotalDistance float64     `json:"total_distance_km"`
}
