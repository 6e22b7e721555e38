package history

import (
	"time"

	"gorm.io/gorm"
)

type RefreshCycle struct {
	gorm.Model       `json:"-"`
	CycleID          string    `gorm:"uniqueIndex" json:"cycle_id"`
	Outcome          string    `json:"outcome"` // OK, PARTIAL, TRANSIENT_FAILURE, SESSION_INVALID
	MarketsProcessed int       `json:"markets_processed"`
	MarketsFailed    int       `json:"markets_failed"`
	OrdersFetched    int       `json:"orders_fetched"`
	OrdersSkipped    int       `json:"orders_skipped"`
	DurationMs       int64     `json:"duration_ms"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// OpportunitySnapshot is one row of the top-opportunity table captured after
// a committed refresh cycle, ranked best first.
type OpportunitySnapshot struct {
	gorm.Model     `json:"-"`
	CycleID        string    `gorm:"index" json:"cycle_id"`
	Rank           int       `json:"rank"`
	ItemType       int64     `json:"item_type"`
	ItemName       string    `json:"item_name"`
	BuyPrice       int64     `json:"buy_price"`
	SellPrice      int64     `json:"sell_price"`
	ProfitPerUnit  int64     `json:"profit_per_unit"`
	MaxQuantity    int64     `json:"max_quantity"`
	TotalProfit    int64     `json:"total_profit"`
	MarginPercent  float64   `json:"margin_percent"`
	SourceMarketID int64     `json:"source_market_id"`
	SourceMarket   string    `json:"source_market"`
	DestMarketID   int64     `json:"dest_market_id"`
	DestMarket     string    `json:"dest_market"`
	DistanceKm     float64   `json:"distance_km"`
	ProfitPerKm    float64   `json:"profit_per_km"`
	CreatedAt      time.Time `json:"created_at"`
}
