package types

import "time"

// CacheStatistics is the health and freshness summary for the snapshot cache
// and its refresh loop. Callers use it to distinguish "no data yet" from
// "error" instead of receiving failures from query operations.
type CacheStatistics struct {
	MarketCount         int       `json:"market_count"`
	OrderCount          int       `json:"order_count"`
	PlayerNameCount     int       `json:"player_name_count"`
	ItemNameCount       int       `json:"item_name_count"`
	LastRefreshAt       time.Time `json:"last_refresh_at"`
	LastAttemptAt       time.Time `json:"last_attempt_at"`
	NextAttemptAt       time.Time `json:"next_attempt_at"`
	CacheAgeSeconds     float64   `json:"cache_age_seconds"`
	Stale               bool      `json:"stale"`
	RefreshInProgress   bool      `json:"refresh_in_progress"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	PartialFailures     int       `json:"partial_failures"`
	UpstreamAvailable   bool      `json:"upstream_available"`
	CircuitState        string    `json:"circuit_state"`
	LastCycleMs         int64     `json:"last_cycle_ms"`
}
