package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/ksred/startrader-api/internal/types"
)

// SnapshotCache holds the latest fully-assembled set of markets and orders.
// The refresh scheduler is the only writer; everything else reads. Reads are
// concurrent with each other, writes exclude everything. All collections
// handed out are independent copies so callers can never observe a
// half-replaced snapshot or mutate shared state.
type SnapshotCache struct {
	maxAge time.Duration

	mu          sync.RWMutex
	markets     map[int64]types.Market
	orders      []types.Order
	lastRefresh time.Time
}

func NewSnapshotCache(maxAge time.Duration) *SnapshotCache {
	return &SnapshotCache{
		maxAge:  maxAge,
		markets: make(map[int64]types.Market),
	}
}

// Replace swaps in a complete new snapshot and stamps the successful-refresh
// time. The collections are assembled by the caller outside the lock; this
// only performs the swap, keeping writer hold time minimal.
func (c *SnapshotCache) Replace(markets []types.Market, orders []types.Order) {
	byID := make(map[int64]types.Market, len(markets))
	for _, m := range markets {
		byID[m.MarketID] = m
	}

	c.mu.Lock()
	c.markets = byID
	c.orders = orders
	c.lastRefresh = time.Now()
	c.mu.Unlock()
}

// Clear resets all collections and metadata. Administrative use only; the
// market-location table must be reloaded before refreshes resume.
func (c *SnapshotCache) Clear() {
	c.mu.Lock()
	c.markets = make(map[int64]types.Market)
	c.orders = nil
	c.lastRefresh = time.Time{}
	c.mu.Unlock()
}

// GetAllMarkets returns a copy of every cached market, ordered by market ID.
func (c *SnapshotCache) GetAllMarkets() []types.Market {
	c.mu.RLock()
	defer c.mu.RUnlock()

	markets := make([]types.Market, 0, len(c.markets))
	for _, m := range c.markets {
		markets = append(markets, copyMarket(m))
	}
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].MarketID < markets[j].MarketID
	})
	return markets
}

// GetMarket returns a copy of one market, or nil if it is not cached.
func (c *SnapshotCache) GetMarket(marketID int64) *types.Market {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.markets[marketID]
	if !ok {
		return nil
	}
	cp := copyMarket(m)
	return &cp
}

// GetAllOrders returns a copy of the flat order snapshot.
func (c *SnapshotCache) GetAllOrders() []types.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()

	orders := make([]types.Order, len(c.orders))
	copy(orders, c.orders)
	return orders
}

// Counts returns the number of cached markets and orders.
func (c *SnapshotCache) Counts() (markets, orders int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.markets), len(c.orders)
}

// LastRefresh returns when the cache was last successfully replaced. Zero
// means no snapshot has been committed yet.
func (c *SnapshotCache) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

// Age returns how old the current snapshot is, or zero when empty.
func (c *SnapshotCache) Age() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastRefresh.IsZero() {
		return 0
	}
	return time.Since(c.lastRefresh)
}

// IsStale reports whether the snapshot is older than the configured maximum
// age. An empty cache is always stale. Querying staleness never mutates
// state.
func (c *SnapshotCache) IsStale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastRefresh.IsZero() {
		return true
	}
	return time.Since(c.lastRefresh) > c.maxAge
}

// copyMarket deep-copies a market, including its order list and position.
func copyMarket(m types.Market) types.Market {
	cp := m
	if m.Position != nil {
		pos := *m.Position
		cp.Position = &pos
	}
	if m.Orders != nil {
		cp.Orders = make([]types.Order, len(m.Orders))
		copy(cp.Orders, m.Orders)
	}
	return cp
}
