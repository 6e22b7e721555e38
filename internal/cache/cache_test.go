package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/ksred/startrader-api/internal/types"
)

func testMarkets(n int) []types.Market {
	markets := make([]types.Market, 0, n)
	for i := 0; i < n; i++ {
		id := int64(i + 1)
		markets = append(markets, types.Market{
			MarketID:   id,
			Name:       "Market",
			PlanetName: "Aurelia",
			Position:   &types.Vector3{X: float64(i) * 1000},
			Orders: []types.Order{
				{OrderID: id * 10, MarketID: id, ItemType: 1, SellQuantity: 5, Price: 100},
			},
		})
	}
	return markets
}

func testOrders(n int) []types.Order {
	orders := make([]types.Order, 0, n)
	for i := 0; i < n; i++ {
		orders = append(orders, types.Order{OrderID: int64(i + 1), SellQuantity: 1, Price: 10})
	}
	return orders
}

func TestSnapshotCache_ReplaceAndCounts(t *testing.T) {
	c := NewSnapshotCache(time.Minute)

	markets, orders := c.Counts()
	if markets != 0 || orders != 0 {
		t.Errorf("Expected empty cache, got %d markets and %d orders", markets, orders)
	}

	c.Replace(testMarkets(3), testOrders(7))

	markets, orders = c.Counts()
	if markets != 3 {
		t.Errorf("Expected 3 markets, got %d", markets)
	}
	if orders != 7 {
		t.Errorf("Expected 7 orders, got %d", orders)
	}
	if c.LastRefresh().IsZero() {
		t.Error("Expected last refresh time to be stamped after Replace")
	}
}

func TestSnapshotCache_GetAllMarketsOrdered(t *testing.T) {
	c := NewSnapshotCache(time.Minute)
	c.Replace([]types.Market{
		{MarketID: 30},
		{MarketID: 10},
		{MarketID: 20},
	}, nil)

	markets := c.GetAllMarkets()
	if len(markets) != 3 {
		t.Fatalf("Expected 3 markets, got %d", len(markets))
	}
	for i, want := range []int64{10, 20, 30} {
		if markets[i].MarketID != want {
			t.Errorf("Expected market %d at index %d, got %d", want, i, markets[i].MarketID)
		}
	}
}

func TestSnapshotCache_GetMarketMiss(t *testing.T) {
	c := NewSnapshotCache(time.Minute)
	c.Replace(testMarkets(2), nil)

	if m := c.GetMarket(999); m != nil {
		t.Errorf("Expected nil for unknown market, got %+v", m)
	}
	if m := c.GetMarket(1); m == nil {
		t.Error("Expected cached market 1 to be returned")
	}
}

func TestSnapshotCache_CopiesAreIsolated(t *testing.T) {
	c := NewSnapshotCache(time.Minute)
	c.Replace(testMarkets(1), testOrders(2))

	// Mutate everything a caller can reach on the returned copies.
	m := c.GetMarket(1)
	m.Name = "Tampered"
	m.Position.X = -1
	m.Orders[0].Price = 999999

	all := c.GetAllMarkets()
	all[0].Name = "Also tampered"

	orders := c.GetAllOrders()
	orders[0].Price = 888888

	fresh := c.GetMarket(1)
	if fresh.Name != "Market" {
		t.Errorf("Expected cached market name unchanged, got %q", fresh.Name)
	}
	if fresh.Position.X != 0 {
		t.Errorf("Expected cached position unchanged, got %f", fresh.Position.X)
	}
	if fresh.Orders[0].Price != 100 {
		t.Errorf("Expected cached order price unchanged, got %d", fresh.Orders[0].Price)
	}
	if got := c.GetAllOrders()[0].Price; got != 10 {
		t.Errorf("Expected flat order price unchanged, got %d", got)
	}
}

func TestSnapshotCache_ConcurrentReadsNeverSeeMixedSnapshot(t *testing.T) {
	c := NewSnapshotCache(time.Minute)
	c.Replace(testMarkets(5), testOrders(5))

	done := make(chan struct{})
	var wg sync.WaitGroup

	// Writer flips between a 5-market and a 10-market snapshot.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			if i%2 == 0 {
				c.Replace(testMarkets(10), testOrders(10))
			} else {
				c.Replace(testMarkets(5), testOrders(5))
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				markets := c.GetAllMarkets()
				if len(markets) != 5 && len(markets) != 10 {
					t.Errorf("Expected 5 or 10 markets, got %d", len(markets))
					return
				}
				m, o := c.Counts()
				if m != o {
					t.Errorf("Expected matching snapshot counts, got %d markets and %d orders", m, o)
					return
				}
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(done)
	wg.Wait()
}

func TestSnapshotCache_Clear(t *testing.T) {
	c := NewSnapshotCache(time.Minute)
	c.Replace(testMarkets(4), testOrders(4))

	c.Clear()

	markets, orders := c.Counts()
	if markets != 0 || orders != 0 {
		t.Errorf("Expected cleared cache, got %d markets and %d orders", markets, orders)
	}
	if !c.LastRefresh().IsZero() {
		t.Error("Expected last refresh to reset to zero after Clear")
	}
	if !c.IsStale() {
		t.Error("Expected cleared cache to report stale")
	}
	if c.Age() != 0 {
		t.Errorf("Expected zero age for empty cache, got %s", c.Age())
	}
}

func TestSnapshotCache_Staleness(t *testing.T) {
	c := NewSnapshotCache(20 * time.Millisecond)

	if !c.IsStale() {
		t.Error("Expected cache with no snapshot to report stale")
	}

	c.Replace(testMarkets(1), nil)
	if c.IsStale() {
		t.Error("Expected fresh snapshot to not be stale")
	}

	time.Sleep(40 * time.Millisecond)
	if !c.IsStale() {
		t.Error("Expected snapshot older than max age to report stale")
	}
	if c.Age() < 20*time.Millisecond {
		t.Errorf("Expected age to exceed max age, got %s", c.Age())
	}

	// A new snapshot recovers freshness.
	c.Replace(testMarkets(1), nil)
	if c.IsStale() {
		t.Error("Expected staleness to clear after a new snapshot")
	}
}
