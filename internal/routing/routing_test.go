package routing

import (
	"testing"
	"time"

	"github.com/ksred/startrader-api/internal/arbitrage"
	"github.com/ksred/startrader-api/internal/cache"
	"github.com/ksred/startrader-api/internal/types"
)

// chainSnapshot lays three markets on a line with two chained opportunities:
//
//	M1 (x=0) --- M2 (x=100) --- M3 (x=200)
//
// Hematite moves M1→M2 for 10000 profit, Bauxite moves M2→M3 for 5000.
func chainSnapshot() *cache.SnapshotCache {
	markets := []types.Market{
		{
			MarketID: 1, Name: "Alpha", Position: &types.Vector3{X: 0},
			Orders: []types.Order{
				{OrderID: 1, MarketID: 1, ItemType: 100, ItemName: "Hematite", SellQuantity: 100, Price: 100},
			},
		},
		{
			MarketID: 2, Name: "Beta", Position: &types.Vector3{X: 100},
			Orders: []types.Order{
				{OrderID: 2, MarketID: 2, ItemType: 100, ItemName: "Hematite", BuyQuantity: 100, Price: 200},
				{OrderID: 3, MarketID: 2, ItemType: 200, ItemName: "Bauxite", SellQuantity: 50, Price: 100},
			},
		},
		{
			MarketID: 3, Name: "Gamma", Position: &types.Vector3{X: 200},
			Orders: []types.Order{
				{OrderID: 4, MarketID: 3, ItemType: 200, ItemName: "Bauxite", BuyQuantity: 50, Price: 200},
			},
		},
	}
	c := cache.NewSnapshotCache(time.Minute)
	var orders []types.Order
	for _, m := range markets {
		orders = append(orders, m.Orders...)
	}
	c.Replace(markets, orders)
	return c
}

func newTestService(snapshots *cache.SnapshotCache) *Service {
	return NewService(snapshots, arbitrage.NewService(snapshots))
}

func TestGenerateRoute_GreedyChain(t *testing.T) {
	svc := newTestService(chainSnapshot())

	route := svc.GenerateRoute(1, types.OpportunityFilter{}, 8)
	if route == nil {
		t.Fatal("Expected a route from a known base market")
	}
	if route.StartMarketID != 1 || route.StartMarket != "Alpha" {
		t.Errorf("Expected route anchored at Alpha, got %d %q", route.StartMarketID, route.StartMarket)
	}
	if route.RouteID == "" {
		t.Error("Expected a generated route ID")
	}
	if route.Opportunities != 2 {
		t.Fatalf("Expected 2 opportunities on the chain, got %d", route.Opportunities)
	}
	if len(route.Stops) != 4 {
		t.Fatalf("Expected 4 stops, got %d", len(route.Stops))
	}

	// The bigger profit per kilometre is taken first, then the route
	// continues from its delivery market.
	wantStops := []struct {
		marketID int64
		action   string
		item     string
	}{
		{1, types.StopPickup, "Hematite"},
		{2, types.StopDeliver, "Hematite"},
		{2, types.StopPickup, "Bauxite"},
		{3, types.StopDeliver, "Bauxite"},
	}
	for i, want := range wantStops {
		stop := route.Stops[i]
		if stop.MarketID != want.marketID || stop.Action != want.action || stop.ItemName != want.item {
			t.Errorf("Stop %d: expected %s %s at market %d, got %s %s at market %d",
				i, want.action, want.item, want.marketID, stop.Action, stop.ItemName, stop.MarketID)
		}
	}

	if route.TotalProfit != 15000 {
		t.Errorf("Expected total profit 15000, got %d", route.TotalProfit)
	}
	// Haul legs: 0+100 for the first pair, 0+100 for the second once the
	// route has advanced to Beta.
	if route.TotalDistance != 200 {
		t.Errorf("Expected total distance 200, got %f", route.TotalDistance)
	}
	if route.Stops[2].Distance != 0 {
		t.Errorf("Expected zero pickup leg after delivering at the same market, got %f", route.Stops[2].Distance)
	}
	if route.Stops[1].Profit != 10000 || route.Stops[3].Profit != 5000 {
		t.Errorf("Expected delivery stops to carry leg profits, got %d and %d",
			route.Stops[1].Profit, route.Stops[3].Profit)
	}
}

func TestGenerateRoute_MaxStopsBoundsOpportunities(t *testing.T) {
	svc := newTestService(chainSnapshot())

	route := svc.GenerateRoute(1, types.OpportunityFilter{}, 2)
	if route == nil {
		t.Fatal("Expected a route")
	}
	if len(route.Stops) != 2 {
		t.Errorf("Expected a 2-stop route under a stop budget of 2, got %d stops", len(route.Stops))
	}
	if route.Opportunities != 1 {
		t.Errorf("Expected 1 opportunity under the stop budget, got %d", route.Opportunities)
	}
	// The single pair taken is the best one.
	if route.TotalProfit != 10000 {
		t.Errorf("Expected the best pair only, got profit %d", route.TotalProfit)
	}
}

func TestGenerateRoute_UnknownBase(t *testing.T) {
	svc := newTestService(chainSnapshot())

	if route := svc.GenerateRoute(999, types.OpportunityFilter{}, 8); route != nil {
		t.Errorf("Expected nil route for a market outside the snapshot, got %+v", route)
	}
}

func TestGenerateRoute_DetourCapExcludesBackhauls(t *testing.T) {
	// A profitable pair whose pickup is 10000km out but whose delivery is
	// right next to the base. Hauling out and back violates the detour cap.
	markets := []types.Market{
		{
			MarketID: 1, Name: "Base", Position: &types.Vector3{X: 0},
			Orders: []types.Order{
				{OrderID: 1, MarketID: 1, ItemType: 100, ItemName: "Hematite", SellQuantity: 10, Price: 100},
			},
		},
		{
			MarketID: 2, Name: "Near", Position: &types.Vector3{X: 50},
			Orders: []types.Order{
				{OrderID: 2, MarketID: 2, ItemType: 100, ItemName: "Hematite", BuyQuantity: 10, Price: 200},
				{OrderID: 3, MarketID: 2, ItemType: 300, ItemName: "Cryolite", BuyQuantity: 10, Price: 900},
			},
		},
		{
			MarketID: 4, Name: "Far", Position: &types.Vector3{X: 10_000},
			Orders: []types.Order{
				{OrderID: 4, MarketID: 4, ItemType: 300, ItemName: "Cryolite", SellQuantity: 10, Price: 100},
			},
		},
	}
	c := cache.NewSnapshotCache(time.Minute)
	c.Replace(markets, nil)
	svc := newTestService(c)

	route := svc.GenerateRoute(1, types.OpportunityFilter{}, 8)
	if route == nil {
		t.Fatal("Expected a route")
	}
	for _, stop := range route.Stops {
		if stop.MarketID == 4 {
			t.Errorf("Expected the far backhaul pickup to be excluded, found stop at market 4")
		}
	}
	if route.Opportunities != 1 {
		t.Errorf("Expected only the local pair, got %d opportunities", route.Opportunities)
	}
}

func TestGenerateOptimizedRoutes_DisjointRoutes(t *testing.T) {
	// The chain cluster plus a second cluster a million kilometers out.
	// With a stop budget of 4 the first route cannot absorb the far pair,
	// so it seeds a second, disjoint route.
	markets := []types.Market{
		{
			MarketID: 1, Name: "Alpha", Position: &types.Vector3{X: 0},
			Orders: []types.Order{
				{OrderID: 1, MarketID: 1, ItemType: 100, ItemName: "Hematite", SellQuantity: 100, Price: 100},
			},
		},
		{
			MarketID: 2, Name: "Beta", Position: &types.Vector3{X: 100},
			Orders: []types.Order{
				{OrderID: 2, MarketID: 2, ItemType: 100, ItemName: "Hematite", BuyQuantity: 100, Price: 200},
				{OrderID: 3, MarketID: 2, ItemType: 200, ItemName: "Bauxite", SellQuantity: 50, Price: 100},
			},
		},
		{
			MarketID: 3, Name: "Gamma", Position: &types.Vector3{X: 200},
			Orders: []types.Order{
				{OrderID: 4, MarketID: 3, ItemType: 200, ItemName: "Bauxite", BuyQuantity: 50, Price: 200},
			},
		},
		{
			MarketID: 10, Name: "Outpost", Position: &types.Vector3{X: 1_000_000},
			Orders: []types.Order{
				{OrderID: 5, MarketID: 10, ItemType: 400, ItemName: "Iron Ingot", SellQuantity: 40, Price: 100},
			},
		},
		{
			MarketID: 11, Name: "Relay", Position: &types.Vector3{X: 1_000_100},
			Orders: []types.Order{
				{OrderID: 6, MarketID: 11, ItemType: 400, ItemName: "Iron Ingot", BuyQuantity: 40, Price: 300},
			},
		},
	}
	c := cache.NewSnapshotCache(time.Minute)
	c.Replace(markets, nil)
	svc := newTestService(c)

	routes := svc.GenerateOptimizedRoutes(types.OpportunityFilter{}, 3, 4)
	if len(routes) != 2 {
		t.Fatalf("Expected 2 routes before the opportunity set runs out, got %d", len(routes))
	}

	first, second := routes[0], routes[1]
	if first.StartMarketID != 1 {
		t.Errorf("Expected the first route to start at the best opportunity's source, got %d", first.StartMarketID)
	}
	if first.TotalProfit != 15000 {
		t.Errorf("Expected the first route to take the chain, got profit %d", first.TotalProfit)
	}
	if second.StartMarketID != 10 {
		t.Errorf("Expected the second route to start at the far cluster, got %d", second.StartMarketID)
	}
	if second.TotalProfit != 8000 {
		t.Errorf("Expected the far pair's profit on the second route, got %d", second.TotalProfit)
	}

	// Routes never share a market visit: the consumed pairs are disjoint.
	seen := make(map[int64]bool)
	for _, stop := range first.Stops {
		seen[stop.MarketID] = true
	}
	for _, stop := range second.Stops {
		if seen[stop.MarketID] {
			t.Errorf("Expected disjoint routes, market %d appears in both", stop.MarketID)
		}
	}
}

func TestGenerateOptimizedRoutes_EmptyOpportunitySet(t *testing.T) {
	c := cache.NewSnapshotCache(time.Minute)
	svc := newTestService(c)

	routes := svc.GenerateOptimizedRoutes(types.OpportunityFilter{}, 3, 8)
	if routes == nil {
		t.Error("Expected empty slice, not nil")
	}
	if len(routes) != 0 {
		t.Errorf("Expected no routes from an empty snapshot, got %d", len(routes))
	}
}

func TestGenerateOptimizedRoutes_ClampsRouteBudget(t *testing.T) {
	svc := newTestService(chainSnapshot())

	// A non-positive budget falls back to the default rather than zero.
	routes := svc.GenerateOptimizedRoutes(types.OpportunityFilter{}, 0, 8)
	if len(routes) == 0 {
		t.Error("Expected defaulted route budget to produce at least one route")
	}
}
