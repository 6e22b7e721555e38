package positions

import (
	"context"
	"errors"
	"testing"

	"github.com/ksred/startrader-api/internal/gateway"
	"github.com/ksred/startrader-api/internal/types"
)

// fakeClient serves a construct tree and market list from maps. Construct
// lookups are counted so tests can assert on walk behavior.
type fakeClient struct {
	markets        []gateway.MarketLocation
	constructs     map[int64]gateway.ConstructPosition
	constructCalls int
	listErr        error
	constructErr   error
}

func (f *fakeClient) ListMarketsWithLocation(ctx context.Context) ([]gateway.MarketLocation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.markets, nil
}

func (f *fakeClient) FetchOrders(ctx context.Context, marketID int64) ([]gateway.RawOrder, error) {
	return nil, nil
}

func (f *fakeClient) ResolvePlayerName(ctx context.Context, playerID int64) (string, error) {
	return "", nil
}

func (f *fakeClient) ResolveItemKey(ctx context.Context, itemType int64) (string, error) {
	return "", nil
}

func (f *fakeClient) GetConstructPosition(ctx context.Context, constructID int64) (*gateway.ConstructPosition, error) {
	f.constructCalls++
	if f.constructErr != nil {
		return nil, f.constructErr
	}
	cp, ok := f.constructs[constructID]
	if !ok {
		return nil, errors.New("construct not found")
	}
	return &cp, nil
}

func (f *fakeClient) RenewSession(ctx context.Context) error {
	return nil
}

func TestLoad_ParentChainAccumulation(t *testing.T) {
	// Construct 3 sits on 2 which sits on root 1: absolute position is the
	// sum of the relative offsets.
	client := &fakeClient{
		markets: []gateway.MarketLocation{
			{MarketID: 100, Name: "Orbital Yard", ConstructID: 3},
		},
		constructs: map[int64]gateway.ConstructPosition{
			1: {ConstructID: 1, ParentID: 0, Position: types.Vector3{X: 1000, Y: 0, Z: 0}},
			2: {ConstructID: 2, ParentID: 1, Position: types.Vector3{X: 0, Y: 200, Z: 0}},
			3: {ConstructID: 3, ParentID: 2, Position: types.Vector3{X: 0, Y: 0, Z: 30}},
		},
	}
	r := NewResolver(client, DefaultPlanets())

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Expected Load to succeed, got %v", err)
	}

	site, ok := r.Site(100)
	if !ok {
		t.Fatal("Expected market 100 in the location table")
	}
	if site.Position == nil {
		t.Fatal("Expected a resolved position")
	}
	want := types.Vector3{X: 1000, Y: 200, Z: 30}
	if *site.Position != want {
		t.Errorf("Expected accumulated position %+v, got %+v", want, *site.Position)
	}
}

func TestLoad_PlanetAssignmentByCaptureRadius(t *testing.T) {
	client := &fakeClient{
		markets: []gateway.MarketLocation{
			{MarketID: 1, Name: "Near Veyra", ConstructID: 10},
			{MarketID: 2, Name: "Adrift", ConstructID: 20},
		},
		constructs: map[int64]gateway.ConstructPosition{
			// 500km off Veyra's center at 4.0e6 on X.
			10: {ConstructID: 10, Position: types.Vector3{X: 4.0e6 + 500}},
			// Millions of km from everything.
			20: {ConstructID: 20, Position: types.Vector3{X: 2.0e6, Y: 2.0e6, Z: 2.0e6}},
		},
	}
	r := NewResolver(client, DefaultPlanets())

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Expected Load to succeed, got %v", err)
	}

	near, _ := r.Site(1)
	if near.PlanetName != "Veyra" {
		t.Errorf("Expected market inside capture radius assigned to Veyra, got %q", near.PlanetName)
	}

	adrift, _ := r.Site(2)
	if adrift.PlanetID != types.DeepSpacePlanetID || adrift.PlanetName != types.DeepSpacePlanetName {
		t.Errorf("Expected deep-space assignment, got %d %q", adrift.PlanetID, adrift.PlanetName)
	}
}

func TestLoad_CycleInParentChain(t *testing.T) {
	client := &fakeClient{
		markets: []gateway.MarketLocation{
			{MarketID: 1, Name: "Broken", ConstructID: 5},
		},
		constructs: map[int64]gateway.ConstructPosition{
			5: {ConstructID: 5, ParentID: 6, Position: types.Vector3{X: 1}},
			6: {ConstructID: 6, ParentID: 5, Position: types.Vector3{X: 2}},
		},
	}
	r := NewResolver(client, DefaultPlanets())

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Expected Load to isolate the cycle, got %v", err)
	}

	site, _ := r.Site(1)
	if site.Position != nil {
		t.Error("Expected nil position for a cyclic parent chain")
	}
	if site.PlanetName != types.DeepSpacePlanetName {
		t.Errorf("Expected deep-space fallback, got %q", site.PlanetName)
	}
}

func TestLoad_DepthCap(t *testing.T) {
	// Build a chain one hop deeper than the cap.
	constructs := make(map[int64]gateway.ConstructPosition)
	for i := int64(1); i <= maxConstructDepth+1; i++ {
		constructs[i] = gateway.ConstructPosition{
			ConstructID: i,
			ParentID:    i + 1,
			Position:    types.Vector3{X: 1},
		}
	}
	top := int64(maxConstructDepth + 2)
	constructs[top] = gateway.ConstructPosition{ConstructID: top, Position: types.Vector3{X: 1}}

	client := &fakeClient{
		markets: []gateway.MarketLocation{
			{MarketID: 1, Name: "Deep Chain", ConstructID: 1},
		},
		constructs: constructs,
	}
	r := NewResolver(client, DefaultPlanets())

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Expected Load to isolate the over-deep chain, got %v", err)
	}

	site, _ := r.Site(1)
	if site.Position != nil {
		t.Error("Expected nil position when the parent chain exceeds the depth cap")
	}
}

func TestLoad_RejectsOutOfRangePosition(t *testing.T) {
	client := &fakeClient{
		markets: []gateway.MarketLocation{
			{MarketID: 1, Name: "Glitched", ConstructID: 9},
		},
		constructs: map[int64]gateway.ConstructPosition{
			9: {ConstructID: 9, Position: types.Vector3{X: types.MaxPositionMagnitude * 10}},
		},
	}
	r := NewResolver(client, DefaultPlanets())

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Expected Load to isolate the bad position, got %v", err)
	}

	site, _ := r.Site(1)
	if site.Position != nil {
		t.Error("Expected out-of-range position to be rejected")
	}
}

func TestLoad_SessionInvalidAborts(t *testing.T) {
	client := &fakeClient{
		markets: []gateway.MarketLocation{
			{MarketID: 1, ConstructID: 1},
		},
		constructErr: gateway.ErrSessionInvalid,
	}
	r := NewResolver(client, DefaultPlanets())

	err := r.Load(context.Background())
	if !errors.Is(err, gateway.ErrSessionInvalid) {
		t.Errorf("Expected session-invalid to abort the load, got %v", err)
	}
	if r.Loaded() {
		t.Error("Expected resolver to stay unloaded after an aborted load")
	}
}

func TestLoad_ConstructCacheSharedAcrossMarkets(t *testing.T) {
	// Two markets on the same construct: the chain is walked once.
	client := &fakeClient{
		markets: []gateway.MarketLocation{
			{MarketID: 1, ConstructID: 7},
			{MarketID: 2, ConstructID: 7},
		},
		constructs: map[int64]gateway.ConstructPosition{
			7: {ConstructID: 7, Position: types.Vector3{X: 123}},
		},
	}
	r := NewResolver(client, DefaultPlanets())

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Expected Load to succeed, got %v", err)
	}
	if client.constructCalls != 1 {
		t.Errorf("Expected 1 construct fetch for a shared construct, got %d", client.constructCalls)
	}
}

func TestDistance(t *testing.T) {
	client := &fakeClient{
		markets: []gateway.MarketLocation{
			{MarketID: 1, ConstructID: 1},
			{MarketID: 2, ConstructID: 2},
			{MarketID: 3, ConstructID: 3},
		},
		constructs: map[int64]gateway.ConstructPosition{
			1: {ConstructID: 1, Position: types.Vector3{}},
			2: {ConstructID: 2, Position: types.Vector3{X: 3000, Y: 4000}},
			// Construct 3 is missing, so market 3 has no position.
		},
	}
	r := NewResolver(client, DefaultPlanets())

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Expected Load to succeed, got %v", err)
	}

	if d := r.Distance(1, 2); d != 5000 {
		t.Errorf("Expected distance 5000, got %f", d)
	}
	if r.Distance(1, 2) != r.Distance(2, 1) {
		t.Error("Expected distance to be symmetric")
	}
	if d := r.Distance(1, 3); d != 0 {
		t.Errorf("Expected zero distance to an unresolved market, got %f", d)
	}
	if d := r.Distance(1, 999); d != 0 {
		t.Errorf("Expected zero distance to an unknown market, got %f", d)
	}
}

func TestResetAndLoaded(t *testing.T) {
	client := &fakeClient{
		markets: []gateway.MarketLocation{
			{MarketID: 1, ConstructID: 1},
		},
		constructs: map[int64]gateway.ConstructPosition{
			1: {ConstructID: 1, Position: types.Vector3{X: 1}},
		},
	}
	r := NewResolver(client, DefaultPlanets())

	if r.Loaded() {
		t.Error("Expected new resolver to be unloaded")
	}

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Expected Load to succeed, got %v", err)
	}
	if !r.Loaded() {
		t.Error("Expected resolver to report loaded")
	}
	if len(r.Sites()) != 1 {
		t.Errorf("Expected 1 site, got %d", len(r.Sites()))
	}

	r.Reset()
	if r.Loaded() {
		t.Error("Expected resolver to be unloaded after Reset")
	}
	if len(r.Sites()) != 0 {
		t.Errorf("Expected empty table after Reset, got %d sites", len(r.Sites()))
	}
}
