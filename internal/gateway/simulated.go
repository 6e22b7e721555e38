package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ksred/startrader-api/internal/types"
	"github.com/rs/zerolog/log"
)

// SimulatedClient is an in-process stand-in for the game-server gateway.
// It serves a small fixed universe of planets, constructs and markets with
// randomly drifting order books, and simulates latency, transient failures
// and session expiry so the refresh pipeline can be exercised end to end
// without a live upstream.
type SimulatedClient struct {
	MinLatency  int     // milliseconds
	MaxLatency  int     // milliseconds
	FailureRate float64 // 0-1, probability any call fails transiently
	SessionTTL  time.Duration

	mu           sync.Mutex
	sessionStart time.Time
	orderSeq     int64
}

type simMarket struct {
	MarketID    int64
	Name        string
	OwnerID     int64
	ConstructID int64
}

type simConstruct struct {
	ConstructID int64
	ParentID    int64
	Position    types.Vector3 // relative to parent when ParentID != 0
}

type simItem struct {
	ItemType  int64
	Key       string
	BasePrice int64 // minor units per unit
}

var simMarkets = []simMarket{
	{MarketID: 1, Name: "Aurelia Central Market", OwnerID: 9001, ConstructID: 101},
	{MarketID: 2, Name: "Aurelia North Terminal", OwnerID: 9001, ConstructID: 102},
	{MarketID: 3, Name: "Veyra Trade Ring", OwnerID: 9002, ConstructID: 202},
	{MarketID: 4, Name: "Thalassa Dockyards", OwnerID: 9003, ConstructID: 301},
	{MarketID: 5, Name: "Okoro Freeport", OwnerID: 9004, ConstructID: 401},
	{MarketID: 6, Name: "Merakh Depot", OwnerID: 9002, ConstructID: 501},
	{MarketID: 7, Name: "Senda Relay Market", OwnerID: 9005, ConstructID: 601},
	{MarketID: 8, Name: "Kessel Drift Exchange", OwnerID: 9006, ConstructID: 701},
}

// Construct positions mirror the planet layout: most constructs sit within a
// planet's capture radius, Kessel Drift deliberately does not. The Veyra and
// Senda entries carry parent chains so position resolution has hierarchy to
// walk.
var simConstructs = map[int64]simConstruct{
	101: {ConstructID: 101, Position: types.Vector3{X: 1200, Y: 2100, Z: 0}},
	102: {ConstructID: 102, Position: types.Vector3{X: -900, Y: 1500, Z: 350}},
	201: {ConstructID: 201, Position: types.Vector3{X: 4.0e6, Y: 52000, Z: 0}},
	202: {ConstructID: 202, ParentID: 201, Position: types.Vector3{X: 13000, Y: 0, Z: 400}},
	301: {ConstructID: 301, Position: types.Vector3{X: -2.5e6, Y: 3.0e6, Z: 1800}},
	401: {ConstructID: 401, Position: types.Vector3{X: 400, Y: -5.0e6, Z: 1.0e6}},
	501: {ConstructID: 501, Position: types.Vector3{X: 7.0e6, Y: 2.0e6, Z: -1.5e6}},
	602: {ConstructID: 602, Position: types.Vector3{X: -6.0e6, Y: -4.0e6, Z: 2.0e6}},
	601: {ConstructID: 601, ParentID: 602, Position: types.Vector3{X: 0, Y: 8000, Z: -250}},
	701: {ConstructID: 701, Position: types.Vector3{X: 1.6e7, Y: 1.1e7, Z: 6.0e6}},
}

var simItems = []simItem{
	{ItemType: 1001, Key: "ore_hematite", BasePrice: 2500},
	{ItemType: 1002, Key: "ore_bauxite", BasePrice: 2200},
	{ItemType: 1003, Key: "ore_cryolite", BasePrice: 8100},
	{ItemType: 2001, Key: "ingot_iron", BasePrice: 5400},
	{ItemType: 2002, Key: "ingot_aluminium", BasePrice: 6300},
	{ItemType: 2003, Key: "ingot_silver", BasePrice: 15800},
	{ItemType: 3001, Key: "fuel_kergon", BasePrice: 9900},
	{ItemType: 4001, Key: "component_basic_led", BasePrice: 1200},
	{ItemType: 4002, Key: "component_pipe", BasePrice: 950},
	{ItemType: 5001, Key: "scrap_alloy", BasePrice: 600},
}

var simPlayers = map[int64]string{
	9001: "VegaPrime",
	9002: "orbital-hauler",
	9003: "Cassiter",
	9004: "FreeportAuthority",
	9005: "lonestar_trading",
	9006: "DriftSyndicate",
}

// Per-market price bias so the same item clears at different prices on
// different markets, which is what makes cross-market arbitrage possible.
var simMarketBias = map[int64]float64{
	1: 1.00, 2: 0.97, 3: 1.08, 4: 0.92, 5: 0.88, 6: 1.12, 7: 0.95, 8: 1.25,
}

// NewSimulatedClient returns a simulated gateway with a live session and
// default latency/failure characteristics.
func NewSimulatedClient() *SimulatedClient {
	return &SimulatedClient{
		MinLatency:   5,
		MaxLatency:   60,
		FailureRate:  0.03,
		SessionTTL:   30 * time.Minute,
		sessionStart: time.Now(),
	}
}

func (s *SimulatedClient) ListMarketsWithLocation(ctx context.Context) ([]MarketLocation, error) {
	if err := s.beforeCall(ctx, "list_markets"); err != nil {
		return nil, err
	}

	locations := make([]MarketLocation, 0, len(simMarkets))
	for _, m := range simMarkets {
		locations = append(locations, MarketLocation{
			MarketID:    m.MarketID,
			Name:        m.Name,
			OwnerID:     m.OwnerID,
			ConstructID: m.ConstructID,
		})
	}
	return locations, nil
}

func (s *SimulatedClient) FetchOrders(ctx context.Context, marketID int64) ([]RawOrder, error) {
	if err := s.beforeCall(ctx, "fetch_orders"); err != nil {
		return nil, err
	}

	var market *simMarket
	for i := range simMarkets {
		if simMarkets[i].MarketID == marketID {
			market = &simMarkets[i]
			break
		}
	}
	if market == nil {
		return nil, fmt.Errorf("%w: %d", ErrMarketNotFound, marketID)
	}

	bias := simMarketBias[marketID]
	ownerIDs := make([]int64, 0, len(simPlayers))
	for id := range simPlayers {
		ownerIDs = append(ownerIDs, id)
	}

	count := rand.Intn(8) + 4
	orders := make([]RawOrder, 0, count)
	for i := 0; i < count; i++ {
		item := simItems[rand.Intn(len(simItems))]

		// Buys clear below the biased price, sells above, with enough
		// jitter that books on differently-biased markets cross.
		price := float64(item.BasePrice) * bias
		qty := int64(rand.Intn(400) + 10)
		if rand.Intn(2) == 0 {
			price *= 1 - (rand.Float64() * 0.12)
			qty = -qty
		} else {
			price *= 1 + (rand.Float64() * 0.12)
		}

		s.mu.Lock()
		s.orderSeq++
		orderID := s.orderSeq
		s.mu.Unlock()

		orders = append(orders, RawOrder{
			OrderID:   orderID,
			MarketID:  marketID,
			ItemType:  item.ItemType,
			Quantity:  qty,
			Price:     int64(price),
			OwnerID:   ownerIDs[rand.Intn(len(ownerIDs))],
			ExpiresAt: time.Now().Add(time.Duration(rand.Intn(72)+1) * time.Hour),
			UpdatedAt: time.Now(),
		})
	}

	log.Debug().
		Int64("market_id", marketID).
		Int("orders", len(orders)).
		Msg("simulated order book generated")

	return orders, nil
}

func (s *SimulatedClient) ResolvePlayerName(ctx context.Context, playerID int64) (string, error) {
	if err := s.beforeCall(ctx, "resolve_player"); err != nil {
		return "", err
	}
	name, ok := simPlayers[playerID]
	if !ok {
		return "", fmt.Errorf("player %d not known upstream", playerID)
	}
	return name, nil
}

func (s *SimulatedClient) ResolveItemKey(ctx context.Context, itemType int64) (string, error) {
	if err := s.beforeCall(ctx, "resolve_item"); err != nil {
		return "", err
	}
	for _, item := range simItems {
		if item.ItemType == itemType {
			return item.Key, nil
		}
	}
	return "", fmt.Errorf("item type %d not known upstream", itemType)
}

func (s *SimulatedClient) GetConstructPosition(ctx context.Context, constructID int64) (*ConstructPosition, error) {
	if err := s.beforeCall(ctx, "construct_position"); err != nil {
		return nil, err
	}
	c, ok := simConstructs[constructID]
	if !ok {
		return nil, fmt.Errorf("construct %d not known upstream", constructID)
	}
	return &ConstructPosition{
		ConstructID: c.ConstructID,
		ParentID:    c.ParentID,
		Position:    c.Position,
	}, nil
}

// RenewSession re-establishes the simulated session.
func (s *SimulatedClient) RenewSession(ctx context.Context) error {
	s.simLatency(ctx)

	s.mu.Lock()
	s.sessionStart = time.Now()
	s.mu.Unlock()

	log.Info().Str("component", "simulated_gateway").Msg("session renewed")
	return nil
}

// ExpireSession forces the next calls to fail with ErrSessionInvalid.
// Used by the simulation binary to exercise the renewal path.
func (s *SimulatedClient) ExpireSession() {
	s.mu.Lock()
	s.sessionStart = time.Time{}
	s.mu.Unlock()
}

// beforeCall applies the shared call simulation: latency, session check,
// then the transient failure dice.
func (s *SimulatedClient) beforeCall(ctx context.Context, op string) error {
	s.simLatency(ctx)

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	sessionOK := !s.sessionStart.IsZero() && (s.SessionTTL <= 0 || time.Since(s.sessionStart) < s.SessionTTL)
	s.mu.Unlock()

	if !sessionOK {
		return fmt.Errorf("%s: %w", op, ErrSessionInvalid)
	}

	if rand.Float64() < s.FailureRate {
		log.Warn().
			Str("component", "simulated_gateway").
			Str("op", op).
			Float64("failure_rate", s.FailureRate).
			Msg("simulated transient failure")
		return fmt.Errorf("simulated %s failure: connection reset", op)
	}

	return nil
}

func (s *SimulatedClient) simLatency(ctx context.Context) {
	if s.MaxLatency <= 0 {
		return
	}
	spread := s.MaxLatency - s.MinLatency + 1
	latency := time.Duration(rand.Intn(spread)+s.MinLatency) * time.Millisecond
	select {
	case <-ctx.Done():
	case <-time.After(latency):
	}
}
