package names

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ksred/startrader-api/internal/gateway"
)

// fakeClient counts lookups and serves canned player names and item keys.
type fakeClient struct {
	mu          sync.Mutex
	playerCalls int
	itemCalls   int
	players     map[int64]string
	itemKeys    map[int64]string
	playerErr   error
	itemErr     error
}

func (f *fakeClient) ListMarketsWithLocation(ctx context.Context) ([]gateway.MarketLocation, error) {
	return nil, nil
}

func (f *fakeClient) FetchOrders(ctx context.Context, marketID int64) ([]gateway.RawOrder, error) {
	return nil, nil
}

func (f *fakeClient) ResolvePlayerName(ctx context.Context, playerID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playerCalls++
	if f.playerErr != nil {
		return "", f.playerErr
	}
	return f.players[playerID], nil
}

func (f *fakeClient) ResolveItemKey(ctx context.Context, itemType int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemCalls++
	if f.itemErr != nil {
		return "", f.itemErr
	}
	return f.itemKeys[itemType], nil
}

func (f *fakeClient) GetConstructPosition(ctx context.Context, constructID int64) (*gateway.ConstructPosition, error) {
	return nil, nil
}

func (f *fakeClient) RenewSession(ctx context.Context) error {
	return nil
}

func (f *fakeClient) calls() (players, items int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playerCalls, f.itemCalls
}

func TestResolvePlayer_CachesSuccessfulLookup(t *testing.T) {
	client := &fakeClient{players: map[int64]string{42: "Nova Corp"}}
	svc := NewService(client)
	ctx := context.Background()

	if got := svc.ResolvePlayer(ctx, 42); got != "Nova Corp" {
		t.Errorf("Expected Nova Corp, got %q", got)
	}
	if got := svc.ResolvePlayer(ctx, 42); got != "Nova Corp" {
		t.Errorf("Expected cached Nova Corp, got %q", got)
	}

	players, _ := client.calls()
	if players != 1 {
		t.Errorf("Expected 1 backing lookup, got %d", players)
	}
}

func TestResolvePlayer_FailureCachesPlaceholder(t *testing.T) {
	client := &fakeClient{playerErr: errors.New("timeout")}
	svc := NewService(client)
	ctx := context.Background()

	if got := svc.ResolvePlayer(ctx, 7); got != "Player 7" {
		t.Errorf("Expected placeholder Player 7, got %q", got)
	}

	// The placeholder is cached: the failing call must not repeat.
	svc.ResolvePlayer(ctx, 7)
	svc.ResolvePlayer(ctx, 7)

	players, _ := client.calls()
	if players != 1 {
		t.Errorf("Expected failing lookup to run once, got %d calls", players)
	}
}

func TestResolveItem_DisplayNameMapping(t *testing.T) {
	client := &fakeClient{itemKeys: map[int64]string{
		1: "ore_hematite",
		2: "unknown_future_key",
	}}
	svc := NewService(client)
	ctx := context.Background()

	if got := svc.ResolveItem(ctx, 1); got != "Hematite" {
		t.Errorf("Expected Hematite, got %q", got)
	}
	// Keys without a curated display name fall back to the raw key.
	if got := svc.ResolveItem(ctx, 2); got != "unknown_future_key" {
		t.Errorf("Expected raw key fallback, got %q", got)
	}
}

func TestResolveItem_FailureCachesPlaceholder(t *testing.T) {
	client := &fakeClient{itemErr: errors.New("upstream 500")}
	svc := NewService(client)
	ctx := context.Background()

	if got := svc.ResolveItem(ctx, 33); got != "Item 33" {
		t.Errorf("Expected placeholder Item 33, got %q", got)
	}

	svc.ResolveItem(ctx, 33)
	_, items := client.calls()
	if items != 1 {
		t.Errorf("Expected failing lookup to run once, got %d calls", items)
	}
}

func TestResolve_NilClientDegrades(t *testing.T) {
	svc := NewService(nil)
	ctx := context.Background()

	if got := svc.ResolvePlayer(ctx, 5); got != "Player 5" {
		t.Errorf("Expected Player 5 with nil client, got %q", got)
	}
	if got := svc.ResolveItem(ctx, 9); got != "Item 9" {
		t.Errorf("Expected Item 9 with nil client, got %q", got)
	}
}

func TestCounts(t *testing.T) {
	client := &fakeClient{
		players:  map[int64]string{1: "A", 2: "B"},
		itemKeys: map[int64]string{10: "ore_bauxite"},
	}
	svc := NewService(client)
	ctx := context.Background()

	svc.ResolvePlayer(ctx, 1)
	svc.ResolvePlayer(ctx, 2)
	svc.ResolveItem(ctx, 10)

	players, items := svc.Counts()
	if players != 2 {
		t.Errorf("Expected 2 cached players, got %d", players)
	}
	if items != 1 {
		t.Errorf("Expected 1 cached item, got %d", items)
	}
}
