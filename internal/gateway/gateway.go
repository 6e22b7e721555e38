package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/ksred/startrader-api/internal/types"
)

// Failure kinds. ErrSessionInvalid marks the upstream rejecting our
// authenticated session; it is never retried locally, the caller must
// renew the session first. Anything else is a transient failure and is
// subject to backoff and the circuit breaker.
var (
	ErrSessionInvalid = errors.New("upstream session invalid")
	ErrMarketNotFound = errors.New("market not found upstream")
)

// MarketLocation is the upstream's description of where a market lives.
// Positions are not included; they are resolved through the construct chain.
type MarketLocation struct {
	MarketID    int64  `json:"market_id"`
	Name        string `json:"name"`
	OwnerID     int64  `json:"owner_id"`
	ConstructID int64  `json:"construct_id"`
}

// RawOrder is an order as the upstream reports it. Quantity is signed:
// positive quantities buy, negative quantities sell. Zero-quantity orders
// exist upstream and are skipped during snapshot assembly.
type RawOrder struct {
	OrderID   int64     `json:"order_id"`
	MarketID  int64     `json:"market_id"`
	ItemType  int64     `json:"item_type"`
	Quantity  int64     `json:"quantity"`
	Price     int64     `json:"price"`
	OwnerID   int64     `json:"owner_id"`
	ExpiresAt time.Time `json:"expires_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConstructPosition is a construct's place in the spatial hierarchy. Position
// is relative to the parent construct when ParentID is non-zero, absolute
// otherwise.
type ConstructPosition struct {
	ConstructID int64         `json:"construct_id"`
	ParentID    int64         `json:"parent_id"`
	Position    types.Vector3 `json:"position"`
}

// Client is the upstream game-server gateway. Every call can fail with
// ErrSessionInvalid or a generic transient error; callers branch with
// errors.Is rather than on error text.
type Client interface {
	ListMarketsWithLocation(ctx context.Context) ([]MarketLocation, error)
	FetchOrders(ctx context.Context, marketID int64) ([]RawOrder, error)
	ResolvePlayerName(ctx context.Context, playerID int64) (string, error)
	ResolveItemKey(ctx context.Context, itemType int64) (string, error)
	GetConstructPosition(ctx context.Context, constructID int64) (*ConstructPosition, error)
	RenewSession(ctx context.Context) error
}
