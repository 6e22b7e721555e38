package types

import (
	"math"
	"time"
)

// DeepSpacePlanetID is the sentinel planet for markets that sit outside
// every planet's capture radius.
const (
	DeepSpacePlanetID   int64 = 0
	DeepSpacePlanetName       = "Deep Space"
)

// MaxPositionMagnitude is the sanity ceiling for any coordinate component,
// in kilometers. Positions beyond it are treated as unresolved.
const MaxPositionMagnitude = 5e11

// Vector3 is an absolute position in 3D space, in kilometers.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns the component-wise sum of two vectors.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Length returns the vector's magnitude in kilometers.
func (v Vector3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Valid reports whether all components are finite and within the sanity ceiling.
func (v Vector3) Valid() bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
		if math.Abs(c) > MaxPositionMagnitude {
			return false
		}
	}
	return true
}

// Distance returns the Euclidean distance between two positions in kilometers.
// It is symmetric and zero for identical points.
func Distance(a, b Vector3) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Market is a trading location in the cached snapshot. Position is nil until
// construct resolution succeeds for the market's construct.
type Market struct {
	MarketID    int64     `json:"market_id"`
	Name        string    `json:"name"`
	ConstructID int64     `json:"construct_id"`
	OwnerID     int64     `json:"owner_id"`
	OwnerName   string    `json:"owner_name"`
	PlanetID    int64     `json:"planet_id"`
	PlanetName  string    `json:"planet_name"`
	Position    *Vector3  `json:"position,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
	Orders      []Order   `json:"orders,omitempty"`
}

// Order is a single buy or sell order on a market. Exactly one of BuyQuantity
// and SellQuantity is non-zero. Price is in minor currency units per unit.
type Order struct {
	OrderID      int64     `json:"order_id"`
	MarketID     int64     `json:"market_id"`
	ItemType     int64     `json:"item_type"`
	ItemName     string    `json:"item_name"`
	BuyQuantity  int64     `json:"buy_quantity"`
	SellQuantity int64     `json:"sell_quantity"`
	Price        int64     `json:"price"`
	OwnerID      int64     `json:"owner_id"`
	OwnerName    string    `json:"owner_name"`
	ExpiresAt    time.Time `json:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsBuy reports whether the order is buying (the market pays out).
func (o Order) IsBuy() bool {
	return o.BuyQuantity > 0
}

// IsSell reports whether the order is selling (the market charges).
func (o Order) IsSell() bool {
	return o.SellQuantity > 0
}

// Quantity returns the order's effective quantity, whichever side is non-zero.
func (o Order) Quantity() int64 {
	if o.BuyQuantity > 0 {
		return o.BuyQuantity
	}
	return o.SellQuantity
}

// Planet is a catalog entry used for market planet assignment.
type Planet struct {
	PlanetID           int64   `json:"planet_id"`
	Name               string  `json:"name"`
	Position           Vector3 `json:"position"`
	DistanceFromOrigin float64 `json:"distance_from_origin"`
}
