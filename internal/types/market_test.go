package types

import (
	"math"
	"testing"
)

func TestDistance_Symmetry(t *testing.T) {
	a := Vector3{X: 100, Y: -200, Z: 300}
	b := Vector3{X: -50, Y: 75, Z: 1250}

	if Distance(a, b) != Distance(b, a) {
		t.Errorf("Expected Distance(a,b) == Distance(b,a), got %f and %f", Distance(a, b), Distance(b, a))
	}
}

func TestDistance_Identity(t *testing.T) {
	a := Vector3{X: 1234.5, Y: -987.6, Z: 0.001}

	if d := Distance(a, a); d != 0 {
		t.Errorf("Expected zero distance to self, got %f", d)
	}
}

func TestDistance_KnownValue(t *testing.T) {
	a := Vector3{}
	b := Vector3{X: 3, Y: 4, Z: 0}

	if d := Distance(a, b); d != 5 {
		t.Errorf("Expected distance 5, got %f", d)
	}
}

func TestVector3_Add(t *testing.T) {
	a := Vector3{X: 1, Y: 2, Z: 3}
	b := Vector3{X: 10, Y: -20, Z: 30}

	sum := a.Add(b)
	want := Vector3{X: 11, Y: -18, Z: 33}
	if sum != want {
		t.Errorf("Expected %+v, got %+v", want, sum)
	}
}

func TestVector3_Valid(t *testing.T) {
	cases := []struct {
		name string
		v    Vector3
		want bool
	}{
		{"origin", Vector3{}, true},
		{"normal", Vector3{X: 1.6e7, Y: -1.1e7, Z: 6e6}, true},
		{"at ceiling", Vector3{X: MaxPositionMagnitude}, true},
		{"beyond ceiling", Vector3{X: MaxPositionMagnitude * 1.01}, false},
		{"nan", Vector3{Y: math.NaN()}, false},
		{"inf", Vector3{Z: math.Inf(1)}, false},
	}

	for _, tc := range cases {
		if got := tc.v.Valid(); got != tc.want {
			t.Errorf("%s: expected Valid() == %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestOrder_Sides(t *testing.T) {
	buy := Order{OrderID: 1, BuyQuantity: 40}
	sell := Order{OrderID: 2, SellQuantity: 15}

	if !buy.IsBuy() || buy.IsSell() {
		t.Error("Expected order with buy quantity to be a buy order")
	}
	if !sell.IsSell() || sell.IsBuy() {
		t.Error("Expected order with sell quantity to be a sell order")
	}
	if buy.Quantity() != 40 {
		t.Errorf("Expected buy quantity 40, got %d", buy.Quantity())
	}
	if sell.Quantity() != 15 {
		t.Errorf("Expected sell quantity 15, got %d", sell.Quantity())
	}
}
