package positions

import "github.com/ksred/startrader-api/internal/types"

// DefaultPlanets is the curated planet catalog for the home system.
// Coordinates are in kilometers from the system origin; distance-from-origin
// is derived once here so queries never recompute it.
func DefaultPlanets() []types.Planet {
	planets := []types.Planet{
		{PlanetID: 1, Name: "Aurelia", Position: types.Vector3{X: 0, Y: 0, Z: 0}},
		{PlanetID: 2, Name: "Veyra", Position: types.Vector3{X: 4.0e6, Y: 0, Z: 0}},
		{PlanetID: 3, Name: "Thalassa", Position: types.Vector3{X: -2.5e6, Y: 3.0e6, Z: 0}},
		{PlanetID: 4, Name: "Okoro", Position: types.Vector3{X: 0, Y: -5.0e6, Z: 1.0e6}},
		{PlanetID: 5, Name: "Merakh", Position: types.Vector3{X: 7.0e6, Y: 2.0e6, Z: -1.5e6}},
		{PlanetID: 6, Name: "Senda", Position: types.Vector3{X: -6.0e6, Y: -4.0e6, Z: 2.0e6}},
	}

	for i := range planets {
		planets[i].DistanceFromOrigin = planets[i].Position.Length()
	}
	return planets
}
