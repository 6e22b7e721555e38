package positions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ksred/startrader-api/internal/gateway"
	"github.com/ksred/startrader-api/internal/types"
)

// maxConstructDepth caps the parent-construct walk. Chains deeper than this
// are treated as unresolvable rather than followed indefinitely.
const maxConstructDepth = 10

// captureRadius is how far from a planet's center a market can sit and still
// be assigned to that planet, in kilometers. Anything further is deep space.
const captureRadius = 1_000_000

// Site is a market's resolved location. Position is nil when construct
// resolution failed for the market; such markets keep the deep-space planet.
type Site struct {
	MarketID    int64
	Name        string
	OwnerID     int64
	ConstructID int64
	Position    *types.Vector3
	PlanetID    int64
	PlanetName  string
}

// Resolver owns the market-location table: which construct each market sits
// on, the construct's absolute position, and the planet assignment. The table
// is primed at startup and re-primed after an administrative cache clear.
type Resolver struct {
	client  gateway.Client
	planets []types.Planet

	mu     sync.RWMutex
	sites  map[int64]Site
	loaded bool
}

func NewResolver(client gateway.Client, planets []types.Planet) *Resolver {
	if len(planets) == 0 {
		planets = DefaultPlanets()
	}
	return &Resolver{
		client:  client,
		planets: planets,
		sites:   make(map[int64]Site),
	}
}

// Load rebuilds the market-location table from the upstream. Individual
// construct-resolution failures are isolated: the market keeps a nil position
// and the deep-space planet. Session invalidation aborts the whole load so
// the scheduler can renew before retrying.
func (r *Resolver) Load(ctx context.Context) error {
	logger := log.With().Str("component", "position_resolver").Logger()

	locations, err := r.client.ListMarketsWithLocation(ctx)
	if err != nil {
		return fmt.Errorf("failed to list markets: %w", err)
	}

	sites := make(map[int64]Site, len(locations))
	constructCache := make(map[int64]types.Vector3)
	unresolved := 0

	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			return err
		}

		site := Site{
			MarketID:    loc.MarketID,
			Name:        loc.Name,
			OwnerID:     loc.OwnerID,
			ConstructID: loc.ConstructID,
			PlanetID:    types.DeepSpacePlanetID,
			PlanetName:  types.DeepSpacePlanetName,
		}

		pos, err := r.resolveConstruct(ctx, loc.ConstructID, constructCache)
		if err != nil {
			if errors.Is(err, gateway.ErrSessionInvalid) {
				return err
			}
			unresolved++
			logger.Warn().
				Err(err).
				Int64("market_id", loc.MarketID).
				Int64("construct_id", loc.ConstructID).
				Msg("failed to resolve market position")
		} else if !pos.Valid() {
			unresolved++
			logger.Warn().
				Int64("market_id", loc.MarketID).
				Float64("x", pos.X).
				Float64("y", pos.Y).
				Float64("z", pos.Z).
				Msg("rejecting out-of-range market position")
		} else {
			p := pos
			site.Position = &p
			site.PlanetID, site.PlanetName = r.assignPlanet(pos)
		}

		sites[loc.MarketID] = site
	}

	r.mu.Lock()
	r.sites = sites
	r.loaded = true
	r.mu.Unlock()

	logger.Info().
		Int("markets", len(sites)).
		Int("unresolved", unresolved).
		Msg("market location table loaded")

	return nil
}

// resolveConstruct walks the parent chain accumulating relative offsets into
// an absolute position. The walk is bounded by depth and a visited set so
// malformed upstream data cannot hang the refresh cycle.
func (r *Resolver) resolveConstruct(ctx context.Context, constructID int64, cache map[int64]types.Vector3) (types.Vector3, error) {
	var total types.Vector3
	visited := make(map[int64]bool)
	current := constructID

	for depth := 0; ; depth++ {
		if depth >= maxConstructDepth {
			return types.Vector3{}, fmt.Errorf("construct %d: parent chain exceeds %d hops", constructID, maxConstructDepth)
		}
		if visited[current] {
			return types.Vector3{}, fmt.Errorf("construct %d: parent chain cycle at %d", constructID, current)
		}
		visited[current] = true

		if abs, ok := cache[current]; ok {
			total = total.Add(abs)
			break
		}

		cp, err := r.client.GetConstructPosition(ctx, current)
		if err != nil {
			return types.Vector3{}, fmt.Errorf("failed to fetch construct %d: %w", current, err)
		}

		total = total.Add(cp.Position)
		if cp.ParentID == 0 {
			break
		}
		current = cp.ParentID
	}

	cache[constructID] = total
	return total, nil
}

// assignPlanet returns the nearest catalog planet within the capture radius,
// or the deep-space sentinel.
func (r *Resolver) assignPlanet(pos types.Vector3) (int64, string) {
	bestID := types.DeepSpacePlanetID
	bestName := types.DeepSpacePlanetName
	bestDist := float64(captureRadius)

	for _, p := range r.planets {
		d := types.Distance(pos, p.Position)
		if d <= bestDist {
			bestDist = d
			bestID = p.PlanetID
			bestName = p.Name
		}
	}
	return bestID, bestName
}

// Loaded reports whether the location table has been primed since the last
// reset.
func (r *Resolver) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Reset drops the location table. The next refresh cycle must reload it
// before fetching orders.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.sites = make(map[int64]Site)
	r.loaded = false
	r.mu.Unlock()
}

// Sites returns the location table entries ordered by market ID.
func (r *Resolver) Sites() []Site {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sites := make([]Site, 0, len(r.sites))
	for _, s := range r.sites {
		sites = append(sites, s)
	}
	sort.Slice(sites, func(i, j int) bool {
		return sites[i].MarketID < sites[j].MarketID
	})
	return sites
}

// Site returns a single market's location entry.
func (r *Resolver) Site(marketID int64) (Site, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sites[marketID]
	return s, ok
}

// Distance returns the distance in kilometers between two markets, or zero
// when either market is unknown or has no resolved position.
func (r *Resolver) Distance(marketA, marketB int64) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, okA := r.sites[marketA]
	b, okB := r.sites[marketB]
	if !okA || !okB || a.Position == nil || b.Position == nil {
		return 0
	}
	return types.Distance(*a.Position, *b.Position)
}

// Planets returns the planet catalog.
func (r *Resolver) Planets() []types.Planet {
	out := make([]types.Planet, len(r.planets))
	copy(out, r.planets)
	return out
}
