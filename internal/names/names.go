package names

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ksred/startrader-api/internal/gateway"
)

// Resolver turns player and item identifiers into display strings. Lookups
// never fail: on any backing error the resolver degrades to a deterministic
// placeholder and caches it.
type Resolver interface {
	ResolvePlayer(ctx context.Context, playerID int64) string
	ResolveItem(ctx context.Context, itemType int64) string
}

// displayNames maps the upstream's internal item keys to curated display
// names. Keys missing here fall back to the raw internal key.
var displayNames = map[string]string{
	"ore_hematite":        "Hematite",
	"ore_bauxite":         "Bauxite",
	"ore_cryolite":        "Cryolite",
	"ingot_iron":          "Iron Ingot",
	"ingot_aluminium":     "Aluminium Ingot",
	"ingot_silver":        "Silver Ingot",
	"fuel_kergon":         "Kergon Fuel",
	"component_basic_led": "Basic LED",
	"component_pipe":      "Pipe Section",
	"scrap_alloy":         "Alloy Scrap",
}

// Service caches name resolutions for the lifetime of the process. Entries
// are never evicted; failed lookups cache their placeholder so the failing
// call is not repeated every refresh cycle.
type Service struct {
	client gateway.Client

	mu      sync.RWMutex
	players map[int64]string
	items   map[int64]string
}

// NewService creates a name resolver backed by the given gateway. A nil
// client is tolerated: every lookup then degrades to its placeholder.
func NewService(client gateway.Client) *Service {
	return &Service{
		client:  client,
		players: make(map[int64]string),
		items:   make(map[int64]string),
	}
}

// ResolvePlayer returns the display name for a player, caching the result.
// Failed lookups cache "Player {id}" so the failing call is not repeated
// every refresh cycle.
func (s *Service) ResolvePlayer(ctx context.Context, playerID int64) string {
	s.mu.RLock()
	name, ok := s.players[playerID]
	s.mu.RUnlock()
	if ok {
		return name
	}

	name = fmt.Sprintf("Player %d", playerID)
	if s.client != nil {
		resolved, err := s.client.ResolvePlayerName(ctx, playerID)
		if err != nil {
			log.Debug().
				Err(err).
				Int64("player_id", playerID).
				Msg("player name lookup failed, caching placeholder")
		} else if resolved != "" {
			name = resolved
		}
	}

	s.mu.Lock()
	s.players[playerID] = name
	s.mu.Unlock()
	return name
}

// ResolveItem returns the display name for an item type. Resolution order:
// curated display name for the upstream's internal key, then the raw internal
// key, then "Item {type}". The result is cached either way.
func (s *Service) ResolveItem(ctx context.Context, itemType int64) string {
	s.mu.RLock()
	name, ok := s.items[itemType]
	s.mu.RUnlock()
	if ok {
		return name
	}

	name = fmt.Sprintf("Item %d", itemType)
	if s.client != nil {
		key, err := s.client.ResolveItemKey(ctx, itemType)
		if err != nil {
			log.Debug().
				Err(err).
				Int64("item_type", itemType).
				Msg("item key lookup failed, caching placeholder")
		} else if key != "" {
			if display, ok := displayNames[key]; ok {
				name = display
			} else {
				name = key
			}
		}
	}

	s.mu.Lock()
	s.items[itemType] = name
	s.mu.Unlock()
	return name
}

// Counts returns the number of cached player and item names.
func (s *Service) Counts() (players, items int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players), len(s.items)
}
