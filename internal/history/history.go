package history

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ksred/startrader-api/internal/types"
	"github.com/ksred/startrader-api/pkg/response"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Service records refresh cycles and per-cycle top-opportunity snapshots.
// The snapshot cache itself is memory-only; this is the only state that
// survives a restart.
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// RecordCycle persists one refresh cycle summary.
func (s *Service) RecordCycle(cycle *RefreshCycle) error {
	if err := s.db.CreateRefreshCycle(cycle); err != nil {
		return fmt.Errorf("failed to create refresh cycle record: %w", err)
	}
	return nil
}

// RecordTopOpportunities persists the ranked top opportunities computed
// right after a committed cycle.
func (s *Service) RecordTopOpportunities(cycleID string, opportunities []types.ProfitOpportunity) error {
	snapshots := make([]OpportunitySnapshot, 0, len(opportunities))
	for i, opp := range opportunities {
		snapshots = append(snapshots, OpportunitySnapshot{
			CycleID:        cycleID,
			Rank:           i + 1,
			ItemType:       opp.ItemType,
			ItemName:       opp.ItemName,
			BuyPrice:       opp.BuyPrice,
			SellPrice:      opp.SellPrice,
			ProfitPerUnit:  opp.ProfitPerUnit,
			MaxQuantity:    opp.MaxQuantity,
			TotalProfit:    opp.TotalProfit,
			MarginPercent:  opp.MarginPercent,
			SourceMarketID: opp.SourceMarketID,
			SourceMarket:   opp.SourceMarket,
			DestMarketID:   opp.DestMarketID,
			DestMarket:     opp.DestMarket,
			DistanceKm:     opp.Distance,
			ProfitPerKm:    opp.ProfitPerKm,
		})
	}
	if err := s.db.CreateOpportunitySnapshots(snapshots); err != nil {
		return fmt.Errorf("failed to create opportunity snapshots: %w", err)
	}
	return nil
}

// RecentCycles returns the newest refresh cycles, newest first.
func (s *Service) RecentCycles(limit int) ([]RefreshCycle, error) {
	return s.db.GetRecentRefreshCycles(clampLimit(limit))
}

// Cycle returns one refresh cycle by its identifier.
func (s *Service) Cycle(cycleID string) (*RefreshCycle, error) {
	return s.db.GetRefreshCycle(cycleID)
}

// CycleOpportunities returns the ranked opportunity snapshot for one cycle.
func (s *Service) CycleOpportunities(cycleID string) ([]OpportunitySnapshot, error) {
	return s.db.GetOpportunitySnapshotsByCycle(cycleID)
}

// RecentOpportunities returns the newest opportunity snapshots.
func (s *Service) RecentOpportunities(limit int) ([]OpportunitySnapshot, error) {
	return s.db.GetRecentOpportunitySnapshots(clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for history endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// RecentCyclesHandler handles GET requests for recent refresh cycles
// Requires a valid JWT token
// Query parameter: limit
func (h *GinHandlers) RecentCyclesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
		if err != nil {
			response.BadRequest(c, "limit must be an integer")
			return
		}

		cycles, err := h.service.RecentCycles(limit)
		response.Handle(c, gin.H{
			"cycles": cycles,
			"count":  len(cycles),
		}, err)
	}
}

// CycleHandler handles GET requests for one refresh cycle and its top opportunities
// Requires a valid JWT token
// URL parameter: cycle_id
func (h *GinHandlers) CycleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cycleID := c.Param("cycle_id")
		if cycleID == "" {
			response.BadRequest(c, "Cycle ID is required")
			return
		}

		cycle, err := h.service.Cycle(cycleID)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		opportunities, err := h.service.CycleOpportunities(cycleID)
		response.Handle(c, gin.H{
			"cycle":             cycle,
			"top_opportunities": opportunities,
		}, err)
	}
}

// RecentOpportunitiesHandler handles GET requests for recent top-opportunity snapshots
// Requires a valid JWT token
// Query parameter: limit
func (h *GinHandlers) RecentOpportunitiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
		if err != nil {
			response.BadRequest(c, "limit must be an integer")
			return
		}

		snapshots, err := h.service.RecentOpportunities(limit)
		response.Handle(c, gin.H{
			"opportunities": snapshots,
			"count":         len(snapshots),
		}, err)
	}
}
