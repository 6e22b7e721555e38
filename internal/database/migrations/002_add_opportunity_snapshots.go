package migrations

import (
	"github.com/ksred/startrader-api/internal/history"
	"gorm.io/gorm"
)

// AddOpportunitySnapshots creates the opportunity snapshot table and required indexes
func AddOpportunitySnapshots(db *gorm.DB) error {
	// Create the opportunity snapshot table
	if err := db.AutoMigrate(&history.OpportunitySnapshot{}); err != nil {
		return err
	}

	// Add indexes for better query performance
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Composite index for per-cycle ranked reads
		`CREATE INDEX IF NOT EXISTS idx_opportunity_snapshots_cycle_rank
		 ON opportunity_snapshots(cycle_id, rank)`,

		// Index for item name lookups
		`CREATE INDEX IF NOT EXISTS idx_opportunity_snapshots_item_name
		 ON opportunity_snapshots(item_name)`,

		// Index for created_at timestamp (useful for time-based queries)
		`CREATE INDEX IF NOT EXISTS idx_opportunity_snapshots_created_at
		 ON opportunity_snapshots(created_at)`,

		// Index for profit ordering across cycles
		`CREATE INDEX IF NOT EXISTS idx_opportunity_snapshots_total_profit
		 ON opportunity_snapshots(total_profit)`,
	}

	// Execute each index creation
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
