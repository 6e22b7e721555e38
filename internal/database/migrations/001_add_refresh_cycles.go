package migrations

import (
	"github.com/ksred/startrader-api/internal/history"
	"gorm.io/gorm"
)

func AddRefreshCycles(db *gorm.DB) error {
	if err := db.AutoMigrate(&history.RefreshCycle{}); err != nil {
		return err
	}

	return nil
}
