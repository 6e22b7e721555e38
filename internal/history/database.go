package history

import (
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateRefreshCycle(cycle *RefreshCycle) error {
	return d.db.Create(cycle).Error
}

func (d *Database) GetRefreshCycle(cycleID string) (*RefreshCycle, error) {
	var cycle RefreshCycle
	if err := d.db.Where("cycle_id = ?", cycleID).First(&cycle).Error; err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (d *Database) GetRecentRefreshCycles(limit int) ([]RefreshCycle, error) {
	var cycles []RefreshCycle
	if err := d.db.Order("created_at DESC").Limit(limit).Find(&cycles).Error; err != nil {
		return nil, err
	}
	return cycles, nil
}

func (d *Database) CreateOpportunitySnapshots(snapshots []OpportunitySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return d.db.Create(&snapshots).Error
}

func (d *Database) GetOpportunitySnapshotsByCycle(cycleID string) ([]OpportunitySnapshot, error) {
	var snapshots []OpportunitySnapshot
	if err := d.db.Where("cycle_id = ?", cycleID).Order("rank ASC").Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (d *Database) GetRecentOpportunitySnapshots(limit int) ([]OpportunitySnapshot, error) {
	var snapshots []OpportunitySnapshot
	if err := d.db.Order("created_at DESC, rank ASC").Limit(limit).Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}
