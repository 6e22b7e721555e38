package arbitrage

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ksred/startrader-api/internal/types"
)

const exportSheet = "Opportunities"

// BuildWorkbook renders an opportunity list as an xlsx workbook, one row per
// opportunity. The caller owns the returned file and must Close it.
func BuildWorkbook(opportunities []types.ProfitOpportunity) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name export sheet: %w", err)
	}

	headers := []string{
		"Item", "Buy Price", "Sell Price", "Profit/Unit", "Quantity",
		"Total Profit", "Margin %", "Source Market", "Source Planet",
		"Destination Market", "Destination Planet", "Distance (km)", "Profit/km",
	}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for row, opp := range opportunities {
		values := []interface{}{
			opp.ItemName,
			opp.BuyPrice,
			opp.SellPrice,
			opp.ProfitPerUnit,
			opp.MaxQuantity,
			opp.TotalProfit,
			opp.MarginPercent,
			opp.SourceMarket,
			opp.SourcePlanet,
			opp.DestMarket,
			opp.DestPlanet,
			opp.Distance,
			opp.ProfitPerKm,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to address data cell: %w", err)
			}
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write data cell: %w", err)
			}
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "M", 18); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to size export columns: %w", err)
	}

	return f, nil
}
