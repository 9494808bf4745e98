package ledger

import (
	"slices"

	"github.com/shopspring/decimal"

	"go-stock-ledger/internal/model"
)

// LegacyBatchCode labels the pseudo-unit covering stock that predates labelling.
const LegacyBatchCode = "LEGACY"

var (
	minUnitQty = decimal.RequireFromString("0.001")
	minGapQty  = decimal.RequireFromString("0.01")
)

// BatchBreakdown lists the product's IN_STOCK units, earliest expiry first, and
// appends an unlabeled LEGACY pseudo-unit for whatever part of stockToday no
// registered unit accounts for, so the listed quantities add up to the product total.
func BatchBreakdown(p *model.Product, units []model.StockUnit) []model.StockUnit {
	var recorded []model.StockUnit
	for _, u := range units {
		if u.ProductID == p.ID && u.Status == model.StatusInStock && u.Quantity.GreaterThan(minUnitQty) {
			recorded = append(recorded, u)
		}
	}
	slices.SortStableFunc(recorded, func(a, b model.StockUnit) int {
		if a.ExpiryDate != "" && b.ExpiryDate != "" && a.ExpiryDate != b.ExpiryDate {
			if a.ExpiryDate < b.ExpiryDate {
				return -1
			}
			return 1
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	recordedSum := decimal.Zero
	for _, u := range recorded {
		recordedSum = recordedSum.Add(u.Quantity)
	}

	gap := p.StockToday.Sub(recordedSum)
	if gap.GreaterThan(minGapQty) {
		recorded = append(recorded, model.StockUnit{
			UniqueID:    "INITIAL-" + p.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			BatchCode:   LegacyBatchCode,
			ArrivalDate: "System",
			Supplier:    "Migration",
			Status:      model.StatusInStock,
			Quantity:    gap,
			IsUnlabeled: true,
		})
	}
	return recorded
}
