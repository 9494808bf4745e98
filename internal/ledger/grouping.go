package ledger

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"go-stock-ledger/internal/model"
)

const (
	// NoBatchCode labels units registered without a batch code.
	NoBatchCode = "TANPA-BATCH"
	// GlobalBatchCode labels the synthetic group of a product without IN_STOCK units.
	GlobalBatchCode = "GLOBAL"
)

// BatchGroup is the unit of a stock-take: one product+batch pair.
type BatchGroup struct {
	Key                 string            `json:"key"`
	ProductID           string            `json:"product_id"`
	ProductName         string            `json:"product_name"`
	Unit                string            `json:"unit"`
	BatchCode           string            `json:"batch_code"`
	Units               []model.StockUnit `json:"units"`
	TotalSystemQty      decimal.Decimal   `json:"total_system_qty"`
	ProductStockToday   decimal.Decimal   `json:"product_stock_today"`
	ProductInitialStock decimal.Decimal   `json:"product_initial_stock"`
}

func GroupKey(productID, batchCode string) string {
	return productID + "|" + batchCode
}

// IsGlobal reports whether the group was synthesized from the cached product total.
func (g *BatchGroup) IsGlobal() bool {
	return len(g.Units) == 0
}

// Matches reports whether a scanned code names this group's product or one of its units.
func (g *BatchGroup) Matches(code string) bool {
	clean := SanitizeCode(code)
	if clean == "" {
		return false
	}
	if SanitizeCode(g.ProductID) == clean {
		return true
	}
	for i := range g.Units {
		if SanitizeCode(g.Units[i].UniqueID) == clean {
			return true
		}
	}
	return false
}

// GroupUnits partitions IN_STOCK units by (product, batch). A product with no
// IN_STOCK unit still yields one GLOBAL group carrying its cached stockToday, so
// every catalog product can be audited. Units keep their input order inside a
// group; groups are ordered by product name, then batch code.
func GroupUnits(products []model.Product, units []model.StockUnit) []BatchGroup {
	active := make(map[string][]model.StockUnit)
	for _, u := range units {
		if u.Status == model.StatusInStock {
			active[u.ProductID] = append(active[u.ProductID], u)
		}
	}

	groups := make([]BatchGroup, 0, len(products))
	for _, p := range products {
		productUnits := active[p.ID]
		if len(productUnits) == 0 {
			groups = append(groups, BatchGroup{
				Key:                 GroupKey(p.ID, GlobalBatchCode),
				ProductID:           p.ID,
				ProductName:         p.Name,
				Unit:                p.Unit,
				BatchCode:           GlobalBatchCode,
				TotalSystemQty:      p.StockToday,
				ProductStockToday:   p.StockToday,
				ProductInitialStock: p.InitialStock,
			})
			continue
		}

		byBatch := make(map[string]*BatchGroup)
		var order []string
		for _, u := range productUnits {
			batch := u.BatchCode
			if strings.TrimSpace(batch) == "" {
				batch = NoBatchCode
			}
			key := GroupKey(p.ID, batch)
			g, ok := byBatch[key]
			if !ok {
				g = &BatchGroup{
					Key:                 key,
					ProductID:           p.ID,
					ProductName:         p.Name,
					Unit:                p.Unit,
					BatchCode:           batch,
					TotalSystemQty:      decimal.Zero,
					ProductStockToday:   p.StockToday,
					ProductInitialStock: p.InitialStock,
				}
				byBatch[key] = g
				order = append(order, key)
			}
			g.Units = append(g.Units, u)
			g.TotalSystemQty = g.TotalSystemQty.Add(u.Quantity)
		}
		for _, key := range order {
			groups = append(groups, *byBatch[key])
		}
	}

	slices.SortStableFunc(groups, func(a, b BatchGroup) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.ProductName), strings.ToLower(b.ProductName)),
			cmp.Compare(a.ProductID, b.ProductID),
			cmp.Compare(a.BatchCode, b.BatchCode),
		)
	})
	return groups
}

// FilterGroups keeps groups whose product name or batch code contains search.
func FilterGroups(groups []BatchGroup, search string) []BatchGroup {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return groups
	}
	var out []BatchGroup
	for _, g := range groups {
		if strings.Contains(strings.ToLower(g.ProductName), needle) ||
			strings.Contains(strings.ToLower(g.BatchCode), needle) {
			out = append(out, g)
		}
	}
	return out
}

// FindGroup looks a group up by key.
func FindGroup(groups []BatchGroup, key string) (*BatchGroup, bool) {
	for i := range groups {
		if groups[i].Key == key {
			return &groups[i], true
		}
	}
	return nil, false
}

// FindGroupFor resolves the group an opname request was filed against. When
// the key is gone but the product still has groups, changed is true: the
// product's batches were relabelled since filing, as when units are received
// into a product that was counted as GLOBAL, and the count no longer maps onto
// one group.
func FindGroupFor(groups []BatchGroup, productID, batchCode string) (g *BatchGroup, changed bool) {
	if g, ok := FindGroup(groups, GroupKey(productID, batchCode)); ok {
		return g, false
	}
	for i := range groups {
		if groups[i].ProductID == productID {
			return nil, true
		}
	}
	return nil, false
}
