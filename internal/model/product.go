package model

import "github.com/shopspring/decimal"

// Product is a catalog entry (SKU). ID is a human-assigned code such as PMI001.
type Product struct {
	ID       string `gorm:"type:varchar(32);primaryKey" json:"id"`
	Name     string `gorm:"type:varchar(255);not null;index" json:"name" validate:"required"`
	Category string `gorm:"type:varchar(50)" json:"category"`
	Unit     string `gorm:"type:varchar(20)" json:"unit"`

	// InitialStock is the signed baseline; only master data entry and back-dated opname rewrite it.
	InitialStock decimal.Decimal `gorm:"type:numeric(18,3);not null;default:0" json:"initial_stock"`
	SafetyStock  decimal.Decimal `gorm:"type:numeric(18,3);not null;default:0" json:"safety_stock"`

	// StockToday is a materialized cache of InitialStock + Σ log quantity changes.
	// Only Recalculate and the initial-stock rewrite may write it.
	StockToday decimal.Decimal `gorm:"column:stock;type:numeric(18,3);not null;default:0" json:"stock_today"`

	Audit
}

// IsLowStock reports whether the cached total has reached the reorder threshold.
func (p *Product) IsLowStock() bool {
	return p.StockToday.LessThanOrEqual(p.SafetyStock)
}
