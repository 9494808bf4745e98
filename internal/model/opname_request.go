package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OpnameStatus string

const (
	OpnamePending  OpnameStatus = "PENDING"
	OpnameApproved OpnameStatus = "APPROVED"
	OpnameRejected OpnameStatus = "REJECTED"
)

// OpnameRequest is a reconciliation proposal submitted by a non-admin user.
type OpnameRequest struct {
	ID          string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	ProductID   string          `gorm:"type:varchar(32);not null;index" json:"product_id"`
	ProductName string          `gorm:"type:varchar(255)" json:"product_name"`
	BatchCode   string          `gorm:"type:varchar(64)" json:"batch_code"`
	SystemQty   decimal.Decimal `gorm:"type:numeric(18,3);not null" json:"system_qty"`
	PhysicalQty decimal.Decimal `gorm:"type:numeric(18,3);not null" json:"physical_qty"`
	Variance    decimal.Decimal `gorm:"type:numeric(18,3);not null" json:"variance"`
	Note        string          `gorm:"type:text" json:"note"`

	IsInitialStockAdjustment bool   `gorm:"column:is_initial_adj" json:"is_initial_stock_adjustment"`
	ReferenceDate            string `gorm:"type:varchar(10)" json:"reference_date"`

	SubmittedBy string       `gorm:"type:varchar(100)" json:"submitted_by"`
	SubmittedAt time.Time    `gorm:"index" json:"submitted_at"`
	Status      OpnameStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	ResolvedBy  string       `gorm:"type:varchar(100)" json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
}
