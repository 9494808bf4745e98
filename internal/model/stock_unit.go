package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type UnitStatus string

const (
	StatusCreated         UnitStatus = "CREATED"
	StatusInStock         UnitStatus = "IN_STOCK"
	StatusOutbound        UnitStatus = "OUTBOUND"
	StatusExpired         UnitStatus = "EXPIRED"
	StatusConsumed        UnitStatus = "CONSUMED"
	StatusPendingApproval UnitStatus = "PENDING_APPROVAL"
)

// StockUnit is one registered batch of a product. A single row stands for every
// identical label printed for the registration; labels are never told apart.
type StockUnit struct {
	UniqueID    string          `gorm:"type:varchar(128);primaryKey" json:"unique_id"`
	ProductID   string          `gorm:"type:varchar(32);not null;index" json:"product_id"`
	ProductName string          `gorm:"type:varchar(255)" json:"product_name"`
	BatchCode   string          `gorm:"type:varchar(64);index" json:"batch_code"`
	ArrivalDate string          `gorm:"type:varchar(10)" json:"arrival_date"`
	ExpiryDate  string          `gorm:"type:varchar(10)" json:"expiry_date,omitempty"`
	Supplier    string          `gorm:"type:varchar(255)" json:"supplier"`
	Status      UnitStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	Quantity    decimal.Decimal `gorm:"type:numeric(18,3);not null;default:0" json:"quantity"`
	Note        string          `gorm:"type:text" json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Version guards conditional updates; every successful write bumps it.
	Version int64 `gorm:"not null;default:0" json:"version"`

	// IsUnlabeled marks the synthesized legacy-balance placeholder. Never persisted.
	IsUnlabeled bool `gorm:"-" json:"is_unlabeled,omitempty"`
}

// SetQuantity stores the remaining quantity and derives the status from it:
// OUTBOUND once nothing is left, IN_STOCK otherwise.
func (u *StockUnit) SetQuantity(qty decimal.Decimal) {
	u.Quantity = qty
	if qty.Sign() <= 0 {
		u.Status = StatusOutbound
	} else {
		u.Status = StatusInStock
	}
}
