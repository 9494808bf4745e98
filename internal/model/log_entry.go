package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type LogType string

const (
	LogIn     LogType = "IN"
	LogOut    LogType = "OUT"
	LogCreate LogType = "CREATE"
	LogAdjust LogType = "ADJUST"
)

// LogOrigin tells regular movements apart from legacy-balance conversions.
type LogOrigin string

const (
	OriginNormal    LogOrigin = "NORMAL"
	OriginMigration LogOrigin = "MIGRATION"
)

// MigrationStockItemID is the sentinel unit reference of migration offset entries.
const MigrationStockItemID = "SYSTEM-MIGRATION"

// LogEntry is an immutable movement record. Rows are appended, never updated or deleted.
type LogEntry struct {
	ID string `gorm:"type:varchar(64);primaryKey" json:"id"`

	// Seq is assigned by storage on insert and breaks timestamp ties by arrival order.
	Seq int64 `gorm:"->;type:bigserial;index" json:"-"`

	Type           LogType         `gorm:"type:varchar(10);not null;index" json:"type"`
	StockItemID    string          `gorm:"type:varchar(128);index" json:"stock_item_id"`
	ProductID      string          `gorm:"type:varchar(32);index" json:"product_id"`
	ProductName    string          `gorm:"type:varchar(255);index" json:"product_name"`
	Timestamp      time.Time       `gorm:"not null;index" json:"timestamp"`
	QuantityChange decimal.Decimal `gorm:"type:numeric(18,3);not null;default:0" json:"quantity_change"`
	Recipient      string          `gorm:"type:varchar(255)" json:"recipient,omitempty"`
	Note           string          `gorm:"type:text" json:"note,omitempty"`
	User           string          `gorm:"column:user_name;type:varchar(100)" json:"user,omitempty"`
	Origin         LogOrigin       `gorm:"type:varchar(16);not null;default:NORMAL" json:"origin"`
}

func (LogEntry) TableName() string {
	return "logs"
}

// IsMigration reports whether the entry belongs to a legacy-balance conversion.
// Rows written before Origin existed are recognised by the sentinel id or note text.
func (l *LogEntry) IsMigration() bool {
	if l.Origin == OriginMigration || l.StockItemID == MigrationStockItemID {
		return true
	}
	note := strings.ToLower(l.Note)
	return strings.Contains(note, "migrasi:") || strings.Contains(note, "konversi saldo lama")
}
