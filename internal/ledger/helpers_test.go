package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"go-stock-ledger/internal/model"
)

var jakarta = time.FixedZone("WIB", 7*60*60)

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func at(day, hour int) time.Time {
	return time.Date(2024, time.March, day, hour, 0, 0, 0, jakarta)
}

func entry(id string, typ model.LogType, productID string, ts time.Time, change string) model.LogEntry {
	return model.LogEntry{
		ID:             id,
		Type:           typ,
		ProductID:      productID,
		Timestamp:      ts,
		QuantityChange: qty(change),
		Origin:         model.OriginNormal,
	}
}

func product(id, name, initial, today string) model.Product {
	return model.Product{
		ID:           id,
		Name:         name,
		Unit:         "Pcs",
		InitialStock: qty(initial),
		StockToday:   qty(today),
	}
}

func unit(id, productID, batch, q string, status model.UnitStatus) model.StockUnit {
	return model.StockUnit{
		UniqueID:  id,
		ProductID: productID,
		BatchCode: batch,
		Quantity:  qty(q),
		Status:    status,
	}
}
