package repository

import (
	"context"
	"slices"
	"strings"

	"gorm.io/gorm"

	"go-stock-ledger/internal/model"
)

type logRepo struct {
	db *gorm.DB
}

func (r *logRepo) Append(ctx context.Context, entries ...model.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	// Insert satu per satu supaya urutan seq mengikuti urutan input.
	for i := range entries {
		if err := r.db.WithContext(ctx).Create(&entries[i]).Error; err != nil {
			return wrapErr("append logs", "log entry", entries[i].ID, err)
		}
	}
	return nil
}

func (r *logRepo) Find(ctx context.Context, filter LogFilter) ([]model.LogEntry, error) {
	q := r.db.WithContext(ctx).Model(&model.LogEntry{})
	if filter.ProductID != "" {
		name := strings.ToLower(strings.TrimSpace(filter.ProductName))
		q = q.Where("product_id = ? OR (COALESCE(product_id, '') = '' AND LOWER(TRIM(product_name)) = ?)", filter.ProductID, name)
	}
	if filter.StockItemID != "" {
		q = q.Where("stock_item_id = ?", filter.StockItemID)
	}
	if filter.From != nil {
		q = q.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("timestamp <= ?", *filter.To)
	}

	var entries []model.LogEntry
	if filter.Limit > 0 {
		if err := q.Order("seq DESC").Limit(filter.Limit).Find(&entries).Error; err != nil {
			return nil, wrapErr("read logs", "log entry", nil, err)
		}
		slices.Reverse(entries)
		return entries, nil
	}
	err := q.Order("seq ASC").Find(&entries).Error
	return entries, wrapErr("read logs", "log entry", nil, err)
}
