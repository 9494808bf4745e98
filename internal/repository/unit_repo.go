package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/model"
)

type unitRepo struct {
	db *gorm.DB
}

func (r *unitRepo) FindAll(ctx context.Context, filter UnitFilter) ([]model.StockUnit, error) {
	q := r.db.WithContext(ctx).Model(&model.StockUnit{})
	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(unique_id) LIKE ? OR LOWER(product_name) LIKE ? OR LOWER(batch_code) LIKE ?", like, like, like)
	}

	var units []model.StockUnit
	err := q.Order("created_at ASC").Order("unique_id ASC").Find(&units).Error
	return units, wrapErr("list units", "stock unit", nil, err)
}

func (r *unitRepo) FindByID(ctx context.Context, uniqueID string) (*model.StockUnit, error) {
	var unit model.StockUnit
	if err := r.db.WithContext(ctx).First(&unit, "unique_id = ?", uniqueID).Error; err != nil {
		return nil, wrapErr("find unit", "stock unit", uniqueID, err)
	}
	return &unit, nil
}

func (r *unitRepo) Create(ctx context.Context, unit *model.StockUnit) error {
	return wrapErr("create unit", "stock unit", unit.UniqueID, r.db.WithContext(ctx).Create(unit).Error)
}

// Update is a compare-and-swap on version; a concurrent writer makes it affect no row.
func (r *unitRepo) Update(ctx context.Context, unit *model.StockUnit) error {
	res := r.db.WithContext(ctx).Model(&model.StockUnit{}).
		Where("unique_id = ? AND version = ?", unit.UniqueID, unit.Version).
		Updates(map[string]interface{}{
			"quantity": unit.Quantity,
			"status":   unit.Status,
			"note":     unit.Note,
			"version":  unit.Version + 1,
		})
	if res.Error != nil {
		return wrapErr("update unit", "stock unit", unit.UniqueID, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, unit.UniqueID); err != nil {
			return err
		}
		return apperror.Conflict("stock unit %s was modified concurrently", unit.UniqueID).
			WithDetail("id", unit.UniqueID)
	}
	unit.Version++
	return nil
}
