package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-stock-ledger/internal/model"
)

type productRepo struct {
	db *gorm.DB
}

func (r *productRepo) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("id ASC").Find(&products).Error
	return products, wrapErr("list products", "product", nil, err)
}

func (r *productRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, wrapErr("find product", "product", id, err)
	}
	return &product, nil
}

// FindForUpdate mengunci baris produk (pessimistic locking) sampai transaksi selesai.
func (r *productRepo) FindForUpdate(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, wrapErr("lock product", "product", id, err)
	}
	return &product, nil
}

func (r *productRepo) IDs(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id LIKE ?", prefix+"%").
		Pluck("id", &ids).Error
	return ids, wrapErr("list product codes", "product", prefix, err)
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return wrapErr("create product", "product", product.ID, r.db.WithContext(ctx).Create(product).Error)
}

func (r *productRepo) UpdateMaster(ctx context.Context, product *model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"name":         product.Name,
			"category":     product.Category,
			"unit":         product.Unit,
			"safety_stock": product.SafetyStock,
			"updated_by":   product.UpdatedBy,
		})
	return affected(res, "update product", "product", product.ID)
}

// UpdateStock menerima nilai hasil Recalculate; tidak ada jalur lain yang menulis kolom stock.
func (r *productRepo) UpdateStock(ctx context.Context, id string, stockToday decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Update("stock", stockToday)
	return affected(res, "update stock", "product", id)
}

func (r *productRepo) UpdateBaseline(ctx context.Context, id string, initialStock decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Update("initial_stock", initialStock)
	return affected(res, "update initial stock", "product", id)
}

func (r *productRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, "id = ?", id)
	return affected(res, "delete product", "product", id)
}

// affected turns a zero-row write into NotFound.
func affected(res *gorm.DB, op, entity string, id any) error {
	if res.Error != nil {
		return wrapErr(op, entity, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return wrapErr(op, entity, id, gorm.ErrRecordNotFound)
	}
	return nil
}
