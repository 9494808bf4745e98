package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/model"
)

type opnameRepo struct {
	db *gorm.DB
}

func (r *opnameRepo) Create(ctx context.Context, reqs ...model.OpnameRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	return wrapErr("create opname requests", "opname request", reqs[0].ID, r.db.WithContext(ctx).Create(&reqs).Error)
}

func (r *opnameRepo) FindByID(ctx context.Context, id string) (*model.OpnameRequest, error) {
	var req model.OpnameRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, wrapErr("find opname request", "opname request", id, err)
	}
	return &req, nil
}

func (r *opnameRepo) FindAll(ctx context.Context, status model.OpnameStatus) ([]model.OpnameRequest, error) {
	q := r.db.WithContext(ctx).Model(&model.OpnameRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reqs []model.OpnameRequest
	err := q.Order("submitted_at DESC").Find(&reqs).Error
	return reqs, wrapErr("list opname requests", "opname request", nil, err)
}

func (r *opnameRepo) Resolve(ctx context.Context, id string, status model.OpnameStatus, by string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.OpnameRequest{}).
		Where("id = ? AND status = ?", id, model.OpnamePending).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_by": by,
			"resolved_at": at,
		})
	if res.Error != nil {
		return wrapErr("resolve opname request", "opname request", id, res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return apperror.Conflict("opname request %s is already %s", id, current.Status)
	}
	return nil
}
