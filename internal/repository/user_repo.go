package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-stock-ledger/internal/model"
)

type userRepo struct {
	db *gorm.DB
}

// NewUserRepo is used by the operator CLI, which needs no other repository.
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db}
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, wrapErr("find user", "user", username, err)
	}
	return &user, nil
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, wrapErr("find user", "user", id, err)
	}
	return &user, nil
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return wrapErr("create user", "user", user.Username, r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepo) FindAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).Order("username ASC").Find(&users).Error
	return users, wrapErr("list users", "user", nil, err)
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", user.ID).
		Select("role", "is_active").
		Updates(map[string]any{"role": user.Role, "is_active": user.IsActive})
	return affected(res, "update user", "user", user.ID)
}

func (r *userRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("password", hashedPassword)
	return affected(res, "update password", "user", userID)
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, wrapErr("count users", "user", nil, err)
}
