package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository/memory"
	"go-stock-ledger/pkg/logger"
)

func TestUserManagement(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	users := NewUserService(store.Users(), logger.Nop())

	_, err := users.CreateUser(ctx, CreateUserRequest{Username: "budi", Password: "rahasia", Role: model.RoleUser}, staff)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = users.CreateUser(ctx, CreateUserRequest{Username: "budi", Password: "123", Role: model.RoleUser}, admin)
	assert.True(t, apperror.IsValidation(err))
	_, err = users.CreateUser(ctx, CreateUserRequest{Username: "budi", Password: "rahasia", Role: "Owner"}, admin)
	assert.True(t, apperror.IsValidation(err))

	budi, err := users.CreateUser(ctx, CreateUserRequest{Username: " budi ", Password: "rahasia", Role: model.RoleUser}, admin)
	require.NoError(t, err)
	assert.Equal(t, "budi", budi.Username)
	assert.True(t, budi.IsActive)

	_, err = users.CreateUser(ctx, CreateUserRequest{Username: "budi", Password: "rahasia", Role: model.RoleUser}, admin)
	assert.True(t, apperror.IsConflict(err))

	updated, err := users.UpdateUser(ctx, budi.ID, UpdateUserRequest{Role: model.RoleAdmin, IsActive: ptr(false), Password: ptr("barubaru")}, admin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, updated.Role)
	assert.False(t, updated.IsActive)
	assert.True(t, updated.CheckPassword("barubaru"))

	_, err = users.UpdateUser(ctx, budi.ID, UpdateUserRequest{IsActive: ptr(false)}, Actor{Username: "budi", Role: model.RoleAdmin})
	assert.True(t, apperror.IsValidation(err))

	list, err := users.GetAllUsers(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
