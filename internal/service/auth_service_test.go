package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository/memory"
	"go-stock-ledger/pkg/jwt"
	"go-stock-ledger/pkg/logger"
)

func TestAuthFlow(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	auth := NewAuthService(store.Users(), jwt.NewIssuer("test-secret", time.Hour), logger.Nop())

	seeded, err := auth.EnsureAdmin(ctx, "admin", "rahasia")
	require.NoError(t, err)
	assert.True(t, seeded)
	seeded, err = auth.EnsureAdmin(ctx, "admin", "lain")
	require.NoError(t, err)
	assert.False(t, seeded)

	_, err = auth.Login(ctx, "admin", "salah")
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
	_, err = auth.Login(ctx, "nobody", "rahasia")
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	resp, err := auth.Login(ctx, " admin ", "rahasia")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, model.RoleAdmin, resp.User.Role)

	actor, err := auth.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", actor.Username)
	assert.True(t, actor.IsAdmin())

	_, err = auth.ValidateToken(ctx, resp.Token+"x")
	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))

	assert.True(t, apperror.IsValidation(auth.ChangePassword(ctx, resp.User.ID, "salah", "barubaru")))
	assert.True(t, apperror.IsValidation(auth.ChangePassword(ctx, resp.User.ID, "rahasia", "123")))
	require.NoError(t, auth.ChangePassword(ctx, resp.User.ID, "rahasia", "barubaru"))

	_, err = auth.Login(ctx, "admin", "barubaru")
	require.NoError(t, err)
}

func TestLoginRefusesInactiveUser(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u := &model.User{Username: "budi", Role: model.RoleUser, IsActive: false}
	require.NoError(t, u.SetPassword("rahasia"))
	require.NoError(t, store.Users().Create(ctx, u))

	auth := NewAuthService(store.Users(), jwt.NewIssuer("test-secret", time.Hour), logger.Nop())
	_, err := auth.Login(ctx, "budi", "rahasia")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}
