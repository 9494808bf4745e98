package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	id := uuid.New()

	token, expires, err := iss.GenerateToken(id, "gudang1", "User")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := iss.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "gudang1", claims.Username)
	assert.Equal(t, "User", claims.Role)
}

func TestRejectsForeignSecret(t *testing.T) {
	token, _, err := NewIssuer("a", time.Hour).GenerateToken(uuid.New(), "x", "Admin")
	require.NoError(t, err)

	_, err = NewIssuer("b", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewIssuer("a", time.Hour).ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
