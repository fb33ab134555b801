package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-boutique/support-service/internal/domain"
)

func TestSignAndParse(t *testing.T) {
	tm := NewTokenManager("test-secret")

	token, err := tm.Sign("user-1", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a").Sign("user-1", domain.RoleCustomer, time.Hour)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b").Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret")

	token, err := tm.Sign("user-1", domain.RoleCustomer, -time.Minute)
	require.NoError(t, err)

	_, err = tm.Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsUnknownRole(t *testing.T) {
	tm := NewTokenManager("test-secret")

	token, err := tm.Sign("user-1", domain.Role("superuser"), time.Hour)
	require.NoError(t, err)

	_, err = tm.Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret")
	_, err := tm.Parse("not.a.token")
	assert.Error(t, err)
}
