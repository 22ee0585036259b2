package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treasury/backend/internal/infrastructure/config"
)

func newTestJWTService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-at-least-32-characters!!",
		AccessTokenExpiration: expiration,
		Issuer:                "treasury-backend-test",
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService(time.Minute)
	companyID := uuid.New()
	userID := uuid.New()

	token, expiresAt, err := svc.GenerateToken(companyID, userID, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, companyID.String(), claims.CompanyID)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	gotCompany, err := claims.GetCompanyUUID()
	require.NoError(t, err)
	assert.Equal(t, companyID, gotCompany)
}

func TestJWTService_Validate_Errors(t *testing.T) {
	t.Run("rejects expired token", func(t *testing.T) {
		svc := newTestJWTService(-time.Minute)
		token, _, err := svc.GenerateToken(uuid.New(), uuid.New(), "alice")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("rejects token signed with a different secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "another-secret-that-is-long-enough!!",
			AccessTokenExpiration: time.Minute,
			Issuer:                "treasury-backend-test",
		})
		token, _, err := other.GenerateToken(uuid.New(), uuid.New(), "alice")
		require.NoError(t, err)

		_, err = newTestJWTService(time.Minute).ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := newTestJWTService(time.Minute).ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
