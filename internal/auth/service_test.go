package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"authflow_backend/internal/common"
	"authflow_backend/internal/config"
	"authflow_backend/internal/user"
)

func testTokenConfig() *config.Config {
	return &config.Config{
		JWTSecretKey:          "test-secret-key-for-unit-tests",
		JWTAccessTokenExpiry:  15 * time.Minute,
		JWTRefreshTokenExpiry: 7 * 24 * time.Hour,
	}
}

func testSubject() *user.User {
	email := "jane@example.com"
	return &user.User{
		BaseModel: common.BaseModel{ID: uuid.New()},
		Email:     &email,
		Role:      common.RoleUser,
	}
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc := NewJWTService(testTokenConfig(), zap.NewNop())
	subject := testSubject()

	tokenString, expiresAt, err := svc.GenerateAccessToken(subject)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, subject.ID, claims.UserID)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, common.RoleUser, claims.Role)
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestGenerateRefreshToken_HasDistinctIssuerAndJTI(t *testing.T) {
	svc := NewJWTService(testTokenConfig(), zap.NewNop())
	subject := testSubject()

	first, _, err := svc.GenerateRefreshToken(subject)
	require.NoError(t, err)
	second, _, err := svc.GenerateRefreshToken(subject)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "refresh tokens must carry unique IDs")

	claims, err := svc.ParseRefreshToken(first)
	require.NoError(t, err)
	assert.Equal(t, tokenIssuer+"_refresh", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_RejectsWrongSecret(t *testing.T) {
	svc := NewJWTService(testTokenConfig(), zap.NewNop())
	tokenString, _, err := svc.GenerateAccessToken(testSubject())
	require.NoError(t, err)

	otherCfg := testTokenConfig()
	otherCfg.JWTSecretKey = "a-completely-different-secret"
	other := NewJWTService(otherCfg, zap.NewNop())

	_, err = other.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	cfg := testTokenConfig()
	cfg.JWTAccessTokenExpiry = -time.Minute
	svc := NewJWTService(cfg, zap.NewNop())

	tokenString, _, err := svc.GenerateAccessToken(testSubject())
	require.NoError(t, err)

	_, err = svc.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	svc := NewJWTService(testTokenConfig(), zap.NewNop())
	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
