// File: internal/auth/service.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"authflow_backend/internal/config"
	"authflow_backend/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tokenIssuer = "authflow_backend"

// JWTService mints and validates the API session tokens handed out after a
// successful authentication flow.
type JWTService struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg *config.Config, logger *zap.Logger) shared.TokenService {
	return &JWTService{cfg: cfg, logger: logger}
}

func (s *JWTService) GenerateAccessToken(subject shared.TokenSubject) (string, time.Time, error) {
	expirationTime := time.Now().Add(s.cfg.JWTAccessTokenExpiry)

	email := ""
	if subject.GetEmail() != nil {
		email = *subject.GetEmail()
	}

	claims := &shared.Claims{
		UserID: subject.GetID(),
		Email:  email,
		Role:   subject.GetRole(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    tokenIssuer,
			Subject:   subject.GetID().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWTSecretKey))
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("could not sign access token: %w", err)
	}
	return tokenString, expirationTime, nil
}

func (s *JWTService) GenerateRefreshToken(subject shared.TokenSubject) (string, time.Time, error) {
	expirationTime := time.Now().Add(s.cfg.JWTRefreshTokenExpiry)

	email := ""
	if subject.GetEmail() != nil {
		email = *subject.GetEmail()
	}

	claims := &shared.Claims{
		UserID: subject.GetID(),
		Email:  email,
		Role:   subject.GetRole(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    tokenIssuer + "_refresh",
			Subject:   subject.GetID().String(),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWTSecretKey))
	if err != nil {
		s.logger.Error("Failed to sign refresh token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("could not sign refresh token: %w", err)
	}
	return tokenString, expirationTime, nil
}

// ValidateToken validates a JWT token and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*shared.Claims, error) {
	claims := &shared.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecretKey), nil
	})
	if err != nil {
		s.logger.Debug("Failed to validate token", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims, ok := token.Claims.(*shared.Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token claims")
}

func (s *JWTService) ParseRefreshToken(refreshTokenString string) (*shared.Claims, error) {
	return s.ValidateToken(refreshTokenString)
}
