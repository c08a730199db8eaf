package shared

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenSubject abstracts the user data needed for token generation.
type TokenSubject interface {
	GetID() uuid.UUID
	GetEmail() *string
	GetRole() string
}

// TokenResponse represents the response containing API session tokens.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// Claims represents the JWT claims structure.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// TokenService defines the interface for JWT operations.
type TokenService interface {
	GenerateAccessToken(subject TokenSubject) (string, time.Time, error)
	GenerateRefreshToken(subject TokenSubject) (string, time.Time, error)
	ValidateToken(tokenString string) (*Claims, error)
	ParseRefreshToken(refreshTokenString string) (*Claims, error)
}
