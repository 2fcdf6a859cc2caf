package auth

import (
	"time"

	"github.com/google/uuid"
)

// TokenService defines the interface for token creation and validation.
// Implementations include JWTService (HS256) and PasetoService (PASETO v4.local).
type TokenService interface {
	CreateToken(userID uuid.UUID, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// TokenClaims represents the claims carried by a token
type TokenClaims struct {
	UserID    string    `json:"user_id"` // UUID stored as string in token
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}
