package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every verification failure. Expired, tampered and
// malformed tokens are indistinguishable at this boundary so a caller cannot
// probe which check failed.
var ErrInvalidToken = errors.New("invalid token")

type jwtClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// JWTService issues and verifies HS256-signed tokens. The default token scheme.
type JWTService struct {
	secretKey []byte
}

func NewJWTService(secretKey []byte) (*JWTService, error) {
	if len(secretKey) == 0 {
		return nil, fmt.Errorf("secret key must not be empty")
	}
	return &JWTService{secretKey: secretKey}, nil
}

// CreateToken generates a signed token binding the user id with an expiry
// of duration from now.
func (s *JWTService) CreateToken(userID uuid.UUID, duration time.Duration) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
		UserID: userID.String(),
	})

	return token.SignedString(s.secretKey)
}

// VerifyToken validates the signature and expiry and returns the claims.
func (s *JWTService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return s.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}

	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}

	return &TokenClaims{
		UserID:    claims.UserID,
		IssuedAt:  issuedAt,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
