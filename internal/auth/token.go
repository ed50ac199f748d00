// Package auth issues and validates the JWT tokens that carry the
// authenticated principal between requests.
package auth

import (
	"fmt"
	"time"

	"github.com/bankcards/card-service/internal/apperrors"
	"github.com/bankcards/card-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

// Claims are the JWT claims for an authenticated user.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for the given user.
func GenerateToken(secret string, username string, role models.Role) (string, error) {
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token string and returns the principal it carries.
func ParseToken(secret, tokenString string) (models.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return models.Principal{}, apperrors.Unauthenticated("invalid or expired token")
	}
	if claims.Subject == "" || !models.ValidRole(claims.Role) {
		return models.Principal{}, apperrors.Unauthenticated("invalid token claims")
	}
	return models.Principal{Username: claims.Subject, Role: models.Role(claims.Role)}, nil
}
