// Package auth issues and parses the signed session tokens handed out after
// a successful proof verification.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/zkkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the user and the server-side session the token belongs to.
// The session ID travels in RegisteredClaims.ID so the session can be
// revoked before the token expires.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

func (c *Claims) SessionID() string {
	return c.ID
}

func GenerateToken(userID, sessionID string, secretKey []byte, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates signature and expiry. An expired token yields
// common.ErrTokenExpired; any other failure wraps common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" || claims.ID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
