package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "rollback-server"

var ErrTokenInvalid = errors.New("invalid reconnect token")

// ReconnectClaims identify a parked body a client may reattach to.
type ReconnectClaims struct {
	PlayerID string `json:"pid"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies reconnect tokens with HS256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) TokenIssuer {
	return TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue returns a token for playerID valid for the issuer's TTL.
func (i TokenIssuer) Issue(playerID, name string) (string, error) {
	now := time.Now()
	claims := ReconnectClaims{
		PlayerID: playerID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   playerID,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns its claims.
func (i TokenIssuer) Verify(tokenString string) (*ReconnectClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ReconnectClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*ReconnectClaims)
	if !ok || !token.Valid || claims.PlayerID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
