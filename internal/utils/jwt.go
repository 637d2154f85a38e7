// Package utils holds token and password helpers shared by the auth
// handlers and the JWT middleware.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/cinema-booking/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// AccessToken is a signed JWT and its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is a random opaque token.  Only HashRefreshRaw(Raw) is
// persisted.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// Claims are the access token claims.  Subject holds the decimal user id.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// NewAccessToken signs an HS256 token for the user.
func NewAccessToken(secret string, userID uint64, role model.Role, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw and returns the actor it was issued for.
// Tokens with an unknown role or a non-numeric subject are rejected.
func ParseAccessToken(secret, raw string) (model.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return model.Actor{}, ErrInvalidToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return model.Actor{}, ErrInvalidToken
	}
	role, ok := model.ParseRole(string(claims.Role))
	if !ok {
		return model.Actor{}, ErrInvalidToken
	}
	return model.Actor{ID: id, Role: role}, nil
}

// NewRefreshToken returns 48 random bytes hex encoded, valid for ttl.
func NewRefreshToken(ttl time.Duration) (RefreshToken, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: hex.EncodeToString(buf), Exp: time.Now().UTC().Add(ttl)}, nil
}

// HashRefreshRaw is the SHA-256 hex digest stored for a refresh token.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
