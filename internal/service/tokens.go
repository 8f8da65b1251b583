package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
)

const tokenIssuer = "steam-prices-bot"

// TokenVerifier signs and checks HS256 bearer tokens whose subject is the
// chat user id.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewTokenVerifier returns nil for an empty secret, which callers treat as
// "auth disabled".
func NewTokenVerifier(secret string) *TokenVerifier {
	if secret == "" {
		return nil
	}
	return &TokenVerifier{secret: []byte(secret), now: time.Now}
}

// Sign issues a token for userID valid for ttl.
func (v *TokenVerifier) Sign(userID string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify checks the signature, expiry and issuer and returns the subject.
func (v *TokenVerifier) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", &domain.ErrUnauthorized{Message: "token expired"}
		}
		return "", &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if !token.Valid || claims.Subject == "" {
		return "", &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims.Subject, nil
}
