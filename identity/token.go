package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs and checks HS256 access tokens of the built-in provider.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

type accessClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Username  string `json:"username,omitempty"`
}

func NewTokenIssuer(secret []byte, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, issuer: issuer, ttl: ttl}
}

// Issue returns a signed token for userID bound to sessionID and its expiry.
func (t *TokenIssuer) Issue(userID, username, sessionID string, now time.Time) (string, time.Time, error) {
	expires := now.Add(t.ttl)
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		SessionID: sessionID,
		Username:  username,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse verifies the signature, issuer and expiry and returns the user and session ids.
func (t *TokenIssuer) Parse(tokenString string) (userID, sessionID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", err
	}
	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid || claims.Subject == "" || claims.SessionID == "" {
		return "", "", errors.New("invalid token claims")
	}
	return claims.Subject, claims.SessionID, nil
}
