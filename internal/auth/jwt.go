package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify the bearer and whether they are an admin.
type Claims struct {
	UserID  string `json:"id"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// GenerateJWT signs claims for userID with HS256. A zero duration produces a
// token without an expiry.
func GenerateJWT(secret string, userID string, isAdmin bool, duration time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if duration > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(duration))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// Issuer signs and verifies session tokens with the process-wide secret.
type Issuer struct {
	secret string
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &Issuer{secret: secret, ttl: ttl}, nil
}

func (i *Issuer) Issue(userID string, isAdmin bool) (string, error) {
	return GenerateJWT(i.secret, userID, isAdmin, i.ttl)
}

// Verify returns the claims of a valid token or an error wrapping
// ErrInvalidToken.
func (i *Issuer) Verify(token string) (*Claims, error) {
	return ParseJWT(i.secret, token)
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}
