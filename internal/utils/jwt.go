package utils // package utils provides token and password helpers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// emailTokenPurpose separates confirmation tokens from access tokens
// signed with the same secret.
const emailTokenPurpose = "email_confirmation"

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// purpose checks.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken is a signed HS256 JWT with its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs a token whose subject is userID.
func NewAccessToken(secret string, userID uint64, ttl time.Duration, now time.Time) (AccessToken, error) {
	exp := now.UTC().Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now.UTC()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

type emailClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// NewEmailToken signs a confirmation token for email valid for ttl.
func NewEmailToken(secret, email string, ttl time.Duration, now time.Time) (string, error) {
	claims := emailClaims{
		Email:   strings.ToLower(strings.TrimSpace(email)),
		Purpose: emailTokenPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.UTC().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now.UTC()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseEmailToken validates raw at time now and returns the email it was
// issued for.
func ParseEmailToken(secret, raw string, now time.Time) (string, error) {
	var claims emailClaims
	tok, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid || claims.Purpose != emailTokenPurpose || claims.Email == "" {
		return "", ErrInvalidToken
	}
	return claims.Email, nil
}

// ParseAccessToken validates an access token at time now and returns the
// user id in its subject. Email confirmation tokens are rejected.
func ParseAccessToken(secret, raw string, now time.Time) (uint64, error) {
	var claims emailClaims
	tok, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid || claims.Purpose != "" {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
