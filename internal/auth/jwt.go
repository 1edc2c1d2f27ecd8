// Package auth resolves caller identity from bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("invalid token")

// Config holds token validation settings.
type Config struct {
	Secret string
	Issuer string
}

// JWTIdentity validates HS256 access tokens issued by the account service.
type JWTIdentity struct {
	secret []byte
	issuer string
}

// NewJWTIdentity creates a validator. It returns nil when no secret is
// configured, in which case every caller is anonymous.
func NewJWTIdentity(cfg Config) *JWTIdentity {
	if cfg.Secret == "" {
		return nil
	}

	return &JWTIdentity{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
	}
}

// UserID validates the token and returns its subject.
func (j *JWTIdentity) UserID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return j.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}

	if j.issuer != "" {
		if iss, _ := claims["iss"].(string); iss != j.issuer {
			return "", fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
		}
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return userID, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
