package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	syncerrors "convsync/pkg/errors"
)

// AccessClaims mirrors the claims the server encodes into access tokens.
type AccessClaims struct {
	UserID   string `json:"sub"`
	DeviceID string `json:"did,omitempty"`
	jwt.RegisteredClaims
}

// DecodeClaims extracts the claims from an access token without verifying the
// signature. The client does not hold the signing secret; it only needs the
// local user id and the expiry, and the server re-validates the token on every
// connection anyway.
func DecodeClaims(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, syncerrors.ErrUnauthorized
	}

	var claims AccessClaims
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return AccessClaims{}, syncerrors.ErrUnauthorized
	}
	if claims.UserID == "" {
		return AccessClaims{}, syncerrors.ErrUnauthorized
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return AccessClaims{}, syncerrors.ErrTokenExpired
	}
	return claims, nil
}
