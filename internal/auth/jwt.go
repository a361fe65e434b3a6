// Package auth decodes the bearer tokens issued by the Briefly API.
//
// The client never holds the signing key, so tokens are parsed without
// signature verification and only the expiry and user claims are read.
// The server remains the authority on validity; a token that passes here
// can still be rejected with 401 on the next request.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/briefly/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the payload the API puts into its tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// GenerateToken signs an HS256 token the same way the API does. The client
// only needs it to build fixtures for fake servers.
func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// DecodeClaims parses tokenString without verifying the signature.
// Returns common.ErrInvalidToken when the token cannot be decoded or has
// no exp claim.
func DecodeClaims(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, errors.Join(common.ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// CheckExpiry decodes tokenString and returns its expiry time. A token
// whose expiry is at or before now yields common.ErrTokenExpired.
func CheckExpiry(tokenString string, now time.Time) (time.Time, error) {
	claims, err := DecodeClaims(tokenString)
	if err != nil {
		return time.Time{}, err
	}

	exp := claims.ExpiresAt.Time
	if !exp.After(now) {
		return exp, common.ErrTokenExpired
	}

	return exp, nil
}

// VerifyToken parses tokenString and checks its HS256 signature and expiry
// against secretKey. Used by fake API servers in tests.
func VerifyToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, errors.Join(common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
