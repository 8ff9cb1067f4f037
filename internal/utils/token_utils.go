package utils

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// SignJWT signs the claims with HS256 and the given secret.
func SignJWT(claims jwt.Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseAndValidateJWT parses a JWT token string into claims and validates its signature and
// standard claims. Only HS256 is accepted.
func ParseAndValidateJWT(tokenString string, claims jwt.Claims, secret []byte, opts ...jwt.ParserOption) error {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, opts...)
	if err != nil {
		return err // token expired, signature invalid, malformed, ...
	}

	if !token.Valid {
		return jwt.ErrTokenSignatureInvalid
	}
	return nil
}
