package dto

import (
	"time"

	"github.com/SscSPs/blog_backend/internal/core/domain"
)

// TokenResponse is the access/refresh pair returned to clients.
type TokenResponse struct {
	AccessToken           string    `json:"accessToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshToken          string    `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
	TokenType             string    `json:"tokenType"`
}

// LoginResponse represents the response for a successful login.
type LoginResponse struct {
	TokenResponse
	User UserResponse `json:"user"`
}

// RefreshTokenResponse represents the response for a successful token refresh.
type RefreshTokenResponse struct {
	TokenResponse
}

// MeResponse wraps the caller's public profile.
type MeResponse struct {
	User UserResponse `json:"user"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ToTokenResponse converts an issued pair to its response.
func ToTokenResponse(pair domain.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:           pair.AccessToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             "Bearer",
	}
}

// ToLoginResponse converts a session to a login response.
func ToLoginResponse(session *domain.Session) LoginResponse {
	return LoginResponse{
		TokenResponse: ToTokenResponse(session.TokenPair),
		User:          ToUserResponse(session.User),
	}
}
