package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/blog_backend/internal/apperrors"
	"github.com/SscSPs/blog_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/blog_backend/internal/core/ports/services"
	"github.com/SscSPs/blog_backend/internal/platform/config"
	"github.com/SscSPs/blog_backend/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type accessTokenClaims struct {
	UserID        string `json:"id"`
	IsAdmin       bool   `json:"isAdmin"`
	TokenType     string `json:"typ"`
	PasswordStamp int64  `json:"pst"`
	jwt.RegisteredClaims
}

type refreshTokenClaims struct {
	UserID    string `json:"id"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// tokenService implements the TokenSvcFacade for handling JWT access and refresh tokens.
// Secrets are copied out of the configuration once and never change afterwards.
type tokenService struct {
	BaseService
	repo portsrepo.UserSecurityWriter

	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

// TokenServiceOption is a functional option for configuring the token service
type TokenServiceOption func(*tokenService)

// WithTokenClock overrides the clock used to stamp and validate tokens.
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(s *tokenService) {
		s.Clock = now
	}
}

// NewTokenService creates a new instance of tokenService.
func NewTokenService(cfg *config.Config, repo portsrepo.UserSecurityWriter, options ...TokenServiceOption) portssvc.TokenSvcFacade {
	svc := &tokenService{
		repo:          repo,
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.JWTExpiryDuration,
		refreshTTL:    cfg.RefreshTokenExpiryDuration,
		issuer:        cfg.JWTIssuer,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.TokenSvcFacade = (*tokenService)(nil)

func (s *tokenService) registeredClaims(user *domain.User, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   user.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

// IssueAccessToken creates a new JWT access token for the given user.
func (s *tokenService) IssueAccessToken(user *domain.User) (string, time.Time, error) {
	return s.issueAccessToken(user, s.Now())
}

func (s *tokenService) issueAccessToken(user *domain.User, now time.Time) (string, time.Time, error) {
	claims := accessTokenClaims{
		UserID:           user.UserID,
		IsAdmin:          user.IsAdmin,
		TokenType:        tokenTypeAccess,
		PasswordStamp:    user.PasswordStamp(),
		RegisteredClaims: s.registeredClaims(user, now, s.accessTTL),
	}
	signed, err := utils.SignJWT(claims, s.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to issue access token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// IssueRefreshToken creates a new refresh token for the given user. Every token
// carries a fresh jti, so two refresh tokens are never equal.
func (s *tokenService) IssueRefreshToken(user *domain.User) (string, time.Time, error) {
	return s.issueRefreshToken(user, s.Now())
}

func (s *tokenService) issueRefreshToken(user *domain.User, now time.Time) (string, time.Time, error) {
	claims := refreshTokenClaims{
		UserID:           user.UserID,
		TokenType:        tokenTypeRefresh,
		RegisteredClaims: s.registeredClaims(user, now, s.refreshTTL),
	}
	signed, err := utils.SignJWT(claims, s.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (s *tokenService) IssuePair(user *domain.User) (domain.TokenPair, error) {
	now := s.Now()
	access, accessExp, err := s.issueAccessToken(user, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, refreshExp, err := s.issueRefreshToken(user, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

func (s *tokenService) parserOptions() []jwt.ParserOption {
	return []jwt.ParserOption{
		jwt.WithTimeFunc(s.Now),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
	}
}

func (s *tokenService) VerifyAccessToken(token string) (*domain.AccessClaims, error) {
	claims := &accessTokenClaims{}
	if err := utils.ParseAndValidateJWT(token, claims, s.accessSecret, s.parserOptions()...); err != nil {
		return nil, classifyTokenError(err)
	}
	if claims.TokenType != tokenTypeAccess || claims.UserID == "" || claims.IssuedAt == nil {
		return nil, apperrors.ErrTokenInvalid
	}
	return &domain.AccessClaims{
		UserID:        claims.UserID,
		IsAdmin:       claims.IsAdmin,
		IssuedAt:      claims.IssuedAt.Time,
		PasswordStamp: claims.PasswordStamp,
	}, nil
}

func (s *tokenService) ParseRefreshToken(token string) (*domain.RefreshClaims, error) {
	claims := &refreshTokenClaims{}
	if err := utils.ParseAndValidateJWT(token, claims, s.refreshSecret, s.parserOptions()...); err != nil {
		return nil, classifyTokenError(err)
	}
	if claims.TokenType != tokenTypeRefresh || claims.UserID == "" {
		return nil, apperrors.ErrTokenInvalid
	}
	rc := &domain.RefreshClaims{UserID: claims.UserID}
	if claims.IssuedAt != nil {
		rc.IssuedAt = claims.IssuedAt.Time
	}
	return rc, nil
}

func (s *tokenService) VerifyRefreshToken(token string, storedHash *string) (*domain.RefreshClaims, error) {
	claims, err := s.ParseRefreshToken(token)
	if err != nil {
		return nil, err
	}
	if storedHash == nil || !utils.CompareRefreshTokenHash(token, *storedHash) {
		return nil, apperrors.ErrTokenRevoked
	}
	return claims, nil
}

func (s *tokenService) Rotate(ctx context.Context, user *domain.User, presented string) (domain.TokenPair, error) {
	claims, err := s.VerifyRefreshToken(presented, user.RefreshTokenHash)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if claims.UserID != user.UserID {
		return domain.TokenPair{}, apperrors.ErrTokenInvalid
	}

	pair, err := s.IssuePair(user)
	if err != nil {
		return domain.TokenPair{}, err
	}

	err = s.repo.SwapRefreshToken(ctx, user.UserID,
		utils.HashRefreshToken(presented),
		utils.HashRefreshToken(pair.RefreshToken),
		s.Now())
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrNotFound) {
			s.LogWarn(ctx, "Refresh token rotation lost against a concurrent change", slog.String("user_id", user.UserID))
			return domain.TokenPair{}, apperrors.ErrTokenRevoked
		}
		s.LogError(ctx, err, "Failed to store rotated refresh token", slog.String("user_id", user.UserID))
		return domain.TokenPair{}, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return pair, nil
}

func classifyTokenError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %v", apperrors.ErrTokenExpired, err)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrTokenInvalid, err)
}
