package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/blog_backend/internal/apperrors"
	"github.com/SscSPs/blog_backend/internal/core/domain"
	portssvc "github.com/SscSPs/blog_backend/internal/core/ports/services"
	"github.com/SscSPs/blog_backend/internal/core/services"
	"github.com/SscSPs/blog_backend/internal/platform/config"
	"github.com/SscSPs/blog_backend/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:                  "access-secret-for-tests-0123456789",
		JWTExpiryDuration:          time.Hour,
		JWTIssuer:                  "blog-backend",
		RefreshTokenSecret:         "refresh-secret-for-tests-9876543210",
		RefreshTokenExpiryDuration: 7 * 24 * time.Hour,
		BcryptCost:                 bcrypt.MinCost,
		LockoutThreshold:           5,
		LockoutDuration:            15 * time.Minute,
	}
}

type TokenServiceTestSuite struct {
	suite.Suite
	mockUserRepo *MockUserRepository
	clock        *fakeClock
	cfg          *config.Config
	tokenService portssvc.TokenSvcFacade
	user         *domain.User
}

func (suite *TokenServiceTestSuite) SetupTest() {
	suite.mockUserRepo = new(MockUserRepository)
	suite.clock = newFakeClock()
	suite.cfg = testConfig()
	suite.tokenService = services.NewTokenService(suite.cfg, suite.mockUserRepo, services.WithTokenClock(suite.clock.Now))
	suite.user = &domain.User{UserID: "user-1", Username: "alice", Email: "alice@example.com", IsAdmin: true}
}

func (suite *TokenServiceTestSuite) TestAccessTokenRoundTrip() {
	token, expiresAt, err := suite.tokenService.IssueAccessToken(suite.user)
	suite.Require().NoError(err)
	suite.True(suite.clock.Now().Add(time.Hour).Equal(expiresAt))

	claims, err := suite.tokenService.VerifyAccessToken(token)
	suite.Require().NoError(err)
	suite.Equal("user-1", claims.UserID)
	suite.True(claims.IsAdmin)
	suite.True(suite.clock.Now().Equal(claims.IssuedAt))
	suite.Equal(suite.user.PasswordStamp(), claims.PasswordStamp)
}

func (suite *TokenServiceTestSuite) TestAccessTokenCarriesPasswordStamp() {
	suite.user.PasswordChangedAt = suite.clock.Now().Add(-1500 * time.Microsecond)
	token, _, err := suite.tokenService.IssueAccessToken(suite.user)
	suite.Require().NoError(err)

	claims, err := suite.tokenService.VerifyAccessToken(token)
	suite.Require().NoError(err)
	suite.Equal(suite.user.PasswordChangedAt.UnixMicro(), claims.PasswordStamp)
	suite.NotEqual(suite.user.PasswordChangedAt.Add(time.Millisecond).UnixMicro(), claims.PasswordStamp)
}

func (suite *TokenServiceTestSuite) TestAccessTokenExpires() {
	token, _, err := suite.tokenService.IssueAccessToken(suite.user)
	suite.Require().NoError(err)

	suite.clock.Advance(59 * time.Minute)
	_, err = suite.tokenService.VerifyAccessToken(token)
	suite.NoError(err)

	suite.clock.Advance(2 * time.Minute)
	_, err = suite.tokenService.VerifyAccessToken(token)
	suite.ErrorIs(err, apperrors.ErrTokenExpired)
}

func (suite *TokenServiceTestSuite) TestRefreshTokenLivesSevenDays() {
	token, expiresAt, err := suite.tokenService.IssueRefreshToken(suite.user)
	suite.Require().NoError(err)
	suite.True(suite.clock.Now().Add(7 * 24 * time.Hour).Equal(expiresAt))

	suite.clock.Advance(6 * 24 * time.Hour)
	_, err = suite.tokenService.ParseRefreshToken(token)
	suite.NoError(err)

	suite.clock.Advance(2 * 24 * time.Hour)
	_, err = suite.tokenService.ParseRefreshToken(token)
	suite.ErrorIs(err, apperrors.ErrTokenExpired)
}

func (suite *TokenServiceTestSuite) TestTokensAreNotInterchangeable() {
	pair, err := suite.tokenService.IssuePair(suite.user)
	suite.Require().NoError(err)

	_, err = suite.tokenService.VerifyAccessToken(pair.RefreshToken)
	suite.ErrorIs(err, apperrors.ErrTokenInvalid, "refresh token must not pass as access token")

	_, err = suite.tokenService.ParseRefreshToken(pair.AccessToken)
	suite.ErrorIs(err, apperrors.ErrTokenInvalid, "access token must not pass as refresh token")
}

func (suite *TokenServiceTestSuite) TestSameSecretStillRejectsWrongType() {
	cfg := testConfig()
	cfg.RefreshTokenSecret = cfg.JWTSecret
	svc := services.NewTokenService(cfg, suite.mockUserRepo, services.WithTokenClock(suite.clock.Now))

	refresh, _, err := svc.IssueRefreshToken(suite.user)
	suite.Require().NoError(err)
	_, err = svc.VerifyAccessToken(refresh)
	suite.ErrorIs(err, apperrors.ErrTokenInvalid)
}

func (suite *TokenServiceTestSuite) TestRejectsForeignSignature() {
	other := testConfig()
	other.JWTSecret = "some-other-secret-entirely-000000"
	foreign := services.NewTokenService(other, suite.mockUserRepo, services.WithTokenClock(suite.clock.Now))

	token, _, err := foreign.IssueAccessToken(suite.user)
	suite.Require().NoError(err)

	_, err = suite.tokenService.VerifyAccessToken(token)
	suite.ErrorIs(err, apperrors.ErrTokenInvalid)
}

func (suite *TokenServiceTestSuite) TestRejectsGarbageAndNoneAlgorithm() {
	_, err := suite.tokenService.VerifyAccessToken("not.a.jwt")
	suite.ErrorIs(err, apperrors.ErrTokenInvalid)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id":  "user-1",
		"typ": "access",
		"iss": "blog-backend",
		"iat": suite.clock.Now().Unix(),
		"exp": suite.clock.Now().Add(time.Hour).Unix(),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	suite.Require().NoError(err)

	_, err = suite.tokenService.VerifyAccessToken(raw)
	suite.ErrorIs(err, apperrors.ErrTokenInvalid)
}

func (suite *TokenServiceTestSuite) TestRejectsWrongIssuer() {
	other := testConfig()
	other.JWTIssuer = "someone-else"
	foreign := services.NewTokenService(other, suite.mockUserRepo, services.WithTokenClock(suite.clock.Now))

	token, _, err := foreign.IssueAccessToken(suite.user)
	suite.Require().NoError(err)

	_, err = suite.tokenService.VerifyAccessToken(token)
	suite.ErrorIs(err, apperrors.ErrTokenInvalid)
}

func (suite *TokenServiceTestSuite) TestRefreshTokensAreUnique() {
	first, _, err := suite.tokenService.IssueRefreshToken(suite.user)
	suite.Require().NoError(err)
	second, _, err := suite.tokenService.IssueRefreshToken(suite.user)
	suite.Require().NoError(err)
	suite.NotEqual(first, second)
}

func (suite *TokenServiceTestSuite) TestVerifyRefreshTokenAgainstStoredHash() {
	token, _, err := suite.tokenService.IssueRefreshToken(suite.user)
	suite.Require().NoError(err)

	stored := utils.HashRefreshToken(token)
	claims, err := suite.tokenService.VerifyRefreshToken(token, &stored)
	suite.Require().NoError(err)
	suite.Equal("user-1", claims.UserID)

	_, err = suite.tokenService.VerifyRefreshToken(token, nil)
	suite.ErrorIs(err, apperrors.ErrTokenRevoked)

	other := utils.HashRefreshToken("something-else")
	_, err = suite.tokenService.VerifyRefreshToken(token, &other)
	suite.ErrorIs(err, apperrors.ErrTokenRevoked)
}

func (suite *TokenServiceTestSuite) TestRotateSwapsStoredHash() {
	ctx := context.Background()
	presented, _, err := suite.tokenService.IssueRefreshToken(suite.user)
	suite.Require().NoError(err)
	stored := utils.HashRefreshToken(presented)
	suite.user.RefreshTokenHash = &stored

	suite.mockUserRepo.On("SwapRefreshToken", ctx, "user-1", stored, mock.AnythingOfType("string"), suite.clock.Now()).
		Return(nil).Once()

	pair, err := suite.tokenService.Rotate(ctx, suite.user, presented)
	suite.Require().NoError(err)
	suite.NotEqual(presented, pair.RefreshToken)
	suite.NotEmpty(pair.AccessToken)

	newHash := suite.mockUserRepo.Calls[0].Arguments.String(3)
	suite.Equal(utils.HashRefreshToken(pair.RefreshToken), newHash)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *TokenServiceTestSuite) TestRotateLosesRace() {
	ctx := context.Background()
	presented, _, err := suite.tokenService.IssueRefreshToken(suite.user)
	suite.Require().NoError(err)
	stored := utils.HashRefreshToken(presented)
	suite.user.RefreshTokenHash = &stored

	suite.mockUserRepo.On("SwapRefreshToken", ctx, "user-1", stored, mock.Anything, mock.Anything).
		Return(apperrors.ErrConflict).Once()

	_, err = suite.tokenService.Rotate(ctx, suite.user, presented)
	suite.ErrorIs(err, apperrors.ErrTokenRevoked)
	suite.mockUserRepo.AssertExpectations(suite.T())
}

func (suite *TokenServiceTestSuite) TestRotateRejectsSupersededToken() {
	presented, _, err := suite.tokenService.IssueRefreshToken(suite.user)
	suite.Require().NoError(err)
	current := utils.HashRefreshToken("a-newer-token")
	suite.user.RefreshTokenHash = &current

	_, err = suite.tokenService.Rotate(context.Background(), suite.user, presented)
	suite.ErrorIs(err, apperrors.ErrTokenRevoked)
	suite.mockUserRepo.AssertNotCalled(suite.T(), "SwapRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *TokenServiceTestSuite) TestRotateRejectsTokenOfAnotherUser() {
	mallory := &domain.User{UserID: "user-2"}
	presented, _, err := suite.tokenService.IssueRefreshToken(mallory)
	suite.Require().NoError(err)
	stored := utils.HashRefreshToken(presented)
	suite.user.RefreshTokenHash = &stored

	_, err = suite.tokenService.Rotate(context.Background(), suite.user, presented)
	suite.ErrorIs(err, apperrors.ErrTokenInvalid)
}

func TestTokenService(t *testing.T) {
	suite.Run(t, new(TokenServiceTestSuite))
}
