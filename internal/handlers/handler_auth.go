package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/blog_backend/internal/core/ports/services"
	"github.com/SscSPs/blog_backend/internal/dto"
	"github.com/SscSPs/blog_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// authHandler handles authentication related requests.
type authHandler struct {
	sessions portssvc.SessionSvcFacade
}

func newAuthHandler(sessions portssvc.SessionSvcFacade) *authHandler {
	return &authHandler{sessions: sessions}
}

// registerAuthRoutes sets up the routes for authentication. register, login and
// password change are throttled per client IP; the session routes require a
// valid access token.
func registerAuthRoutes(rg *gin.RouterGroup, sessions portssvc.SessionSvcFacade, limits RateLimiters, requireAuth gin.HandlerFunc) {
	h := newAuthHandler(sessions)

	auth := rg.Group("/auth")
	{
		auth.POST("/register", limits.handler(limits.Register, "register"), h.register)
		auth.POST("/login", limits.handler(limits.Login, "login"), h.login)
		auth.POST("/refresh", h.refresh)

		auth.POST("/logout", requireAuth, h.logout)
		auth.GET("/me", requireAuth, h.me)
		auth.PUT("/password", limits.handler(limits.Login, "password"), requireAuth, h.changePassword)
	}
}

// register godoc
// @Summary Register a new account
// @Description Creates a non-admin account. The password must be at least 8 characters and at most 72 bytes, with at least one letter and one number.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Account details"
// @Success 201 {object} dto.MeResponse
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 409 {object} ErrorResponse "Username or email already in use"
// @Failure 429 {object} ErrorResponse "Too many requests"
// @Router /auth/register [post]
func (h *authHandler) register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.sessions.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MeResponse{User: dto.ToUserResponse(user.Identity())})
}

// login godoc
// @Summary User login
// @Description Authenticates with email and password and returns an access/refresh token pair.
// @Description After 5 consecutive failures the account is locked for 15 minutes.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body dto.LoginRequest true "Login Credentials"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 423 {object} LockedResponse "Account locked"
// @Failure 429 {object} ErrorResponse "Too many requests"
// @Router /auth/login [post]
func (h *authHandler) login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToLoginResponse(session))
}

// refresh godoc
// @Summary Refresh tokens
// @Description Exchanges a refresh token for a new pair. The presented token stops working.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.RefreshTokenResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Invalid refresh token"
// @Router /auth/refresh [post]
func (h *authHandler) refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	pair, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Refresh rejected", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RefreshTokenResponse{TokenResponse: dto.ToTokenResponse(pair)})
}

// logout godoc
// @Summary Log out
// @Description Revokes the caller's refresh token. The access token stays valid until it expires.
// @Tags auth
// @Produce json
// @Success 200 {object} dto.MessageResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *authHandler) logout(c *gin.Context) {
	identity, ok := middleware.GetIdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}
	if err := h.sessions.Logout(c.Request.Context(), identity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Logged out successfully"})
}

// me godoc
// @Summary Current user
// @Description Returns the public profile of the authenticated caller.
// @Tags auth
// @Produce json
// @Success 200 {object} dto.MeResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *authHandler) me(c *gin.Context) {
	identity, ok := middleware.GetIdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}
	user, err := h.sessions.CurrentUser(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MeResponse{User: dto.ToUserResponse(user.Identity())})
}

// changePassword godoc
// @Summary Change password
// @Description Replaces the caller's password. All sessions must log in again.
// @Description Wrong current passwords count towards the account lockout.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 423 {object} LockedResponse "Account locked"
// @Failure 429 {object} ErrorResponse "Too many requests"
// @Security BearerAuth
// @Router /auth/password [put]
func (h *authHandler) changePassword(c *gin.Context) {
	identity, ok := middleware.GetIdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.sessions.ChangePassword(c.Request.Context(), identity, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password changed successfully"})
}
