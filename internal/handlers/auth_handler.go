package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "investtrack/internal/errors"
	"investtrack/internal/logger"
	"investtrack/internal/middleware"
	"investtrack/internal/models"
	"investtrack/internal/services"
	"investtrack/internal/tokenstore"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userService services.UserServicer
	revoker     tokenstore.Revoker
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userService services.UserServicer, revoker tokenstore.Revoker) *AuthHandler {
	return &AuthHandler{userService: userService, revoker: revoker}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,strong_password,max=128"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest represents the change password payload.
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyOTPRequest checks a reset code.
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	OTP      string `json:"otp" binding:"required,len=6,numeric"`
	Password string `json:"password" binding:"required,strong_password"`
}

// AuthResponse represents the authentication response with token
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (h *AuthHandler) issueToken(c *gin.Context, status int, user *models.User, message string) {
	token, claims, err := middleware.GenerateToken(user)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	respond(c, status, AuthResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, message)
}

// Register handles user registration
// @Summary     Register a new user
// @Description Register a new user. The first user becomes an admin.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} Response{data=AuthResponse} "User registered and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.issueToken(c, http.StatusCreated, user, "User registered")
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate a user and get a token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} Response{data=AuthResponse} "User authenticated and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	user, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.issueToken(c, http.StatusOK, user, "Logged in")
}

// Logout revokes the caller's token
// @Summary     Logout
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} Response
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /auth/logout [get]
func (h *AuthHandler) Logout(c *gin.Context) {
	jti := c.GetString(middleware.ContextTokenID)
	if jti == "" {
		respondWithError(c, apperrors.ErrUnauthorized)
		return
	}
	expiresAt := c.GetTime(middleware.ContextTokenExpiry)
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(24 * time.Hour)
	}
	if err := h.revoker.Revoke(c.Request.Context(), jti, expiresAt); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	logger.FromContext(c.Request.Context()).Infow("user logged out", "user_id", c.GetString(middleware.ContextUserID))
	respond(c, http.StatusOK, nil, "Logged out")
}

// ChangePassword replaces the caller's password
// @Summary     Change password
// @Tags        auth
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ChangePasswordRequest true "Old and new passwords"
// @Success     200 {object} Response
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid old password"
// @Router      /auth/change-password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}
	if err := h.userService.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Password changed")
}

// ForgotPassword mails a reset code
// @Summary     Request a password reset code
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body ForgotPasswordRequest true "Account email"
// @Success     200 {object} Response
// @Failure     404 {object} ErrorResponse "Unknown email"
// @Router      /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}
	if err := h.userService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Reset code sent")
}

// VerifyOTP checks a reset code without consuming it
// @Summary     Verify a password reset code
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body VerifyOTPRequest true "Email and code"
// @Success     200 {object} Response
// @Failure     400 {object} ErrorResponse "Invalid or expired code"
// @Router      /auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}
	if err := h.userService.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Code verified")
}

// ResetPassword sets a new password using a reset code
// @Summary     Reset password
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body ResetPasswordRequest true "Email, code and new password"
// @Success     200 {object} Response
// @Failure     400 {object} ErrorResponse "Invalid or expired code"
// @Router      /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}
	if err := h.userService.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.Password); err != nil {
		respondWithError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Password reset")
}
