package gym

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gymmanager/internal/api"
	"gymmanager/internal/auth"
	"gymmanager/internal/logger"
	"gymmanager/internal/storage"
)

const forgotPasswordMessage = "If the email is registered, a reset code has been sent"

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		api.RespondError(c, http.StatusConflict, "Username already taken")
	case errors.Is(err, ErrEmailTaken):
		api.RespondError(c, http.StatusConflict, "Email already registered")
	case errors.Is(err, ErrInvalidCredentials):
		api.RespondError(c, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, auth.ErrTokenExpired):
		api.RespondError(c, http.StatusUnauthorized, "Refresh token expired")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType):
		api.RespondError(c, http.StatusUnauthorized, "Invalid refresh token")
	case errors.Is(err, ErrInvalidOTP):
		api.RespondValidation(c, api.FieldError{Field: "otp", Tag: "invalid", Message: "otp is invalid or expired"})
	case errors.Is(err, ErrGymNotFound):
		api.RespondError(c, http.StatusNotFound, "Gym not found")
	case errors.Is(err, storage.ErrInvalidUpload):
		api.RespondValidation(c, api.FieldError{Field: "logo", Tag: "image", Message: err.Error()})
	case errors.Is(err, ErrStorageUnavailable):
		api.RespondError(c, http.StatusServiceUnavailable, "Logo storage is unavailable")
	default:
		logger.Error(fallback, "error", err, "path", c.FullPath())
		api.RespondError(c, http.StatusInternalServerError, fallback)
	}
}

// @Summary      Register a gym
// @Description  Creates the gym account and returns access and refresh tokens.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body gym.RegisterRequest true "Registration payload"
// @Success      201 {object} gym.AuthResponse
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	resp, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to register gym")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body gym.LoginRequest true "Credentials"
// @Success      200 {object} gym.AuthResponse
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to log in")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary      Refresh the access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body gym.RefreshRequest true "Refresh token"
// @Success      200 {object} gym.AuthResponse
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	resp, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err, "Failed to refresh token")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary      Request a password reset code
// @Description  Always answers with the same message whether or not the email is registered.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body gym.ForgotPasswordRequest true "Account email"
// @Success      200 {object} api.MessageResponse
// @Failure      400 {object} api.ValidationErrorResponse
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	if err := h.service.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		logger.Error("failed to issue password reset code", "error", err)
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: forgotPasswordMessage})
}

// @Summary      Reset the password with a code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body gym.ResetPasswordRequest true "Email, code and new password"
// @Success      200 {object} api.MessageResponse
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /auth/reset-password [post]
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req); err != nil {
		respondError(c, err, "Failed to reset password")
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Password updated"})
}

// @Summary      Current gym
// @Tags         gym
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} gym.Gym
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /me [get]
func (h *Handler) Me(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}

	g, err := h.service.Me(c.Request.Context(), session.GymID)
	if err != nil {
		respondError(c, err, "Failed to load gym")
		return
	}

	c.JSON(http.StatusOK, g)
}

// @Summary      Upload the gym logo
// @Description  Accepts a JPEG, PNG or WebP image up to 5 MiB in the "logo" form field.
// @Tags         gym
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        logo formData file true "Logo image"
// @Success      200 {object} gym.Gym
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      503 {object} api.ErrorResponse
// @Router       /me/logo [post]
func (h *Handler) UploadLogo(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("logo")
	if err != nil {
		api.RespondValidation(c, api.FieldError{Field: "logo", Tag: "required", Message: "logo is required"})
		return
	}
	up, f, err := storage.OpenMultipart(fh)
	if err != nil {
		respondError(c, err, "Failed to read upload")
		return
	}
	defer f.Close()

	g, err := h.service.UploadLogo(c.Request.Context(), session.GymID, up)
	if err != nil {
		respondError(c, err, "Failed to upload logo")
		return
	}

	c.JSON(http.StatusOK, g)
}
