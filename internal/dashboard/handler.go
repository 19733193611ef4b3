package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gymmanager/internal/api"
	"gymmanager/internal/auth"
	"gymmanager/internal/lifecycle"
	"gymmanager/internal/logger"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

// @Summary      Dashboard counts
// @Description  Totals for the signed-in gym. Cached for 60 seconds and dropped on any member change.
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} member.Stats
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /dashboard/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), session.GymID)
	if err != nil {
		logger.Error("failed to compute dashboard stats", "gym_id", session.GymID, "error", err)
		api.RespondError(c, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary      Members expiring soon
// @Description  Active members whose next bill date is within the window, soonest first.
// @Tags         members,dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        days query int false "Window in days: 3 (default) or 7"
// @Success      200 {array} member.View
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /members/expiring-soon [get]
func (h *Handler) ExpiringSoon(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}

	days := lifecycle.ExpiringSoonDays
	if raw := c.Query("days"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			api.RespondValidation(c, api.FieldError{Field: "days", Tag: "oneof", Message: ErrInvalidWindow.Error()})
			return
		}
		days = d
	}

	views, err := h.service.ExpiringSoon(c.Request.Context(), session.GymID, days)
	if err != nil {
		if errors.Is(err, ErrInvalidWindow) {
			api.RespondValidation(c, api.FieldError{Field: "days", Tag: "oneof", Message: err.Error()})
			return
		}
		logger.Error("failed to list expiring members", "gym_id", session.GymID, "error", err)
		api.RespondError(c, http.StatusInternalServerError, "Failed to fetch expiring members")
		return
	}

	c.JSON(http.StatusOK, views)
}

// @Summary      Expired members
// @Description  Active members whose next bill date has passed, oldest first. Inactive members are never listed here.
// @Tags         members,dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} member.View
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /members/expired [get]
func (h *Handler) Expired(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}

	views, err := h.service.Expired(c.Request.Context(), session.GymID)
	if err != nil {
		logger.Error("failed to list expired members", "gym_id", session.GymID, "error", err)
		api.RespondError(c, http.StatusInternalServerError, "Failed to fetch expired members")
		return
	}

	c.JSON(http.StatusOK, views)
}
