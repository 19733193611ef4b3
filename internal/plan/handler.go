package plan

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gymmanager/internal/api"
	"gymmanager/internal/auth"
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

func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrPlanNotFound):
		api.RespondError(c, http.StatusNotFound, "Membership plan not found")
	case errors.Is(err, ErrInvalidPlan):
		api.RespondValidation(c, api.FieldError{Field: "name", Tag: "required", Message: "name must not be blank"})
	default:
		logger.Error(fallback, "error", err, "path", c.FullPath())
		api.RespondError(c, http.StatusInternalServerError, fallback)
	}
}

// @Summary      List membership plans
// @Tags         membership-plans
// @Produce      json
// @Security     BearerAuth
// @Param        active query bool false "Only active plans"
// @Success      200 {array} plan.Plan
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /membership-plans [get]
func (h *Handler) List(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}

	onlyActive, _ := strconv.ParseBool(c.Query("active"))
	plans, err := h.service.List(c.Request.Context(), session.GymID, onlyActive)
	if err != nil {
		respondError(c, err, "Failed to fetch membership plans")
		return
	}

	c.JSON(http.StatusOK, plans)
}

// @Summary      Create a membership plan
// @Tags         membership-plans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body plan.PlanRequest true "Plan payload"
// @Success      201 {object} plan.Plan
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /membership-plans [post]
func (h *Handler) Create(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	p, err := h.service.Create(c.Request.Context(), session.GymID, req)
	if err != nil {
		respondError(c, err, "Failed to create membership plan")
		return
	}

	c.JSON(http.StatusCreated, p)
}

// @Summary      Get a membership plan
// @Tags         membership-plans
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Plan ID"
// @Success      200 {object} plan.Plan
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /membership-plans/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), session.GymID, id)
	if err != nil {
		respondError(c, err, "Failed to fetch membership plan")
		return
	}

	c.JSON(http.StatusOK, p)
}

// @Summary      Update a membership plan
// @Description  Existing members keep their computed bill date; changes apply to later renewals.
// @Tags         membership-plans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Plan ID"
// @Param        request body plan.PlanRequest true "Plan payload"
// @Success      200 {object} plan.Plan
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /membership-plans/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	p, err := h.service.Update(c.Request.Context(), session.GymID, id, req)
	if err != nil {
		respondError(c, err, "Failed to update membership plan")
		return
	}

	c.JSON(http.StatusOK, p)
}

// @Summary      Delete a membership plan
// @Description  Members on the plan keep their dates and lose the plan reference.
// @Tags         membership-plans
// @Security     BearerAuth
// @Param        id path int true "Plan ID"
// @Success      204
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /membership-plans/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), session.GymID, id); err != nil {
		respondError(c, err, "Failed to delete membership plan")
		return
	}

	c.Status(http.StatusNoContent)
}
