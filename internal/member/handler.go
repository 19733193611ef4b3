package member

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gymmanager/internal/api"
	"gymmanager/internal/auth"
	"gymmanager/internal/lifecycle"
	"gymmanager/internal/logger"
	"gymmanager/internal/plan"
	"gymmanager/internal/storage"
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
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		api.RespondValidation(c, api.FieldError{Field: verr.Field, Tag: "invalid", Message: verr.Message})
	case errors.Is(err, ErrMemberNotFound):
		api.RespondError(c, http.StatusNotFound, "Member not found")
	case errors.Is(err, plan.ErrPlanNotFound):
		api.RespondError(c, http.StatusNotFound, "Membership plan not found")
	case errors.Is(err, storage.ErrInvalidUpload):
		api.RespondValidation(c, api.FieldError{Field: "photo", Tag: "image", Message: err.Error()})
	case errors.Is(err, ErrStorageUnavailable):
		api.RespondError(c, http.StatusServiceUnavailable, "Photo storage is unavailable")
	default:
		logger.Error(fallback, "error", err, "path", c.FullPath())
		api.RespondError(c, http.StatusInternalServerError, fallback)
	}
}

// @Summary      Enroll a member
// @Description  Computes nextBillDate from joiningDate and the plan duration. Without a plan nextBillDate equals joiningDate.
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body member.EnrollRequest true "Member payload"
// @Success      201 {object} member.View
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /members [post]
func (h *Handler) Enroll(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}

	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	m, err := h.service.Enroll(c.Request.Context(), session.GymID, req)
	if err != nil {
		respondError(c, err, "Failed to enroll member")
		return
	}

	c.JSON(http.StatusCreated, m)
}

// @Summary      List members
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        page   query int    false "Page number, starting at 1"
// @Param        limit  query int    false "Page size (max 100)"
// @Param        name   query string false "Case-insensitive name substring"
// @Param        phone  query string false "Phone substring"
// @Param        status query string false "active, expiring_soon, expired or inactive"
// @Success      200 {object} api.Page[member.View]
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /members [get]
func (h *Handler) List(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}
	page, limit, ok := api.Pagination(c)
	if !ok {
		return
	}

	f := Filter{Name: c.Query("name"), Phone: c.Query("phone")}
	if raw := c.Query("status"); raw != "" {
		status, err := lifecycle.ParseStatus(raw)
		if err != nil {
			api.RespondValidation(c, api.FieldError{Field: "status", Tag: "oneof", Message: err.Error()})
			return
		}
		f.Status = status
	}

	views, total, err := h.service.List(c.Request.Context(), session.GymID, f, page, limit)
	if err != nil {
		respondError(c, err, "Failed to fetch members")
		return
	}

	c.JSON(http.StatusOK, api.NewPage(views, page, limit, total))
}

// @Summary      Get a member
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Member ID"
// @Success      200 {object} member.View
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /members/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}

	m, err := h.service.Get(c.Request.Context(), session.GymID, id)
	if err != nil {
		respondError(c, err, "Failed to fetch member")
		return
	}

	c.JSON(http.StatusOK, m)
}

// @Summary      Update member details
// @Description  Fields are optional. Changing membershipPlanId recomputes nextBillDate from joiningDate.
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Member ID"
// @Param        request body member.UpdateRequest true "Fields to change"
// @Success      200 {object} member.View
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /members/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	m, err := h.service.UpdateDetails(c.Request.Context(), session.GymID, id, req)
	if err != nil {
		respondError(c, err, "Failed to update member")
		return
	}

	c.JSON(http.StatusOK, m)
}

// @Summary      Activate or deactivate a member
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Member ID"
// @Param        request body member.StatusRequest true "Active flag"
// @Success      200 {object} member.View
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /members/{id}/status [patch]
func (h *Handler) SetStatus(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	m, err := h.service.SetActive(c.Request.Context(), session.GymID, id, *req.IsActive)
	if err != nil {
		respondError(c, err, "Failed to update member status")
		return
	}

	c.JSON(http.StatusOK, m)
}

// @Summary      Mark a member paid or unpaid
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Member ID"
// @Param        request body member.PaymentRequest true "Paid flag"
// @Success      200 {object} member.View
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /members/{id}/payment [patch]
func (h *Handler) SetPayment(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	m, err := h.service.SetPaid(c.Request.Context(), session.GymID, id, *req.IsPaid)
	if err != nil {
		respondError(c, err, "Failed to update payment status")
		return
	}

	c.JSON(http.StatusOK, m)
}

// @Summary      Renew a membership
// @Description  Restarts the billing window from today. isPaid defaults to true.
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Member ID"
// @Param        request body member.RenewRequest true "Renewal"
// @Success      200 {object} member.View
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /members/{id}/renew [post]
func (h *Handler) Renew(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}

	var req RenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	m, err := h.service.Renew(c.Request.Context(), session.GymID, id, req)
	if err != nil {
		respondError(c, err, "Failed to renew membership")
		return
	}

	c.JSON(http.StatusOK, m)
}

// @Summary      Upload a member photo
// @Tags         members
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path     int  true "Member ID"
// @Param        photo formData file true "JPEG, PNG or WebP up to 5 MiB"
// @Success      200 {object} member.View
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      503 {object} api.ErrorResponse
// @Router       /members/{id}/photo [post]
func (h *Handler) UploadPhoto(c *gin.Context) {
	session, ok := auth.RequireSession(c)
	if !ok {
		return
	}
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		api.RespondValidation(c, api.FieldError{Field: "photo", Tag: "required", Message: "photo is required"})
		return
	}
	up, f, err := storage.OpenMultipart(fh)
	if err != nil {
		respondError(c, err, "Failed to read upload")
		return
	}
	defer f.Close()

	m, err := h.service.UploadPhoto(c.Request.Context(), session.GymID, id, up)
	if err != nil {
		respondError(c, err, "Failed to upload photo")
		return
	}

	c.JSON(http.StatusOK, m)
}

// @Summary      Delete a member
// @Tags         members
// @Security     BearerAuth
// @Param        id path int true "Member ID"
// @Success      204
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /members/{id} [delete]
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
		respondError(c, err, "Failed to delete member")
		return
	}

	c.Status(http.StatusNoContent)
}
