package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/slotbook/slotbook-api/internal/middleware"
	"github.com/slotbook/slotbook-api/internal/models"
	"github.com/slotbook/slotbook-api/internal/service"
	appErrors "github.com/slotbook/slotbook-api/pkg/errors"
	"github.com/slotbook/slotbook-api/pkg/response"
)

type availabilityService interface {
	GetSlots(ctx context.Context, query service.SlotQuery) ([]models.Slot, error)
	GetWeeklyRules(ctx context.Context, userID string) ([]models.WeeklyRule, error)
	ReplaceWeeklyRules(ctx context.Context, userID string, req service.ReplaceWeeklyRulesRequest) ([]models.WeeklyRule, error)
	SetOverride(ctx context.Context, userID, date string, req service.SetOverrideRequest) (*models.DateOverride, error)
	GetOverride(ctx context.Context, userID, date string) (*models.DateOverride, error)
	DeleteOverride(ctx context.Context, userID, date string) error
	GetSettings(ctx context.Context, userID string) (*models.ProviderSettings, error)
	UpdateSettings(ctx context.Context, userID string, req service.UpdateSettingsRequest) (*models.ProviderSettings, error)
}

// AvailabilityHandler serves slot listings and availability management.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(svc availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// GetSlots godoc
// @Summary List bookable slots for a provider and day
// @Tags Availability
// @Produce json
// @Param id path string true "Provider ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param eventTypeId query string false "Event type resolving duration and buffer"
// @Param duration query int false "Duration minutes (when no event type)"
// @Param buffer query int false "Buffer minutes (when no event type)"
// @Success 200 {object} response.Envelope
// @Router /providers/{id}/slots [get]
func (h *AvailabilityHandler) GetSlots(c *gin.Context) {
	query := service.SlotQuery{
		ProviderID:  c.Param("id"),
		Date:        c.Query("date"),
		EventTypeID: c.Query("eventTypeId"),
	}
	if raw := c.Query("duration"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "duration must be an integer"))
			return
		}
		query.DurationMinutes = v
	}
	if raw := c.Query("buffer"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "buffer must be an integer"))
			return
		}
		query.BufferMinutes = v
	}

	slots, err := h.service.GetSlots(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// GetWeeklyRules godoc
// @Summary Get the authenticated provider's weekly availability
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /availability/weekly [get]
func (h *AvailabilityHandler) GetWeeklyRules(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rules, err := h.service.GetWeeklyRules(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// ReplaceWeeklyRules godoc
// @Summary Replace the authenticated provider's weekly availability
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.ReplaceWeeklyRulesRequest true "Full rule set"
// @Success 200 {object} response.Envelope
// @Router /availability/weekly [put]
func (h *AvailabilityHandler) ReplaceWeeklyRules(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ReplaceWeeklyRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rules, err := h.service.ReplaceWeeklyRules(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// SetOverride godoc
// @Summary Create or replace a per-date override
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param payload body service.SetOverrideRequest true "Override block; omit times for a day off"
// @Success 200 {object} response.Envelope
// @Router /availability/overrides/{date} [put]
func (h *AvailabilityHandler) SetOverride(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SetOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	override, err := h.service.SetOverride(c.Request.Context(), claims.UserID, c.Param("date"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}

// GetOverride godoc
// @Summary Get the per-date override, if any
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /availability/overrides/{date} [get]
func (h *AvailabilityHandler) GetOverride(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	override, err := h.service.GetOverride(c.Request.Context(), claims.UserID, c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}

// DeleteOverride godoc
// @Summary Remove a per-date override, restoring weekly rules
// @Tags Availability
// @Security BearerAuth
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 204
// @Router /availability/overrides/{date} [delete]
func (h *AvailabilityHandler) DeleteOverride(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.DeleteOverride(c.Request.Context(), claims.UserID, c.Param("date")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetSettings godoc
// @Summary Get the authenticated provider's booking policy
// @Tags Settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *AvailabilityHandler) GetSettings(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	settings, err := h.service.GetSettings(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdateSettings godoc
// @Summary Update the authenticated provider's booking policy
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.UpdateSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Router /settings [put]
func (h *AvailabilityHandler) UpdateSettings(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	settings, err := h.service.UpdateSettings(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}
