package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotbook/slotbook-api/internal/middleware"
	"github.com/slotbook/slotbook-api/internal/service"
	appErrors "github.com/slotbook/slotbook-api/pkg/errors"
	"github.com/slotbook/slotbook-api/pkg/response"
)

// EventTypeHandler manages a provider's bookable services.
type EventTypeHandler struct {
	service *service.EventTypeService
}

// NewEventTypeHandler constructs handler.
func NewEventTypeHandler(svc *service.EventTypeService) *EventTypeHandler {
	return &EventTypeHandler{service: svc}
}

// List godoc
// @Summary List the authenticated provider's event types
// @Tags Event Types
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /event-types [get]
func (h *EventTypeHandler) List(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	types, err := h.service.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Create godoc
// @Summary Create an event type
// @Tags Event Types
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateEventTypeRequest true "Event type payload"
// @Success 201 {object} response.Envelope
// @Router /event-types [post]
func (h *EventTypeHandler) Create(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateEventTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	et, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, et)
}

// Update godoc
// @Summary Update an event type
// @Tags Event Types
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event type ID"
// @Param payload body service.UpdateEventTypeRequest true "Event type payload"
// @Success 200 {object} response.Envelope
// @Router /event-types/{id} [put]
func (h *EventTypeHandler) Update(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateEventTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	et, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, et, nil)
}
