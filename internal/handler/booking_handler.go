package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/slotbook/slotbook-api/internal/middleware"
	"github.com/slotbook/slotbook-api/internal/models"
	"github.com/slotbook/slotbook-api/internal/service"
	"github.com/slotbook/slotbook-api/internal/timeutil"
	appErrors "github.com/slotbook/slotbook-api/pkg/errors"
	"github.com/slotbook/slotbook-api/pkg/response"
)

type bookingService interface {
	TryBook(ctx context.Context, req service.BookAppointmentRequest) (*models.Appointment, error)
	Cancel(ctx context.Context, token string) (*models.Appointment, error)
	Reschedule(ctx context.Context, token string, req service.RescheduleRequest) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error)
}

// BookingHandler serves the booking write path and appointment listings.
type BookingHandler struct {
	service bookingService
}

// NewBookingHandler constructs handler.
func NewBookingHandler(svc bookingService) *BookingHandler {
	return &BookingHandler{service: svc}
}

// bookingResponse augments the appointment with its cancel token, which is
// only revealed to the booking client.
type bookingResponse struct {
	models.Appointment
	CancelToken string `json:"cancel_token"`
}

// Create godoc
// @Summary Book an appointment if the window is still free
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Provider ID"
// @Param payload body service.BookAppointmentRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Window no longer available"
// @Router /providers/{id}/bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req service.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ProviderID = c.Param("id")

	appt, err := h.service.TryBook(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bookingResponse{Appointment: *appt, CancelToken: appt.CancelToken})
}

// Cancel godoc
// @Summary Cancel an appointment by its cancel token
// @Tags Bookings
// @Produce json
// @Param token path string true "Cancel token"
// @Success 200 {object} response.Envelope
// @Router /bookings/{token}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	appt, err := h.service.Cancel(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Reschedule godoc
// @Summary Move an appointment to a new window
// @Tags Bookings
// @Accept json
// @Produce json
// @Param token path string true "Cancel token of the appointment being moved"
// @Param payload body service.RescheduleRequest true "New date and start time"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "New window not available"
// @Router /bookings/{token}/reschedule [post]
func (h *BookingHandler) Reschedule(c *gin.Context) {
	var req service.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	appt, err := h.service.Reschedule(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bookingResponse{Appointment: *appt, CancelToken: appt.CancelToken})
}

// List godoc
// @Summary List the authenticated provider's appointments
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /appointments [get]
func (h *BookingHandler) List(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.AppointmentFilter{UserID: claims.UserID}
	if raw := c.Query("from"); raw != "" {
		from, err := timeutil.ParseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date"))
			return
		}
		filter.From = from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := timeutil.ParseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date"))
			return
		}
		filter.To = to
	}
	filter.Status = models.AppointmentStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	appts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appts, pagination)
}
