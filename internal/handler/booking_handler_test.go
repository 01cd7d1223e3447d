package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotbook/slotbook-api/internal/middleware"
	"github.com/slotbook/slotbook-api/internal/models"
	"github.com/slotbook/slotbook-api/internal/service"
	appErrors "github.com/slotbook/slotbook-api/pkg/errors"
)

type bookingServiceMock struct {
	bookResp   *models.Appointment
	bookErr    error
	lastBook   service.BookAppointmentRequest
	cancelResp *models.Appointment
	cancelErr  error
	lastToken  string
	listResp   []models.Appointment
	lastFilter models.AppointmentFilter
}

func (m *bookingServiceMock) TryBook(ctx context.Context, req service.BookAppointmentRequest) (*models.Appointment, error) {
	m.lastBook = req
	return m.bookResp, m.bookErr
}

func (m *bookingServiceMock) Cancel(ctx context.Context, token string) (*models.Appointment, error) {
	m.lastToken = token
	return m.cancelResp, m.cancelErr
}

func (m *bookingServiceMock) Reschedule(ctx context.Context, token string, req service.RescheduleRequest) (*models.Appointment, error) {
	m.lastToken = token
	return m.bookResp, m.bookErr
}

func (m *bookingServiceMock) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, nil
}

func TestBookingHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &bookingServiceMock{
		bookResp: &models.Appointment{
			ID:          "appt-1",
			UserID:      "prov-1",
			StartTime:   "10:00",
			EndTime:     "10:30",
			Status:      models.StatusScheduled,
			CancelToken: "tok-1",
		},
	}
	handler := NewBookingHandler(mockSvc)

	body, _ := json.Marshal(map[string]interface{}{
		"date":         "2026-03-02",
		"start_time":   "10:00",
		"duration_minutes": 30,
		"client_name":  "Ada Lovelace",
		"client_email": "ada@example.com",
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/providers/prov-1/bookings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "prov-1"}}

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "prov-1", mockSvc.lastBook.ProviderID, "provider comes from the path, not the body")
	assert.Equal(t, "10:00", mockSvc.lastBook.StartTime)

	var envelope struct {
		Data struct {
			ID          string `json:"id"`
			CancelToken string `json:"cancel_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "appt-1", envelope.Data.ID)
	assert.Equal(t, "tok-1", envelope.Data.CancelToken, "the cancel token is revealed to the booking client")
}

func TestBookingHandlerCreateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &bookingServiceMock{bookErr: appErrors.ErrSlotConflict}
	handler := NewBookingHandler(mockSvc)

	body, _ := json.Marshal(map[string]interface{}{
		"date": "2026-03-02", "start_time": "10:00", "duration_minutes": 30,
		"client_name": "Ada", "client_email": "ada@example.com",
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/providers/prov-1/bookings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "prov-1"}}

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrSlotConflict.Code, envelope.Error.Code)
}

func TestBookingHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBookingHandler(&bookingServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/providers/prov-1/bookings", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "prov-1"}}

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandlerCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &bookingServiceMock{
		cancelResp: &models.Appointment{ID: "appt-1", Status: models.StatusCanceled},
	}
	handler := NewBookingHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/bookings/tok-1/cancel", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "tok-1"}}

	handler.Cancel(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-1", mockSvc.lastToken)
}

func TestBookingHandlerListRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBookingHandler(&bookingServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/appointments", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingHandlerListFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &bookingServiceMock{}
	handler := NewBookingHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/appointments?from=2026-03-01&to=2026-03-31&status=SCHEDULED&page=2&limit=10", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "prov-1"})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "prov-1", mockSvc.lastFilter.UserID)
	assert.Equal(t, models.StatusScheduled, mockSvc.lastFilter.Status)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 10, mockSvc.lastFilter.PageSize)
	assert.False(t, mockSvc.lastFilter.From.IsZero())
}
