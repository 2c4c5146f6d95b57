package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medibook/medibook-api/internal/middleware"
	"github.com/medibook/medibook-api/internal/models"
	"github.com/medibook/medibook-api/internal/repository"
	"github.com/medibook/medibook-api/internal/service"
)

type responseEnvelope struct {
	Data    map[string]interface{} `json:"data"`
	Error   map[string]interface{} `json:"error"`
	Message string                 `json:"message"`
	Meta    map[string]interface{} `json:"meta"`
}

type fakeAppointmentRepo struct {
	bookErr   error
	byPatient []models.Appointment
	byDoctor  []models.Appointment
}

func (f *fakeAppointmentRepo) BookSlot(ctx context.Context, patientID, doctorID string, date time.Time, start, end string) (*models.Appointment, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return &models.Appointment{ID: "appt-1", PatientID: patientID, DoctorID: doctorID, Date: date, Start: start, End: end, Status: models.AppointmentConfirmed}, nil
}

func (f *fakeAppointmentRepo) ListByPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	return f.byPatient, nil
}

func (f *fakeAppointmentRepo) ListByDoctor(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	return f.byDoctor, nil
}

type fakeDoctorFinder struct {
	doctor  *models.Doctor
	findErr error
}

func (f *fakeDoctorFinder) FindDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.doctor, nil
}

func (f *fakeDoctorFinder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

func newBookingHandler(appts *fakeAppointmentRepo, doctors *fakeDoctorFinder) *AppointmentHandler {
	svc := service.NewBookingService(appts, doctors, nil, nil, nil, zap.NewNop())
	return NewAppointmentHandler(svc)
}

func authedContext(t *testing.T, rec *httptest.ResponseRecorder, claims *models.JWTClaims) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(rec)
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c
}

func TestAppointmentHandlerBookSuccess(t *testing.T) {
	handler := newBookingHandler(&fakeAppointmentRepo{}, &fakeDoctorFinder{doctor: &models.Doctor{ID: "doc-1", Approved: true}})

	body := []byte(`{"doctorId":"doc-1","date":"2026-09-15","timeSlot":{"startTime":"09:00","endTime":"09:30"}}`)
	rec := httptest.NewRecorder()
	c := authedContext(t, rec, &models.JWTClaims{UserID: "pat-1", Role: models.RolePatient})
	c.Request = httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Book(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Appointment booked successfully", envelope.Data["message"])
}

func TestAppointmentHandlerBookSlotTaken(t *testing.T) {
	handler := newBookingHandler(
		&fakeAppointmentRepo{bookErr: repository.ErrSlotTaken},
		&fakeDoctorFinder{doctor: &models.Doctor{ID: "doc-1", Approved: true}},
	)

	body := []byte(`{"doctorId":"doc-1","date":"2026-09-15","timeSlot":{"startTime":"09:00","endTime":"09:30"}}`)
	rec := httptest.NewRecorder()
	c := authedContext(t, rec, &models.JWTClaims{UserID: "pat-1", Role: models.RolePatient})
	c.Request = httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Book(c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "SLOT_UNAVAILABLE", envelope.Error["code"])
}

func TestAppointmentHandlerBookMalformedBody(t *testing.T) {
	handler := newBookingHandler(&fakeAppointmentRepo{}, &fakeDoctorFinder{})

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, &models.JWTClaims{UserID: "pat-1", Role: models.RolePatient})
	c.Request = httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader([]byte(`{`)))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Book(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppointmentHandlerBookUnauthenticated(t *testing.T) {
	handler := newBookingHandler(&fakeAppointmentRepo{}, &fakeDoctorFinder{})

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, nil)
	c.Request = httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader([]byte(`{}`)))

	handler.Book(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAppointmentHandlerListForDoctor(t *testing.T) {
	handler := newBookingHandler(&fakeAppointmentRepo{byDoctor: []models.Appointment{{ID: "a1"}}}, &fakeDoctorFinder{})

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, &models.JWTClaims{UserID: "doc-1", Role: models.RoleDoctor})
	c.Request = httptest.NewRequest(http.MethodGet, "/doctor/appointments", nil)

	handler.ListForDoctor(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a1")
}

func TestAppointmentHandlerListForUser(t *testing.T) {
	handler := newBookingHandler(&fakeAppointmentRepo{byPatient: []models.Appointment{{ID: "a2"}}}, &fakeDoctorFinder{})

	rec := httptest.NewRecorder()
	c := authedContext(t, rec, &models.JWTClaims{UserID: "pat-1", Role: models.RolePatient})
	c.Request = httptest.NewRequest(http.MethodGet, "/user/appointments", nil)

	handler.ListForUser(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a2")
}
