package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medibook/medibook-api/internal/dto"
	"github.com/medibook/medibook-api/internal/models"
	"github.com/medibook/medibook-api/internal/repository"
	appErrors "github.com/medibook/medibook-api/pkg/errors"
)

type mockAppointmentRepo struct {
	bookErr      error
	booked       *models.Appointment
	byPatient    []models.Appointment
	byDoctor     []models.Appointment
	lastPatient  string
	lastDoctor   string
	lastDate     time.Time
	lastStart    string
	lastEnd      string
	bookAttempts int
}

func (m *mockAppointmentRepo) BookSlot(ctx context.Context, patientID, doctorID string, date time.Time, start, end string) (*models.Appointment, error) {
	m.bookAttempts++
	m.lastPatient = patientID
	m.lastDoctor = doctorID
	m.lastDate = date
	m.lastStart = start
	m.lastEnd = end
	if m.bookErr != nil {
		return nil, m.bookErr
	}
	if m.booked != nil {
		return m.booked, nil
	}
	return &models.Appointment{ID: "appt-1", PatientID: patientID, DoctorID: doctorID, Date: date, Start: start, End: end, Status: models.AppointmentConfirmed}, nil
}

func (m *mockAppointmentRepo) ListByPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	return m.byPatient, nil
}

func (m *mockAppointmentRepo) ListByDoctor(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	return m.byDoctor, nil
}

type mockDoctorRepo struct {
	doctor    *models.Doctor
	findErr   error
	auditLogs []*models.AuditLog
}

func (m *mockDoctorRepo) FindDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.doctor, nil
}

func (m *mockDoctorRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockCacheInvalidator struct {
	patterns []string
}

func (m *mockCacheInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

type mockBookingMetrics struct {
	outcomes []string
}

func (m *mockBookingMetrics) RecordBooking(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func validBookingRequest() dto.BookingRequest {
	return dto.BookingRequest{
		DoctorID: "doc-1",
		Date:     "2026-09-15",
		TimeSlot: dto.TimeRange{StartTime: "09:00", EndTime: "09:30"},
	}
}

func TestBookingServiceBookSuccess(t *testing.T) {
	appts := &mockAppointmentRepo{}
	doctors := &mockDoctorRepo{doctor: &models.Doctor{ID: "doc-1", Approved: true}}
	cache := &mockCacheInvalidator{}
	metrics := &mockBookingMetrics{}
	svc := NewBookingService(appts, doctors, cache, metrics, validator.New(), zap.NewNop())

	appt, err := svc.Book(context.Background(), "pat-1", validBookingRequest())
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentConfirmed, appt.Status)
	assert.Equal(t, "pat-1", appts.lastPatient)
	assert.Equal(t, "09:00", appts.lastStart)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), appts.lastDate)
	assert.Equal(t, []string{"confirmed"}, metrics.outcomes)
	assert.Equal(t, []string{"availability:doctor:doc-1"}, cache.patterns)
	require.Len(t, doctors.auditLogs, 1)
	assert.Equal(t, models.AuditActionBooking, doctors.auditLogs[0].Action)
}

func TestBookingServiceBookDoctorNotFound(t *testing.T) {
	appts := &mockAppointmentRepo{}
	doctors := &mockDoctorRepo{findErr: sql.ErrNoRows}
	svc := NewBookingService(appts, doctors, nil, nil, validator.New(), zap.NewNop())

	_, err := svc.Book(context.Background(), "pat-1", validBookingRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDoctorNotFound.Code, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Zero(t, appts.bookAttempts)
}

func TestBookingServiceBookUnapprovedDoctor(t *testing.T) {
	appts := &mockAppointmentRepo{}
	doctors := &mockDoctorRepo{doctor: &models.Doctor{ID: "doc-1", Approved: false}}
	svc := NewBookingService(appts, doctors, nil, nil, validator.New(), zap.NewNop())

	_, err := svc.Book(context.Background(), "pat-1", validBookingRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Zero(t, appts.bookAttempts)
}

func TestBookingServiceBookNoAvailability(t *testing.T) {
	appts := &mockAppointmentRepo{bookErr: repository.ErrNoAvailabilityDay}
	doctors := &mockDoctorRepo{doctor: &models.Doctor{ID: "doc-1", Approved: true}}
	metrics := &mockBookingMetrics{}
	svc := NewBookingService(appts, doctors, nil, metrics, validator.New(), zap.NewNop())

	_, err := svc.Book(context.Background(), "pat-1", validBookingRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoAvailability.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []string{"no_availability"}, metrics.outcomes)
}

func TestBookingServiceBookSlotTaken(t *testing.T) {
	appts := &mockAppointmentRepo{bookErr: repository.ErrSlotTaken}
	doctors := &mockDoctorRepo{doctor: &models.Doctor{ID: "doc-1", Approved: true}}
	cache := &mockCacheInvalidator{}
	svc := NewBookingService(appts, doctors, cache, nil, validator.New(), zap.NewNop())

	_, err := svc.Book(context.Background(), "pat-1", validBookingRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Empty(t, cache.patterns)
}

// racingAppointmentRepo claims its single slot with a compare-and-swap, the
// way the real repository's conditional UPDATE admits only one winner.
type racingAppointmentRepo struct {
	claimed atomic.Bool
}

func (m *racingAppointmentRepo) BookSlot(ctx context.Context, patientID, doctorID string, date time.Time, start, end string) (*models.Appointment, error) {
	if !m.claimed.CompareAndSwap(false, true) {
		return nil, repository.ErrSlotTaken
	}
	return &models.Appointment{ID: "appt-1", PatientID: patientID, DoctorID: doctorID, Date: date, Start: start, End: end, Status: models.AppointmentConfirmed}, nil
}

func (m *racingAppointmentRepo) ListByPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	return nil, nil
}

func (m *racingAppointmentRepo) ListByDoctor(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	return nil, nil
}

func TestBookingServiceBookConcurrentSingleWinner(t *testing.T) {
	appts := &racingAppointmentRepo{}
	doctors := &mockDoctorRepo{doctor: &models.Doctor{ID: "doc-1", Approved: true}}
	svc := NewBookingService(appts, doctors, nil, nil, validator.New(), zap.NewNop())

	const patients = 32
	results := make(chan error, patients)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < patients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := svc.Book(context.Background(), fmt.Sprintf("pat-%d", i), validBookingRequest())
			results <- err
		}(i)
	}
	close(start)
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
		losses++
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, patients-1, losses)
}

func TestBookingServiceBookRejectsInvertedRange(t *testing.T) {
	appts := &mockAppointmentRepo{}
	doctors := &mockDoctorRepo{doctor: &models.Doctor{ID: "doc-1", Approved: true}}
	svc := NewBookingService(appts, doctors, nil, nil, validator.New(), zap.NewNop())

	req := validBookingRequest()
	req.TimeSlot = dto.TimeRange{StartTime: "10:00", EndTime: "09:00"}
	_, err := svc.Book(context.Background(), "pat-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, appts.bookAttempts)
}

func TestBookingServiceBookRejectsBadDate(t *testing.T) {
	appts := &mockAppointmentRepo{}
	doctors := &mockDoctorRepo{doctor: &models.Doctor{ID: "doc-1", Approved: true}}
	svc := NewBookingService(appts, doctors, nil, nil, validator.New(), zap.NewNop())

	req := validBookingRequest()
	req.Date = "15-09-2026"
	_, err := svc.Book(context.Background(), "pat-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceListForPatient(t *testing.T) {
	appts := &mockAppointmentRepo{byPatient: []models.Appointment{{ID: "a1"}, {ID: "a2"}}}
	svc := NewBookingService(appts, &mockDoctorRepo{}, nil, nil, validator.New(), zap.NewNop())

	list, err := svc.ListForPatient(context.Background(), "pat-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
