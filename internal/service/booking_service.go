package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/medibook/medibook-api/internal/dto"
	"github.com/medibook/medibook-api/internal/models"
	"github.com/medibook/medibook-api/internal/repository"
	appErrors "github.com/medibook/medibook-api/pkg/errors"
)

type bookingAppointmentRepository interface {
	BookSlot(ctx context.Context, patientID, doctorID string, date time.Time, start, end string) (*models.Appointment, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]models.Appointment, error)
}

type bookingDoctorRepository interface {
	FindDoctor(ctx context.Context, id string) (*models.Doctor, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type bookingCache interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type bookingMetrics interface {
	RecordBooking(outcome string)
}

// BookingService coordinates appointment booking. Claiming a slot and
// creating the appointment happen in a single database transaction, so two
// patients racing for the same slot can never both succeed and a failed
// booking never leaves a slot marked as taken.
type BookingService struct {
	appointments bookingAppointmentRepository
	doctors      bookingDoctorRepository
	cache        bookingCache
	metrics      bookingMetrics
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewBookingService constructs a BookingService.
func NewBookingService(
	appointments bookingAppointmentRepository,
	doctors bookingDoctorRepository,
	cache bookingCache,
	metrics bookingMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BookingService{
		appointments: appointments,
		doctors:      doctors,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// Book reserves the requested slot for the patient and creates the
// appointment. Losing a race for the last matching slot reports the same
// error as requesting a slot that was already booked.
func (s *BookingService) Book(ctx context.Context, patientID string, req dto.BookingRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		s.recordBooking("invalid")
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if req.TimeSlot.StartTime >= req.TimeSlot.EndTime {
		s.recordBooking("invalid")
		return nil, appErrors.Clone(appErrors.ErrValidation, "startTime must be before endTime")
	}

	date, err := dto.ParseDay(req.Date)
	if err != nil {
		s.recordBooking("invalid")
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}

	doctor, err := s.doctors.FindDoctor(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordBooking("doctor_not_found")
			return nil, appErrors.ErrDoctorNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	if !doctor.Approved {
		s.recordBooking("doctor_not_approved")
		return nil, appErrors.Clone(appErrors.ErrForbidden, "doctor is not accepting appointments")
	}

	appointment, err := s.appointments.BookSlot(ctx, patientID, req.DoctorID, date, req.TimeSlot.StartTime, req.TimeSlot.EndTime)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoAvailabilityDay):
			s.recordBooking("no_availability")
			return nil, appErrors.ErrNoAvailability
		case errors.Is(err, repository.ErrSlotTaken):
			s.recordBooking("slot_unavailable")
			return nil, appErrors.ErrSlotUnavailable
		default:
			s.recordBooking("error")
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to book appointment")
		}
	}

	s.recordBooking("confirmed")
	s.invalidateAvailability(ctx, req.DoctorID)

	if err := s.doctors.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &patientID,
		Action:     models.AuditActionBooking,
		Resource:   "appointments",
		ResourceID: &appointment.ID,
		NewValues:  []byte(fmt.Sprintf(`{"doctor_id":%q,"date":%q,"start":%q,"end":%q}`, req.DoctorID, req.Date, req.TimeSlot.StartTime, req.TimeSlot.EndTime)),
	}); err != nil {
		s.logger.Warn("failed to record booking audit log", zap.Error(err))
	}

	return appointment, nil
}

// ListForPatient returns the patient's appointments, newest first.
func (s *BookingService) ListForPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	appointments, err := s.appointments.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appointments, nil
}

// ListForDoctor returns the appointments booked against a doctor.
func (s *BookingService) ListForDoctor(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	appointments, err := s.appointments.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appointments, nil
}

func (s *BookingService) recordBooking(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordBooking(outcome)
	}
}

func (s *BookingService) invalidateAvailability(ctx context.Context, doctorID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, availabilityCacheKey(doctorID)); err != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.String("doctor_id", doctorID), zap.Error(err))
	}
}

func availabilityCacheKey(doctorID string) string {
	return "availability:doctor:" + doctorID
}
