package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/medibook/medibook-api/internal/dto"
	"github.com/medibook/medibook-api/internal/models"
	"github.com/medibook/medibook-api/internal/repository"
	appErrors "github.com/medibook/medibook-api/pkg/errors"
)

type availabilityRepository interface {
	AppendSlot(ctx context.Context, doctorID string, date time.Time, start, end string) (*models.AvailabilityDay, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]models.AvailabilityDay, error)
}

type availabilityCache interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AvailabilityService manages the slots a doctor offers for booking.
type AvailabilityService struct {
	repo      availabilityRepository
	cache     availabilityCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, cache availabilityCache, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AvailabilityService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// OfferSlot appends a new open slot to the doctor's availability for the
// given date, creating the day on first use. Offering the same time range
// twice for one date is rejected.
func (s *AvailabilityService) OfferSlot(ctx context.Context, doctorID string, req dto.OfferSlotRequest) (*dto.AvailabilityDayView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	if req.StartTime >= req.EndTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startTime must be before endTime")
	}

	date, err := dto.ParseDay(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}

	day, err := s.repo.AppendSlot(ctx, doctorID, date, req.StartTime, req.EndTime)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateSlot) {
			return nil, appErrors.ErrSlotExists
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add time slot")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, availabilityCacheKey(doctorID)); err != nil {
			s.logger.Warn("failed to invalidate availability cache", zap.String("doctor_id", doctorID), zap.Error(err))
		}
	}

	view := dto.NewAvailabilityDayView(*day)
	return &view, nil
}

// ListOwn returns all availability days for the doctor, booked slots
// included, so doctors can review their full calendar.
func (s *AvailabilityService) ListOwn(ctx context.Context, doctorID string) ([]dto.AvailabilityDayView, error) {
	days, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}
	return dto.NewAvailabilityListView(days), nil
}
