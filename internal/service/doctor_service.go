package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/medibook/medibook-api/internal/dto"
	"github.com/medibook/medibook-api/internal/models"
	appErrors "github.com/medibook/medibook-api/pkg/errors"
)

type doctorUserRepository interface {
	ListDoctors(ctx context.Context, approvedOnly bool) ([]models.Doctor, error)
}

type doctorAvailabilityRepository interface {
	ListByDoctorFrom(ctx context.Context, doctorID string, from time.Time) ([]models.AvailabilityDay, error)
}

type doctorCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type doctorMetrics interface {
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
}

// DoctorService serves the public doctor directory and availability views.
type DoctorService struct {
	users        doctorUserRepository
	availability doctorAvailabilityRepository
	cache        doctorCache
	metrics      doctorMetrics
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewDoctorService constructs a DoctorService.
func NewDoctorService(
	users doctorUserRepository,
	availability doctorAvailabilityRepository,
	cache doctorCache,
	metrics doctorMetrics,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *DoctorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoctorService{
		users:        users,
		availability: availability,
		cache:        cache,
		metrics:      metrics,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// ListApproved returns doctors that an administrator has approved. Only
// approved doctors appear in the public directory.
func (s *DoctorService) ListApproved(ctx context.Context) ([]models.Doctor, error) {
	doctors, err := s.users.ListDoctors(ctx, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doctors")
	}
	return doctors, nil
}

// Availability returns a doctor's availability days from today onward.
// Results are cached until a slot is offered or booked for the doctor.
func (s *DoctorService) Availability(ctx context.Context, doctorID string) ([]dto.AvailabilityDayView, error) {
	key := availabilityCacheKey(doctorID)

	if s.cache != nil {
		var cached []dto.AvailabilityDayView
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheHit(key)
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheMiss(key)
		}
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	days, err := s.availability.ListByDoctorFrom(ctx, doctorID, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}

	views := dto.NewAvailabilityListView(days)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, views, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache availability", zap.String("doctor_id", doctorID), zap.Error(err))
		}
	}

	return views, nil
}
