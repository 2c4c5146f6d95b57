package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/medibook/medibook-api/internal/dto"
	"github.com/medibook/medibook-api/internal/models"
	"github.com/medibook/medibook-api/internal/repository"
	appErrors "github.com/medibook/medibook-api/pkg/errors"
)

type adminUserRepository interface {
	Stats(ctx context.Context) (*dto.AdminStats, error)
	ListByRoles(ctx context.Context, roles ...models.UserRole) ([]models.User, error)
	ListDoctors(ctx context.Context, approvedOnly bool) ([]models.Doctor, error)
	ApproveDoctor(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type adminAppointmentRepository interface {
	ListAll(ctx context.Context) ([]models.Appointment, error)
	Count(ctx context.Context) (int, error)
}

// AdminService implements the administrator console operations.
type AdminService struct {
	users        adminUserRepository
	appointments adminAppointmentRepository
	logger       *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(users adminUserRepository, appointments adminAppointmentRepository, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{users: users, appointments: appointments, logger: logger}
}

// Stats aggregates platform counters for the admin dashboard.
func (s *AdminService) Stats(ctx context.Context) (*dto.AdminStats, error) {
	stats, err := s.users.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute stats")
	}

	total, err := s.appointments.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count appointments")
	}
	stats.TotalAppointments = total

	return stats, nil
}

// ListUsers returns every non-doctor account.
func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListByRoles(ctx, models.RolePatient, models.RoleAdmin)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, nil
}

// ListDoctors returns every doctor, approved or not.
func (s *AdminService) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	doctors, err := s.users.ListDoctors(ctx, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doctors")
	}
	return doctors, nil
}

// ListAppointments returns every appointment on the platform.
func (s *AdminService) ListAppointments(ctx context.Context) ([]models.Appointment, error) {
	appointments, err := s.appointments.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appointments, nil
}

// ApproveDoctor marks a doctor as approved, making them bookable.
func (s *AdminService) ApproveDoctor(ctx context.Context, adminID, doctorID string) error {
	if err := s.users.ApproveDoctor(ctx, doctorID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.ErrDoctorNotFound
		case errors.Is(err, repository.ErrAlreadyApproved):
			return appErrors.Clone(appErrors.ErrConflict, "doctor is already approved")
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve doctor")
		}
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionDoctorApprove,
		Resource:   "doctors",
		ResourceID: &doctorID,
		NewValues:  []byte(`{"approved":true}`),
	}); err != nil {
		s.logger.Warn("failed to record approval audit log", zap.Error(err))
	}

	return nil
}

// DeleteUser removes an account and everything hanging off it. Availability,
// appointments and tokens are removed by the schema's cascade rules.
func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID string) error {
	if adminID == userID {
		return appErrors.Clone(appErrors.ErrValidation, "administrators cannot delete their own account")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionUserDelete,
		Resource:   "users",
		ResourceID: &userID,
	}); err != nil {
		s.logger.Warn("failed to record delete audit log", zap.Error(err))
	}

	return nil
}
