package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medibook/medibook-api/internal/dto"
	"github.com/medibook/medibook-api/internal/models"
)

// ErrAlreadyApproved is returned when approving a doctor whose approval flag
// was already flipped. Approval happens exactly once.
var ErrAlreadyApproved = errors.New("doctor already approved")

// UserRepository provides database access for accounts and doctor profiles.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and, for doctors, the companion profile in one
// transaction.
func (r *UserRepository) Create(ctx context.Context, user *models.User, profile *models.DoctorProfile) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const userQuery = `INSERT INTO users (id, email, password_hash, full_name, phone, role, created_at, updated_at)
VALUES (:id, :email, :password_hash, :full_name, :phone, :role, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, userQuery, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	if profile != nil {
		profile.UserID = user.ID
		profile.CreatedAt = now
		profile.UpdatedAt = now
		const profileQuery = `INSERT INTO doctor_profiles (user_id, specialization, experience_years, approved, created_at, updated_at)
VALUES (:user_id, :specialization, :experience_years, :approved, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, profileQuery, profile); err != nil {
			return fmt.Errorf("create doctor profile: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	return nil
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, full_name, phone, role, created_at, updated_at FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, full_name, phone, role, created_at, updated_at FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ListByRoles returns users holding any of the provided roles.
func (r *UserRepository) ListByRoles(ctx context.Context, roles ...models.UserRole) ([]models.User, error) {
	query, args, err := sqlx.In(`SELECT id, email, password_hash, full_name, phone, role, created_at, updated_at FROM users WHERE role IN (?) ORDER BY created_at DESC`, roles)
	if err != nil {
		return nil, fmt.Errorf("build list users query: %w", err)
	}
	query = r.db.Rebind(query)

	users := make([]models.User, 0)
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

// ListDoctors returns doctor accounts joined with their profiles. When
// approvedOnly is set, unapproved doctors are excluded.
func (r *UserRepository) ListDoctors(ctx context.Context, approvedOnly bool) ([]models.Doctor, error) {
	query := `SELECT u.id, u.email, u.full_name, u.phone, p.specialization, p.experience_years, p.approved, u.created_at
FROM users u JOIN doctor_profiles p ON p.user_id = u.id
WHERE u.role = $1`
	if approvedOnly {
		query += ` AND p.approved = TRUE`
	}
	query += ` ORDER BY u.created_at DESC`

	doctors := make([]models.Doctor, 0)
	if err := r.db.SelectContext(ctx, &doctors, query, models.RoleDoctor); err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

// FindDoctor returns one doctor account with its profile.
func (r *UserRepository) FindDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	const query = `SELECT u.id, u.email, u.full_name, u.phone, p.specialization, p.experience_years, p.approved, u.created_at
FROM users u JOIN doctor_profiles p ON p.user_id = u.id
WHERE u.id = $1 AND u.role = $2 LIMIT 1`
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id, models.RoleDoctor); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find doctor: %w", err)
	}
	return &doctor, nil
}

// ApproveDoctor flips the approval flag exactly once.
func (r *UserRepository) ApproveDoctor(ctx context.Context, id string) error {
	const query = `UPDATE doctor_profiles SET approved = TRUE, updated_at = $2 WHERE user_id = $1 AND approved = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("approve doctor: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve doctor rows: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM doctor_profiles WHERE user_id = $1)`, id); err != nil {
			return fmt.Errorf("check doctor profile: %w", err)
		}
		if !exists {
			return sql.ErrNoRows
		}
		return ErrAlreadyApproved
	}
	return nil
}

// Delete removes a user permanently. Dependent rows (profile, tokens,
// availability) go with it via ON DELETE CASCADE.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Stats returns the aggregate account counters for the admin dashboard.
func (r *UserRepository) Stats(ctx context.Context) (*dto.AdminStats, error) {
	const query = `SELECT
COUNT(*) AS total_users,
COUNT(*) FILTER (WHERE role = $1) AS total_doctors,
COUNT(p.user_id) FILTER (WHERE p.approved) AS approved_doctors,
COUNT(p.user_id) FILTER (WHERE NOT p.approved) AS pending_doctors
FROM users u LEFT JOIN doctor_profiles p ON p.user_id = u.id`
	var row struct {
		TotalUsers      int `db:"total_users"`
		TotalDoctors    int `db:"total_doctors"`
		ApprovedDoctors int `db:"approved_doctors"`
		PendingDoctors  int `db:"pending_doctors"`
	}
	if err := r.db.GetContext(ctx, &row, query, models.RoleDoctor); err != nil {
		return nil, fmt.Errorf("account stats: %w", err)
	}
	return &dto.AdminStats{
		TotalUsers:      row.TotalUsers,
		TotalDoctors:    row.TotalDoctors,
		ApprovedDoctors: row.ApprovedDoctors,
		PendingDoctors:  row.PendingDoctors,
	}, nil
}

// CreateRefreshToken persists a refresh token entry.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent)
VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes all refresh tokens for a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit log entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :resource, :resource_id, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
