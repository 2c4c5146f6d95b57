package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RolePatient UserRole = "PATIENT"
	RoleDoctor  UserRole = "DOCTOR"
	RoleAdmin   UserRole = "ADMIN"
)

// User represents an application user stored in the users table.
// Doctor-specific attributes live in DoctorProfile so that patient and
// admin accounts carry no optional fields.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Phone        string    `db:"phone" json:"phone"`
	Role         UserRole  `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DoctorProfile holds the doctor-only attributes of an account.
type DoctorProfile struct {
	UserID          string    `db:"user_id" json:"user_id"`
	Specialization  string    `db:"specialization" json:"specialization"`
	ExperienceYears int       `db:"experience_years" json:"experience_years"`
	Approved        bool      `db:"approved" json:"approved"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Doctor is the joined view of a doctor account used in listings.
type Doctor struct {
	ID              string    `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	FullName        string    `db:"full_name" json:"full_name"`
	Phone           string    `db:"phone" json:"phone"`
	Specialization  string    `db:"specialization" json:"specialization"`
	ExperienceYears int       `db:"experience_years" json:"experience_years"`
	Approved        bool      `db:"approved" json:"approved"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
