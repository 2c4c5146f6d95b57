package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medibook/medibook-api/internal/models"
)

// Booking failure sentinels. The service layer translates these into the
// user-facing error taxonomy.
var (
	// ErrNoAvailabilityDay means the doctor offered nothing on the date.
	ErrNoAvailabilityDay = errors.New("no availability day for doctor and date")
	// ErrSlotTaken means the requested range does not exist unbooked:
	// either it was never offered, or another booking already claimed it.
	ErrSlotTaken = errors.New("time slot not available")
)

// AppointmentRepository persists appointments and owns the transactional
// slot-booking primitive.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates a new instance of AppointmentRepository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// BookSlot atomically claims the first unbooked slot matching (doctor, date,
// start, end) and inserts the confirmed appointment in the same transaction.
// The slot row is locked before the flip, so concurrent bookings of the same
// range serialise: exactly one commits, the rest observe no unbooked match
// and get ErrSlotTaken. A failed appointment insert rolls the flip back.
func (r *AppointmentRepository) BookSlot(ctx context.Context, patientID, doctorID string, date time.Time, start, end string) (*models.Appointment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var dayID string
	if err := tx.GetContext(ctx, &dayID, `SELECT id FROM availability_days WHERE doctor_id = $1 AND date = $2 LIMIT 1`, doctorID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoAvailabilityDay
		}
		return nil, fmt.Errorf("resolve availability day: %w", err)
	}

	const claimQuery = `UPDATE time_slots SET booked = TRUE
WHERE id = (
	SELECT id FROM time_slots
	WHERE day_id = $1 AND start_time = $2 AND end_time = $3 AND booked = FALSE
	ORDER BY position ASC
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING id`
	var slotID string
	if err := tx.GetContext(ctx, &slotID, claimQuery, dayID, start, end); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("claim time slot: %w", err)
	}

	appointment := &models.Appointment{
		ID:        uuid.NewString(),
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		Start:     start,
		End:       end,
		Status:    models.AppointmentConfirmed,
		CreatedAt: time.Now().UTC(),
	}
	const insertQuery = `INSERT INTO appointments (id, patient_id, doctor_id, date, start_time, end_time, status, created_at)
VALUES (:id, :patient_id, :doctor_id, :date, :start_time, :end_time, :status, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, appointment); err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}
	return appointment, nil
}

// ListByPatient returns a patient's appointments, most recent first.
func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	const query = `SELECT id, patient_id, doctor_id, date, start_time, end_time, status, created_at FROM appointments WHERE patient_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, patientID)
}

// ListByDoctor returns a doctor's appointments, most recent first.
func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	const query = `SELECT id, patient_id, doctor_id, date, start_time, end_time, status, created_at FROM appointments WHERE doctor_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, doctorID)
}

// ListAll returns every appointment, most recent first.
func (r *AppointmentRepository) ListAll(ctx context.Context) ([]models.Appointment, error) {
	const query = `SELECT id, patient_id, doctor_id, date, start_time, end_time, status, created_at FROM appointments ORDER BY created_at DESC`
	return r.list(ctx, query)
}

// Count returns the total number of appointments.
func (r *AppointmentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM appointments`); err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return total, nil
}

func (r *AppointmentRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Appointment, error) {
	appointments := make([]models.Appointment, 0)
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}
