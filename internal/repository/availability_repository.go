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

// ErrDuplicateSlot is returned when a doctor offers an identical time range
// twice for the same date.
var ErrDuplicateSlot = errors.New("time slot already exists for this date")

// AvailabilityRepository persists availability days and their time slots.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new instance of AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// FindDay returns the availability day for (doctor, date) with its slots in
// append order. Returns sql.ErrNoRows when no day exists.
func (r *AvailabilityRepository) FindDay(ctx context.Context, doctorID string, date time.Time) (*models.AvailabilityDay, error) {
	const query = `SELECT id, doctor_id, date, created_at FROM availability_days WHERE doctor_id = $1 AND date = $2 LIMIT 1`
	var day models.AvailabilityDay
	if err := r.db.GetContext(ctx, &day, query, doctorID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find availability day: %w", err)
	}
	if err := r.loadSlots(ctx, []*models.AvailabilityDay{&day}); err != nil {
		return nil, err
	}
	return &day, nil
}

// ListByDoctor returns every availability day a doctor has offered.
func (r *AvailabilityRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.AvailabilityDay, error) {
	const query = `SELECT id, doctor_id, date, created_at FROM availability_days WHERE doctor_id = $1 ORDER BY date ASC`
	return r.listDays(ctx, query, doctorID)
}

// ListByDoctorFrom returns availability days dated on or after the given
// day. Used for the public listing, which excludes past dates.
func (r *AvailabilityRepository) ListByDoctorFrom(ctx context.Context, doctorID string, from time.Time) ([]models.AvailabilityDay, error) {
	const query = `SELECT id, doctor_id, date, created_at FROM availability_days WHERE doctor_id = $1 AND date >= $2 ORDER BY date ASC`
	return r.listDays(ctx, query, doctorID, from)
}

// AppendSlot adds an unbooked slot to the doctor's day, creating the day if
// absent. A slot with an identical (start, end) range on the same day is
// rejected with ErrDuplicateSlot.
func (r *AvailabilityRepository) AppendSlot(ctx context.Context, doctorID string, date time.Time, start, end string) (*models.AvailabilityDay, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append slot: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// The no-op DO UPDATE locks the day row, so concurrent appends for the
	// same doctor and date serialize here before MAX(position) is read.
	const dayQuery = `INSERT INTO availability_days (id, doctor_id, date, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (doctor_id, date) DO UPDATE SET date = EXCLUDED.date
RETURNING id`
	var dayID string
	if err := tx.GetContext(ctx, &dayID, dayQuery, uuid.NewString(), doctorID, date, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("upsert availability day: %w", err)
	}

	const slotQuery = `INSERT INTO time_slots (id, day_id, start_time, end_time, booked, position)
VALUES ($1, $2, $3, $4, FALSE, COALESCE((SELECT MAX(position) + 1 FROM time_slots WHERE day_id = $2), 0))
ON CONFLICT (day_id, start_time, end_time) DO NOTHING`
	res, err := tx.ExecContext(ctx, slotQuery, uuid.NewString(), dayID, start, end)
	if err != nil {
		return nil, fmt.Errorf("append time slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("append time slot rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrDuplicateSlot
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append slot: %w", err)
	}

	return r.FindDay(ctx, doctorID, date)
}

func (r *AvailabilityRepository) listDays(ctx context.Context, query string, args ...interface{}) ([]models.AvailabilityDay, error) {
	days := make([]models.AvailabilityDay, 0)
	if err := r.db.SelectContext(ctx, &days, query, args...); err != nil {
		return nil, fmt.Errorf("list availability days: %w", err)
	}
	refs := make([]*models.AvailabilityDay, len(days))
	for i := range days {
		refs[i] = &days[i]
	}
	if err := r.loadSlots(ctx, refs); err != nil {
		return nil, err
	}
	return days, nil
}

func (r *AvailabilityRepository) loadSlots(ctx context.Context, days []*models.AvailabilityDay) error {
	if len(days) == 0 {
		return nil
	}
	ids := make([]string, len(days))
	byID := make(map[string]*models.AvailabilityDay, len(days))
	for i, day := range days {
		ids[i] = day.ID
		byID[day.ID] = day
		day.Slots = make([]models.TimeSlot, 0)
	}

	query, args, err := sqlx.In(`SELECT id, day_id, start_time, end_time, booked, position FROM time_slots WHERE day_id IN (?) ORDER BY position ASC`, ids)
	if err != nil {
		return fmt.Errorf("build slots query: %w", err)
	}
	query = r.db.Rebind(query)

	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return fmt.Errorf("load time slots: %w", err)
	}
	for _, slot := range slots {
		if day, ok := byID[slot.DayID]; ok {
			day.Slots = append(day.Slots, slot)
		}
	}
	return nil
}
