package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityRepositoryAppendSlotCreatesDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO availability_days").
		WithArgs(sqlmock.AnyArg(), "doc-1", date, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("day-1"))
	mock.ExpectExec("INSERT INTO time_slots").
		WithArgs(sqlmock.AnyArg(), "day-1", "09:00", "09:30").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, doctor_id, date, created_at FROM availability_days WHERE doctor_id = $1 AND date = $2 LIMIT 1")).
		WithArgs("doc-1", date).
		WillReturnRows(sqlmock.NewRows([]string{"id", "doctor_id", "date", "created_at"}).AddRow("day-1", "doc-1", date, time.Now()))
	mock.ExpectQuery("SELECT id, day_id, start_time, end_time, booked, position FROM time_slots").
		WithArgs("day-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "day_id", "start_time", "end_time", "booked", "position"}).
			AddRow("slot-1", "day-1", "09:00", "09:30", false, 0))

	day, err := repo.AppendSlot(context.Background(), "doc-1", date, "09:00", "09:30")
	require.NoError(t, err)
	assert.Equal(t, "day-1", day.ID)
	require.Len(t, day.Slots, 1)
	assert.Equal(t, "09:00", day.Slots[0].Start)
	assert.False(t, day.Slots[0].Booked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryAppendSlotDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO availability_days").
		WithArgs(sqlmock.AnyArg(), "doc-1", date, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("day-1"))
	mock.ExpectExec("INSERT INTO time_slots").
		WithArgs(sqlmock.AnyArg(), "day-1", "09:00", "09:30").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.AppendSlot(context.Background(), "doc-1", date, "09:00", "09:30")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateSlot))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryListByDoctorFrom(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, doctor_id, date, created_at FROM availability_days WHERE doctor_id = $1 AND date >= $2 ORDER BY date ASC")).
		WithArgs("doc-1", from).
		WillReturnRows(sqlmock.NewRows([]string{"id", "doctor_id", "date", "created_at"}).AddRow("day-1", "doc-1", date, time.Now()))
	mock.ExpectQuery("SELECT id, day_id, start_time, end_time, booked, position FROM time_slots").
		WithArgs("day-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "day_id", "start_time", "end_time", "booked", "position"}).
			AddRow("slot-1", "day-1", "09:00", "09:30", true, 0).
			AddRow("slot-2", "day-1", "10:00", "10:30", false, 1))

	days, err := repo.ListByDoctorFrom(context.Background(), "doc-1", from)
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Len(t, days[0].Slots, 2)
	assert.True(t, days[0].Slots[0].Booked)
	assert.Equal(t, 1, days[0].Slots[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryListByDoctorEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, doctor_id, date, created_at FROM availability_days WHERE doctor_id = $1 ORDER BY date ASC")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "doctor_id", "date", "created_at"}))

	days, err := repo.ListByDoctor(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Empty(t, days)
	assert.NoError(t, mock.ExpectationsWereMet())
}
