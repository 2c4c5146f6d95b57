package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/medibook-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAppointmentRepositoryBookSlotSuccess(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM availability_days WHERE doctor_id = $1 AND date = $2 LIMIT 1")).
		WithArgs("doc-1", date).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("day-1"))
	mock.ExpectQuery("UPDATE time_slots SET booked = TRUE").
		WithArgs("day-1", "09:00", "09:30").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("slot-1"))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(sqlmock.AnyArg(), "pat-1", "doc-1", date, "09:00", "09:30", models.AppointmentConfirmed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	appt, err := repo.BookSlot(context.Background(), "pat-1", "doc-1", date, "09:00", "09:30")
	require.NoError(t, err)
	assert.Equal(t, "pat-1", appt.PatientID)
	assert.Equal(t, models.AppointmentConfirmed, appt.Status)
	assert.NotEmpty(t, appt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryBookSlotNoDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM availability_days WHERE doctor_id = $1 AND date = $2 LIMIT 1")).
		WithArgs("doc-1", date).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.BookSlot(context.Background(), "pat-1", "doc-1", date, "09:00", "09:30")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoAvailabilityDay))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryBookSlotTaken(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM availability_days WHERE doctor_id = $1 AND date = $2 LIMIT 1")).
		WithArgs("doc-1", date).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("day-1"))
	mock.ExpectQuery("UPDATE time_slots SET booked = TRUE").
		WithArgs("day-1", "09:00", "09:30").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.BookSlot(context.Background(), "pat-1", "doc-1", date, "09:00", "09:30")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSlotTaken))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryBookSlotInsertFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM availability_days WHERE doctor_id = $1 AND date = $2 LIMIT 1")).
		WithArgs("doc-1", date).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("day-1"))
	mock.ExpectQuery("UPDATE time_slots SET booked = TRUE").
		WithArgs("day-1", "09:00", "09:30").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("slot-1"))
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	_, err := repo.BookSlot(context.Background(), "pat-1", "doc-1", date, "09:00", "09:30")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryListByPatient(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "patient_id", "doctor_id", "date", "start_time", "end_time", "status", "created_at"}).
		AddRow("a1", "pat-1", "doc-1", time.Now(), "09:00", "09:30", "confirmed", time.Now())
	mock.ExpectQuery("SELECT id, patient_id, doctor_id, date, start_time, end_time, status, created_at FROM appointments WHERE patient_id").
		WithArgs("pat-1").
		WillReturnRows(rows)

	list, err := repo.ListByPatient(context.Background(), "pat-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM appointments")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	total, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
