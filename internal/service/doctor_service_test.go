package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medibook/medibook-api/internal/dto"
	"github.com/medibook/medibook-api/internal/models"
	appErrors "github.com/medibook/medibook-api/pkg/errors"
)

type mockDoctorList struct {
	doctors          []models.Doctor
	lastApprovedOnly bool
}

func (m *mockDoctorList) ListDoctors(ctx context.Context, approvedOnly bool) ([]models.Doctor, error) {
	m.lastApprovedOnly = approvedOnly
	return m.doctors, nil
}

type mockAvailabilityList struct {
	days     []models.AvailabilityDay
	lastFrom time.Time
	calls    int
}

func (m *mockAvailabilityList) ListByDoctorFrom(ctx context.Context, doctorID string, from time.Time) ([]models.AvailabilityDay, error) {
	m.calls++
	m.lastFrom = from
	return m.days, nil
}

type mockAvailabilityCache struct {
	store map[string][]dto.AvailabilityDayView
	sets  int
}

func (m *mockAvailabilityCache) Get(ctx context.Context, key string, dest interface{}) error {
	views, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*[]dto.AvailabilityDayView)) = views
	return nil
}

func (m *mockAvailabilityCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]dto.AvailabilityDayView)
	}
	m.store[key] = value.([]dto.AvailabilityDayView)
	m.sets++
	return nil
}

type mockCacheMetrics struct {
	hits   int
	misses int
}

func (m *mockCacheMetrics) RecordCacheHit(string)  { m.hits++ }
func (m *mockCacheMetrics) RecordCacheMiss(string) { m.misses++ }

func TestDoctorServiceListApproved(t *testing.T) {
	users := &mockDoctorList{doctors: []models.Doctor{{ID: "doc-1", Approved: true}}}
	svc := NewDoctorService(users, &mockAvailabilityList{}, nil, nil, time.Minute, zap.NewNop())

	doctors, err := svc.ListApproved(context.Background())
	require.NoError(t, err)
	assert.Len(t, doctors, 1)
	assert.True(t, users.lastApprovedOnly)
}

func TestDoctorServiceAvailabilityCachesResult(t *testing.T) {
	availability := &mockAvailabilityList{days: []models.AvailabilityDay{{
		ID:       "day-1",
		DoctorID: "doc-1",
		Date:     time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		Slots:    []models.TimeSlot{{Start: "09:00", End: "09:30"}},
	}}}
	cache := &mockAvailabilityCache{}
	metrics := &mockCacheMetrics{}
	svc := NewDoctorService(&mockDoctorList{}, availability, cache, metrics, time.Minute, zap.NewNop())

	first, err := svc.Availability(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, availability.calls)
	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Availability(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, availability.calls)
	assert.Equal(t, 1, metrics.hits)
}

func TestDoctorServiceAvailabilityQueriesFromToday(t *testing.T) {
	availability := &mockAvailabilityList{}
	svc := NewDoctorService(&mockDoctorList{}, availability, nil, nil, time.Minute, zap.NewNop())

	views, err := svc.Availability(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
	assert.Equal(t, time.UTC, availability.lastFrom.Location())
	assert.True(t, availability.lastFrom.Before(time.Now().Add(time.Second)))
}
