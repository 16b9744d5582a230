package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyamfi-dev/tourmate-server/internal/models"
	"github.com/gyamfi-dev/tourmate-server/internal/services"
)

// ---- test doubles ----------------------------------------------------------

// memDedupStore is an in-memory stand-in for the Redis dedup store.
type memDedupStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func newMemDedupStore() *memDedupStore {
	return &memDedupStore{data: map[string]map[string]string{}}
}

func (s *memDedupStore) Get(ctx context.Context, userID string) (map[string]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.data[userID]
	if !ok {
		return map[string]string{}, false, nil
	}
	out := make(map[string]string, len(stored))
	for k, v := range stored {
		out[k] = v
	}
	return out, true, nil
}

func (s *memDedupStore) Set(ctx context.Context, userID string, mapping map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]string, len(mapping))
	for k, v := range mapping {
		copied[k] = v
	}
	s.data[userID] = copied
	return nil
}

func (s *memDedupStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}

// stored returns the raw mapping for assertions.
func (s *memDedupStore) stored(userID string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[userID]
}

// mockDedupStore is a func-field double for failure injection.
type mockDedupStore struct {
	get   func(ctx context.Context, userID string) (map[string]string, bool, error)
	set   func(ctx context.Context, userID string, mapping map[string]string) error
	clear func(ctx context.Context, userID string) error
}

func (m *mockDedupStore) Get(ctx context.Context, userID string) (map[string]string, bool, error) {
	return m.get(ctx, userID)
}
func (m *mockDedupStore) Set(ctx context.Context, userID string, mapping map[string]string) error {
	return m.set(ctx, userID, mapping)
}
func (m *mockDedupStore) Clear(ctx context.Context, userID string) error {
	return m.clear(ctx, userID)
}

// compile-time checks: both doubles must satisfy models.DedupStore.
var (
	_ models.DedupStore = (*memDedupStore)(nil)
	_ models.DedupStore = (*mockDedupStore)(nil)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingBooking(id string) models.Booking {
	return models.Booking{
		ID:      id,
		UserID:  "u1",
		GuideID: "g1",
		Status:  models.BookingStatusPending,
		Dates:   []string{"2026-09-01"},
	}
}

// ---- Initialize ------------------------------------------------------------

func TestStatusService_Initialize_SeedsOnlyOnce(t *testing.T) {
	store := newMemDedupStore()
	svc := services.NewBookingStatusService(store, discardLogger())
	ctx := context.Background()

	svc.Initialize(ctx, []models.Booking{pendingBooking("b1")}, "u1")
	require.Equal(t, map[string]string{"b1": "pending"}, store.stored("u1"))

	// A second initialize with a different snapshot must not reseed.
	svc.Initialize(ctx, []models.Booking{pendingBooking("b2")}, "u1")
	assert.Equal(t, map[string]string{"b1": "pending"}, store.stored("u1"))
}

func TestStatusService_Initialize_IdempotentBaseline(t *testing.T) {
	store := newMemDedupStore()
	svc := services.NewBookingStatusService(store, discardLogger())
	ctx := context.Background()
	snapshot := []models.Booking{pendingBooking("b1")}

	svc.Initialize(ctx, snapshot, "u1")
	first := store.stored("u1")
	svc.Initialize(ctx, snapshot, "u1")

	assert.Equal(t, first, store.stored("u1"))
	assert.Empty(t, svc.DetectStatusChanges(ctx, snapshot, "u1"))
}

// ---- DetectStatusChanges ---------------------------------------------------

func TestStatusService_FirstSightIsSilentlyBaselined(t *testing.T) {
	store := newMemDedupStore()
	svc := services.NewBookingStatusService(store, discardLogger())

	events := svc.DetectStatusChanges(context.Background(), []models.Booking{pendingBooking("b1")}, "u1")

	assert.Empty(t, events)
	assert.Equal(t, map[string]string{"b1": "pending"}, store.stored("u1"))
}

func TestStatusService_DetectsApproval(t *testing.T) {
	store := newMemDedupStore()
	svc := services.NewBookingStatusService(store, discardLogger())
	ctx := context.Background()

	svc.DetectStatusChanges(ctx, []models.Booking{pendingBooking("b1")}, "u1")

	confirmed := pendingBooking("b1")
	confirmed.Status = models.BookingStatusConfirmed
	events := svc.DetectStatusChanges(ctx, []models.Booking{confirmed}, "u1")

	require.Len(t, events, 1)
	assert.Equal(t, models.ChangeTypeApproved, events[0].ChangeType)
	assert.Equal(t, models.BookingStatusPending, events[0].PreviousStatus)
	assert.Equal(t, models.BookingStatusConfirmed, events[0].NewStatus)
	assert.Equal(t, "b1", events[0].Booking.ID)
}

func TestStatusService_AcceptedCountsAsApproval(t *testing.T) {
	store := newMemDedupStore()
	svc := services.NewBookingStatusService(store, discardLogger())
	ctx := context.Background()

	svc.DetectStatusChanges(ctx, []models.Booking{pendingBooking("b1")}, "u1")

	accepted := pendingBooking("b1")
	accepted.Status = "accepted"
	events := svc.DetectStatusChanges(ctx, []models.Booking{accepted}, "u1")

	require.Len(t, events, 1)
	assert.Equal(t, models.ChangeTypeApproved, events[0].ChangeType)
	assert.Equal(t, models.BookingStatusConfirmed, events[0].NewStatus)
}

func TestStatusService_DetectsRejection(t *testing.T) {
	store := newMemDedupStore()
	svc := services.NewBookingStatusService(store, discardLogger())
	ctx := context.Background()

	svc.DetectStatusChanges(ctx, []models.Booking{pendingBooking("b1")}, "u1")

	cancelled := pendingBooking("b1")
	cancelled.Status = models.BookingStatusCancelled
	events := svc.DetectStatusChanges(ctx, []models.Booking{cancelled}, "u1")

	require.Len(t, events, 1)
	assert.Equal(t, models.ChangeTypeRejected, events[0].ChangeType)
}

func TestStatusService_NoRefireAfterConsumption(t *testing.T) {
	store := newMemDedupStore()
	svc := services.NewBookingStatusService(store, discardLogger())
	ctx := context.Background()

	svc.DetectStatusChanges(ctx, []models.Booking{pendingBooking("b1")}, "u1")

	confirmed := pendingBooking("b1")
	confirmed.Status = models.BookingStatusConfirmed
	require.Len(t, svc.DetectStatusChanges(ctx, []models.Booking{confirmed}, "u1"), 1)

	// State is already confirmed; the same snapshot yields nothing.
	assert.Empty(t, svc.DetectStatusChanges(ctx, []models.Booking{confirmed}, "u1"))
}

func TestStatusService_UnexpectedTransitionIsIgnored(t *testing.T) {
	store := newMemDedupStore()
	svc := services.NewBookingStatusService(store, discardLogger())
	ctx := context.Background()

	cancelled := pendingBooking("b1")
	cancelled.Status = models.BookingStatusCancelled
	svc.DetectStatusChanges(ctx, []models.Booking{cancelled}, "u1")

	// cancelled -> pending is not a recognized transition.
	events := svc.DetectStatusChanges(ctx, []models.Booking{pendingBooking("b1")}, "u1")
	assert.Empty(t, events)
	assert.Equal(t, map[string]string{"b1": "pending"}, store.stored("u1"))
}

func TestStatusService_SnapshotOverwriteDropsAbsentBookings(t *testing.T) {
	store := newMemDedupStore()
	svc := services.NewBookingStatusService(store, discardLogger())
	ctx := context.Background()

	svc.DetectStatusChanges(ctx, []models.Booking{pendingBooking("b1"), pendingBooking("b2")}, "u1")
	svc.DetectStatusChanges(ctx, []models.Booking{pendingBooking("b2")}, "u1")

	assert.Equal(t, map[string]string{"b2": "pending"}, store.stored("u1"))
}

func TestStatusService_StorageFailureFailsOpen(t *testing.T) {
	broken := &mockDedupStore{
		get: func(ctx context.Context, userID string) (map[string]string, bool, error) {
			return nil, false, errors.New("redis gone")
		},
	}
	svc := services.NewBookingStatusService(broken, discardLogger())

	events := svc.DetectStatusChanges(context.Background(), []models.Booking{pendingBooking("b1")}, "u1")
	assert.Empty(t, events)
}

func TestStatusService_ClearResetsTracking(t *testing.T) {
	store := newMemDedupStore()
	svc := services.NewBookingStatusService(store, discardLogger())
	ctx := context.Background()

	confirmed := pendingBooking("b1")
	confirmed.Status = models.BookingStatusConfirmed
	svc.DetectStatusChanges(ctx, []models.Booking{pendingBooking("b1")}, "u1")

	require.NoError(t, svc.ClearHistory(ctx, "u1"))

	// Behaves as first sight again: no events, re-baseline.
	events := svc.DetectStatusChanges(ctx, []models.Booking{confirmed}, "u1")
	assert.Empty(t, events)
	assert.Equal(t, map[string]string{"b1": "confirmed"}, store.stored("u1"))
}
