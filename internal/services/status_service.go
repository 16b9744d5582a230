package services

import (
	"context"
	"log/slog"

	"github.com/gyamfi-dev/tourmate-server/internal/models"
)

// BookingStatusService detects bookings that moved out of pending since the
// last snapshot it saw for a user. It is a boundary service: detection never
// returns an error to the caller — a missed change is preferable to crashing
// the caller's poll loop.
type BookingStatusService struct {
	store  models.DedupStore
	logger *slog.Logger
}

func NewBookingStatusService(store models.DedupStore, logger *slog.Logger) *BookingStatusService {
	return &BookingStatusService{
		store:  store,
		logger: logger,
	}
}

// Initialize seeds the stored mapping with current statuses when no mapping
// exists yet for the user, so historical bookings are never flagged as new
// changes on first load. Calling it again is a no-op.
func (s *BookingStatusService) Initialize(ctx context.Context, bookings []models.Booking, userID string) {
	if userID == "" {
		return
	}

	_, found, err := s.store.Get(ctx, userID)
	if err != nil {
		s.logger.Error("status tracker: initialize read failed", "user_id", userID, "error", err)
		return
	}
	if found {
		return
	}

	if err := s.persistSnapshot(ctx, bookings, userID); err != nil {
		s.logger.Error("status tracker: initialize write failed", "user_id", userID, "error", err)
	}
}

// DetectStatusChanges compares the full current snapshot of a user's bookings
// against the previously stored statuses and returns one ChangeEvent per
// booking whose prior status was pending and whose current status is
// terminal. First-seen bookings are silently baselined. After scanning, the
// stored mapping is unconditionally replaced with the current snapshot.
func (s *BookingStatusService) DetectStatusChanges(ctx context.Context, bookings []models.Booking, userID string) []models.ChangeEvent {
	events := []models.ChangeEvent{}
	if userID == "" {
		return events
	}

	prior, found, err := s.store.Get(ctx, userID)
	if err != nil {
		s.logger.Error("status tracker: read failed", "user_id", userID, "error", err)
		return events
	}

	if found {
		for _, b := range bookings {
			b.Normalize()

			prev, ok := prior[b.ID]
			if !ok || models.NormalizeBookingStatus(prev) != models.BookingStatusPending {
				// First sight, or a transition we don't recognize
				// (e.g. cancelled -> pending). Baseline silently.
				continue
			}
			if !b.IsTerminal() {
				continue
			}

			changeType := models.ChangeTypeApproved
			if b.Status == models.BookingStatusCancelled {
				changeType = models.ChangeTypeRejected
			}
			events = append(events, models.ChangeEvent{
				Booking:        b,
				PreviousStatus: models.BookingStatusPending,
				NewStatus:      b.Status,
				ChangeType:     changeType,
			})
		}
	}

	if err := s.persistSnapshot(ctx, bookings, userID); err != nil {
		s.logger.Error("status tracker: write failed", "user_id", userID, "error", err)
	}
	return events
}

// ClearHistory drops the stored mapping so the next detection behaves as
// first sight.
func (s *BookingStatusService) ClearHistory(ctx context.Context, userID string) error {
	return s.store.Clear(ctx, userID)
}

// persistSnapshot replaces the stored mapping with {bookingID: status} for
// every booking in the snapshot. Bookings absent from the snapshot drop out.
func (s *BookingStatusService) persistSnapshot(ctx context.Context, bookings []models.Booking, userID string) error {
	mapping := make(map[string]string, len(bookings))
	for _, b := range bookings {
		mapping[b.ID] = models.NormalizeBookingStatus(b.Status)
	}
	return s.store.Set(ctx, userID, mapping)
}
