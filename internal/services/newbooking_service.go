package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gyamfi-dev/tourmate-server/internal/models"
)

// NewBookingService detects pending bookings a guide has not been alerted
// about yet. Detection is read-only; callers acknowledge with MarkNotified
// only after the alert actually went out, so a failed dispatch is retried on
// the next poll (at-least-once rather than at-most-once).
type NewBookingService struct {
	store  models.DedupStore
	logger *slog.Logger
}

func NewNewBookingService(store models.DedupStore, logger *slog.Logger) *NewBookingService {
	return &NewBookingService{
		store:  store,
		logger: logger,
	}
}

// DetectNewBookings returns every booking in the snapshot that is pending and
// not yet in the guide's notified set. Never returns an error: storage
// failures degrade to an empty result.
func (s *NewBookingService) DetectNewBookings(ctx context.Context, bookings []models.Booking, guideID string) []models.Booking {
	fresh := []models.Booking{}
	if guideID == "" {
		return fresh
	}

	seen, _, err := s.store.Get(ctx, guideID)
	if err != nil {
		s.logger.Error("new-booking tracker: read failed", "guide_id", guideID, "error", err)
		return fresh
	}

	for _, b := range bookings {
		b.Normalize()
		if b.Status != models.BookingStatusPending {
			continue
		}
		if _, ok := seen[b.ID]; ok {
			continue
		}
		fresh = append(fresh, b)
	}
	return fresh
}

// MarkNotified unions the given booking IDs into the guide's notified set.
// Idempotent: re-acknowledging an ID is harmless.
func (s *NewBookingService) MarkNotified(ctx context.Context, bookingIDs []string, guideID string) error {
	if guideID == "" {
		return fmt.Errorf("guide id is required")
	}
	if len(bookingIDs) == 0 {
		return nil
	}

	seen, _, err := s.store.Get(ctx, guideID)
	if err != nil {
		return fmt.Errorf("new-booking tracker: read failed: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, id := range bookingIDs {
		if id == "" {
			continue
		}
		seen[id] = now
	}
	if err := s.store.Set(ctx, guideID, seen); err != nil {
		return fmt.Errorf("new-booking tracker: write failed: %w", err)
	}
	return nil
}

// ClearHistory drops the notified set so every pending booking is reported
// again on the next detection.
func (s *NewBookingService) ClearHistory(ctx context.Context, guideID string) error {
	return s.store.Clear(ctx, guideID)
}
