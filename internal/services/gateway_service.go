package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gyamfi-dev/tourmate-server/internal/models"
	"github.com/gyamfi-dev/tourmate-server/internal/notifier"
)

// UpdateFunc receives the full filtered record list for a recipient, sorted
// by timestamp descending, on every feed change.
type UpdateFunc func(records []*models.NotificationRecord)

// RealtimeNotificationService mediates all reads and writes against the
// notification feed. Each record is a tiny state machine:
// created(shown=false) -> delivered(shown=true), terminal at delivered.
// Delivery marks the record shown first and alerts second, with no rollback:
// a failed alert never causes a duplicate alert later.
type RealtimeNotificationService struct {
	feed       models.NotificationFeed
	dispatcher notifier.AlertDispatcher
	logger     *slog.Logger
}

func NewRealtimeNotificationService(feed models.NotificationFeed, dispatcher notifier.AlertDispatcher, logger *slog.Logger) *RealtimeNotificationService {
	return &RealtimeNotificationService{
		feed:       feed,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Publish appends a new record to the audience's partition. Failures are
// returned to the caller: "guide confirmed a booking" is a business event the
// initiator may want to retry, not something to swallow.
func (s *RealtimeNotificationService) Publish(ctx context.Context, audience models.Audience, input models.PublishInput) (*models.NotificationRecord, error) {
	if err := models.Validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid notification: %w", err)
	}
	if audience == models.AudienceUser && !models.IsUserVisibleType(input.Type) {
		return nil, fmt.Errorf("type %q cannot be published to the user audience", input.Type)
	}

	record, err := s.feed.Append(ctx, audience, input)
	if err != nil {
		return nil, fmt.Errorf("publish failed: %w", err)
	}
	return record, nil
}

// ListNotifications returns the recipient's records with the audience filter
// applied, sorted by timestamp descending. Read-only: nothing is marked shown.
func (s *RealtimeNotificationService) ListNotifications(ctx context.Context, audience models.Audience, recipientID string) ([]*models.NotificationRecord, error) {
	records, err := s.feed.ListByRecipient(ctx, audience, recipientID)
	if err != nil {
		return nil, fmt.Errorf("list notifications failed: %w", err)
	}
	return filterForAudience(audience, records), nil
}

// Subscribe opens a continuous subscription for one recipient. On every feed
// change (and once immediately) it re-reads the recipient's records, marks
// unshown ones shown, fires an alert per first-time delivery, and hands the
// full filtered list to onUpdate. The returned function detaches the
// listener; it blocks until any in-flight callback completes, so no callback
// fires after it returns.
func (s *RealtimeNotificationService) Subscribe(audience models.Audience, recipientID string, onUpdate UpdateFunc) func() {
	signals, stopWatch := s.feed.Watch(audience)
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	closed := false

	deliver := func() {
		records := s.deliver(ctx, audience, recipientID)
		if records == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		onUpdate(records)
	}

	go func() {
		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				deliver()
			}
		}
	}()

	return func() {
		mu.Lock()
		closed = true
		mu.Unlock()
		cancel()
		stopWatch()
	}
}

// MarkRead sets shown=true without firing an alert, for UI-driven "mark as
// read". Idempotent.
func (s *RealtimeNotificationService) MarkRead(ctx context.Context, audience models.Audience, id string) error {
	if err := s.feed.MarkShown(ctx, audience, id); err != nil {
		return fmt.Errorf("mark read failed: %w", err)
	}
	return nil
}

// DeleteRecord removes a record. Idempotent; absence is not an error.
func (s *RealtimeNotificationService) DeleteRecord(ctx context.Context, audience models.Audience, id string) error {
	if err := s.feed.Delete(ctx, audience, id); err != nil {
		return fmt.Errorf("delete notification failed: %w", err)
	}
	return nil
}

// deliver is one delivery pass: read, filter, claim unshown records, alert.
// Returns nil when the feed read failed (the pass is retried on the next
// signal); otherwise returns the full filtered list, possibly empty.
func (s *RealtimeNotificationService) deliver(ctx context.Context, audience models.Audience, recipientID string) []*models.NotificationRecord {
	records, err := s.feed.ListByRecipient(ctx, audience, recipientID)
	if err != nil {
		s.logger.Error("feed read failed", "audience", audience, "recipient", recipientID, "error", err)
		return nil
	}

	filtered := filterForAudience(audience, records)
	for _, rec := range filtered {
		if rec.Shown {
			continue
		}

		// Claim before alerting. If the claim fails the record stays unshown
		// and the next signal retries it.
		if err := s.feed.MarkShown(ctx, audience, rec.ID.Hex()); err != nil {
			s.logger.Error("mark shown failed", "id", rec.ID.Hex(), "error", err)
			continue
		}
		rec.Shown = true

		if _, err := s.dispatcher.Show(ctx, rec.Title, rec.Message, rec.Data); err != nil {
			// Non-fatal: the record is already delivered; only the visual
			// alert was lost.
			s.logger.Warn("alert dispatch failed", "id", rec.ID.Hex(), "type", rec.Type, "error", err)
		}
	}
	return filtered
}

// filterForAudience drops records that must not surface to the audience.
// Request-type records are guide-only; they never reach a user even when
// mis-tagged with the user's ID.
func filterForAudience(audience models.Audience, records []*models.NotificationRecord) []*models.NotificationRecord {
	if audience != models.AudienceUser {
		return records
	}
	filtered := []*models.NotificationRecord{}
	for _, rec := range records {
		if models.IsUserVisibleType(rec.Type) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
