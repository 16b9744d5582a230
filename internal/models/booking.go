package models

import (
	"strings"
	"time"
)

const (
	BookingDbName  = "tourmate"
	BookingColName = "bookings"
)

// Booking statuses. The mobile clients historically wrote "accepted" and
// "canceled" as well; NormalizeBookingStatus folds those into the canonical
// spellings so the trackers only ever compare canonical values.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

type Booking struct {
	ID          string    `bson:"_id" json:"id" validate:"required"`
	GuideID     string    `bson:"guide_id" json:"guide_id" validate:"required"`
	UserID      string    `bson:"user_id" json:"user_id" validate:"required"`
	UserName    string    `bson:"user_name,omitempty" json:"user_name,omitempty"`
	GuideName   string    `bson:"guide_name,omitempty" json:"guide_name,omitempty"`
	Location    string    `bson:"location,omitempty" json:"location,omitempty"`
	Dates       []string  `bson:"dates,omitempty" json:"dates,omitempty"`
	Date        string    `bson:"date,omitempty" json:"date,omitempty"` // legacy single-date field
	Guests      int       `bson:"guests,omitempty" json:"guests,omitempty"`
	TotalPrice  float64   `bson:"total_price,omitempty" json:"total_price,omitempty"`
	PricePerDay float64   `bson:"price_per_day,omitempty" json:"price_per_day,omitempty"`
	Status      string    `bson:"status" json:"status"`
	CreatedAt   time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// NormalizeBookingStatus maps the status spellings seen in stored documents
// onto the canonical set. Unknown values are lowercased and passed through.
func NormalizeBookingStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "accepted", BookingStatusConfirmed:
		return BookingStatusConfirmed
	case "canceled", BookingStatusCancelled:
		return BookingStatusCancelled
	default:
		return strings.ToLower(strings.TrimSpace(status))
	}
}

// Normalize canonicalizes the status and guarantees Dates is a non-empty
// ordered sequence. Older documents carry a single "date" field instead of
// "dates"; after Normalize callers never need to branch on field presence.
func (b *Booking) Normalize() {
	b.Status = NormalizeBookingStatus(b.Status)
	if len(b.Dates) == 0 && strings.TrimSpace(b.Date) != "" {
		b.Dates = []string{b.Date}
	}
}

// IsTerminal reports whether the booking has reached a final status.
func (b *Booking) IsTerminal() bool {
	s := NormalizeBookingStatus(b.Status)
	return s == BookingStatusConfirmed || s == BookingStatusCancelled
}

// Change types emitted by the status tracker.
const (
	ChangeTypeApproved = "approved"
	ChangeTypeRejected = "rejected"
)

// ChangeEvent describes a booking that moved out of pending since the last
// snapshot the tracker saw for this user.
type ChangeEvent struct {
	Booking        Booking `json:"booking"`
	PreviousStatus string  `json:"previous_status"`
	NewStatus      string  `json:"new_status"`
	ChangeType     string  `json:"change_type"`
}
