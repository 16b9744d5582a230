package worker

import (
	"encoding/json"
	"fmt"
)

// Routing keys the ingest worker binds to.
const (
	RKBookingRequested = "booking.requested"
	RKBookingConfirmed = "booking.confirmed"
	RKBookingCancelled = "booking.cancelled"
)

// BookingRequested is emitted when a tourist creates a booking request.
type BookingRequested struct {
	BookingID  string   `json:"booking_id"`
	UserID     string   `json:"user_id"`
	GuideID    string   `json:"guide_id"`
	UserName   string   `json:"user_name"`
	Location   string   `json:"location"`
	Dates      []string `json:"dates"`
	Guests     int      `json:"guests"`
	TotalPrice float64  `json:"total_price"`
}

// BookingDecided is emitted when a guide confirms or cancels a request.
type BookingDecided struct {
	BookingID string   `json:"booking_id"`
	UserID    string   `json:"user_id"`
	GuideID   string   `json:"guide_id"`
	GuideName string   `json:"guide_name"`
	Location  string   `json:"location"`
	Dates     []string `json:"dates"`
}

func MustUnmarshal[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
