package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const NotificationDbName = "tourmate"

// Audience is the recipient class of a notification record.
type Audience string

const (
	AudienceGuide Audience = "guide"
	AudienceUser  Audience = "user"
)

// ParseAudience validates a raw audience string from a route parameter.
func ParseAudience(s string) (Audience, error) {
	switch Audience(strings.ToLower(strings.TrimSpace(s))) {
	case AudienceGuide:
		return AudienceGuide, nil
	case AudienceUser:
		return AudienceUser, nil
	default:
		return "", fmt.Errorf("unknown audience %q", s)
	}
}

// Collection returns the feed collection the audience is partitioned into.
func (a Audience) Collection() string {
	if a == AudienceGuide {
		return "guide-notifications"
	}
	return "user-notifications"
}

// RecipientField returns the indexed recipient key for the audience.
func (a Audience) RecipientField() string {
	if a == AudienceGuide {
		return "guide_uid"
	}
	return "user_uid"
}

// Notification types. booking_canceled is the alternate spelling some older
// clients publish; the user-audience filter accepts both.
const (
	TypeBookingRequest   = "booking_request"
	TypeBookingConfirmed = "booking_confirmed"
	TypeBookingCancelled = "booking_cancelled"
	TypeBookingCanceled  = "booking_canceled"
	TypeBookingRejected  = "booking_rejected"
)

// IsUserVisibleType reports whether a record type may surface to the user
// audience. Request-type records are guide-only; they are dropped even if a
// record is mis-tagged with a user's ID.
func IsUserVisibleType(notificationType string) bool {
	switch notificationType {
	case TypeBookingConfirmed, TypeBookingCancelled, TypeBookingCanceled, TypeBookingRejected:
		return true
	default:
		return false
	}
}

// NotificationRecord lives in the realtime feed. Exactly one of GuideUID and
// UserUID is set, depending on the audience the record was published under.
// Shown flips false -> true exactly once, on first delivery or on an explicit
// mark-as-read.
type NotificationRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GuideUID  string             `bson:"guide_uid,omitempty" json:"guide_uid,omitempty"`
	UserUID   string             `bson:"user_uid,omitempty" json:"user_uid,omitempty"`
	Type      string             `bson:"type" json:"type"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message,omitempty" json:"message,omitempty"`
	Data      map[string]string  `bson:"data,omitempty" json:"data,omitempty"`
	Shown     bool               `bson:"shown" json:"shown"`
	ShownAt   *time.Time         `bson:"shown_at,omitempty" json:"shown_at,omitempty"`
	Timestamp int64              `bson:"timestamp" json:"timestamp"` // unix milliseconds
}

// Recipient returns the recipient ID for the given audience.
func (n *NotificationRecord) Recipient(audience Audience) string {
	if audience == AudienceGuide {
		return n.GuideUID
	}
	return n.UserUID
}

// SetRecipient stores the recipient ID under the audience's key.
func (n *NotificationRecord) SetRecipient(audience Audience, recipientID string) {
	if audience == AudienceGuide {
		n.GuideUID = recipientID
		return
	}
	n.UserUID = recipientID
}

// PublishInput is the caller-supplied portion of a record. ID, Shown and
// Timestamp are assigned by the feed on write.
type PublishInput struct {
	RecipientID string            `json:"recipient_id" validate:"required"`
	Type        string            `json:"type" validate:"required"`
	Title       string            `json:"title" validate:"required"`
	Message     string            `json:"message"`
	Data        map[string]string `json:"data"`
}

// Payload is the typed view of a record's event-specific data. The concrete
// variant is selected by the record's Type; unknown types fall back to
// GenericPayload so new event types never break delivery.
type Payload interface {
	PayloadType() string
}

// BookingRequestPayload carries the fields of a booking_request record.
type BookingRequestPayload struct {
	BookingID  string   `json:"booking_id"`
	UserName   string   `json:"user_name"`
	Location   string   `json:"location"`
	Dates      []string `json:"dates"`
	Guests     int      `json:"guests"`
	TotalPrice float64  `json:"total_price"`
}

func (BookingRequestPayload) PayloadType() string { return TypeBookingRequest }

// BookingDecisionPayload carries the fields of a booking_confirmed,
// booking_cancelled or booking_rejected record.
type BookingDecisionPayload struct {
	BookingID string   `json:"booking_id"`
	GuideName string   `json:"guide_name"`
	Location  string   `json:"location"`
	Dates     []string `json:"dates"`
	Decision  string   `json:"decision"`
}

func (p BookingDecisionPayload) PayloadType() string { return p.Decision }

// GenericPayload is the fallback for record types the service does not know.
type GenericPayload struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data"`
}

func (p GenericPayload) PayloadType() string { return p.Type }

// ParsePayload decodes the flat data map of a record into its typed variant.
func ParsePayload(notificationType string, data map[string]string) Payload {
	switch notificationType {
	case TypeBookingRequest:
		return BookingRequestPayload{
			BookingID:  data["booking_id"],
			UserName:   data["user_name"],
			Location:   data["location"],
			Dates:      splitDates(data["dates"]),
			Guests:     atoiOrZero(data["guests"]),
			TotalPrice: atofOrZero(data["total_price"]),
		}
	case TypeBookingConfirmed, TypeBookingCancelled, TypeBookingCanceled, TypeBookingRejected:
		decision := BookingStatusConfirmed
		if notificationType != TypeBookingConfirmed {
			decision = BookingStatusCancelled
		}
		return BookingDecisionPayload{
			BookingID: data["booking_id"],
			GuideName: data["guide_name"],
			Location:  data["location"],
			Dates:     splitDates(data["dates"]),
			Decision:  decision,
		}
	default:
		return GenericPayload{Type: notificationType, Data: data}
	}
}

func splitDates(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	dates := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			dates = append(dates, t)
		}
	}
	return dates
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func atofOrZero(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
