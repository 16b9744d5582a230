package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyamfi-dev/tourmate-server/internal/models"
)

type publishCall struct {
	audience models.Audience
	input    models.PublishInput
}

type recordingPublisher struct {
	calls []publishCall
	err   error
}

func (p *recordingPublisher) Publish(ctx context.Context, audience models.Audience, input models.PublishInput) (*models.NotificationRecord, error) {
	p.calls = append(p.calls, publishCall{audience: audience, input: input})
	if p.err != nil {
		return nil, p.err
	}
	return &models.NotificationRecord{}, nil
}

var _ NotificationPublisher = (*recordingPublisher)(nil)

func testConsumer(p NotificationPublisher) *Consumer {
	return NewConsumer(Config{}, p, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func delivery(t *testing.T, key string, ev any) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	return amqp.Delivery{RoutingKey: key, Body: body}
}

func TestHandleDelivery_BookingRequestedGoesToGuide(t *testing.T) {
	pub := &recordingPublisher{}
	c := testConsumer(pub)

	err := c.handleDelivery(context.Background(), delivery(t, RKBookingRequested, BookingRequested{
		BookingID:  "b1",
		UserID:     "u1",
		GuideID:    "g1",
		UserName:   "Ama",
		Location:   "Cape Coast",
		Dates:      []string{"2026-09-01", "2026-09-02"},
		Guests:     3,
		TotalPrice: 240.5,
	}))
	require.NoError(t, err)

	require.Len(t, pub.calls, 1)
	call := pub.calls[0]
	assert.Equal(t, models.AudienceGuide, call.audience)
	assert.Equal(t, "g1", call.input.RecipientID)
	assert.Equal(t, models.TypeBookingRequest, call.input.Type)
	assert.Equal(t, "b1", call.input.Data["booking_id"])
	assert.Equal(t, "2026-09-01,2026-09-02", call.input.Data["dates"])
	assert.Equal(t, "3", call.input.Data["guests"])
	assert.Equal(t, "240.50", call.input.Data["total_price"])
}

func TestHandleDelivery_BookingConfirmedGoesToUser(t *testing.T) {
	pub := &recordingPublisher{}
	c := testConsumer(pub)

	err := c.handleDelivery(context.Background(), delivery(t, RKBookingConfirmed, BookingDecided{
		BookingID: "b2",
		UserID:    "u1",
		GuideID:   "g1",
		GuideName: "Kwame",
		Location:  "Accra",
	}))
	require.NoError(t, err)

	require.Len(t, pub.calls, 1)
	call := pub.calls[0]
	assert.Equal(t, models.AudienceUser, call.audience)
	assert.Equal(t, "u1", call.input.RecipientID)
	assert.Equal(t, models.TypeBookingConfirmed, call.input.Type)
	assert.Contains(t, call.input.Message, "Kwame")
	assert.Equal(t, "b2", call.input.Data["booking_id"])
}

func TestHandleDelivery_BookingCancelledGoesToUser(t *testing.T) {
	pub := &recordingPublisher{}
	c := testConsumer(pub)

	err := c.handleDelivery(context.Background(), delivery(t, RKBookingCancelled, BookingDecided{
		BookingID: "b3",
		UserID:    "u2",
		GuideName: "Kwame",
		Location:  "Accra",
	}))
	require.NoError(t, err)

	require.Len(t, pub.calls, 1)
	assert.Equal(t, models.AudienceUser, pub.calls[0].audience)
	assert.Equal(t, models.TypeBookingCancelled, pub.calls[0].input.Type)
}

func TestHandleDelivery_UnknownKeyIsSkipped(t *testing.T) {
	pub := &recordingPublisher{}
	c := testConsumer(pub)

	err := c.handleDelivery(context.Background(), amqp.Delivery{
		RoutingKey: "booking.archived",
		Body:       []byte(`{}`),
	})

	assert.NoError(t, err)
	assert.Empty(t, pub.calls)
}

func TestHandleDelivery_MalformedBodyFails(t *testing.T) {
	pub := &recordingPublisher{}
	c := testConsumer(pub)

	err := c.handleDelivery(context.Background(), amqp.Delivery{
		RoutingKey: RKBookingRequested,
		Body:       []byte(`{not json`),
	})

	assert.Error(t, err)
	assert.Empty(t, pub.calls)
}

func TestHandleDelivery_PublisherErrorPropagates(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("feed down")}
	c := testConsumer(pub)

	err := c.handleDelivery(context.Background(), delivery(t, RKBookingConfirmed, BookingDecided{UserID: "u1"}))
	assert.Error(t, err)
}
