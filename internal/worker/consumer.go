package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/gyamfi-dev/tourmate-server/internal/models"
)

// NotificationPublisher is the slice of the gateway the worker needs.
type NotificationPublisher interface {
	Publish(ctx context.Context, audience models.Audience, input models.PublishInput) (*models.NotificationRecord, error)
}

type Config struct {
	AmqpURL     string
	Exchange    string
	Queue       string
	Bindings    []string
	Prefetch    int
	ServiceName string
}

// Consumer turns booking events from the broker into feed publishes. A
// handler error Nacks the delivery back onto the queue, so a transient feed
// outage never drops a business event.
type Consumer struct {
	cfg       Config
	publisher NotificationPublisher
	logger    *slog.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(cfg Config, publisher NotificationPublisher, logger *slog.Logger) *Consumer {
	return &Consumer{cfg: cfg, publisher: publisher, logger: logger}
}

func (c *Consumer) Connect() error {
	conn, err := amqp.Dial(c.cfg.AmqpURL)
	if err != nil {
		return fmt.Errorf("rabbit dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel failed: %w", err)
	}

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s failed: %w", c.cfg.Exchange, err)
	}

	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue failed: %w", err)
	}

	for _, key := range c.cfg.Bindings {
		if err := ch.QueueBind(q.Name, key, c.cfg.Exchange, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("bind queue key=%s failed: %w", key, err)
		}
	}

	if c.cfg.Prefetch <= 0 {
		c.cfg.Prefetch = 8
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("set qos failed: %w", err)
	}

	c.conn = conn
	c.ch = ch
	return nil
}

func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.ServiceName, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := c.handleDelivery(ctx, d); err != nil {
				c.logger.Error("handle delivery failed", "routing_key", d.RoutingKey, "error", err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) error {
	switch d.RoutingKey {
	case RKBookingRequested:
		ev, err := MustUnmarshal[BookingRequested](d.Body)
		if err != nil {
			return err
		}
		_, err = c.publisher.Publish(ctx, models.AudienceGuide, models.PublishInput{
			RecipientID: ev.GuideID,
			Type:        models.TypeBookingRequest,
			Title:       "New booking request",
			Message:     fmt.Sprintf("%s requested a tour in %s", ev.UserName, ev.Location),
			Data: map[string]string{
				"booking_id":  ev.BookingID,
				"user_name":   ev.UserName,
				"location":    ev.Location,
				"dates":       strings.Join(ev.Dates, ","),
				"guests":      strconv.Itoa(ev.Guests),
				"total_price": strconv.FormatFloat(ev.TotalPrice, 'f', 2, 64),
			},
		})
		return err

	case RKBookingConfirmed:
		ev, err := MustUnmarshal[BookingDecided](d.Body)
		if err != nil {
			return err
		}
		_, err = c.publisher.Publish(ctx, models.AudienceUser, models.PublishInput{
			RecipientID: ev.UserID,
			Type:        models.TypeBookingConfirmed,
			Title:       "Booking confirmed",
			Message:     fmt.Sprintf("%s confirmed your tour in %s", ev.GuideName, ev.Location),
			Data:        decisionData(ev),
		})
		return err

	case RKBookingCancelled:
		ev, err := MustUnmarshal[BookingDecided](d.Body)
		if err != nil {
			return err
		}
		_, err = c.publisher.Publish(ctx, models.AudienceUser, models.PublishInput{
			RecipientID: ev.UserID,
			Type:        models.TypeBookingCancelled,
			Title:       "Booking cancelled",
			Message:     fmt.Sprintf("%s cancelled your tour in %s", ev.GuideName, ev.Location),
			Data:        decisionData(ev),
		})
		return err

	default:
		c.logger.Warn("skip unknown routing key", "routing_key", d.RoutingKey)
		return nil
	}
}

func decisionData(ev BookingDecided) map[string]string {
	return map[string]string{
		"booking_id": ev.BookingID,
		"guide_name": ev.GuideName,
		"location":   ev.Location,
		"dates":      strings.Join(ev.Dates, ","),
	}
}
