package models

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationFeed is the partitioned realtime feed the gateway reads and
// writes. Records are addressable by the ID assigned on Append, and every
// write is followed by a change signal so watchers can re-query the full
// matching set.
type NotificationFeed interface {
	// Append stores a new record with Shown=false, a server-assigned ID and
	// the current timestamp, and returns the persisted record.
	Append(ctx context.Context, audience Audience, input PublishInput) (*NotificationRecord, error)

	// ListByRecipient returns every record for the recipient, sorted by
	// timestamp descending.
	ListByRecipient(ctx context.Context, audience Audience, recipientID string) ([]*NotificationRecord, error)

	// MarkShown sets Shown=true on the record. Idempotent; marking an absent
	// or already-shown record is not an error.
	MarkShown(ctx context.Context, audience Audience, id string) error

	// Delete removes the record. Idempotent; absence is not an error.
	Delete(ctx context.Context, audience Audience, id string) error

	// Watch returns a channel that receives a signal whenever the audience's
	// partition changes, and a stop function that releases the watcher.
	// Signals are coalesced; a slow consumer sees at least one signal for any
	// burst of changes.
	Watch(audience Audience) (<-chan struct{}, func())
}

// FeedRepo stores records in MongoDB and signals changes over Redis pub/sub.
type FeedRepo struct {
	mongodbClient *mongo.Client
	redisClient   *redis.Client
}

func NewFeedRepo(mongodbClient *mongo.Client, redisClient *redis.Client) NotificationFeed {
	return &FeedRepo{
		mongodbClient: mongodbClient,
		redisClient:   redisClient,
	}
}

func feedChannel(audience Audience) string {
	return "feed:" + audience.Collection()
}

func (f *FeedRepo) collection(audience Audience) *mongo.Collection {
	return f.mongodbClient.Database(NotificationDbName).Collection(audience.Collection())
}

func (f *FeedRepo) Append(ctx context.Context, audience Audience, input PublishInput) (*NotificationRecord, error) {
	record := &NotificationRecord{
		ID:        primitive.NewObjectID(),
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		Data:      input.Data,
		Shown:     false,
		Timestamp: time.Now().UnixMilli(),
	}
	record.SetRecipient(audience, input.RecipientID)

	if _, err := f.collection(audience).InsertOne(ctx, record); err != nil {
		return nil, fmt.Errorf("error inserting notification: %v", err)
	}

	f.signal(audience)
	return record, nil
}

func (f *FeedRepo) ListByRecipient(ctx context.Context, audience Audience, recipientID string) ([]*NotificationRecord, error) {
	filter := bson.M{audience.RecipientField(): recipientID}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := f.collection(audience).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding notifications: %v", err)
	}
	defer cursor.Close(ctx)

	records := []*NotificationRecord{}
	for cursor.Next(ctx) {
		var rec NotificationRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("error decoding notification: %v", err)
		}
		records = append(records, &rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %v", err)
	}
	return records, nil
}

func (f *FeedRepo) MarkShown(ctx context.Context, audience Audience, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid notification id %q: %v", id, err)
	}

	now := time.Now()
	update := bson.M{"$set": bson.M{"shown": true, "shown_at": now}}
	if _, err := f.collection(audience).UpdateByID(ctx, oid, update); err != nil {
		return fmt.Errorf("error marking notification shown: %v", err)
	}

	f.signal(audience)
	return nil
}

func (f *FeedRepo) Delete(ctx context.Context, audience Audience, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid notification id %q: %v", id, err)
	}

	if _, err := f.collection(audience).DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("error deleting notification: %v", err)
	}

	f.signal(audience)
	return nil
}

func (f *FeedRepo) Watch(audience Audience) (<-chan struct{}, func()) {
	pubsub := f.redisClient.Subscribe(feedChannel(audience))
	signals := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		defer close(signals)
		messages := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				// Coalesce: if a signal is already pending, drop this one.
				select {
				case signals <- struct{}{}:
				default:
				}
			}
		}
	}()

	stop := func() {
		close(done)
		_ = pubsub.Close()
	}
	return signals, stop
}

// signal is fire-and-forget: a missed signal only delays delivery until the
// next change, it never loses a record.
func (f *FeedRepo) signal(audience Audience) {
	_ = f.redisClient.Publish(feedChannel(audience), "changed").Err()
}
