package models

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BookingRepo reads booking snapshots for the trackers. The service only ever
// reads bookings; the mobile clients own creation and status updates.
type BookingRepo interface {
	ListByUserID(ctx context.Context, userID string) ([]Booking, error)
	ListByGuideID(ctx context.Context, guideID string) ([]Booking, error)
}

func (mdb *MongodbRepo) ListByUserID(ctx context.Context, userID string) ([]Booking, error) {
	return mdb.listBookings(ctx, bson.M{"user_id": userID})
}

func (mdb *MongodbRepo) ListByGuideID(ctx context.Context, guideID string) ([]Booking, error) {
	return mdb.listBookings(ctx, bson.M{"guide_id": guideID})
}

func (mdb *MongodbRepo) listBookings(ctx context.Context, filter bson.M) ([]Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingDbName, BookingColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding bookings: %v", err)
	}
	defer cursor.Close(ctx)

	return decodeBookings(ctx, cursor)
}

func decodeBookings(ctx context.Context, cursor *mongo.Cursor) ([]Booking, error) {
	bookings := []Booking{}
	for cursor.Next(ctx) {
		var b Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding booking: %v", err)
		}
		b.Normalize()
		bookings = append(bookings, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %v", err)
	}
	return bookings, nil
}
