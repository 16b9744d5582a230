package models

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis"
)

// Key prefixes for the two trackers. Each prefix namespaces one durable
// mapping per user, stored as a JSON object under "<prefix>_<userId>".
const (
	StatusDedupPrefix     = "booking_statuses"
	NewBookingDedupPrefix = "notified_bookings"
)

// DedupStore is the durable per-user mapping the trackers use to avoid
// re-notifying for already-seen events. Get returns an empty mapping and
// found=false when nothing was ever stored for the user. Set fully replaces
// the stored mapping; concurrent writers for the same user are last-write-wins.
type DedupStore interface {
	Get(ctx context.Context, userID string) (map[string]string, bool, error)
	Set(ctx context.Context, userID string, mapping map[string]string) error
	Clear(ctx context.Context, userID string) error
}

// RedisDedupStore keeps the mapping in Redis so it survives process restarts.
type RedisDedupStore struct {
	client *redis.Client
	prefix string
}

func NewRedisDedupStore(client *redis.Client, prefix string) DedupStore {
	return &RedisDedupStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisDedupStore) key(userID string) string {
	return fmt.Sprintf("%s_%s", s.prefix, userID)
}

func (s *RedisDedupStore) Get(ctx context.Context, userID string) (map[string]string, bool, error) {
	raw, err := s.client.Get(s.key(userID)).Result()
	if err == redis.Nil {
		return map[string]string{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("dedup store get %s: %w", s.key(userID), err)
	}

	mapping := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return nil, false, fmt.Errorf("dedup store decode %s: %w", s.key(userID), err)
	}
	return mapping, true, nil
}

func (s *RedisDedupStore) Set(ctx context.Context, userID string, mapping map[string]string) error {
	if mapping == nil {
		mapping = map[string]string{}
	}
	raw, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("dedup store encode %s: %w", s.key(userID), err)
	}
	if err := s.client.Set(s.key(userID), string(raw), 0).Err(); err != nil {
		return fmt.Errorf("dedup store set %s: %w", s.key(userID), err)
	}
	return nil
}

func (s *RedisDedupStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(s.key(userID)).Err(); err != nil {
		return fmt.Errorf("dedup store clear %s: %w", s.key(userID), err)
	}
	return nil
}
