// Package ledger records which drag gestures have already been applied so a
// repeated drop for the same gesture is never committed twice.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingValue = "pending"

var ErrNotClaimed = errors.New("gesture not claimed")

// Entry is the ledger state of one gesture.
type Entry struct {
	Pending bool
	Payload []byte
}

// RedisLedger keeps gesture claims in Redis with SETNX and a TTL.
type RedisLedger struct {
	client *redis.Client
	prefix string
}

// NewRedisLedger connects to redisURL and verifies the connection.
func NewRedisLedger(redisURL string) (*RedisLedger, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisLedgerWithClient(client), nil
}

// NewRedisLedgerWithClient wraps an existing client.
func NewRedisLedgerWithClient(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client, prefix: "gesture:"}
}

func (l *RedisLedger) key(documentID, gestureID string) string {
	return l.prefix + documentID + ":" + gestureID
}

// Claim marks a gesture as in flight. It returns false when the gesture was
// already claimed and has not expired.
func (l *RedisLedger) Claim(ctx context.Context, documentID, gestureID string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(documentID, gestureID), pendingValue, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim gesture: %w", err)
	}
	return ok, nil
}

// Complete stores the outcome of a claimed gesture.
func (l *RedisLedger) Complete(ctx context.Context, documentID, gestureID string, payload []byte, ttl time.Duration) error {
	ok, err := l.client.SetXX(ctx, l.key(documentID, gestureID), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("complete gesture: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotClaimed, gestureID)
	}
	return nil
}

// Lookup returns the entry for a gesture, if any.
func (l *RedisLedger) Lookup(ctx context.Context, documentID, gestureID string) (Entry, bool, error) {
	value, err := l.client.Get(ctx, l.key(documentID, gestureID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("lookup gesture: %w", err)
	}
	if string(value) == pendingValue {
		return Entry{Pending: true}, true, nil
	}
	return Entry{Payload: value}, true, nil
}

// Release drops a claim so the gesture can be retried.
func (l *RedisLedger) Release(ctx context.Context, documentID, gestureID string) error {
	if err := l.client.Del(ctx, l.key(documentID, gestureID)).Err(); err != nil {
		return fmt.Errorf("release gesture: %w", err)
	}
	return nil
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}

func (l *RedisLedger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
