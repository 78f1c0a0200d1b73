package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
)

// CounterConfig defines configuration for the sliding window counter store.
type CounterConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// CounterStore persists attempt timestamps in Redis sorted sets keyed by
// identifier, scored by nanosecond timestamp. All instances sharing the
// Redis see the same window, which is what makes the limiter cluster-safe.
type CounterStore struct {
	client *redis.Client
	cfg    CounterConfig
}

// NewCounterStore constructs a store using the provided Redis client and config.
func NewCounterStore(client *redis.Client, cfg CounterConfig) *CounterStore {
	return &CounterStore{client: client, cfg: cfg}
}

// RecordAttempt appends the timestamp to the identifier's set and refreshes
// the key TTL in the same round trip.
func (s *CounterStore) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	key := s.key(identifier)
	nanos := at.UnixNano()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(nanos), Member: nanos})
		if s.cfg.TTL > 0 {
			pipe.Expire(ctx, key, s.cfg.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record attempt for %q: %w", identifier, err)
	}

	return nil
}

// CountAttempts returns how many attempts fall inside the window ending at
// the reference time.
func (s *CounterStore) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	lo, hi, err := windowBounds(window, reference)
	if err != nil {
		return 0, err
	}

	count, err := s.client.ZCount(ctx, s.key(identifier), "("+lo, hi).Result()
	if err != nil {
		return 0, fmt.Errorf("count attempts for %q: %w", identifier, err)
	}

	return int(count), nil
}

// TrimWindow drops attempts that fell out of the window ending at the
// reference time.
func (s *CounterStore) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	lo, _, err := windowBounds(window, reference)
	if err != nil {
		return err
	}

	// The window floor itself is stale: counting treats it as exclusive.
	if err := s.client.ZRemRangeByScore(ctx, s.key(identifier), "-inf", lo).Err(); err != nil {
		return fmt.Errorf("trim window for %q: %w", identifier, err)
	}

	return nil
}

// OldestAttempt returns the earliest attempt still inside the window, or
// ok=false when the window is empty.
func (s *CounterStore) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	lo, hi, err := windowBounds(window, reference)
	if err != nil {
		return time.Time{}, false, err
	}

	members, err := s.client.ZRangeByScore(ctx, s.key(identifier), &redis.ZRangeBy{
		Min:   "(" + lo,
		Max:   hi,
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("oldest attempt for %q: %w", identifier, err)
	}
	if len(members) == 0 {
		return time.Time{}, false, nil
	}

	nanos, err := strconv.ParseInt(members[0], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse attempt member %q: %w", members[0], err)
	}

	return time.Unix(0, nanos), true, nil
}

// windowBounds converts a window and reference time into score bounds for
// the sorted-set queries. The floor is exclusive, the reference inclusive.
func windowBounds(window time.Duration, reference time.Time) (lo, hi string, err error) {
	if window <= 0 {
		return "", "", errors.New("window must be positive")
	}

	lo = strconv.FormatInt(reference.Add(-window).UnixNano(), 10)
	hi = strconv.FormatInt(reference.UnixNano(), 10)
	return lo, hi, nil
}

func (s *CounterStore) key(identifier string) string {
	if s.cfg.KeyPrefix == "" {
		return identifier
	}
	return s.cfg.KeyPrefix + ":" + identifier
}

var _ port.CounterStore = (*CounterStore)(nil)
