package port

import (
	"context"
	"time"
)

// CounterStore defines the persistence operations required to enforce
// sliding-window limits. The Redis implementation provides cross-instance
// counting; the in-process implementation counts per process only.
type CounterStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
