package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Hexmon/e-dossier-sub007/internal/core/port"
)

// ErrUnknownPurpose indicates a rate-limit check for an unconfigured purpose.
var ErrUnknownPurpose = errors.New("unknown rate limit purpose")

// Purpose scopes a rate limit to one class of guarded endpoint. Purposes
// are independent: exhausting one never affects another for the same
// identifier.
type Purpose string

const (
	PurposeLogin         Purpose = "login"
	PurposeSignup        Purpose = "signup"
	PurposePasswordReset Purpose = "password_reset"
	PurposeAPI           Purpose = "api"
)

// PurposeConfig holds the window shape for one purpose.
type PurposeConfig struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultPurposeConfigs returns the built-in per-purpose limits.
func DefaultPurposeConfigs() map[Purpose]PurposeConfig {
	return map[Purpose]PurposeConfig{
		PurposeLogin:         {MaxRequests: 5, Window: 15 * time.Minute},
		PurposeSignup:        {MaxRequests: 3, Window: time.Hour},
		PurposePasswordReset: {MaxRequests: 3, Window: time.Hour},
		PurposeAPI:           {MaxRequests: 100, Window: time.Minute},
	}
}

// LimitResult is the outcome of one rate-limit check.
type LimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is how long a rejected caller should wait. Zero when allowed.
	RetryAfter time.Duration
	// Degraded reports the check was served by the in-process fallback
	// store, which counts per instance only.
	Degraded bool
}

// RateLimiter enforces sliding-window limits per (purpose, identifier).
// Checks consume a slot whether or not the downstream operation later
// succeeds; slots are never refunded.
type RateLimiter struct {
	store    port.CounterStore
	fallback port.CounterStore
	configs  map[Purpose]PurposeConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewRateLimiter constructs a limiter over the primary store. When the
// primary errors at check time and a fallback is configured, the check is
// served by the fallback instead of failing open or closed.
func NewRateLimiter(store port.CounterStore, configs map[Purpose]PurposeConfig, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if configs == nil {
		configs = DefaultPurposeConfigs()
	}

	return &RateLimiter{
		store:   store,
		configs: configs,
		logger:  logger,
		now:     time.Now,
	}
}

// WithFallback configures the degraded-mode store.
func (l *RateLimiter) WithFallback(fallback port.CounterStore) *RateLimiter {
	l.fallback = fallback
	return l
}

// WithClock allows injection of a custom clock (primarily for testing).
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Check consumes one slot for (purpose, identifier) and reports whether the
// request is within the window.
func (l *RateLimiter) Check(ctx context.Context, purpose Purpose, identifier string) (LimitResult, error) {
	cfg, ok := l.configs[purpose]
	if !ok {
		return LimitResult{}, fmt.Errorf("purpose %q: %w", purpose, ErrUnknownPurpose)
	}

	key := fmt.Sprintf("%s:%s", purpose, identifier)
	now := l.now()

	result, err := l.evaluate(ctx, l.store, cfg, key, now)
	if err == nil {
		return result, nil
	}

	if l.fallback == nil {
		return LimitResult{}, fmt.Errorf("rate limit check: %w", err)
	}

	l.logger.Warn("counter store unavailable, using in-process fallback",
		zap.String("purpose", string(purpose)),
		zap.Error(err),
	)

	result, fbErr := l.evaluate(ctx, l.fallback, cfg, key, now)
	if fbErr != nil {
		return LimitResult{}, fmt.Errorf("rate limit fallback check: %w", fbErr)
	}
	result.Degraded = true

	return result, nil
}

func (l *RateLimiter) evaluate(ctx context.Context, store port.CounterStore, cfg PurposeConfig, key string, now time.Time) (LimitResult, error) {
	if err := store.TrimWindow(ctx, key, cfg.Window, now); err != nil {
		return LimitResult{}, err
	}

	count, err := store.CountAttempts(ctx, key, cfg.Window, now)
	if err != nil {
		return LimitResult{}, err
	}

	oldest, hasAttempts, err := store.OldestAttempt(ctx, key, cfg.Window, now)
	if err != nil {
		return LimitResult{}, err
	}

	result := LimitResult{
		Limit:   cfg.MaxRequests,
		ResetAt: now.Add(cfg.Window),
		Allowed: true,
	}

	if hasAttempts {
		result.ResetAt = oldest.Add(cfg.Window)
	}

	if count >= cfg.MaxRequests {
		result.Allowed = false
		result.Remaining = 0
		result.RetryAfter = result.ResetAt.Sub(now)
		if result.RetryAfter < 0 {
			result.RetryAfter = 0
		}
		return result, nil
	}

	if err := store.RecordAttempt(ctx, key, now); err != nil {
		return LimitResult{}, err
	}

	count++
	result.Remaining = cfg.MaxRequests - count
	if result.Remaining < 0 {
		result.Remaining = 0
	}

	if !hasAttempts {
		result.ResetAt = now.Add(cfg.Window)
	}

	return result, nil
}
