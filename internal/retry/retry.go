package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrTemporarilyUnavailable marks a rate-limited call that exhausted its attempts.
var ErrTemporarilyUnavailable = errors.New("service temporarily unavailable")

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxJitter   = time.Second
)

// Classifier decides whether an error is transient and worth retrying.
type Classifier func(err error) bool

// Observer is notified before every backoff sleep.
type Observer func(attempt int, delay time.Duration, err error)

type settings struct {
	maxAttempts int
	baseDelay   time.Duration
	maxJitter   time.Duration
	classify    Classifier
	jitter      func(max time.Duration) time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *zap.Logger
	observers   []Observer
	name        string
}

// Option configures a single Do call.
type Option func(*settings)

// WithMaxAttempts caps the total number of calls, including the first one.
func WithMaxAttempts(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the first backoff delay; later delays double it.
func WithBaseDelay(d time.Duration) Option {
	return func(s *settings) { s.baseDelay = d }
}

// WithMaxJitter bounds the random delay added to each backoff.
func WithMaxJitter(d time.Duration) Option {
	return func(s *settings) { s.maxJitter = d }
}

// WithClassifier replaces IsRateLimited as the retry predicate.
func WithClassifier(c Classifier) Option {
	return func(s *settings) {
		if c != nil {
			s.classify = c
		}
	}
}

// WithLogger logs each retry on l.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithName labels log lines for the wrapped operation.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithObserver registers a hook invoked before each backoff sleep.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// withSleep and withJitter make backoff deterministic in tests.
func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *settings) { s.sleep = fn }
}

func withJitter(fn func(max time.Duration) time.Duration) Option {
	return func(s *settings) { s.jitter = fn }
}

// Do calls op until it succeeds, fails with an error the classifier rejects,
// or the attempt cap is reached. Only rate-limited failures are retried; any
// other error is returned immediately without consuming the remaining attempts.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	s := settings{
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxJitter:   DefaultMaxJitter,
		classify:    IsRateLimited,
		jitter:      randomJitter,
		sleep:       sleepContext,
		logger:      zap.NewNop(),
		name:        "operation",
	}
	for _, opt := range opts {
		opt(&s)
	}

	var zero T
	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		transient := s.classify(err)
		if !transient {
			return zero, err
		}
		if attempt >= s.maxAttempts {
			s.logger.Warn("Giving up after rate limiting",
				zap.String("operation", s.name),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return zero, fmt.Errorf("%w: %w", ErrTemporarilyUnavailable, err)
		}

		delay := Backoff(s.baseDelay, attempt) + s.jitter(s.maxJitter)
		s.logger.Warn("Rate limited, retrying...",
			zap.String("operation", s.name),
			zap.Int("attempt", attempt),
			zap.Duration("retry_after", delay),
			zap.Error(err),
		)
		for _, o := range s.observers {
			o(attempt, delay, err)
		}

		if err := s.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

// Backoff returns base * 2^(attempt-1).
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// rateLimitPhrases are matched against error text when the error carries no
// explicit status.
var rateLimitPhrases = []string{"quota", "too many requests", "resource_exhausted", "rate limit"}

// IsRateLimited reports whether err signals throttling rather than a permanent failure.
// Errors exposing StatusCode() or RateLimited() are classified by those; the
// message text is only inspected when neither is available.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var limited interface{ RateLimited() bool }
	if errors.As(err, &limited) {
		return limited.RateLimited()
	}
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		return coded.StatusCode() == http.StatusTooManyRequests
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
