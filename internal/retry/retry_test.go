package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusError struct{ code int }

func (e *statusError) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e *statusError) StatusCode() int { return e.code }

// recorder captures backoff sleeps instead of waiting.
type recorder struct{ delays []time.Duration }

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestDo_RetriesRateLimitThenSucceeds(t *testing.T) {
	rec := &recorder{}
	calls := 0
	jitters := []time.Duration{900 * time.Millisecond, 0}

	got, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &statusError{code: 429}
		}
		return "ok", nil
	},
		WithMaxAttempts(3),
		WithBaseDelay(time.Second),
		withSleep(rec.sleep),
		withJitter(func(time.Duration) time.Duration {
			j := jitters[0]
			jitters = jitters[1:]
			return j
		}),
	)

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	require.Len(t, rec.delays, 2)
	assert.Equal(t, 1900*time.Millisecond, rec.delays[0])
	assert.Equal(t, 2*time.Second, rec.delays[1])
	assert.GreaterOrEqual(t, rec.delays[1], rec.delays[0])
}

func TestDo_DelaysNeverDecreaseWithRandomJitter(t *testing.T) {
	for run := 0; run < 50; run++ {
		rec := &recorder{}
		calls := 0
		_, err := Do(context.Background(), func(ctx context.Context) (int, error) {
			calls++
			if calls < 5 {
				return 0, errors.New("You exceeded your current quota")
			}
			return calls, nil
		}, WithMaxAttempts(5), withSleep(rec.sleep))

		require.NoError(t, err)
		require.Len(t, rec.delays, 4)
		for i := 1; i < len(rec.delays); i++ {
			assert.GreaterOrEqual(t, rec.delays[i], rec.delays[i-1])
		}
	}
}

func TestDo_FatalErrorReturnsImmediately(t *testing.T) {
	rec := &recorder{}
	calls := 0
	fatal := &statusError{code: 401}

	_, err := Do(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 0, fatal
	}, WithMaxAttempts(3), withSleep(rec.sleep))

	assert.ErrorIs(t, err, fatal)
	assert.NotErrorIs(t, err, ErrTemporarilyUnavailable)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDo_ExhaustedRateLimitIsTemporarilyUnavailable(t *testing.T) {
	rec := &recorder{}
	calls := 0
	limited := &statusError{code: 429}

	_, err := Do(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 0, limited
	}, WithMaxAttempts(3), withSleep(rec.sleep))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemporarilyUnavailable)
	assert.ErrorIs(t, err, limited)
	assert.Equal(t, 3, calls)
	assert.Len(t, rec.delays, 2)
}

func TestDo_ObserverSeesEachRetry(t *testing.T) {
	var attempts []int
	calls := 0

	_, _ = Do(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("429 Too Many Requests")
	},
		WithMaxAttempts(4),
		withSleep((&recorder{}).sleep),
		WithObserver(func(attempt int, _ time.Duration, _ error) { attempts = append(attempts, attempt) }),
	)

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDo_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	_, err := Do(ctx, func(ctx context.Context) (int, error) {
		calls++
		return 0, &statusError{code: 429}
	}, WithBaseDelay(time.Hour))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

type limitedError struct{ limited bool }

func (e limitedError) Error() string     { return "quota wording that must be ignored" }
func (e limitedError) RateLimited() bool { return e.limited }

func TestIsRateLimited(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "status 429", err: &statusError{code: 429}, expected: true},
		{name: "wrapped status 429", err: fmt.Errorf("generate: %w", &statusError{code: 429}), expected: true},
		{name: "status 400", err: &statusError{code: 400}, expected: false},
		{name: "explicit flag wins over text", err: limitedError{limited: false}, expected: false},
		{name: "explicit flag true", err: limitedError{limited: true}, expected: true},
		{name: "quota text", err: errors.New("Quota exceeded for metric"), expected: true},
		{name: "resource exhausted text", err: errors.New("RESOURCE_EXHAUSTED"), expected: true},
		{name: "auth text", err: errors.New("API key not valid"), expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsRateLimited(tc.err))
		})
	}
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, Backoff(time.Second, 1))
	assert.Equal(t, 2*time.Second, Backoff(time.Second, 2))
	assert.Equal(t, 4*time.Second, Backoff(time.Second, 3))
	assert.Equal(t, time.Second, Backoff(time.Second, 0))
}
