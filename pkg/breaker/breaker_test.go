package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRemote = errors.New("remote boom")

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(clock *fakeClock) *Breaker {
	return New("test", Config{
		FailureThreshold: 3,
		ResetTimeout:     10 * time.Second,
		HalfOpenRequests: 2,
		CallTimeout:      time.Second,
		Now:              clock.Now,
	})
}

func failing(ctx context.Context) error { return errRemote }
func succeeding(ctx context.Context) error { return nil }

func TestOpensAfterThresholdAndRejectsWithoutCalling(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := newTestBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := b.Execute(ctx, failing)
		require.ErrorIs(t, err, errRemote)
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called, "open breaker must not invoke the wrapped call")
}

func TestHalfOpenAfterResetTimeoutThenCloses(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := newTestBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, failing)
	}
	require.Equal(t, StateOpen, b.State())

	clock.Advance(11 * time.Second)

	require.NoError(t, b.Execute(ctx, succeeding))
	assert.Equal(t, StateHalfOpen, b.State())

	// Second consecutive success reaches HalfOpenRequests and closes.
	require.NoError(t, b.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, b.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := newTestBreaker(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, failing)
	}
	clock.Advance(11 * time.Second)

	err := b.Execute(ctx, failing)
	require.ErrorIs(t, err, errRemote)
	assert.Equal(t, StateOpen, b.State())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := newTestBreaker(clock)
	ctx := context.Background()

	_ = b.Execute(ctx, failing)
	_ = b.Execute(ctx, failing)
	require.NoError(t, b.Execute(ctx, succeeding))

	// Two more failures should not trip a threshold of three.
	_ = b.Execute(ctx, failing)
	_ = b.Execute(ctx, failing)
	assert.Equal(t, StateClosed, b.State())
}

func TestTimeoutIsDistinguishableAndCancelsContext(t *testing.T) {
	b := New("slow", Config{
		FailureThreshold: 3,
		ResetTimeout:     10 * time.Second,
		HalfOpenRequests: 1,
		CallTimeout:      20 * time.Millisecond,
	})

	sawCancel := make(chan struct{}, 1)
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		sawCancel <- struct{}{}
		return ctx.Err()
	})
	assert.ErrorIs(t, err, ErrTimeout)

	select {
	case <-sawCancel:
	case <-time.After(time.Second):
		t.Fatal("wrapped call never observed cancellation")
	}
}

func TestParentCancellationIsNotTimeout(t *testing.T) {
	b := New("slow", Config{CallTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := b.Execute(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestDoReturnsValue(t *testing.T) {
	b := New("ok", Config{})

	got, err := Do(context.Background(), b, func(ctx context.Context) (string, error) {
		return "pong", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", got)

	_, err = Do(context.Background(), b, func(ctx context.Context) (string, error) {
		return "", errRemote
	})
	assert.ErrorIs(t, err, errRemote)
}

func TestTransitionHook(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var transitions []string
	b := New("hooked", Config{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		HalfOpenRequests: 1,
		CallTimeout:      time.Second,
		Now:              clock.Now,
	}, WithTransitionHook(func(name string, from, to State) {
		transitions = append(transitions, from.String()+">"+to.String())
	}))

	_ = b.Execute(context.Background(), failing)
	clock.Advance(2 * time.Second)
	_ = b.Execute(context.Background(), succeeding)

	assert.Equal(t, []string{"closed>open", "open>half_open", "half_open>closed"}, transitions)
}
