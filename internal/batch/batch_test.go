package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PreservesOrderUnderReversedCompletion(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	out, err := Run(context.Background(), items, 3, func(_ context.Context, i int, v int) (int, error) {
		// later items in a batch finish first
		time.Sleep(time.Duration(3-i%3) * 10 * time.Millisecond)
		return v * 10, nil
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30, 40, 50, 60, 70}, out)
}

func TestRun_BatchesDoNotOverlap(t *testing.T) {
	var running, peak atomic.Int32
	items := make([]int, 12)

	_, err := Run(context.Background(), items, 4, func(_ context.Context, _ int, _ int) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	}, Options{})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestRun_BetweenHook(t *testing.T) {
	var calls []int
	out, err := Run(context.Background(), []string{"a", "b", "c", "d", "e"}, 2,
		func(_ context.Context, _ int, s string) (string, error) { return s + s, nil },
		Options{Between: func(_ context.Context, done, total int) error {
			calls = append(calls, done)
			assert.Equal(t, 5, total)
			return nil
		}})
	require.NoError(t, err)
	assert.Equal(t, []string{"aa", "bb", "cc", "dd", "ee"}, out)
	assert.Equal(t, []int{2, 4}, calls, "no hook after the last batch")
}

func TestRun_StopsEarly(t *testing.T) {
	t.Run("Hook stops the run", func(t *testing.T) {
		out, err := Run(context.Background(), []int{1, 2, 3, 4}, 2,
			func(_ context.Context, _ int, v int) (int, error) { return v, nil },
			Options{Between: func(context.Context, int, int) error { return errors.New("abort") }})
		assert.ErrorIs(t, err, ErrStopped)
		assert.Equal(t, []int{1, 2}, out)
	})

	t.Run("Item failure ends the run", func(t *testing.T) {
		boom := errors.New("boom")
		var seen atomic.Int32
		out, err := Run(context.Background(), []int{1, 2, 3, 4}, 2,
			func(_ context.Context, _ int, v int) (int, error) {
				seen.Add(1)
				if v == 3 {
					return 0, boom
				}
				return v, nil
			}, Options{})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []int{1, 2}, out)
		assert.Equal(t, int32(4), seen.Load())
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		out, err := Run(ctx, []int{1}, 1, func(_ context.Context, _ int, v int) (int, error) { return v, nil }, Options{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, out)
	})

	t.Run("Empty input", func(t *testing.T) {
		out, err := Run(context.Background(), []int(nil), 0, func(_ context.Context, _ int, v int) (int, error) { return v, nil }, Options{})
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestWatchdog(t *testing.T) {
	w := NewWatchdog(100, nil)

	w.sample = func() uint64 { return 50 }
	assert.False(t, w.Check())

	w.sample = func() uint64 { return 500 }
	assert.True(t, w.Check())
	assert.Equal(t, 1, w.Trips)

	require.NoError(t, w.Between(context.Background(), 1, 2), "watchdog never aborts")

	var disabled *Watchdog
	assert.False(t, disabled.Check())
}
