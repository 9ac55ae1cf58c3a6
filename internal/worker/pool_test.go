package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliB771/One4All/internal/worker"
)

func TestRunBounded_CompletionOrder(t *testing.T) {
	delays := map[string]time.Duration{
		"slow":   60 * time.Millisecond,
		"medium": 30 * time.Millisecond,
		"fast":   0,
	}

	outcomes, err := worker.RunBounded(context.Background(), 3, []string{"slow", "medium", "fast"}, true,
		func(ctx context.Context, name string) (string, error) {
			time.Sleep(delays[name])
			return name + ".parquet", nil
		})
	require.NoError(t, err)

	var got []string
	for _, o := range outcomes {
		got = append(got, o.Value)
	}
	assert.Equal(t, []string{"fast.parquet", "medium.parquet", "slow.parquet"}, got)
}

func TestRunBounded_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	outcomes, err := worker.RunBounded(context.Background(), 2, names, false,
		func(ctx context.Context, name string) (int, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return 1, nil
		})
	require.NoError(t, err)
	assert.Len(t, outcomes, len(names))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunBounded_LimitBelowOne(t *testing.T) {
	outcomes, err := worker.RunBounded(context.Background(), 0, []string{"a", "b"}, true,
		func(ctx context.Context, name string) (string, error) { return name, nil })
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
}

func TestRunBounded_FailFast(t *testing.T) {
	boom := errors.New("boom")
	var started atomic.Int32

	_, err := worker.RunBounded(context.Background(), 1, []string{"bad", "b", "c", "d"}, true,
		func(ctx context.Context, name string) (string, error) {
			started.Add(1)
			if name == "bad" {
				return "", boom
			}
			return name, nil
		})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad")
	assert.Equal(t, int32(1), started.Load())
}

func TestRunBounded_CollectAll(t *testing.T) {
	boom := errors.New("boom")

	outcomes, err := worker.RunBounded(context.Background(), 2, []string{"a", "bad", "c"}, false,
		func(ctx context.Context, name string) (string, error) {
			if name == "bad" {
				return "", boom
			}
			return name, nil
		})
	require.ErrorIs(t, err, boom)
	require.Len(t, outcomes, 3)

	var ok []string
	for _, o := range outcomes {
		if o.Err == nil {
			ok = append(ok, o.Value)
		}
	}
	assert.ElementsMatch(t, []string{"a", "c"}, ok)
}

func TestRunBounded_Empty(t *testing.T) {
	outcomes, err := worker.RunBounded(context.Background(), 3, nil, true,
		func(ctx context.Context, name string) (string, error) { return name, nil })
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestRunBounded_CollectAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcomes, err := worker.RunBounded(ctx, 1, []string{"a", "b", "c"}, false,
		func(ctx context.Context, name string) (string, error) {
			cancel()
			return name, nil
		})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, outcomes, 3)

	byName := map[string]error{}
	for _, o := range outcomes {
		byName[o.Name] = o.Err
	}
	assert.NoError(t, byName["a"])
	assert.ErrorIs(t, byName["b"], context.Canceled)
	assert.ErrorIs(t, byName["c"], context.Canceled)
}
