package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(tries uint) Policy {
	return Policy{InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, MaxTries: tries}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	notified := 0
	got, err := Do(context.Background(), fastPolicy(5), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("temporary")
		}
		return "ok", nil
	}, func(error, time.Duration) { notified++ })

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, notified)
}

func TestDoStopsAtMaxTries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), func() (int, error) {
		calls++
		return 0, errors.New("down")
	}, nil)

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoPermanentErrorIsNotRetried(t *testing.T) {
	sentinel := errors.New("not found")
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), func() (int, error) {
		calls++
		return 0, Permanent(sentinel)
	}, nil)

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, Policy{InitialInterval: time.Second, MaxTries: 5}, func() (int, error) {
		return 0, errors.New("down")
	}, nil)
	assert.Error(t, err)
}
