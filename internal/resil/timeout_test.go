package resil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitenav/internal/types"
)

func TestWithTimeoutPassesThrough(t *testing.T) {
	v, err := WithTimeout(context.Background(), time.Second, "too slow",
		func(ctx context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	_, err = WithTimeout(context.Background(), time.Second, "too slow",
		func(ctx context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
}

func TestWithTimeoutFiresAsNetwork(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	_, err := WithTimeout(context.Background(), 20*time.Millisecond, "site search timed out",
		func(ctx context.Context) (int, error) {
			<-release // settles long after abandonment
			return 1, nil
		})
	require.Error(t, err)
	assert.Equal(t, types.CategoryNetwork, Classify(err))
	assert.ErrorIs(t, err, types.ErrTimeout)
	assert.Contains(t, err.Error(), "site search timed out")

	var ce *types.CategorizedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, ce.Status)
}

func TestWithTimeoutDoesNotCancelDownstream(t *testing.T) {
	// The abandoned operation keeps its context alive; the guard only stops waiting.
	sawCancel := make(chan bool, 1)
	_, err := WithTimeout(context.Background(), 10*time.Millisecond, "msg",
		func(ctx context.Context) (int, error) {
			time.Sleep(50 * time.Millisecond)
			sawCancel <- ctx.Err() != nil
			return 0, nil
		})
	require.Error(t, err)
	assert.False(t, <-sawCancel)
}

func TestWithTimeoutCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WithTimeout(ctx, time.Second, "msg",
		func(ctx context.Context) (int, error) {
			time.Sleep(50 * time.Millisecond)
			return 0, nil
		})
	require.Error(t, err)
	assert.Equal(t, types.CategoryNetwork, Classify(err))
}
