package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitReturnsResult(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	fut, err := p.Submit(func() (any, error) { return 42, nil })
	require.NoError(t, err)

	got, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestJobsOnOneLaneRunInOrder(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	var mu sync.Mutex
	var order []int
	var futs []*Future
	for i := 0; i < 20; i++ {
		i := i
		fut, err := p.Submit(func() (any, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil, nil
		})
		require.NoError(t, err)
		futs = append(futs, fut)
	}
	for _, fut := range futs {
		_, err := fut.Wait(context.Background())
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 20)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestJobErrorDoesNotKillLane(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	boom := errors.New("job failed")
	fut, err := p.Submit(func() (any, error) { return nil, boom })
	require.NoError(t, err)
	_, err = fut.Wait(context.Background())
	assert.ErrorIs(t, err, boom)

	// The lane keeps serving jobs after a failure.
	fut, err = p.Submit(func() (any, error) { return "ok", nil })
	require.NoError(t, err)
	got, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestJobPanicBecomesError(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	fut, err := p.Submit(func() (any, error) { panic("kaboom") })
	require.NoError(t, err)
	_, err = fut.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	fut, err = p.Submit(func() (any, error) { return 1, nil })
	require.NoError(t, err)
	_, err = fut.Wait(context.Background())
	assert.NoError(t, err)
}

func TestPoolExhaustion(t *testing.T) {
	p := NewPoolWithQueueCap(1, 100)
	defer p.Close()

	release := make(chan struct{})
	var futs []*Future

	// One executing job plus a full queue: the 101st submit must fail.
	for i := 0; i < 100; i++ {
		fut, err := p.Submit(func() (any, error) {
			<-release
			return nil, nil
		})
		require.NoError(t, err, "job %d", i)
		futs = append(futs, fut)
	}

	_, err := p.Submit(func() (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrPoolExhausted)
	assert.Equal(t, 1, p.Lanes())

	close(release)
	for _, fut := range futs {
		_, err := fut.Wait(context.Background())
		require.NoError(t, err)
	}

	// Capacity is back once the backlog drains.
	fut, err := p.Submit(func() (any, error) { return nil, nil })
	require.NoError(t, err)
	_, err = fut.Wait(context.Background())
	require.NoError(t, err)
}

func TestPoolGrowsNewLanes(t *testing.T) {
	p := NewPoolWithQueueCap(2, 1)
	defer p.Close()

	block := make(chan struct{})
	defer close(block)

	// Saturate lane one with a running job (pending = cap).
	_, err := p.Submit(func() (any, error) {
		<-block
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Lanes())

	// Next submit cannot fit and spawns lane two.
	fut, err := p.Submit(func() (any, error) { return "second lane", nil })
	require.NoError(t, err)
	assert.Equal(t, 2, p.Lanes())

	got, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second lane", got)

	// Both lanes full and maxLanes reached: exhausted.
	_, err = p.Submit(func() (any, error) {
		<-block
		return nil, nil
	})
	require.NoError(t, err)
	_, err = p.Submit(func() (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestWaitHonorsContext(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	release := make(chan struct{})
	defer close(release)
	fut, err := p.Submit(func() (any, error) {
		<-release
		return nil, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = fut.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmitAfterClose(t *testing.T) {
	p := NewPool(1)
	p.Close()
	_, err := p.Submit(func() (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrPoolClosed)

	// Close is idempotent.
	p.Close()
}

func TestUnlimitedLanes(t *testing.T) {
	p := NewPoolWithQueueCap(0, 1)
	defer p.Close()

	block := make(chan struct{})
	defer close(block)
	for i := 0; i < 5; i++ {
		_, err := p.Submit(func() (any, error) {
			<-block
			return nil, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 5, p.Lanes())
}
