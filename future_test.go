package tetraxr

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureResolveOnce(t *testing.T) {

	f := NewFuture[int]()
	assert.False(t, f.Ready())

	assert.True(t, f.Resolve(4))
	assert.False(t, f.Resolve(5))
	assert.False(t, f.Reject(errors.New("late")))

	value, err, ok := f.Result()
	require.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 4, value)

}

func TestFutureThenDispatcher(t *testing.T) {

	d := NewDispatcher()
	f := NewFuture[string]()

	got := ""
	f.Then(d, func(s string, err error) { got = s })

	f.Resolve("ready")

	// Nothing runs until the dispatcher is drained.
	assert.Equal(t, "", got)
	assert.Equal(t, 1, d.Pending())

	assert.Equal(t, 1, d.Drain())
	assert.Equal(t, "ready", got)

}

func TestFutureThenImmediate(t *testing.T) {

	called := false
	Resolved(1).Then(nil, func(int, error) { called = true })
	assert.True(t, called)

}

func TestDispatcherDrainsNestedPosts(t *testing.T) {

	d := NewDispatcher()
	order := []int{}

	d.Post(func() {
		order = append(order, 1)
		d.Post(func() { order = append(order, 3) })
	})
	d.Post(func() { order = append(order, 2) })

	assert.Equal(t, 3, d.Drain())
	assert.Equal(t, []int{1, 2, 3}, order)

}

func TestAll(t *testing.T) {

	a := Go(func() (int, error) {
		time.Sleep(time.Millisecond)
		return 1, nil
	})
	b := Resolved("b")

	require.NoError(t, All(context.Background(), a, b))

	failure := errors.New("broken")
	c := Rejected[int](failure)
	assert.ErrorIs(t, All(context.Background(), a, c), failure)

}

func TestJoin(t *testing.T) {

	pending := NewFuture[int]()
	joined := Join("done", pending, Resolved(2))
	assert.False(t, joined.Ready())

	pending.Resolve(1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	value, err := joined.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "done", value)

	// Already-settled inputs settle the join synchronously.
	assert.True(t, Join(3, Resolved(1)).Ready())

}

func TestJoinFailsFast(t *testing.T) {

	pending := NewFuture[int]()
	failing := NewFuture[string]()
	joined := Join("never", pending, failing)

	failure := errors.New("broken")
	failing.Reject(failure)

	// The join settles on the rejecting goroutine without waiting for the rest.
	_, err, ok := joined.Result()
	require.True(t, ok)
	assert.ErrorIs(t, err, failure)

	// Settling the rest later doesn't change the outcome.
	pending.Resolve(1)
	_, err, _ = joined.Result()
	assert.ErrorIs(t, err, failure)

}

func TestJoinStartsNoGoroutines(t *testing.T) {

	pending := NewFuture[int]()
	before := runtime.NumGoroutine()

	joins := make([]*Future[int], 0, 100)
	for i := 0; i < 100; i++ {
		joins = append(joins, Join(i, pending))
	}

	assert.Less(t, runtime.NumGoroutine(), before+10)

	pending.Resolve(0)
	for i, j := range joins {
		value, err, ok := j.Result()
		require.True(t, ok)
		require.NoError(t, err)
		assert.Equal(t, i, value)
	}

}

func TestFutureWaitCancelled(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFuture[int]().Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

}
