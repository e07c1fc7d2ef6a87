package combinator_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrenfield/asyncrt/combinator"
	"github.com/wrenfield/asyncrt/pool"
)

func TestMemoGetOrLaunchSharesInFlightWork(t *testing.T) {
	p := pool.NewWorkerPool(4)
	defer p.Close()

	m := combinator.NewMemo[string, int](10)

	var calls atomic.Int32
	launch := func() (int, error) {
		calls.Add(1)
		return 1, nil
	}

	f1 := m.GetOrLaunch("k", p, launch)
	f2 := m.GetOrLaunch("k", p, launch)

	v1, err := f1.Get()
	require.NoError(t, err)
	v2, err := f2.Get()
	require.NoError(t, err)

	assert.Equal(t, 1, v1)
	assert.Equal(t, 1, v2)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, m.Len())
}

func TestMemoForgetStartsFreshWork(t *testing.T) {
	p := pool.NewWorkerPool(1)
	defer p.Close()

	m := combinator.NewMemo[string, int](10)
	var calls int

	m.GetOrLaunch("k", p, func() (int, error) {
		calls++
		return calls, nil
	}).Get()

	m.Forget("k")

	v, err := m.GetOrLaunch("k", p, func() (int, error) {
		calls++
		return calls, nil
	}).Get()

	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}
