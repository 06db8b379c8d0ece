package conc

import (
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/graphdoc-go/pkg/util/hardware"
)

func TestPool(t *testing.T) {
	pool, err := NewDefaultPool[int]()
	require.NoError(t, err)
	defer pool.Release()

	assert.Equal(t, hardware.GetCPUNum(), pool.Cap())

	futures := make([]*Future[int], 0, 16)
	for i := 0; i < 16; i++ {
		i := i
		futures = append(futures, pool.Submit(func() (int, error) {
			return i * i, nil
		}))
	}
	require.NoError(t, AwaitAll(futures...))
	for i, f := range futures {
		assert.Equal(t, i*i, f.Value())
	}
}

func TestPoolError(t *testing.T) {
	pool, err := NewPool[string](2)
	require.NoError(t, err)
	defer pool.Release()

	boom := errors.New("boom")
	ok := pool.Submit(func() (string, error) { return "ok", nil })
	bad := pool.Submit(func() (string, error) { return "", boom })

	err = AwaitAll(ok, bad)
	assert.ErrorIs(t, err, boom)
	assert.True(t, ok.OK())
	assert.False(t, bad.OK())
	_, err = bad.Await()
	assert.ErrorIs(t, err, boom)
}

func TestPoolPreHandler(t *testing.T) {
	var called atomic.Int32
	pool, err := NewPool[struct{}](1, WithPreHandler(func() { called.Add(1) }))
	require.NoError(t, err)
	defer pool.Release()

	f := pool.Submit(func() (struct{}, error) { return struct{}{}, nil })
	<-f.Inner()
	assert.EqualValues(t, 1, called.Load())
}

func TestPoolConcealPanic(t *testing.T) {
	var handled atomic.Bool
	pool, err := NewPool[int](1, WithConcealPanic(true), WithPanicHandler(func(any) { handled.Store(true) }))
	require.NoError(t, err)
	defer pool.Release()

	f := pool.Submit(func() (int, error) { panic("mock panic") })
	assert.Error(t, f.Err())
}

func TestGo(t *testing.T) {
	f := Go(func() (int, error) { return 42, nil })
	v, err := f.Await()
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}
