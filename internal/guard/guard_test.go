package guard

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/errors"
)

func TestDoSerializesCallers(t *testing.T) {
	g := New("records")

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(func() error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
}

func TestDoReturnsErrorAndReleases(t *testing.T) {
	g := New("log")
	want := errors.Validation("bad input")

	err := g.Do(func() error { return want })
	require.ErrorIs(t, err, errors.ErrValidation)

	require.NoError(t, g.Do(func() error { return nil }))
	assert.False(t, g.Poisoned())
}

func TestPanicPoisonsGuard(t *testing.T) {
	g := New("records")

	err := g.Do(func() error { panic("boom") })
	require.ErrorIs(t, err, errors.ErrInternal)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "records")
	assert.True(t, g.Poisoned())

	called := false
	err = g.Do(func() error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, ErrPoisoned)
	assert.False(t, called)
}

func TestGuardsAreIndependent(t *testing.T) {
	records := New("records")
	log := New("log")

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = records.Do(func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	done := make(chan error, 1)
	go func() {
		done <- log.Do(func() error { return nil })
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("log guard blocked while records guard was held")
	}
	close(release)

	other := New("other")
	_ = other.Do(func() error { panic("boom") })
	require.NoError(t, log.Do(func() error { return nil }))
}

func TestRun(t *testing.T) {
	g := New("records")

	v, err := Run(g, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = Run(g, func() (int, error) { return 7, errors.NotFound("missing") })
	require.ErrorIs(t, err, errors.ErrNotFound)
	assert.Zero(t, v)
}
