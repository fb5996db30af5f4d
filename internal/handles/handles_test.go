package handles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireOrder(t *testing.T) {
	a := New(4, 2)

	for _, want := range []Handle{3, 2, 1, 0} {
		h, ok := a.Acquire()
		require.True(t, ok)
		assert.Equal(t, want, h)
	}

	_, ok := a.Acquire()
	assert.False(t, ok, "pool should be exhausted")
	assert.Equal(t, 0, a.Free())
}

func TestDefaultCapacityFirstHandle(t *testing.T) {
	a := New(1024, 3)
	h, ok := a.Acquire()
	require.True(t, ok)
	assert.Equal(t, Handle(1023), h)
}

func TestReleaseIsDeferred(t *testing.T) {
	a := New(4, 2)
	h, _ := a.Acquire()

	require.NoError(t, a.Release(1, h))
	assert.Equal(t, 3, a.Free(), "released handle must not be reusable before reclaim")
	assert.Equal(t, 1, a.Pending(1))

	assert.Equal(t, 0, a.Reclaim(0), "other frame slots are untouched")
	assert.Equal(t, 1, a.Reclaim(1))
	assert.Equal(t, 4, a.Free())
	assert.Equal(t, 0, a.Pending(1))

	// LIFO: the reclaimed handle is on top again.
	got, ok := a.Acquire()
	require.True(t, ok)
	assert.Equal(t, h, got)
}

func TestReclaimPreservesReleaseOrder(t *testing.T) {
	a := New(8, 1)
	h1, _ := a.Acquire() // 7
	h2, _ := a.Acquire() // 6
	h3, _ := a.Acquire() // 5

	require.NoError(t, a.Release(0, h2))
	require.NoError(t, a.Release(0, h1))
	require.NoError(t, a.Release(0, h3))
	require.Equal(t, 3, a.Reclaim(0))

	// Drained in release order, so the last released is acquired first.
	for _, want := range []Handle{h3, h1, h2} {
		got, ok := a.Acquire()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestReleaseErrors(t *testing.T) {
	a := New(4, 2)
	h, _ := a.Acquire()

	tests := []struct {
		name  string
		frame int
		h     Handle
		want  error
	}{
		{"negative frame", -1, h, ErrOutOfRange},
		{"frame past end", 2, h, ErrOutOfRange},
		{"handle past end", 0, 4, ErrOutOfRange},
		{"never acquired", 0, 0, ErrNotAcquired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, a.Release(tt.frame, tt.h), tt.want)
		})
	}
}

func TestDoubleRelease(t *testing.T) {
	a := New(4, 2)
	h, _ := a.Acquire()
	require.NoError(t, a.Release(0, h))
	assert.ErrorIs(t, a.Release(1, h), ErrNotAcquired)
	assert.Equal(t, 1, a.Pending(0)+a.Pending(1))
}

func TestConservation(t *testing.T) {
	const capacity, frames = 16, 3
	a := New(capacity, frames)

	var live []Handle
	for i := 0; i < 200; i++ {
		switch {
		case i%3 != 2:
			if h, ok := a.Acquire(); ok {
				live = append(live, h)
			}
		case len(live) > 0:
			require.NoError(t, a.Release(i%frames, live[0]))
			live = live[1:]
		}
		if i%7 == 0 {
			a.Reclaim(i % frames)
		}

		pending := 0
		for f := 0; f < frames; f++ {
			pending += a.Pending(f)
		}
		require.Equal(t, capacity, a.Free()+pending+len(live), "step %d", i)
	}
}

func TestNewPanics(t *testing.T) {
	assert.Panics(t, func() { New(0, 1) })
	assert.Panics(t, func() { New(1, 0) })
}
