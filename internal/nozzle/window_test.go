package nozzle

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowBufferFill(t *testing.T) {
	t.Parallel()

	b := NewSlidingWindowBuffer(3)
	assert.Equal(t, 3, b.Capacity())
	assert.Equal(t, 0, b.Len())
	assert.False(t, b.IsFull())

	b.Push(Sample{EncoderCount: 1})
	b.Push(Sample{EncoderCount: 2})
	assert.Equal(t, 2, b.Len())
	assert.False(t, b.IsFull())

	b.Push(Sample{EncoderCount: 3})
	assert.Equal(t, 3, b.Len())
	assert.True(t, b.IsFull())
}

func TestSlidingWindowBufferEviction(t *testing.T) {
	t.Parallel()

	b := NewSlidingWindowBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Push(Sample{EncoderCount: float64(i)})
	}

	// Capacity is never exceeded and only the newest samples survive, in
	// arrival order.
	assert.Equal(t, 3, b.Len())
	assert.True(t, b.IsFull())

	want := []Sample{
		{EncoderCount: 3},
		{EncoderCount: 4},
		{EncoderCount: 5},
	}
	if diff := cmp.Diff(want, b.Snapshot()); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}
}

func TestSlidingWindowBufferRetainsLastFullWindow(t *testing.T) {
	t.Parallel()

	b := NewSlidingWindowBuffer(DefaultWindowSize)
	total := DefaultWindowSize + 57
	for i := 0; i < total; i++ {
		b.Push(Sample{EncoderCount: float64(i)})
	}

	require.Equal(t, DefaultWindowSize, b.Len())
	window := b.Snapshot()
	for i, s := range window {
		assert.Equal(t, float64(total-DefaultWindowSize+i), s.EncoderCount)
	}
}

func TestSlidingWindowBufferSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	b := NewSlidingWindowBuffer(2)
	b.Push(Sample{EncoderCount: 1})
	b.Push(Sample{EncoderCount: 2})

	snap := b.Snapshot()
	b.Push(Sample{EncoderCount: 3})

	// Later pushes must not show up in an earlier snapshot.
	assert.Equal(t, []Sample{{EncoderCount: 1}, {EncoderCount: 2}}, snap)
}

func TestSlidingWindowBufferDefaultCapacity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultWindowSize, NewSlidingWindowBuffer(0).Capacity())
	assert.Equal(t, DefaultWindowSize, NewSlidingWindowBuffer(-5).Capacity())
}
