package nozzle

// DefaultWindowSize is the number of samples summarized into one feature
// vector. The pre-fitted artifacts were trained on 200-sample windows, so
// overriding this requires retrained artifacts.
const DefaultWindowSize = 200

// SlidingWindowBuffer holds the most recent capacity samples in arrival
// order. Push appends and evicts from the front once capacity is exceeded;
// the buffer never grows past capacity.
type SlidingWindowBuffer struct {
	capacity int
	samples  []Sample
}

// NewSlidingWindowBuffer creates a buffer with the given capacity.
// Non-positive capacities fall back to DefaultWindowSize.
func NewSlidingWindowBuffer(capacity int) *SlidingWindowBuffer {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &SlidingWindowBuffer{
		capacity: capacity,
		samples:  make([]Sample, 0, capacity),
	}
}

// Push appends a sample, dropping the oldest entries if the buffer would
// exceed its capacity. Arrival order of the retained suffix is preserved.
func (b *SlidingWindowBuffer) Push(s Sample) {
	b.samples = append(b.samples, s)
	if excess := len(b.samples) - b.capacity; excess > 0 {
		b.samples = append(b.samples[:0], b.samples[excess:]...)
	}
}

// Len returns the current number of buffered samples.
func (b *SlidingWindowBuffer) Len() int { return len(b.samples) }

// Capacity returns the configured window size.
func (b *SlidingWindowBuffer) Capacity() int { return b.capacity }

// IsFull reports whether the buffer holds exactly its capacity. Feature
// extraction fires only on a full window.
func (b *SlidingWindowBuffer) IsFull() bool { return len(b.samples) == b.capacity }

// Snapshot returns a copy of the buffered samples, oldest first. Downstream
// feature computation works on the copy so it never observes later pushes.
func (b *SlidingWindowBuffer) Snapshot() []Sample {
	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}
