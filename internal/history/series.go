// Package history retains bounded CPU and memory time series at
// system-wide, per-core, and per-process granularity.
package history

// Series is a fixed-capacity sequence of samples in chronological
// order. Appending at capacity evicts the oldest sample first.
type Series[T any] struct {
	capacity int
	samples  []T
}

// NewSeries creates a series bounded at capacity samples.
func NewSeries[T any](capacity int) *Series[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Series[T]{
		capacity: capacity,
		samples:  make([]T, 0, capacity),
	}
}

// Push appends one sample, evicting the oldest first when full.
func (s *Series[T]) Push(v T) {
	if len(s.samples) == s.capacity {
		copy(s.samples, s.samples[1:])
		s.samples = s.samples[:len(s.samples)-1]
	}
	s.samples = append(s.samples, v)
}

// Values returns a copy of the retained samples, oldest first.
func (s *Series[T]) Values() []T {
	out := make([]T, len(s.samples))
	copy(out, s.samples)
	return out
}

// Len returns the number of retained samples.
func (s *Series[T]) Len() int {
	return len(s.samples)
}

// Latest returns the newest sample, if any.
func (s *Series[T]) Latest() (T, bool) {
	if len(s.samples) == 0 {
		var zero T
		return zero, false
	}
	return s.samples[len(s.samples)-1], true
}

// Stats are min/max/average/current over one returned sequence.
// Derived on demand from the full sequence; the store caches nothing.
type Stats struct {
	Min     float64
	Max     float64
	Avg     float64
	Current float64
}

// ComputeStats derives Stats over values, oldest first.
func ComputeStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	st := Stats{
		Min:     values[0],
		Max:     values[0],
		Current: values[len(values)-1],
	}
	var sum float64
	for _, v := range values {
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
		sum += v
	}
	st.Avg = sum / float64(len(values))
	return st
}
