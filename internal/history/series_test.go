package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSeries_PushWithinCapacity verifies samples accumulate in order below capacity
func TestSeries_PushWithinCapacity(t *testing.T) {
	s := NewSeries[int](5)

	s.Push(1)
	s.Push(2)
	s.Push(3)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []int{1, 2, 3}, s.Values())
}

// TestSeries_FIFOEviction verifies the oldest sample is evicted once at capacity
func TestSeries_FIFOEviction(t *testing.T) {
	s := NewSeries[int](3)

	for i := 1; i <= 5; i++ {
		s.Push(i)
		assert.LessOrEqual(t, s.Len(), 3)
	}

	assert.Equal(t, []int{3, 4, 5}, s.Values())
}

// TestSeries_ValuesReturnsCopy verifies callers cannot corrupt retained samples
func TestSeries_ValuesReturnsCopy(t *testing.T) {
	s := NewSeries[int](3)
	s.Push(1)
	s.Push(2)

	values := s.Values()
	values[0] = 99

	assert.Equal(t, []int{1, 2}, s.Values())
}

// TestSeries_Latest verifies the newest sample is reported
func TestSeries_Latest(t *testing.T) {
	s := NewSeries[float64](3)

	_, ok := s.Latest()
	assert.False(t, ok)

	s.Push(1.5)
	s.Push(2.5)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, 2.5, latest)
}

// TestNewSeries_MinimumCapacity verifies a non-positive capacity is clamped to one
func TestNewSeries_MinimumCapacity(t *testing.T) {
	s := NewSeries[int](0)

	s.Push(1)
	s.Push(2)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []int{2}, s.Values())
}

// TestComputeStats verifies derived statistics over a sequence
func TestComputeStats(t *testing.T) {
	st := ComputeStats([]float64{2, 8, 5})

	assert.Equal(t, 2.0, st.Min)
	assert.Equal(t, 8.0, st.Max)
	assert.InDelta(t, 5.0, st.Avg, 1e-9)
	assert.Equal(t, 5.0, st.Current)
}

// TestComputeStats_Empty verifies an empty sequence yields zero stats
func TestComputeStats_Empty(t *testing.T) {
	st := ComputeStats(nil)

	assert.Zero(t, st.Min)
	assert.Zero(t, st.Max)
	assert.Zero(t, st.Avg)
	assert.Zero(t, st.Current)
}
