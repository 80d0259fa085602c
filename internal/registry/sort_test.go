package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/procscope/internal/domain"
)

// TestSortRecordsByCPUDescending verifies the default ordering places
// the hottest process first.
func TestSortRecordsByCPUDescending(t *testing.T) {
	records := []domain.ProcessRecord{
		{PID: 1, CPUPercent: 10},
		{PID: 2, CPUPercent: 50},
		{PID: 3, CPUPercent: 30},
	}

	sortRecords(records, domain.SortCPU, false)

	assert.Equal(t, int32(2), records[0].PID)
	assert.Equal(t, int32(3), records[1].PID)
	assert.Equal(t, int32(1), records[2].PID)
}

// TestSortRecordsAscendingNonDecreasing verifies that every adjacent
// pair respects the ascending order for the memory key.
func TestSortRecordsAscendingNonDecreasing(t *testing.T) {
	records := []domain.ProcessRecord{
		{PID: 1, MemoryBytes: 500},
		{PID: 2, MemoryBytes: 100},
		{PID: 3, MemoryBytes: 900},
		{PID: 4, MemoryBytes: 100},
	}

	sortRecords(records, domain.SortMem, true)

	for i := 1; i < len(records); i++ {
		assert.LessOrEqual(t, records[i-1].MemoryBytes, records[i].MemoryBytes)
	}
}

// TestSortRecordsIdempotent verifies that sorting an already sorted
// slice leaves the order unchanged.
func TestSortRecordsIdempotent(t *testing.T) {
	records := []domain.ProcessRecord{
		{PID: 4, CPUPercent: 20},
		{PID: 1, CPUPercent: 20},
		{PID: 3, CPUPercent: 80},
		{PID: 2, CPUPercent: 5},
	}

	sortRecords(records, domain.SortCPU, false)
	first := make([]domain.ProcessRecord, len(records))
	copy(first, records)

	sortRecords(records, domain.SortCPU, false)

	assert.Equal(t, first, records)
}

// TestSortRecordsStartCompareFormattedClock verifies the start key
// orders by the formatted HH:MM:SS text.
func TestSortRecordsStartCompareFormattedClock(t *testing.T) {
	records := []domain.ProcessRecord{
		{PID: 1, StartClock: "23:59:59"},
		{PID: 2, StartClock: "09:00:00"},
		{PID: 3, StartClock: "10:30:00"},
	}

	sortRecords(records, domain.SortStart, true)

	require.Len(t, records, 3)
	assert.Equal(t, "09:00:00", records[0].StartClock)
	assert.Equal(t, "10:30:00", records[1].StartClock)
	assert.Equal(t, "23:59:59", records[2].StartClock)
}

// TestSortRecordsTieBreakByPID verifies equal keys fall back to PID
// order in both directions.
func TestSortRecordsTieBreakByPID(t *testing.T) {
	records := []domain.ProcessRecord{
		{PID: 9, Nice: 0},
		{PID: 3, Nice: 0},
		{PID: 6, Nice: 0},
	}

	sortRecords(records, domain.SortNice, true)
	assert.Equal(t, []int32{3, 6, 9}, pids(records))

	sortRecords(records, domain.SortNice, false)
	assert.Equal(t, []int32{3, 6, 9}, pids(records))
}

func pids(records []domain.ProcessRecord) []int32 {
	out := make([]int32, len(records))
	for i, r := range records {
		out[i] = r.PID
	}
	return out
}
