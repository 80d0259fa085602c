package registry

import (
	"sort"
	"strings"

	"github.com/eliteGoblin/procscope/internal/domain"
)

// sortRecords orders records by key with PID as the tie-break, so the
// ordering is total and re-sorting an already sorted slice changes
// nothing. The start key compares the formatted clock strings, the
// same text the column displays.
func sortRecords(records []domain.ProcessRecord, key domain.SortKey, ascending bool) {
	cmp := comparator(key)
	sort.SliceStable(records, func(i, j int) bool {
		c := cmp(records[i], records[j])
		if c == 0 {
			return records[i].PID < records[j].PID
		}
		if ascending {
			return c < 0
		}
		return c > 0
	})
}

func comparator(key domain.SortKey) func(a, b domain.ProcessRecord) int {
	switch key {
	case domain.SortCPU:
		return func(a, b domain.ProcessRecord) int { return compareFloat(a.CPUPercent, b.CPUPercent) }
	case domain.SortMem:
		return func(a, b domain.ProcessRecord) int { return compareUint(a.MemoryBytes, b.MemoryBytes) }
	case domain.SortPPID:
		return func(a, b domain.ProcessRecord) int { return compareInt(int64(a.ParentPID), int64(b.ParentPID)) }
	case domain.SortNice:
		return func(a, b domain.ProcessRecord) int { return compareInt(int64(a.Nice), int64(b.Nice)) }
	case domain.SortStart:
		return func(a, b domain.ProcessRecord) int { return strings.Compare(a.StartClock, b.StartClock) }
	default:
		return func(a, b domain.ProcessRecord) int { return compareInt(int64(a.PID), int64(b.PID)) }
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
