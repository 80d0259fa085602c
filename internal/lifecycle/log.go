// Package lifecycle detects process exits between snapshots and keeps
// a bounded audit trail with computed uptimes.
package lifecycle

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/procscope/internal/domain"
)

// GroupMode selects how exit entries are aggregated for presentation.
type GroupMode string

const (
	GroupNone   GroupMode = "none"
	GroupByName GroupMode = "name"
	GroupByUser GroupMode = "user"
)

// Group is an on-demand aggregation of exit entries sharing a key.
type Group struct {
	Key             string
	Count           int
	TotalUptimeSecs uint64
	LastExit        time.Time
}

// Log is the bounded FIFO of exit records. Entries are immutable once
// appended; overflow drops the oldest entry first.
type Log struct {
	capacity int
	entries  []domain.ExitRecord
	sink     domain.ExitSink
	logger   *zap.Logger
}

// NewLog creates a log retaining at most capacity entries.
func NewLog(capacity int, logger *zap.Logger) *Log {
	if capacity < 1 {
		capacity = 1
	}
	return &Log{capacity: capacity, logger: logger}
}

// NewLogWithSink creates a log that additionally exports every
// appended entry to sink. Sink failures are logged and never disturb
// the log itself.
func NewLogWithSink(capacity int, sink domain.ExitSink, logger *zap.Logger) *Log {
	l := NewLog(capacity, logger)
	l.sink = sink
	return l
}

// DetectExits computes the set difference previous minus current and
// appends one exit record per vanished PID, looking up the last known
// record from the previous snapshot. Vanished PIDs are processed in
// ascending order so repeated runs are deterministic. The appended
// records are returned.
func (l *Log) DetectExits(previous map[int32]domain.ProcessRecord, current map[int32]struct{}, exitTime time.Time) []domain.ExitRecord {
	var vanished []int32
	for pid := range previous {
		if _, ok := current[pid]; !ok {
			vanished = append(vanished, pid)
		}
	}
	sort.Slice(vanished, func(i, j int) bool { return vanished[i] < vanished[j] })

	appended := make([]domain.ExitRecord, 0, len(vanished))
	for _, pid := range vanished {
		last := previous[pid]
		rec := domain.ExitRecord{
			PID:        pid,
			Name:       last.Name,
			User:       last.User,
			StartClock: last.StartClock,
			ExitTime:   exitTime,
			UptimeSecs: uptimeSecs(last.StartClock, exitTime),
		}
		l.append(rec)
		appended = append(appended, rec)
	}
	return appended
}

func (l *Log) append(rec domain.ExitRecord) {
	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, rec)

	if l.sink != nil {
		if err := l.sink.Record(rec); err != nil {
			l.logger.Warn("exit sink write failed",
				zap.Int32("pid", rec.PID),
				zap.Error(err))
		}
	}
}

// uptimeSecs derives uptime from the formatted start clock, assuming
// the process started on the day it exited. An unparseable start time
// yields zero; the exit is still recorded.
func uptimeSecs(startClock string, exitTime time.Time) uint64 {
	parsed, err := time.Parse("15:04:05", startClock)
	if err != nil {
		return 0
	}
	start := time.Date(exitTime.Year(), exitTime.Month(), exitTime.Day(),
		parsed.Hour(), parsed.Minute(), parsed.Second(), 0, exitTime.Location())
	lived := exitTime.Sub(start)
	if lived < 0 {
		return 0
	}
	return uint64(lived / time.Second)
}

// Entries returns the retained exit records, oldest first.
func (l *Log) Entries() []domain.ExitRecord {
	out := make([]domain.ExitRecord, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Filtered returns entries whose name, user, or decimal PID contains
// query. Matching is case-insensitive; the empty query returns all
// entries. The underlying log is never mutated.
func (l *Log) Filtered(query string) []domain.ExitRecord {
	if query == "" {
		return l.Entries()
	}
	q := strings.ToLower(query)
	var out []domain.ExitRecord
	for _, e := range l.entries {
		if strings.Contains(strings.ToLower(e.Name), q) ||
			strings.Contains(strings.ToLower(e.User), q) ||
			strings.Contains(strconv.FormatInt(int64(e.PID), 10), q) {
			out = append(out, e)
		}
	}
	return out
}

// Grouped aggregates the retained entries by the mode key, computed on
// demand. Groups are ordered by count descending, key ascending on
// ties. GroupNone returns nil.
func (l *Log) Grouped(mode GroupMode) []Group {
	var key func(domain.ExitRecord) string
	switch mode {
	case GroupByName:
		key = func(e domain.ExitRecord) string { return e.Name }
	case GroupByUser:
		key = func(e domain.ExitRecord) string { return e.User }
	default:
		return nil
	}

	byKey := make(map[string]*Group)
	for _, e := range l.entries {
		k := key(e)
		g, ok := byKey[k]
		if !ok {
			g = &Group{Key: k}
			byKey[k] = g
		}
		g.Count++
		g.TotalUptimeSecs += e.UptimeSecs
		if e.ExitTime.After(g.LastExit) {
			g.LastExit = e.ExitTime
		}
	}

	groups := make([]Group, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}
