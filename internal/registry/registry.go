// Package registry maintains the visible process table: the latest
// snapshot narrowed by the active filter and rule, ordered by the
// active sort key.
package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/procscope/internal/domain"
	"github.com/eliteGoblin/procscope/internal/rules"
)

// Registry owns the view state over process snapshots and dispatches
// process control operations. It is not safe for concurrent use; the
// engine serializes access to it.
type Registry struct {
	source     domain.SnapshotSource
	controller domain.ProcessController
	logger     *zap.Logger

	latest    *domain.Snapshot
	visible   []domain.ProcessRecord
	sortKey   domain.SortKey
	ascending bool
	filter    Filter
	rule      *rules.Rule
}

// NewRegistry creates a registry sorted by CPU descending with no
// filter and no rule installed.
func NewRegistry(source domain.SnapshotSource, controller domain.ProcessController, logger *zap.Logger) *Registry {
	return &Registry{
		source:     source,
		controller: controller,
		logger:     logger,
		sortKey:    domain.SortCPU,
		ascending:  false,
		filter:     Filter{Mode: domain.FilterName},
	}
}

// Refresh takes a fresh snapshot and rebuilds the visible table. On
// snapshot failure the previous snapshot and table are retained and
// the error is returned.
func (r *Registry) Refresh(ctx context.Context) error {
	snap, err := r.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("refresh snapshot: %w", err)
	}
	r.latest = snap
	r.rebuild()
	return nil
}

func (r *Registry) rebuild() {
	if r.latest == nil {
		r.visible = nil
		return
	}
	visible := make([]domain.ProcessRecord, 0, len(r.latest.Processes))
	for _, rec := range r.latest.Processes {
		if !r.filter.Matches(rec) {
			continue
		}
		if r.rule != nil && !r.rule.Include(rec) {
			continue
		}
		visible = append(visible, rec)
	}
	sortRecords(visible, r.sortKey, r.ascending)
	r.visible = visible
}

// SetSort changes the sort key and direction and reorders the table.
func (r *Registry) SetSort(key domain.SortKey, ascending bool) {
	r.sortKey = key
	r.ascending = ascending
	r.rebuild()
}

// SetFilter installs a substring filter and rebuilds the table.
func (r *Registry) SetFilter(mode domain.FilterMode, query string) {
	r.filter = Filter{Mode: mode, Query: query}
	r.rebuild()
}

// ClearFilter removes the filter and rebuilds the table.
func (r *Registry) ClearFilter() {
	r.filter = Filter{Mode: domain.FilterName}
	r.rebuild()
}

// SetRule compiles and installs source as the row predicate and
// rebuilds the table. A rule that fails to compile is still installed,
// excluding every row, and the compile error is returned for display.
func (r *Registry) SetRule(source string) error {
	rule := rules.Compile(source)
	r.rule = rule
	r.rebuild()
	if err := rule.Err(); err != nil {
		r.logger.Warn("rule rejected", zap.String("rule", source), zap.Error(err))
		return err
	}
	return nil
}

// ClearRule removes the row predicate and rebuilds the table.
func (r *Registry) ClearRule() {
	r.rule = nil
	r.rebuild()
}

// Signal delivers the mapped OS signal to pid.
func (r *Registry) Signal(pid int32, kind domain.SignalKind) error {
	return r.controller.Signal(pid, kind)
}

// SetPriority renices pid. The requested value is validated against
// the OS nice range before any syscall is attempted.
func (r *Registry) SetPriority(pid int32, nice int) error {
	if nice < domain.NiceMin || nice > domain.NiceMax {
		return fmt.Errorf("nice %d out of range [%d, %d]: %w",
			nice, domain.NiceMin, domain.NiceMax, domain.ErrInvalidInput)
	}
	return r.controller.SetPriority(pid, nice)
}

// Visible returns a copy of the current table, filtered and sorted.
func (r *Registry) Visible() []domain.ProcessRecord {
	out := make([]domain.ProcessRecord, len(r.visible))
	copy(out, r.visible)
	return out
}

// Latest returns the most recent successful snapshot, or nil before
// the first refresh.
func (r *Registry) Latest() *domain.Snapshot {
	return r.latest
}

// PIDSet returns the PID membership of the latest snapshot.
func (r *Registry) PIDSet() map[int32]struct{} {
	if r.latest == nil {
		return map[int32]struct{}{}
	}
	return r.latest.PIDSet()
}

// ByPID returns the latest snapshot indexed by PID.
func (r *Registry) ByPID() map[int32]domain.ProcessRecord {
	if r.latest == nil {
		return map[int32]domain.ProcessRecord{}
	}
	return r.latest.ByPID()
}

// SortKey returns the active sort key.
func (r *Registry) SortKey() domain.SortKey {
	return r.sortKey
}

// Ascending reports the active sort direction.
func (r *Registry) Ascending() bool {
	return r.ascending
}

// CurrentFilter returns the active filter.
func (r *Registry) CurrentFilter() Filter {
	return r.filter
}

// RuleSource returns the source text of the installed rule, or the
// empty string when none is installed.
func (r *Registry) RuleSource() string {
	if r.rule == nil {
		return ""
	}
	return r.rule.Source()
}

// RuleErr returns the compile error of the installed rule, if any.
func (r *Registry) RuleErr() error {
	if r.rule == nil {
		return nil
	}
	return r.rule.Err()
}
