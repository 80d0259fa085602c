// Package engine ties the registry, history store, and exit log into
// one periodically ticking core with a single lock in front of it.
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/procscope/internal/domain"
	"github.com/eliteGoblin/procscope/internal/history"
	"github.com/eliteGoblin/procscope/internal/lifecycle"
	"github.com/eliteGoblin/procscope/internal/registry"
)

// Config holds the engine cadence and retention settings.
type Config struct {
	RefreshInterval time.Duration // how often Run ticks
	HistoryInterval time.Duration // minimum spacing between history points
	HistoryPoints   int           // points retained per series
	ExitLogCapacity int           // exit records retained
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		RefreshInterval: time.Second,
		HistoryInterval: time.Second,
		HistoryPoints:   60,
		ExitLogCapacity: 100,
	}
}

// Engine owns the telemetry core. Every public method takes the
// engine lock, so the registry, store, and exit log below it stay
// single-threaded and callers never observe a half-applied tick.
type Engine struct {
	mu       sync.Mutex
	config   Config
	registry *registry.Registry
	store    *history.Store
	exits    *lifecycle.Log
	logger   *zap.Logger
}

// NewEngine creates an engine reading snapshots from source and
// dispatching process control through controller.
func NewEngine(config Config, source domain.SnapshotSource, controller domain.ProcessController, logger *zap.Logger) *Engine {
	return &Engine{
		config:   config,
		registry: registry.NewRegistry(source, controller, logger),
		store:    history.NewStore(config.HistoryPoints, config.HistoryInterval),
		exits:    lifecycle.NewLog(config.ExitLogCapacity, logger),
		logger:   logger,
	}
}

// NewEngineWithSink creates an engine that additionally exports every
// detected exit to sink.
func NewEngineWithSink(config Config, source domain.SnapshotSource, controller domain.ProcessController, sink domain.ExitSink, logger *zap.Logger) *Engine {
	e := NewEngine(config, source, controller, logger)
	e.exits = lifecycle.NewLogWithSink(config.ExitLogCapacity, sink, logger)
	return e
}

// Tick runs one full cycle: snapshot, rebuild the visible table,
// detect exits against the previous snapshot, and append history. On
// snapshot failure the previous table is retained, nothing else
// advances, and the error is returned for the caller to log.
func (e *Engine) Tick(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	hadPrevious := e.registry.Latest() != nil
	previous := e.registry.ByPID()

	if err := e.registry.Refresh(ctx); err != nil {
		return err
	}

	snap := e.registry.Latest()
	if hadPrevious {
		exited := e.exits.DetectExits(previous, snap.PIDSet(), snap.TakenAt)
		for _, rec := range exited {
			e.logger.Info("process exited",
				zap.Int32("pid", rec.PID),
				zap.String("name", rec.Name),
				zap.Uint64("uptime_secs", rec.UptimeSecs))
		}
	}

	e.store.Observe(snap.TakenAt, snap)
	return nil
}

// Run ticks the engine on the configured refresh interval until the
// context is canceled. The first tick runs immediately.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started",
		zap.Duration("refresh_interval", e.config.RefreshInterval),
		zap.Int("history_points", e.config.HistoryPoints))

	if err := e.Tick(ctx); err != nil {
		e.logger.Warn("snapshot failed, keeping previous table", zap.Error(err))
	}

	ticker := time.NewTicker(e.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping")
			return ctx.Err()

		case <-ticker.C:
			if err := e.Tick(ctx); err != nil {
				e.logger.Warn("snapshot failed, keeping previous table", zap.Error(err))
			}
		}
	}
}

// Visible returns the current process table, filtered and sorted.
func (e *Engine) Visible() []domain.ProcessRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Visible()
}

// Latest returns the most recent successful snapshot, or nil before
// the first tick.
func (e *Engine) Latest() *domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Latest()
}

// SetSort changes the sort key and direction.
func (e *Engine) SetSort(key domain.SortKey, ascending bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.SetSort(key, ascending)
}

// SortKey returns the active sort key.
func (e *Engine) SortKey() domain.SortKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.SortKey()
}

// Ascending reports the active sort direction.
func (e *Engine) Ascending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Ascending()
}

// SetFilter installs a substring filter on the visible table.
func (e *Engine) SetFilter(mode domain.FilterMode, query string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.SetFilter(mode, query)
}

// ClearFilter removes the filter.
func (e *Engine) ClearFilter() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.ClearFilter()
}

// CurrentFilter returns the active filter.
func (e *Engine) CurrentFilter() registry.Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.CurrentFilter()
}

// SetRule installs a row predicate expression. A rule that fails to
// compile is installed anyway and excludes every row; the compile
// error is returned for display.
func (e *Engine) SetRule(source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.SetRule(source)
}

// ClearRule removes the row predicate.
func (e *Engine) ClearRule() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.ClearRule()
}

// RuleSource returns the active rule text, or empty when none is set.
func (e *Engine) RuleSource() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.RuleSource()
}

// RuleErr returns the active rule's compile error, if any.
func (e *Engine) RuleErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.RuleErr()
}

// Signal delivers the mapped OS signal to pid.
func (e *Engine) Signal(pid int32, kind domain.SignalKind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Signal(pid, kind)
}

// SetPriority renices pid after range validation.
func (e *Engine) SetPriority(pid int32, nice int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.SetPriority(pid, nice)
}

// GlobalHistory returns the system-wide CPU and memory series.
func (e *Engine) GlobalHistory() []history.GlobalSample {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.GlobalHistory()
}

// CoreHistories returns the per-core usage series, one per core.
func (e *Engine) CoreHistories() [][]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.CoreHistories()
}

// CoreUsage returns the latest per-core usage percentages.
func (e *Engine) CoreUsage() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.CoreUsage()
}

// ProcessHistory returns the retained series for pid, reporting
// whether the pid is tracked.
func (e *Engine) ProcessHistory(pid int32) ([]history.ProcessSample, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ProcessHistory(pid)
}

// ExitLog returns the retained exit records, oldest first.
func (e *Engine) ExitLog() []domain.ExitRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exits.Entries()
}

// ExitsFiltered returns exit records matching query by name, user, or
// decimal PID substring.
func (e *Engine) ExitsFiltered(query string) []domain.ExitRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exits.Filtered(query)
}

// ExitsGrouped aggregates exit records by the given mode.
func (e *Engine) ExitsGrouped(mode lifecycle.GroupMode) []lifecycle.Group {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exits.Grouped(mode)
}
