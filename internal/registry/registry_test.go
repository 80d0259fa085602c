package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/procscope/internal/domain"
)

type mockSource struct {
	snap *domain.Snapshot
	err  error
}

func (m *mockSource) Snapshot(_ context.Context) (*domain.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snap, nil
}

type signalCall struct {
	pid  int32
	kind domain.SignalKind
}

type priorityCall struct {
	pid  int32
	nice int
}

type mockController struct {
	signals    []signalCall
	priorities []priorityCall
	err        error
}

func (m *mockController) Signal(pid int32, kind domain.SignalKind) error {
	if m.err != nil {
		return m.err
	}
	m.signals = append(m.signals, signalCall{pid: pid, kind: kind})
	return nil
}

func (m *mockController) SetPriority(pid int32, nice int) error {
	if m.err != nil {
		return m.err
	}
	m.priorities = append(m.priorities, priorityCall{pid: pid, nice: nice})
	return nil
}

func snapOf(records ...domain.ProcessRecord) *domain.Snapshot {
	return &domain.Snapshot{
		TakenAt:   time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		Processes: records,
	}
}

func newTestRegistry(snap *domain.Snapshot) (*Registry, *mockSource, *mockController) {
	source := &mockSource{snap: snap}
	controller := &mockController{}
	return NewRegistry(source, controller, zap.NewNop()), source, controller
}

// TestRefreshSortsByCPUDescendingByDefault verifies a fresh registry
// orders the table hottest first.
func TestRefreshSortsByCPUDescendingByDefault(t *testing.T) {
	reg, _, _ := newTestRegistry(snapOf(
		domain.ProcessRecord{PID: 1, Name: "idle", CPUPercent: 1},
		domain.ProcessRecord{PID: 2, Name: "busy", CPUPercent: 90},
		domain.ProcessRecord{PID: 3, Name: "mid", CPUPercent: 40},
	))

	require.NoError(t, reg.Refresh(context.Background()))

	visible := reg.Visible()
	require.Len(t, visible, 3)
	assert.Equal(t, "busy", visible[0].Name)
	assert.Equal(t, "mid", visible[1].Name)
	assert.Equal(t, "idle", visible[2].Name)
}

// TestRefreshErrorRetainsPreviousTable verifies a failed snapshot
// leaves both the table and the latest snapshot untouched.
func TestRefreshErrorRetainsPreviousTable(t *testing.T) {
	reg, source, _ := newTestRegistry(snapOf(
		domain.ProcessRecord{PID: 1, Name: "nginx", CPUPercent: 10},
	))
	require.NoError(t, reg.Refresh(context.Background()))
	require.Len(t, reg.Visible(), 1)

	source.err = errors.New("proc unavailable")
	err := reg.Refresh(context.Background())

	require.Error(t, err)
	assert.Len(t, reg.Visible(), 1)
	require.NotNil(t, reg.Latest())
	assert.Equal(t, "nginx", reg.Visible()[0].Name)
}

// TestRefreshEmptySnapshot verifies an empty process list yields an
// empty table without error.
func TestRefreshEmptySnapshot(t *testing.T) {
	reg, _, _ := newTestRegistry(snapOf())

	require.NoError(t, reg.Refresh(context.Background()))

	assert.Empty(t, reg.Visible())
	assert.Empty(t, reg.PIDSet())
}

// TestSetSortReordersExistingTable verifies changing the sort key
// reorders without a new snapshot.
func TestSetSortReordersExistingTable(t *testing.T) {
	reg, _, _ := newTestRegistry(snapOf(
		domain.ProcessRecord{PID: 30, CPUPercent: 5},
		domain.ProcessRecord{PID: 10, CPUPercent: 50},
		domain.ProcessRecord{PID: 20, CPUPercent: 25},
	))
	require.NoError(t, reg.Refresh(context.Background()))

	reg.SetSort(domain.SortPID, true)

	assert.Equal(t, []int32{10, 20, 30}, pids(reg.Visible()))
	assert.Equal(t, domain.SortPID, reg.SortKey())
	assert.True(t, reg.Ascending())
}

// TestSetFilterNarrowsByPIDSubstring verifies pid filtering against
// the decimal representation.
func TestSetFilterNarrowsByPIDSubstring(t *testing.T) {
	reg, _, _ := newTestRegistry(snapOf(
		domain.ProcessRecord{PID: 123, Name: "a"},
		domain.ProcessRecord{PID: 234, Name: "b"},
		domain.ProcessRecord{PID: 345, Name: "c"},
	))
	require.NoError(t, reg.Refresh(context.Background()))

	reg.SetFilter(domain.FilterPID, "23")

	assert.Equal(t, []int32{123, 234}, pids(reg.Visible()))

	reg.ClearFilter()
	assert.Len(t, reg.Visible(), 3)
}

// TestRuleAndFilterBothRestrict verifies a row must pass the filter
// and the rule to stay visible.
func TestRuleAndFilterBothRestrict(t *testing.T) {
	reg, _, _ := newTestRegistry(snapOf(
		domain.ProcessRecord{PID: 1, Name: "nginx", CPUPercent: 80},
		domain.ProcessRecord{PID: 2, Name: "nginx", CPUPercent: 10},
		domain.ProcessRecord{PID: 3, Name: "postgres", CPUPercent: 95},
	))
	require.NoError(t, reg.Refresh(context.Background()))

	reg.SetFilter(domain.FilterName, "nginx")
	require.NoError(t, reg.SetRule("cpu > 50"))

	visible := reg.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, int32(1), visible[0].PID)

	reg.ClearRule()
	assert.Len(t, reg.Visible(), 2)
}

// TestSetRuleMalformedExcludesAllRows verifies a rule that fails to
// compile empties the table and reports the error.
func TestSetRuleMalformedExcludesAllRows(t *testing.T) {
	reg, _, _ := newTestRegistry(snapOf(
		domain.ProcessRecord{PID: 1, Name: "nginx", CPUPercent: 80},
	))
	require.NoError(t, reg.Refresh(context.Background()))

	err := reg.SetRule("cpu >")

	require.Error(t, err)
	assert.Empty(t, reg.Visible())
	assert.Error(t, reg.RuleErr())
	assert.Equal(t, "cpu >", reg.RuleSource())

	reg.ClearRule()
	assert.Len(t, reg.Visible(), 1)
	assert.NoError(t, reg.RuleErr())
}

// TestSetPriorityRejectsOutOfRange verifies the nice bounds are
// enforced before any syscall.
func TestSetPriorityRejectsOutOfRange(t *testing.T) {
	reg, _, controller := newTestRegistry(snapOf())

	err := reg.SetPriority(42, 25)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = reg.SetPriority(42, -21)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Empty(t, controller.priorities)
}

// TestSetPriorityPermissionDenied verifies OS-level refusals surface
// unchanged.
func TestSetPriorityPermissionDenied(t *testing.T) {
	reg, _, controller := newTestRegistry(snapOf())
	controller.err = domain.ErrPermissionDenied

	err := reg.SetPriority(42, -5)

	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

// TestSetPriorityDispatchesValidRequest verifies an in-range nice
// value reaches the controller.
func TestSetPriorityDispatchesValidRequest(t *testing.T) {
	reg, _, controller := newTestRegistry(snapOf())

	require.NoError(t, reg.SetPriority(42, 10))

	require.Len(t, controller.priorities, 1)
	assert.Equal(t, priorityCall{pid: 42, nice: 10}, controller.priorities[0])
}

// TestSignalDispatch verifies signals pass through to the controller
// with the requested kind.
func TestSignalDispatch(t *testing.T) {
	reg, _, controller := newTestRegistry(snapOf())

	require.NoError(t, reg.Signal(42, domain.SignalTerminate))

	require.Len(t, controller.signals, 1)
	assert.Equal(t, signalCall{pid: 42, kind: domain.SignalTerminate}, controller.signals[0])
}

// TestSignalNotFound verifies a vanished pid surfaces the not found
// sentinel from the controller.
func TestSignalNotFound(t *testing.T) {
	reg, _, controller := newTestRegistry(snapOf())
	controller.err = domain.ErrNotFound

	err := reg.Signal(99999, domain.SignalKill)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestLookupsBeforeFirstRefresh verifies the registry is usable before
// any snapshot has been taken.
func TestLookupsBeforeFirstRefresh(t *testing.T) {
	reg, _, _ := newTestRegistry(nil)

	assert.Empty(t, reg.Visible())
	assert.Empty(t, reg.PIDSet())
	assert.Empty(t, reg.ByPID())
	assert.Nil(t, reg.Latest())
}
