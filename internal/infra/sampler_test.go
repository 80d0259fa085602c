package infra

import (
	"context"
	"os"
	"testing"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/procscope/internal/domain"
)

// TestMapStatus verifies the fold from gopsutil status strings onto
// the coarse scheduler states.
func TestMapStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     domain.ProcessStatus
	}{
		{name: "running", statuses: []string{process.Running}, want: domain.StatusRunning},
		{name: "sleep", statuses: []string{process.Sleep}, want: domain.StatusSleeping},
		{name: "idle counts as sleeping", statuses: []string{process.Idle}, want: domain.StatusSleeping},
		{name: "stop", statuses: []string{process.Stop}, want: domain.StatusStopped},
		{name: "zombie", statuses: []string{process.Zombie}, want: domain.StatusZombie},
		{name: "unknown", statuses: []string{"weird"}, want: domain.StatusOther},
		{name: "empty", statuses: nil, want: domain.StatusOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapStatus(tt.statuses))
		})
	}
}

// TestSnapshotIncludesSelf verifies a live snapshot lists the test
// process itself with a name and carries per-core counters and memory
// totals.
func TestSnapshotIncludesSelf(t *testing.T) {
	sampler := NewSystemSampler(zap.NewNop())

	snap, err := sampler.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	self := int32(os.Getpid())
	byPID := snap.ByPID()
	rec, ok := byPID[self]
	require.True(t, ok, "own pid missing from snapshot")
	assert.NotEmpty(t, rec.Name)
	assert.NotEmpty(t, rec.StartClock)

	assert.NotEmpty(t, snap.Cores)
	for _, c := range snap.Cores {
		assert.GreaterOrEqual(t, c.Total, c.Idle)
	}
	assert.Greater(t, snap.Memory.TotalBytes, uint64(0))
	assert.False(t, snap.TakenAt.IsZero())
}

// TestHandlesPrunedWithProcessChurn verifies handles for vanished PIDs
// are dropped between snapshots.
func TestHandlesPrunedWithProcessChurn(t *testing.T) {
	sampler := NewSystemSampler(zap.NewNop())
	sampler.handles[99999999] = &process.Process{Pid: 99999999}

	_, err := sampler.Snapshot(context.Background())
	require.NoError(t, err)

	_, ok := sampler.handles[99999999]
	assert.False(t, ok, "stale handle survived snapshot")

	_, ok = sampler.handles[int32(os.Getpid())]
	assert.True(t, ok, "live handle should be retained")
}
