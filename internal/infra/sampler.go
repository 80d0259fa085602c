// Package infra implements infrastructure adapters: the gopsutil
// snapshot sampler, the signal and priority controller, the encrypted
// exit audit sink, and the key file provider.
package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/eliteGoblin/procscope/internal/domain"
)

// SystemSampler implements domain.SnapshotSource using gopsutil. It
// keeps one process handle per PID across snapshots; gopsutil computes
// CPU percent from the counters accumulated on the handle since the
// previous call, so handles must survive between ticks.
type SystemSampler struct {
	handles  map[int32]*process.Process
	bootSecs uint64
	logger   *zap.Logger
}

// NewSystemSampler creates a sampler. Boot time is read once; it does
// not change for the life of the host.
func NewSystemSampler(logger *zap.Logger) *SystemSampler {
	boot, err := host.BootTime()
	if err != nil {
		logger.Warn("boot time unavailable, process start offsets will be zero", zap.Error(err))
		boot = 0
	}
	return &SystemSampler{
		handles:  make(map[int32]*process.Process),
		bootSecs: boot,
		logger:   logger,
	}
}

// Snapshot enumerates the process table and reads the system-wide
// counters. Processes that exit between listing and sampling are
// skipped silently.
func (s *SystemSampler) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pids: %w", err)
	}

	snap := &domain.Snapshot{
		TakenAt:   time.Now(),
		Processes: make([]domain.ProcessRecord, 0, len(pids)),
	}

	live := make(map[int32]struct{}, len(pids))
	for _, pid := range pids {
		live[pid] = struct{}{}
		rec, ok := s.sampleProcess(ctx, pid)
		if !ok {
			continue
		}
		snap.Processes = append(snap.Processes, rec)
	}
	s.pruneHandles(live)

	if err := s.sampleSystem(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// sampleProcess reads one process. A missing name means the process is
// gone or unreadable and the record is dropped; any other field that
// fails to read keeps its zero value.
func (s *SystemSampler) sampleProcess(ctx context.Context, pid int32) (domain.ProcessRecord, bool) {
	p, ok := s.handles[pid]
	if !ok {
		var err error
		p, err = process.NewProcessWithContext(ctx, pid)
		if err != nil {
			return domain.ProcessRecord{}, false
		}
		s.handles[pid] = p
	}

	name, err := p.NameWithContext(ctx)
	if err != nil {
		delete(s.handles, pid)
		return domain.ProcessRecord{}, false
	}

	rec := domain.ProcessRecord{
		PID:    pid,
		Name:   name,
		Status: domain.StatusOther,
	}

	if pct, err := p.PercentWithContext(ctx, 0); err == nil {
		rec.CPUPercent = pct
	}
	if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
		rec.MemoryBytes = mi.RSS
	}
	if ppid, err := p.PpidWithContext(ctx); err == nil {
		rec.ParentPID = ppid
	}
	if createdMs, err := p.CreateTimeWithContext(ctx); err == nil && createdMs > 0 {
		started := time.UnixMilli(createdMs)
		rec.StartClock = started.Format("15:04:05")
		if createdSecs := uint64(createdMs / 1000); createdSecs > s.bootSecs {
			rec.StartSecs = createdSecs - s.bootSecs
		}
	}
	if statuses, err := p.StatusWithContext(ctx); err == nil {
		rec.Status = mapStatus(statuses)
	}
	if user, err := p.UsernameWithContext(ctx); err == nil {
		rec.User = user
	}
	if nice, err := p.NiceWithContext(ctx); err == nil {
		rec.Nice = int(nice)
	}
	return rec, true
}

// pruneHandles drops handles for PIDs that are no longer listed so the
// map does not grow with PID churn.
func (s *SystemSampler) pruneHandles(live map[int32]struct{}) {
	for pid := range s.handles {
		if _, ok := live[pid]; !ok {
			delete(s.handles, pid)
		}
	}
}

// sampleSystem fills the per-core counters and the memory, load, and
// host readings. Core counters are required; the rest degrade to zero
// values when unreadable.
func (s *SystemSampler) sampleSystem(ctx context.Context, snap *domain.Snapshot) error {
	times, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return fmt.Errorf("cpu times: %w", err)
	}
	snap.Cores = make([]domain.CoreCounters, len(times))
	for i, t := range times {
		snap.Cores[i] = domain.CoreCounters{Idle: t.Idle, Total: t.Total()}
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm != nil {
		snap.Memory.TotalBytes = vm.Total
		snap.Memory.UsedBytes = vm.Used
		snap.Memory.AvailableBytes = vm.Available
		snap.Memory.UsedPercent = vm.UsedPercent
	}
	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil && sw != nil {
		snap.Memory.SwapTotalBytes = sw.Total
		snap.Memory.SwapUsedBytes = sw.Used
	}
	if avg, err := load.AvgWithContext(ctx); err == nil && avg != nil {
		snap.Load = domain.LoadInfo{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	}
	if info, err := host.InfoWithContext(ctx); err == nil && info != nil {
		snap.Host = domain.HostInfo{
			Hostname:      info.Hostname,
			OS:            info.OS,
			Platform:      strings.TrimSpace(info.Platform + " " + info.PlatformVersion),
			KernelVersion: info.KernelVersion,
			UptimeSecs:    info.Uptime,
		}
	}
	return nil
}

// mapStatus folds gopsutil's status strings into the coarse scheduler
// states the table displays.
func mapStatus(statuses []string) domain.ProcessStatus {
	if len(statuses) == 0 {
		return domain.StatusOther
	}
	switch statuses[0] {
	case process.Running:
		return domain.StatusRunning
	case process.Sleep, process.Idle:
		return domain.StatusSleeping
	case process.Stop:
		return domain.StatusStopped
	case process.Zombie:
		return domain.StatusZombie
	default:
		return domain.StatusOther
	}
}

// Ensure SystemSampler implements domain.SnapshotSource.
var _ domain.SnapshotSource = (*SystemSampler)(nil)
