//go:build integration

package integration

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/procscope/internal/domain"
	"github.com/eliteGoblin/procscope/internal/engine"
)

// scriptedSource replays a fixed sequence of snapshots. Once the script
// is exhausted the last snapshot repeats, so run loops can tick freely.
type scriptedSource struct {
	snaps []*domain.Snapshot
	errs  []error
	calls int
}

func (s *scriptedSource) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if len(s.snaps) == 0 {
		return nil, errors.New("nothing scripted")
	}
	if i >= len(s.snaps) {
		i = len(s.snaps) - 1
	}
	return s.snaps[i], nil
}

type nopController struct{}

func (nopController) Signal(pid int32, kind domain.SignalKind) error { return nil }
func (nopController) SetPriority(pid int32, nice int) error          { return nil }

var _ = Describe("Telemetry Engine", func() {
	baseTime := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	rec := func(pid int32, name, user string, cpu float64, memMB uint64, start string) domain.ProcessRecord {
		return domain.ProcessRecord{
			PID:         pid,
			Name:        name,
			User:        user,
			CPUPercent:  cpu,
			MemoryBytes: memMB << 20,
			StartClock:  start,
			Status:      domain.StatusRunning,
		}
	}

	snapAt := func(offset time.Duration, procs ...domain.ProcessRecord) *domain.Snapshot {
		return &domain.Snapshot{TakenAt: baseTime.Add(offset), Processes: procs}
	}

	newEngine := func(source *scriptedSource) *engine.Engine {
		return engine.NewEngine(engine.DefaultConfig(), source, nopController{}, zap.NewNop())
	}

	Describe("refreshing the table", func() {
		Context("when a process vanishes between samples", func() {
			It("should record its exit with the lived uptime", func() {
				source := &scriptedSource{snaps: []*domain.Snapshot{
					snapAt(0,
						rec(1, "postgres", "postgres", 12, 200, "08:00:00"),
						rec(2, "backup-job", "root", 3, 40, "11:30:00")),
					snapAt(time.Second,
						rec(1, "postgres", "postgres", 14, 200, "08:00:00")),
				}}
				eng := newEngine(source)

				Expect(eng.Tick(context.Background())).To(Succeed())
				Expect(eng.Tick(context.Background())).To(Succeed())

				exits := eng.ExitLog()
				Expect(exits).To(HaveLen(1))
				Expect(exits[0].PID).To(Equal(int32(2)))
				Expect(exits[0].Name).To(Equal("backup-job"))
				Expect(exits[0].ExitTime).To(Equal(baseTime.Add(time.Second)))
				Expect(exits[0].UptimeSecs).To(Equal(uint64(30*60 + 1)))
			})
		})

		Context("when the snapshot source fails", func() {
			It("should keep the previous table and record nothing", func() {
				source := &scriptedSource{
					snaps: []*domain.Snapshot{
						snapAt(0,
							rec(1, "postgres", "postgres", 12, 200, "08:00:00"),
							rec(2, "backup-job", "root", 3, 40, "11:30:00")),
					},
					errs: []error{nil, errors.New("proc unreadable")},
				}
				eng := newEngine(source)

				Expect(eng.Tick(context.Background())).To(Succeed())
				before := eng.Visible()

				Expect(eng.Tick(context.Background())).NotTo(Succeed())

				Expect(eng.Visible()).To(Equal(before))
				Expect(eng.ExitLog()).To(BeEmpty())
			})
		})
	})

	Describe("view controls", func() {
		var eng *engine.Engine

		BeforeEach(func() {
			source := &scriptedSource{snaps: []*domain.Snapshot{
				snapAt(0,
					rec(1, "postgres", "root", 50, 200, "08:00:00"),
					rec(2, "nginx", "www-data", 30, 80, "09:00:00"),
					rec(3, "cron", "root", 5, 10, "07:00:00")),
			}}
			eng = newEngine(source)
			Expect(eng.Tick(context.Background())).To(Succeed())
		})

		pids := func() []int32 {
			rows := eng.Visible()
			out := make([]int32, len(rows))
			for i, r := range rows {
				out[i] = r.PID
			}
			return out
		}

		It("should combine filter and rule as a conjunction", func() {
			eng.SetFilter(domain.FilterUser, "root")
			Expect(eng.SetRule("cpu > 10")).To(Succeed())

			Expect(pids()).To(Equal([]int32{1}))
		})

		It("should restore the wider view when the rule is cleared", func() {
			eng.SetFilter(domain.FilterUser, "root")
			Expect(eng.SetRule("cpu > 10")).To(Succeed())
			eng.ClearRule()

			Expect(pids()).To(Equal([]int32{1, 3}))
		})

		It("should re-sort the surviving rows on demand", func() {
			eng.SetFilter(domain.FilterUser, "root")
			eng.SetSort(domain.SortCPU, true)

			Expect(pids()).To(Equal([]int32{3, 1}))
		})

		It("should exclude everything under a malformed rule and expose the error", func() {
			Expect(eng.SetRule("cpu >")).NotTo(Succeed())

			Expect(pids()).To(BeEmpty())
			Expect(eng.RuleErr()).To(HaveOccurred())
		})
	})

	Describe("history sampling", func() {
		It("should drop observations arriving faster than the history interval", func() {
			source := &scriptedSource{snaps: []*domain.Snapshot{
				snapAt(0, rec(1, "postgres", "root", 50, 200, "08:00:00")),
				snapAt(500*time.Millisecond, rec(1, "postgres", "root", 80, 200, "08:00:00")),
				snapAt(time.Second, rec(1, "postgres", "root", 60, 200, "08:00:00")),
			}}
			eng := newEngine(source)

			for i := 0; i < 3; i++ {
				Expect(eng.Tick(context.Background())).To(Succeed())
			}

			hist := eng.GlobalHistory()
			Expect(hist).To(HaveLen(2))
			Expect(hist[0].CPUPercent).To(Equal(50.0))
			Expect(hist[1].CPUPercent).To(Equal(60.0))

			// The table itself is not rate limited.
			Expect(eng.Visible()[0].CPUPercent).To(Equal(60.0))
		})
	})

	Describe("run loop", func() {
		It("should stop when the context is canceled", func() {
			source := &scriptedSource{snaps: []*domain.Snapshot{
				snapAt(0, rec(1, "postgres", "root", 50, 200, "08:00:00")),
			}}
			cfg := engine.DefaultConfig()
			cfg.RefreshInterval = 10 * time.Millisecond
			eng := engine.NewEngine(cfg, source, nopController{}, zap.NewNop())

			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() {
				errCh <- eng.Run(ctx)
			}()

			Eventually(eng.Latest).ShouldNot(BeNil())
			cancel()

			Eventually(errCh).Should(Receive(MatchError(context.Canceled)))
		})
	})
})
