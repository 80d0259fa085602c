// Package main is the CLI entry point for procscope.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/procscope/internal/config"
	"github.com/eliteGoblin/procscope/internal/domain"
	"github.com/eliteGoblin/procscope/internal/engine"
	"github.com/eliteGoblin/procscope/internal/infra"
	"github.com/eliteGoblin/procscope/internal/ui"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "procscope",
	Short: "Process telemetry - live table, history and exit tracking",
	Long: `procscope samples the process table on a fixed interval and keeps a
sorted, filtered view of it, bounded CPU and memory history, and a log
of processes that vanished between samples.

top opens the interactive terminal UI. watch runs the same engine
headless and logs exits. snapshot prints the table once and returns.`,
	Version: Version,
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Open the interactive process view",
	Long: `Opens the full-screen terminal UI: sortable process table, CPU and
memory graphs, per-core usage, per-process history, exit log and system
overview. Logs go to a file so they never corrupt the screen.`,
	RunE: runTop,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the process table once",
	Long: `Samples the process table twice across one refresh interval so CPU
percentages are meaningful, applies the sort, filter and rule flags,
and prints the resulting table to stdout.`,
	RunE: runSnapshot,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the sampling engine without a UI",
	Long: `Runs the refresh loop headless. Exits detected between samples are
logged through the structured logger and, when an audit database is
configured, written to the encrypted audit sink. Stops cleanly on
SIGINT or SIGTERM.`,
	RunE: runWatch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath     string
	jsonOutput     bool
	snapshotSort   string
	snapshotAsc    bool
	snapshotFilter string
	snapshotRule   string
	snapshotLimit  int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	snapshotCmd.Flags().StringVar(&snapshotSort, "sort", "cpu", "Sort key (pid, cpu, mem, ppid, nice, start)")
	snapshotCmd.Flags().BoolVar(&snapshotAsc, "asc", false, "Sort ascending instead of descending")
	snapshotCmd.Flags().StringVar(&snapshotFilter, "filter", "", "Structural filter, mode:value (e.g. user:root, pid:42)")
	snapshotCmd.Flags().StringVar(&snapshotRule, "rule", "", "Rule expression (e.g. 'cpu > 50 && mem > 100')")
	snapshotCmd.Flags().IntVar(&snapshotLimit, "limit", 0, "Maximum rows to print, 0 for all")

	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func runTop(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal; logs must go to a file.
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = "/var/tmp/procscope.log"
	}
	logger := createLogger(logPath)
	defer func() { _ = logger.Sync() }()

	eng, closeSink, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	app := ui.NewApp(eng, cfg.RefreshInterval, logger)
	program := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	sortKey, err := domain.ParseSortKey(snapshotSort)
	if err != nil {
		return err
	}

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	eng := engine.NewEngine(engineConfig(cfg), infra.NewSystemSampler(logger), infra.NewProcessController(), logger)
	eng.SetSort(sortKey, snapshotAsc)
	if snapshotFilter != "" {
		mode, query, err := parseFilterFlag(snapshotFilter)
		if err != nil {
			return err
		}
		eng.SetFilter(mode, query)
	}
	if snapshotRule != "" {
		if err := eng.SetRule(snapshotRule); err != nil {
			return fmt.Errorf("rule: %w", err)
		}
	}

	ctx := context.Background()

	// CPU percentages are measured between two samples, so take one,
	// wait a full interval, and take another.
	if err := eng.Tick(ctx); err != nil {
		return fmt.Errorf("sample: %w", err)
	}

	spin := spinner.New(spinner.CharSets[21], 120*time.Millisecond, spinner.WithWriter(os.Stdout))
	spin.Suffix = " Sampling..."
	spin.Start()
	time.Sleep(cfg.RefreshInterval)
	spin.Stop()

	if err := eng.Tick(ctx); err != nil {
		return fmt.Errorf("sample: %w", err)
	}

	rows := eng.Visible()
	if snapshotLimit > 0 && len(rows) > snapshotLimit {
		rows = rows[:snapshotLimit]
	}

	fmt.Printf("%-8s %-22s %7s %10s %8s %-9s %6s %-10s %-s\n",
		"PID", "NAME", "CPU%", "MEM", "PPID", "START", "NICE", "STATUS", "USER")
	for _, rec := range rows {
		fmt.Printf("%-8d %-22.22s %6.1f%% %10s %8d %-9s %6d %-10s %-s\n",
			rec.PID, rec.Name, rec.CPUPercent, ui.HumanBytes(rec.MemoryBytes),
			rec.ParentPID, rec.StartClock, rec.Nice, rec.Status, rec.User)
	}
	fmt.Printf("\n%d processes\n", len(rows))
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := createLogger(cfg.LogFile)
	defer func() { _ = logger.Sync() }()

	eng, closeSink, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("procscope %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

// engineConfig maps the loaded file/env configuration onto the engine.
func engineConfig(cfg config.Config) engine.Config {
	return engine.Config{
		RefreshInterval: cfg.RefreshInterval,
		HistoryInterval: cfg.HistoryInterval,
		HistoryPoints:   cfg.HistoryPoints,
		ExitLogCapacity: cfg.ExitLogCapacity,
	}
}

// buildEngine wires the sampler, the signal adapter and the optional
// encrypted audit sink into an engine. The returned func closes the
// sink; it is a no-op when no audit database is configured.
func buildEngine(cfg config.Config, logger *zap.Logger) (*engine.Engine, func(), error) {
	source := infra.NewSystemSampler(logger)
	controller := infra.NewProcessController()

	if cfg.AuditDB == "" {
		return engine.NewEngine(engineConfig(cfg), source, controller, logger), func() {}, nil
	}

	key, err := infra.EnsureKey(infra.NewFileKeyProvider(cfg.AuditKeyFile))
	if err != nil {
		return nil, nil, fmt.Errorf("audit key: %w", err)
	}
	sink, err := infra.NewAuditSink(cfg.AuditDB, key)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit db: %w", err)
	}

	closeSink := func() {
		if err := sink.Close(); err != nil {
			logger.Warn("audit sink close failed", zap.Error(err))
		}
	}
	return engine.NewEngineWithSink(engineConfig(cfg), source, controller, sink, logger), closeSink, nil
}

// parseFilterFlag splits an optional mode prefix from the query. A bare
// value filters by process name.
func parseFilterFlag(s string) (domain.FilterMode, string, error) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		mode, err := domain.ParseFilterMode(s[:i])
		if err != nil {
			return "", "", err
		}
		return mode, strings.TrimSpace(s[i+1:]), nil
	}
	return domain.FilterName, s, nil
}

func createLogger(path string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if path != "" {
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}
