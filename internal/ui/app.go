// Package ui implements the interactive terminal front end over the
// telemetry engine.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/eliteGoblin/procscope/internal/domain"
	"github.com/eliteGoblin/procscope/internal/engine"
	"github.com/eliteGoblin/procscope/internal/history"
	"github.com/eliteGoblin/procscope/internal/lifecycle"
	"github.com/eliteGoblin/procscope/internal/registry"
)

type tickMsg time.Time

type refreshedMsg struct {
	err error
}

type inputMode int

const (
	inputNone inputMode = iota
	inputFilter
	inputRule
)

// Tab indices. The order matches the tabs slice in NewApp.
const (
	tabProcesses = iota
	tabGraphs
	tabCores
	tabDetail
	tabExits
	tabSystem
)

var sortDigits = map[string]domain.SortKey{
	"1": domain.SortPID,
	"2": domain.SortCPU,
	"3": domain.SortMem,
	"4": domain.SortPPID,
	"5": domain.SortNice,
	"6": domain.SortStart,
}

// App is the bubbletea model. It drives the engine tick from the UI
// timer and pulls fresh view data after every cycle or control action.
type App struct {
	engine   *engine.Engine
	logger   *zap.Logger
	interval time.Duration

	tabs      []string
	activeTab int
	width     int
	height    int

	rows        []domain.ProcessRecord
	selectedRow int

	detailPID     int32
	detailRec     domain.ProcessRecord
	detailKnown   bool
	detailSamples []history.ProcessSample
	detailTracked bool

	sortKey    domain.SortKey
	ascending  bool
	filter     registry.Filter
	ruleSource string
	ruleErr    error

	exitRows   []domain.ExitRecord
	exitGroups []lifecycle.Group
	groupMode  lifecycle.GroupMode
	exitQuery  string
	exitScroll int

	globalHist []history.GlobalSample
	coreHist   [][]float64
	coreUsage  []float64
	snapshot   *domain.Snapshot

	mode  inputMode
	input textinput.Model

	status      string
	statusIsErr bool

	cpuProgress    progress.Model
	memProgress    progress.Model
	coreProgresses []progress.Model
}

// NewApp creates the model. The interval sets how often the engine is
// ticked while the UI is running.
func NewApp(eng *engine.Engine, interval time.Duration, logger *zap.Logger) *App {
	input := textinput.New()
	input.CharLimit = 128
	input.Width = 48

	return &App{
		engine:      eng,
		logger:      logger,
		interval:    interval,
		tabs:        []string{"Processes", "Graphs", "Cores", "Process", "Exits", "System"},
		sortKey:     domain.SortCPU,
		ascending:   false,
		groupMode:   lifecycle.GroupNone,
		input:       input,
		cpuProgress: progress.New(progress.WithDefaultGradient()),
		memProgress: progress.New(progress.WithDefaultGradient()),
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.refresh(), a.tick())
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(a.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: a.engine.Tick(context.Background())}
	}
}

// pull copies the current engine state into the model so View renders
// without touching the engine.
func (a *App) pull() {
	a.rows = a.engine.Visible()
	if a.selectedRow >= len(a.rows) {
		a.selectedRow = max(0, len(a.rows)-1)
	}
	a.globalHist = a.engine.GlobalHistory()
	a.coreHist = a.engine.CoreHistories()
	a.coreUsage = a.engine.CoreUsage()
	a.snapshot = a.engine.Latest()

	a.sortKey = a.engine.SortKey()
	a.ascending = a.engine.Ascending()
	a.filter = a.engine.CurrentFilter()
	a.ruleSource = a.engine.RuleSource()
	a.ruleErr = a.engine.RuleErr()

	if a.groupMode == lifecycle.GroupNone {
		a.exitRows = a.engine.ExitsFiltered(a.exitQuery)
		a.exitGroups = nil
	} else {
		a.exitGroups = a.engine.ExitsGrouped(a.groupMode)
		a.exitRows = nil
	}

	a.pullDetail()
	a.initCoreProgresses(len(a.coreUsage))
}

func (a *App) pullDetail() {
	a.detailKnown = false
	a.detailRec = domain.ProcessRecord{}
	a.detailSamples = nil
	a.detailTracked = false
	if a.detailPID == 0 {
		return
	}

	a.detailSamples, a.detailTracked = a.engine.ProcessHistory(a.detailPID)
	if a.snapshot == nil {
		return
	}
	for _, r := range a.snapshot.Processes {
		if r.PID == a.detailPID {
			a.detailRec = r
			a.detailKnown = true
			return
		}
	}
}

func (a *App) initCoreProgresses(coreCount int) {
	if len(a.coreProgresses) != coreCount {
		a.coreProgresses = make([]progress.Model, coreCount)
		for i := range a.coreProgresses {
			a.coreProgresses[i] = progress.New(progress.WithDefaultGradient())
			a.coreProgresses[i].Width = 30
		}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

		progressWidth := min(50, a.width-20)
		a.cpuProgress.Width = progressWidth
		a.memProgress.Width = progressWidth
		return a, nil

	case tea.KeyMsg:
		if a.mode != inputNone {
			return a.handleInputKey(msg)
		}
		return a.handleKey(msg)

	case tickMsg:
		return a, tea.Batch(a.refresh(), a.tick())

	case refreshedMsg:
		if msg.err != nil {
			a.setStatus("snapshot failed, showing previous data", true)
			a.logger.Warn("snapshot failed, keeping previous table", zap.Error(msg.err))
			return a, nil
		}
		a.pull()
		return a, nil
	}

	return a, nil
}

// handleInputKey routes keys to the active text input until it is
// committed or canceled.
func (a *App) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		value := a.input.Value()
		mode := a.mode
		a.closeInput()
		if mode == inputFilter {
			a.applyFilter(value)
		} else {
			a.applyRule(value)
		}
		return a, nil
	case "esc":
		a.closeInput()
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "ctrl+c", "q":
		return a, tea.Quit

	case "right", "l", "tab":
		a.activeTab = (a.activeTab + 1) % len(a.tabs)

	case "left", "h", "shift+tab":
		a.activeTab = (a.activeTab + len(a.tabs) - 1) % len(a.tabs)

	case "down", "j":
		if a.activeTab == tabExits {
			limit := max(0, len(a.exitRows)+len(a.exitGroups)-1)
			a.exitScroll = min(a.exitScroll+1, limit)
		} else if a.selectedRow < len(a.rows)-1 {
			a.selectedRow++
		}

	case "up", "k":
		if a.activeTab == tabExits {
			a.exitScroll = max(0, a.exitScroll-1)
		} else if a.selectedRow > 0 {
			a.selectedRow--
		}

	case "enter":
		if a.activeTab == tabProcesses {
			if rec, ok := a.selected(); ok {
				a.detailPID = rec.PID
				a.activeTab = tabDetail
				a.pullDetail()
			}
		}

	case "1", "2", "3", "4", "5", "6":
		a.engine.SetSort(sortDigits[key], a.ascending)
		a.pull()
		a.setStatus(fmt.Sprintf("sort by %s %s", a.sortKey, orderWord(a.ascending)), false)

	case "o":
		a.engine.SetSort(a.sortKey, !a.ascending)
		a.pull()
		a.setStatus(fmt.Sprintf("sort by %s %s", a.sortKey, orderWord(a.ascending)), false)

	case "/":
		if a.activeTab == tabExits {
			return a, a.openInput(inputFilter, "exit filter> ", a.exitQuery)
		}
		return a, a.openInput(inputFilter, "filter (mode:value)> ", currentFilterText(a))

	case "r":
		return a, a.openInput(inputRule, "rule> ", a.ruleSource)

	case "x":
		a.signalSelected(domain.SignalKill)
	case "t":
		a.signalSelected(domain.SignalTerminate)
	case "s":
		a.signalSelected(domain.SignalStop)
	case "c":
		a.signalSelected(domain.SignalContinue)

	case "+", "=":
		a.reniceSelected(1)
	case "-", "_":
		a.reniceSelected(-1)

	case "g":
		if a.activeTab == tabExits {
			a.groupMode = nextGroupMode(a.groupMode)
			a.exitScroll = 0
			a.pull()
			a.setStatus("exit grouping: "+groupWord(a.groupMode), false)
		}
	}

	return a, nil
}

func (a *App) openInput(mode inputMode, prompt, initial string) tea.Cmd {
	a.mode = mode
	a.input.Prompt = prompt
	a.input.SetValue(initial)
	a.input.CursorEnd()
	return a.input.Focus()
}

func (a *App) closeInput() {
	a.mode = inputNone
	a.input.Blur()
	a.input.SetValue("")
}

// applyFilter commits the filter input. On the exits tab it narrows
// the exit log; elsewhere it installs a table filter, with an optional
// mode prefix such as pid:42 or user:root.
func (a *App) applyFilter(value string) {
	if a.activeTab == tabExits {
		a.exitQuery = strings.TrimSpace(value)
		a.exitScroll = 0
		a.pull()
		if a.exitQuery == "" {
			a.setStatus("exit filter cleared", false)
		} else {
			a.setStatus("exit filter: "+a.exitQuery, false)
		}
		return
	}

	mode, query, err := parseFilterInput(value)
	if err != nil {
		a.setStatus(err.Error(), true)
		return
	}
	if query == "" {
		a.engine.ClearFilter()
		a.pull()
		a.setStatus("filter cleared", false)
		return
	}
	a.engine.SetFilter(mode, query)
	a.pull()
	a.setStatus(fmt.Sprintf("filter %s:%s", mode, query), false)
}

func (a *App) applyRule(value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		a.engine.ClearRule()
		a.pull()
		a.setStatus("rule cleared", false)
		return
	}
	if err := a.engine.SetRule(value); err != nil {
		a.pull()
		a.setStatus("rule rejected: "+err.Error(), true)
		return
	}
	a.pull()
	a.setStatus("rule: "+value, false)
}

// parseFilterInput splits an optional mode prefix from the query. A
// bare query filters by name.
func parseFilterInput(s string) (domain.FilterMode, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.FilterName, "", nil
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		mode, err := domain.ParseFilterMode(s[:i])
		if err != nil {
			return "", "", err
		}
		return mode, strings.TrimSpace(s[i+1:]), nil
	}
	return domain.FilterName, s, nil
}

func (a *App) selected() (domain.ProcessRecord, bool) {
	if len(a.rows) == 0 || a.selectedRow >= len(a.rows) {
		return domain.ProcessRecord{}, false
	}
	return a.rows[a.selectedRow], true
}

func (a *App) signalSelected(kind domain.SignalKind) {
	rec, ok := a.selected()
	if !ok {
		a.setStatus("no process selected", true)
		return
	}
	if err := a.engine.Signal(rec.PID, kind); err != nil {
		a.setStatus(describeActionError(err, rec.PID), true)
		a.logger.Warn("signal failed",
			zap.Int32("pid", rec.PID),
			zap.String("signal", string(kind)),
			zap.Error(err))
		return
	}
	a.setStatus(fmt.Sprintf("sent %s to pid %d (%s)", kind, rec.PID, rec.Name), false)
}

func (a *App) reniceSelected(delta int) {
	rec, ok := a.selected()
	if !ok {
		a.setStatus("no process selected", true)
		return
	}
	target := rec.Nice + delta
	if err := a.engine.SetPriority(rec.PID, target); err != nil {
		a.setStatus(describeActionError(err, rec.PID), true)
		a.logger.Warn("renice failed",
			zap.Int32("pid", rec.PID),
			zap.Int("nice", target),
			zap.Error(err))
		return
	}
	a.setStatus(fmt.Sprintf("pid %d nice set to %d", rec.PID, target), false)
}

func describeActionError(err error, pid int32) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Sprintf("pid %d is gone", pid)
	case errors.Is(err, domain.ErrPermissionDenied):
		return fmt.Sprintf("permission denied for pid %d", pid)
	}
	return err.Error()
}

func (a *App) setStatus(s string, isErr bool) {
	a.status = s
	a.statusIsErr = isErr
}

func currentFilterText(a *App) string {
	if a.filter.Query == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", a.filter.Mode, a.filter.Query)
}

func orderWord(ascending bool) string {
	if ascending {
		return "asc"
	}
	return "desc"
}

func groupWord(mode lifecycle.GroupMode) string {
	switch mode {
	case lifecycle.GroupByName:
		return "by name"
	case lifecycle.GroupByUser:
		return "by user"
	}
	return "off"
}

func nextGroupMode(mode lifecycle.GroupMode) lifecycle.GroupMode {
	switch mode {
	case lifecycle.GroupNone:
		return lifecycle.GroupByName
	case lifecycle.GroupByName:
		return lifecycle.GroupByUser
	}
	return lifecycle.GroupNone
}
