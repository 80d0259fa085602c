package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/eliteGoblin/procscope/internal/domain"
	"github.com/eliteGoblin/procscope/internal/history"
	"github.com/eliteGoblin/procscope/internal/lifecycle"
)

// View renders the whole frame from model state. It never calls into
// the engine; everything it shows was pulled after the last tick.
func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	title := TitleStyle.Width(a.width).Render("procscope")
	tabs := a.renderTabs()

	var content string
	switch a.activeTab {
	case tabProcesses:
		content = a.renderProcesses()
	case tabGraphs:
		content = a.renderGraphs()
	case tabCores:
		content = a.renderCores()
	case tabDetail:
		content = a.renderDetail()
	case tabExits:
		content = a.renderExits()
	case tabSystem:
		content = a.renderSystem()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		tabs,
		"",
		content,
		"",
		a.renderBottom(),
	)
}

func (a *App) renderTabs() string {
	var tabElements []string
	for i, tab := range a.tabs {
		if i == a.activeTab {
			tabElements = append(tabElements, ActiveTabStyle.Render(tab))
		} else {
			tabElements = append(tabElements, InactiveTabStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, tabElements...)
}

// renderBottom shows the text input while one is open, otherwise the
// last status line above the key help.
func (a *App) renderBottom() string {
	if a.mode != inputNone {
		return PromptStyle.Render(a.input.View())
	}

	help := HelpStyle.Render("h/l: tabs • j/k: move • enter: inspect • 1-6: sort • o: order • /: filter • r: rule • x/t/s/c: signal • +/-: nice • g: group exits • q: quit")
	if a.status == "" {
		return help
	}
	status := SuccessStyle.Render(a.status)
	if a.statusIsErr {
		status = ErrorStyle.Render(a.status)
	}
	return lipgloss.JoinVertical(lipgloss.Left, status, help)
}

func (a *App) renderProcesses() string {
	visibleRows := a.height - 12
	if visibleRows < 1 {
		visibleRows = 1
	}

	// Scroll window that keeps the selection visible.
	startIdx := 0
	if a.selectedRow >= visibleRows {
		startIdx = a.selectedRow - visibleRows + 1
	}
	endIdx := min(startIdx+visibleRows, len(a.rows))

	var content strings.Builder
	content.WriteString(HeaderStyle.Render("Processes"))
	content.WriteString("\n\n")
	content.WriteString(a.renderViewState())
	content.WriteString("\n\n")

	header := fmt.Sprintf("%-8s %-22s %7s %10s %8s %-9s %6s %-10s %-s",
		"PID", "NAME", "CPU%", "MEM", "PPID", "START", "NICE", "STATUS", "USER")
	content.WriteString(TableHeaderStyle.Render(header))
	content.WriteString("\n")

	for i := startIdx; i < endIdx; i++ {
		rec := a.rows[i]
		row := fmt.Sprintf("%-8d %-22s %6.1f%% %10s %8d %-9s %6d %-10s %-s",
			rec.PID,
			truncateString(rec.Name, 22),
			rec.CPUPercent,
			HumanBytes(rec.MemoryBytes),
			rec.ParentPID,
			rec.StartClock,
			rec.Nice,
			rec.Status,
			rec.User)
		if i == a.selectedRow {
			content.WriteString(SelectedRowStyle.Render(row))
		} else {
			content.WriteString(TableRowStyle.Render(row))
		}
		content.WriteString("\n")
	}

	if len(a.rows) == 0 {
		content.WriteString(TableRowStyle.Render("no processes match the current view"))
		content.WriteString("\n")
	}

	if len(a.rows) > visibleRows {
		content.WriteString("\n")
		content.WriteString(HelpStyle.Render(fmt.Sprintf("showing %d-%d of %d",
			startIdx+1, endIdx, len(a.rows))))
	}

	return BaseStyle.Render(content.String())
}

// renderViewState is the one-line summary of sort, filter and rule
// shown above the process table.
func (a *App) renderViewState() string {
	parts := []string{
		fmt.Sprintf("sort: %s %s", a.sortKey, orderWord(a.ascending)),
	}
	if a.filter.Query != "" {
		parts = append(parts, fmt.Sprintf("filter %s:%s", a.filter.Mode, a.filter.Query))
	}
	if a.ruleSource != "" {
		rule := "rule: " + a.ruleSource
		if a.ruleErr != nil {
			rule += " (invalid)"
		}
		parts = append(parts, rule)
	}
	parts = append(parts, fmt.Sprintf("procs: %d", len(a.rows)))
	return LabelStyle.Render(strings.Join(parts, " • "))
}

func (a *App) renderGraphs() string {
	cpuValues := make([]float64, len(a.globalHist))
	memValues := make([]float64, len(a.globalHist))
	for i, s := range a.globalHist {
		cpuValues[i] = s.CPUPercent
		memValues[i] = s.MemoryMB
	}
	cpuStats := history.ComputeStats(cpuValues)
	memStats := history.ComputeStats(memValues)

	width := min(60, max(20, a.width-10))

	content := []string{
		HeaderStyle.Render("Aggregate CPU"),
		ValueStyle.Render(Sparkline(cpuValues, width)),
		LabelStyle.Render(fmt.Sprintf("cur %.1f%%  min %.1f%%  max %.1f%%  avg %.1f%%",
			cpuStats.Current, cpuStats.Min, cpuStats.Max, cpuStats.Avg)),
		"",
		HeaderStyle.Render("Aggregate Memory"),
		ValueStyle.Render(Sparkline(memValues, width)),
		LabelStyle.Render(fmt.Sprintf("cur %.1f MB  min %.1f MB  max %.1f MB  avg %.1f MB",
			memStats.Current, memStats.Min, memStats.Max, memStats.Avg)),
		"",
		LabelStyle.Render(fmt.Sprintf("samples: %d", len(a.globalHist))),
	}

	return BaseStyle.Width(a.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, content...),
	)
}

func (a *App) renderCores() string {
	content := []string{
		HeaderStyle.Render("Per-Core Usage"),
		"",
	}

	if len(a.coreUsage) == 0 {
		content = append(content, LabelStyle.Render("waiting for the second sample"))
	}

	for i, usage := range a.coreUsage {
		if i >= len(a.coreProgresses) {
			break
		}
		content = append(content,
			LabelStyle.Render(fmt.Sprintf("Core %d: %5.1f%%", i, usage)),
			a.coreProgresses[i].ViewAs(usage/100.0),
		)
		if i < len(a.coreHist) {
			content = append(content, ValueStyle.Render(Sparkline(a.coreHist[i], 30)))
		}
		content = append(content, "")
	}

	return BaseStyle.Width(a.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, content...),
	)
}

func (a *App) renderDetail() string {
	if a.detailPID == 0 {
		return BaseStyle.Width(a.width - 4).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				HeaderStyle.Render("Process"),
				"",
				LabelStyle.Render("Select a process with enter on the Processes tab."),
			),
		)
	}

	content := []string{
		HeaderStyle.Render(fmt.Sprintf("Process %d", a.detailPID)),
		"",
	}

	if a.detailKnown {
		rec := a.detailRec
		content = append(content,
			fmt.Sprintf("%s %s", LabelStyle.Render("Name:"), ValueStyle.Render(rec.Name)),
			fmt.Sprintf("%s %s", LabelStyle.Render("User:"), ValueStyle.Render(rec.User)),
			fmt.Sprintf("%s %d", LabelStyle.Render("Parent PID:"), rec.ParentPID),
			fmt.Sprintf("%s %s", LabelStyle.Render("Status:"), ValueStyle.Render(string(rec.Status))),
			fmt.Sprintf("%s %s", LabelStyle.Render("Started:"), ValueStyle.Render(rec.StartClock)),
			fmt.Sprintf("%s %d", LabelStyle.Render("Nice:"), rec.Nice),
			fmt.Sprintf("%s %.1f%%", LabelStyle.Render("CPU:"), rec.CPUPercent),
			fmt.Sprintf("%s %s", LabelStyle.Render("Memory:"), ValueStyle.Render(HumanBytes(rec.MemoryBytes))),
		)
	} else {
		content = append(content,
			WarningStyle.Render(fmt.Sprintf("pid %d is no longer running", a.detailPID)))
	}

	if a.detailTracked && len(a.detailSamples) > 0 {
		cpuValues := make([]float64, len(a.detailSamples))
		memValues := make([]float64, len(a.detailSamples))
		for i, s := range a.detailSamples {
			cpuValues[i] = s.CPUPercent
			memValues[i] = float64(s.MemoryBytes) / 1024 / 1024
		}
		cpuStats := history.ComputeStats(cpuValues)
		memStats := history.ComputeStats(memValues)

		width := min(60, max(20, a.width-10))
		content = append(content,
			"",
			HeaderStyle.Render("CPU History"),
			ValueStyle.Render(Sparkline(cpuValues, width)),
			LabelStyle.Render(fmt.Sprintf("cur %.1f%%  min %.1f%%  max %.1f%%  avg %.1f%%",
				cpuStats.Current, cpuStats.Min, cpuStats.Max, cpuStats.Avg)),
			"",
			HeaderStyle.Render("Memory History"),
			ValueStyle.Render(Sparkline(memValues, width)),
			LabelStyle.Render(fmt.Sprintf("cur %.1f MB  min %.1f MB  max %.1f MB  avg %.1f MB",
				memStats.Current, memStats.Min, memStats.Max, memStats.Avg)),
		)
	} else {
		content = append(content, "", LabelStyle.Render("no history recorded for this pid"))
	}

	return BaseStyle.Width(a.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, content...),
	)
}

func (a *App) renderExits() string {
	var content strings.Builder
	content.WriteString(HeaderStyle.Render("Recent Exits"))
	content.WriteString("\n\n")

	line := "grouping: " + groupWord(a.groupMode)
	if a.exitQuery != "" {
		line += " • filter: " + a.exitQuery
	}
	content.WriteString(LabelStyle.Render(line))
	content.WriteString("\n\n")

	if a.groupMode == lifecycle.GroupNone {
		a.renderExitRows(&content)
	} else {
		a.renderExitGroups(&content)
	}

	return BaseStyle.Render(content.String())
}

func (a *App) renderExitRows(content *strings.Builder) {
	if len(a.exitRows) == 0 {
		content.WriteString(TableRowStyle.Render("no exits recorded"))
		content.WriteString("\n")
		return
	}

	header := fmt.Sprintf("%-8s %-22s %-12s %-9s %-9s %-s",
		"PID", "NAME", "USER", "START", "EXIT", "UPTIME")
	content.WriteString(TableHeaderStyle.Render(header))
	content.WriteString("\n")

	// Newest first.
	rows := make([]domain.ExitRecord, len(a.exitRows))
	copy(rows, a.exitRows)
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	visibleRows := a.height - 14
	if visibleRows < 1 {
		visibleRows = 1
	}
	start := min(a.exitScroll, len(rows)-1)
	end := min(start+visibleRows, len(rows))

	for _, rec := range rows[start:end] {
		user := rec.User
		if user == "" {
			user = "(unknown)"
		}
		row := fmt.Sprintf("%-8d %-22s %-12s %-9s %-9s %-s",
			rec.PID,
			truncateString(rec.Name, 22),
			truncateString(user, 12),
			rec.StartClock,
			rec.ExitTime.Format("15:04:05"),
			FormatUptime(rec.UptimeSecs))
		content.WriteString(TableRowStyle.Render(row))
		content.WriteString("\n")
	}

	if len(rows) > visibleRows {
		content.WriteString("\n")
		content.WriteString(HelpStyle.Render(fmt.Sprintf("showing %d-%d of %d",
			start+1, end, len(rows))))
	}
}

func (a *App) renderExitGroups(content *strings.Builder) {
	if len(a.exitGroups) == 0 {
		content.WriteString(TableRowStyle.Render("no exits recorded"))
		content.WriteString("\n")
		return
	}

	header := fmt.Sprintf("%-24s %8s %14s  %-s",
		"KEY", "COUNT", "TOTAL UPTIME", "LAST EXIT")
	content.WriteString(TableHeaderStyle.Render(header))
	content.WriteString("\n")

	visibleRows := a.height - 14
	if visibleRows < 1 {
		visibleRows = 1
	}
	start := min(a.exitScroll, len(a.exitGroups)-1)
	end := min(start+visibleRows, len(a.exitGroups))

	for _, g := range a.exitGroups[start:end] {
		key := g.Key
		if key == "" {
			key = "(unknown)"
		}
		row := fmt.Sprintf("%-24s %8d %14s  %-s",
			truncateString(key, 24),
			g.Count,
			FormatUptime(g.TotalUptimeSecs),
			g.LastExit.Format("15:04:05"))
		content.WriteString(TableRowStyle.Render(row))
		content.WriteString("\n")
	}
}

func (a *App) renderSystem() string {
	if a.snapshot == nil {
		return BaseStyle.Width(a.width - 4).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				HeaderStyle.Render("System"),
				"",
				LabelStyle.Render("waiting for the first snapshot"),
			),
		)
	}

	snap := a.snapshot
	host := snap.Host
	mem := snap.Memory

	var running, sleeping, stopped, zombie, other int
	for _, p := range snap.Processes {
		switch p.Status {
		case domain.StatusRunning:
			running++
		case domain.StatusSleeping:
			sleeping++
		case domain.StatusStopped:
			stopped++
		case domain.StatusZombie:
			zombie++
		default:
			other++
		}
	}

	content := []string{
		HeaderStyle.Render("Host"),
		fmt.Sprintf("%s %s", LabelStyle.Render("Hostname:"), ValueStyle.Render(host.Hostname)),
		fmt.Sprintf("%s %s", LabelStyle.Render("OS:"), ValueStyle.Render(host.OS)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Platform:"), ValueStyle.Render(host.Platform)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Kernel:"), ValueStyle.Render(host.KernelVersion)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Uptime:"), ValueStyle.Render(FormatUptime(host.UptimeSecs))),
		"",
		HeaderStyle.Render("Memory"),
		fmt.Sprintf("%s %s used of %s (%.1f%%)",
			LabelStyle.Render("Usage:"), HumanBytes(mem.UsedBytes), HumanBytes(mem.TotalBytes), mem.UsedPercent),
		a.memProgress.ViewAs(mem.UsedPercent/100.0),
		fmt.Sprintf("%s %s", LabelStyle.Render("Available:"), ValueStyle.Render(HumanBytes(mem.AvailableBytes))),
		fmt.Sprintf("%s %s used of %s",
			LabelStyle.Render("Swap:"), HumanBytes(mem.SwapUsedBytes), HumanBytes(mem.SwapTotalBytes)),
		"",
		HeaderStyle.Render("Load Average"),
		fmt.Sprintf("%.2f %.2f %.2f", snap.Load.Load1, snap.Load.Load5, snap.Load.Load15),
		"",
		HeaderStyle.Render("Processes"),
		fmt.Sprintf("total %d • running %d • sleeping %d • stopped %d • zombie %d • other %d",
			len(snap.Processes), running, sleeping, stopped, zombie, other),
		"",
		LabelStyle.Render("sampled at " + snap.TakenAt.Format(time.RFC3339)),
	}

	return BaseStyle.Width(a.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, content...),
	)
}
