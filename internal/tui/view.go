package tui

import (
	"fmt"
	"strings"

	"that/internal/reporting"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	// Outcome lines take whatever height the header, failure pane and footer leave.
	failurePane := m.renderFailures()
	logPane := m.renderLogs()
	footer := m.renderFooter()
	reserved := strings.Count(failurePane, "\n") + strings.Count(logPane, "\n") + strings.Count(footer, "\n") + 6
	visible := max(3, m.viewHeight()-reserved)
	lines := m.lines
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}
	for _, l := range lines {
		b.WriteString(l + "\n")
	}

	if failurePane != "" {
		b.WriteString("\n" + failurePane)
	}
	if logPane != "" {
		b.WriteString("\n" + logPane)
	}
	b.WriteString("\n" + footer)
	return b.String()
}

func (m Model) renderHeader() string {
	if s := m.summary; s != nil {
		verdict := m.styles.Pass.Render("PASSED")
		if !s.Success {
			verdict = m.styles.Fail.Render("FAILED")
		}
		if s.Interrupted {
			verdict += m.styles.Muted.Render(" (interrupted)")
		}
		return fmt.Sprintf("%s  %d passed, %d failed, %d errored, %d skipped in %s\n%s",
			verdict, s.Passed, s.Failed, s.Errored, s.Skipped,
			reporting.FormatDuration(s.Duration), m.progress.ViewAs(1))
	}

	percent := 0.0
	if m.total > 0 {
		percent = float64(m.done) / float64(m.total)
	}
	line := fmt.Sprintf("%s Running %d/%d", m.spinner.View(), m.done, m.total)
	if m.current != "" {
		line += "  " + m.styles.Muted.Render(m.current)
	}
	return line + "\n" + m.progress.ViewAs(percent)
}

func (m Model) renderFailures() string {
	if len(m.failures) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.Bold.Render(fmt.Sprintf("Failures (%d)", len(m.failures))) + "\n")
	for i, o := range m.failures {
		cursor := "  "
		if i == m.selected {
			cursor = m.styles.Accent.Render("> ")
		}
		symbol := "✗ "
		style := m.styles.Fail
		if o.Err != nil {
			symbol, style = "! ", m.styles.Error
		}
		b.WriteString(cursor + style.Render(symbol+o.FullName()) + "\n")
		if i != m.selected {
			continue
		}
		for _, l := range m.detailLines(o) {
			b.WriteString("      " + l + "\n")
		}
	}
	return b.String()
}

func (m Model) renderLogs() string {
	if len(m.logs) == 0 {
		return ""
	}
	logs := m.logs
	if len(logs) > visibleLogLines {
		logs = logs[len(logs)-visibleLogLines:]
	}
	var b strings.Builder
	for _, l := range logs {
		b.WriteString(m.styles.Muted.Render(l) + "\n")
	}
	return b.String()
}

func (m Model) renderFooter() string {
	var b strings.Builder
	if m.status != "" {
		b.WriteString(m.styles.Accent.Render(m.status) + "\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
