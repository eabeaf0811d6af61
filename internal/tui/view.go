package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"vidtutor/internal/controller"
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	activeModeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11")).Padding(0, 1)
	modeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Padding(0, 1)
	buttonStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	disabledStyle   = lipgloss.NewStyle().Faint(true)
	userLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	botLabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	spinnerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	helpStyle       = lipgloss.NewStyle().Faint(true)
	alertStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("9")).Padding(1, 2)
)

func (m Model) View() string {
	if len(m.alerts) > 0 {
		box := alertStyle.Render(m.alerts[0] + "\n\n" + helpStyle.Render("Press Enter to continue"))
		if m.width > 0 && m.height > 0 {
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
		}
		return box
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("vidtutor") + "\n\n")
	b.WriteString(m.modeBar() + "\n")
	b.WriteString(m.source.View() + "  " + m.startButton() + "\n")

	if m.state.Progress.Visible {
		b.WriteString(m.progress.ViewAs(float64(m.state.Progress.Percent)/100) + "\n")
		b.WriteString(helpStyle.Render(m.state.Progress.Label) + "\n")
	} else {
		b.WriteString("\n\n")
	}

	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(m.chat.View() + "\n")

	if m.status != "" {
		b.WriteString(helpStyle.Render(m.status) + "\n")
	}
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) modeBar() string {
	parts := make([]string, 0, len(controller.Modes()))
	for i, mode := range controller.Modes() {
		label := fmt.Sprintf("F%d %s", i+1, mode.Label())
		if mode == m.state.Mode {
			parts = append(parts, activeModeStyle.Render(label))
		} else {
			parts = append(parts, modeStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) startButton() string {
	label := "[ " + m.state.Start.Label + " ]"
	if !m.state.Start.Enabled {
		return disabledStyle.Render(label)
	}
	return buttonStyle.Render(label)
}

func (m Model) help() string {
	keys := []string{"tab focus", "enter send", "ctrl+x cancel", "ctrl+s speak", "ctrl+p/n select", "ctrl+c quit"}
	if m.state.VoiceAvailable {
		keys = slices.Insert(keys, 3, "ctrl+r voice")
	}
	return strings.Join(keys, " • ")
}
