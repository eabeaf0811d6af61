// Package tui is the terminal front end: a bubbletea program rendering
// the controller's state.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"vidtutor/internal/controller"
	"vidtutor/internal/markup"
)

const (
	historyLimit       = 50
	filePlaceholder    = "Path to an audio or video file..."
	chatPlaceholder    = "Ask about your videos..."
	minTranscriptLines = 5
)

type focus int

const (
	focusSource focus = iota
	focusChat
)

type submitDoneMsg struct{ result controller.SubmitResult }
type chatDoneMsg struct{ result controller.ChatResult }
type actionDoneMsg struct {
	action string
	err    error
}

type Model struct {
	ctx      context.Context
	ctrl     *controller.Controller
	style    string
	terminal *markup.Terminal

	source   textinput.Model
	chat     textinput.Model
	progress progress.Model
	viewport viewport.Model
	spinner  spinner.Model

	state     controller.State
	rendered  []string
	focus     focus
	selected  int
	alerts    []string
	status    string
	lastInput string
	width     int
	height    int
}

// New builds the model. style is a glamour style name such as "dark".
func New(ctx context.Context, ctrl *controller.Controller, style string) Model {
	source := textinput.New()
	source.Prompt = "> "
	source.Focus()

	chat := textinput.New()
	chat.Prompt = "You> "
	chat.Placeholder = chatPlaceholder

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		style:    style,
		source:   source,
		chat:     chat,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		viewport: viewport.New(80, 15),
		spinner:  s,
		selected: -1,
	}
	m.terminal, _ = markup.NewTerminal(m.viewport.Width, style)
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return tea.Batch(m.spinner.Tick, textinput.Blink, func() tea.Msg {
		ctrl.Init()
		ctrl.LoadHistory(ctx, historyLimit)
		return changedMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case AlertMsg:
		m.alerts = append(m.alerts, msg.Text)
		return m, nil

	case changedMsg:
		m.refresh()
		return m, nil

	case submitDoneMsg:
		m.status = "Submission " + msg.result.Outcome.String()
		m.refresh()
		return m, nil

	case chatDoneMsg:
		m.refresh()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = msg.action + " done"
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Typing {
			m.renderTranscript()
		}
		return m, cmd

	case tea.KeyMsg:
		if len(m.alerts) > 0 {
			switch msg.String() {
			case "enter", "esc":
				m.alerts = m.alerts[1:]
			case "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
		if model, cmd, handled := m.handleKey(msg); handled {
			return model, cmd
		}
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit, true

	case "f1", "f2", "f3", "f4":
		mode := controller.Modes()[int(msg.String()[1]-'1')]
		m.ctrl.SelectMode(mode)
		m.refresh()
		m.loadSourceValue()
		return m, nil, true

	case "tab":
		cmd := m.toggleFocus()
		return m, cmd, true

	case "enter":
		var cmd tea.Cmd
		if m.focus == focusSource {
			cmd = m.submit()
		} else {
			cmd = m.sendChat()
		}
		return m, cmd, true

	case "ctrl+r":
		m.status = "Listening..."
		ctrl, ctx := m.ctrl, m.ctx
		return m, func() tea.Msg {
			return actionDoneMsg{action: "Voice input", err: ctrl.Listen(ctx)}
		}, true

	case "ctrl+s":
		index := m.speakTarget()
		if index < 0 {
			return m, nil, true
		}
		m.status = "Speaking..."
		ctrl, ctx := m.ctrl, m.ctx
		return m, func() tea.Msg {
			return actionDoneMsg{action: "Speech", err: ctrl.Speak(ctx, index)}
		}, true

	case "ctrl+p":
		m.moveSelection(-1)
		return m, nil, true

	case "ctrl+n":
		m.moveSelection(1)
		return m, nil, true

	case "ctrl+x":
		ctrl, ctx := m.ctrl, m.ctx
		return m, func() tea.Msg {
			_, err := ctrl.CancelProcessing(ctx)
			return actionDoneMsg{action: "Cancel", err: err}
		}, true

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd, true
	}
	return m, nil, false
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == focusSource {
		m.source, cmd = m.source.Update(msg)
		if m.state.Input.FilePickerVisible {
			if m.source.Value() != m.state.FilePath {
				m.ctrl.SetFilePath(m.source.Value())
			}
		} else if m.source.Value() != m.state.Text {
			m.ctrl.SetText(m.source.Value())
		}
		return m, cmd
	}

	m.chat, cmd = m.chat.Update(msg)
	if v := m.chat.Value(); v != m.lastInput {
		m.lastInput = v
		m.ctrl.SetChatInput(v)
	}
	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	if !m.state.Start.Enabled {
		return nil
	}
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return submitDoneMsg{result: ctrl.Submit(ctx)}
	}
}

func (m *Model) sendChat() tea.Cmd {
	text := m.chat.Value()
	m.chat.SetValue("")
	m.lastInput = ""
	m.selected = -1
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return chatDoneMsg{result: ctrl.SendChat(ctx, text)}
	}
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusSource {
		m.focus = focusChat
		m.source.Blur()
		return m.chat.Focus()
	}
	m.focus = focusSource
	m.chat.Blur()
	return m.source.Focus()
}

// speakTarget is the selected message, or the latest bot message.
func (m *Model) speakTarget() int {
	if m.selected >= 0 && m.selected < len(m.state.Messages) {
		return m.selected
	}
	for i := len(m.state.Messages) - 1; i >= 0; i-- {
		if m.state.Messages[i].Sender == controller.SenderBot {
			return i
		}
	}
	return -1
}

func (m *Model) moveSelection(delta int) {
	n := len(m.state.Messages)
	if n == 0 {
		return
	}
	if m.selected < 0 {
		m.selected = n
	}
	m.selected += delta
	if m.selected < 0 {
		m.selected = 0
	}
	if m.selected >= n {
		m.selected = n - 1
	}
	m.renderTranscript()
}

func (m *Model) loadSourceValue() {
	if m.state.Input.FilePickerVisible {
		m.source.SetValue(m.state.FilePath)
	} else {
		m.source.SetValue(m.state.Text)
	}
	m.source.CursorEnd()
}

// refresh pulls the controller state into the widgets.
func (m *Model) refresh() {
	m.state = m.ctrl.State()

	if m.state.Input.FilePickerVisible {
		m.source.Placeholder = filePlaceholder
	} else {
		m.source.Placeholder = m.state.Input.Placeholder
	}

	if m.state.ChatInput != m.lastInput {
		m.lastInput = m.state.ChatInput
		m.chat.SetValue(m.state.ChatInput)
		m.chat.CursorEnd()
	}

	m.renderTranscript()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.source.Width = max(width-4, 10)
	m.chat.Width = max(width-7, 10)
	m.progress.Width = max(width-20, 10)
	m.viewport.Width = max(width-2, 20)
	m.viewport.Height = max(height-14, minTranscriptLines)

	if t, err := markup.NewTerminal(m.viewport.Width-4, m.style); err == nil {
		m.terminal = t
		m.rendered = nil
	}
	m.renderTranscript()
}

func (m *Model) renderTranscript() {
	for len(m.rendered) < len(m.state.Messages) {
		msg := m.state.Messages[len(m.rendered)]
		m.rendered = append(m.rendered, m.renderMessage(msg))
	}

	var b strings.Builder
	for i, text := range m.rendered {
		marker := "  "
		if i == m.selected {
			marker = selectedStyle.Render("▶ ")
		}
		b.WriteString(marker + text + "\n\n")
	}
	if m.state.Typing {
		b.WriteString("  " + botLabelStyle.Render("Tutor:") + " " + m.spinner.View() + "Thinking...\n")
	}

	m.viewport.SetContent(b.String())
	if m.selected < 0 {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderMessage(msg controller.Message) string {
	if msg.Sender == controller.SenderUser {
		return userLabelStyle.Render("You:") + " " + msg.Text
	}
	if msg.Error {
		return botLabelStyle.Render("Tutor:") + " " + errorStyle.Render(msg.Text)
	}
	body := msg.Text
	if m.terminal != nil {
		body = m.terminal.Render(msg.HTML)
	}
	return botLabelStyle.Render("Tutor:") + "\n" + body
}
