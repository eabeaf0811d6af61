package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"vidtutor/internal/client"
	"vidtutor/internal/controller"
)

type stubBackend struct{}

func (stubBackend) Start(ctx context.Context, req client.StartRequest) (client.StartResponse, error) {
	return client.StartResponse{Status: "❌ Invalid video URL."}, nil
}

func (stubBackend) Progress(ctx context.Context) (client.ProgressSnapshot, error) {
	return client.ProgressSnapshot{Status: "unknown"}, nil
}

func (stubBackend) Cancel(ctx context.Context) (string, error) {
	return "❌ No processing in progress.", nil
}

func (stubBackend) Chat(ctx context.Context, message string) (string, error) {
	return "Q1: " + message, nil
}

func (stubBackend) Speak(ctx context.Context, text string) ([]byte, error) {
	return nil, nil
}

func (stubBackend) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	return "", nil
}

func (stubBackend) History(ctx context.Context, limit int) ([]client.HistoryEntry, error) {
	return nil, nil
}

func newTestModel(t *testing.T) (Model, *controller.Controller) {
	t.Helper()
	ctrl := controller.New(stubBackend{}, nil, nil, nil, controller.DefaultOptions())
	t.Cleanup(ctrl.Close)
	m := New(context.Background(), ctrl, "notty")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model), ctrl
}

func press(t *testing.T, m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(key)
	return updated.(Model), cmd
}

func TestModeKeys(t *testing.T) {
	m, ctrl := newTestModel(t)

	if !strings.Contains(m.View(), "Enter YouTube URL...") {
		t.Error("Expected single URL placeholder in view")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF2})
	if ctrl.State().Mode != controller.ModePlaylist {
		t.Errorf("Expected playlist mode, got %s", ctrl.State().Mode)
	}
	if !strings.Contains(m.View(), "Enter YouTube Playlist URL...") {
		t.Error("Expected playlist placeholder in view")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF4})
	if !ctrl.State().Input.FilePickerVisible {
		t.Error("Expected file picker in upload mode")
	}
	if !strings.Contains(m.View(), filePlaceholder) {
		t.Error("Expected file placeholder in view")
	}
}

func TestTypingUpdatesController(t *testing.T) {
	m, ctrl := newTestModel(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("abc")})
	if ctrl.State().Text != "abc" {
		t.Errorf("Expected text abc, got %q", ctrl.State().Text)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})
	if ctrl.State().ChatInput != "hi" {
		t.Errorf("Expected chat input hi, got %q", ctrl.State().ChatInput)
	}
	if ctrl.State().Text != "abc" {
		t.Error("Chat typing must not change the source input")
	}
}

func TestEnterSendsChat(t *testing.T) {
	m, ctrl := newTestModel(t)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("cells")})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("Expected a chat command")
	}

	updated, _ := m.Update(cmd())
	m = updated.(Model)
	if n := len(ctrl.State().Messages); n != 2 {
		t.Fatalf("Expected 2 messages, got %d", n)
	}
	view := m.View()
	if !strings.Contains(view, "You:") || !strings.Contains(view, "Q1:") {
		t.Errorf("Expected transcript in view, got %q", view)
	}
	if m.chat.Value() != "" {
		t.Errorf("Expected chat input to be cleared, got %q", m.chat.Value())
	}
}

func TestAlertBlocksInput(t *testing.T) {
	m, ctrl := newTestModel(t)

	updated, _ := m.Update(AlertMsg{Text: controller.InvalidInputAlert})
	m = updated.(Model)
	if !strings.Contains(m.View(), controller.InvalidInputAlert) {
		t.Error("Expected alert in view")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyF3})
	if ctrl.State().Mode != controller.ModeSingleURL {
		t.Error("Keys must be ignored while an alert is shown")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.alerts) != 0 {
		t.Error("Expected alert to be dismissed")
	}
}

func TestAlertsShownInOrder(t *testing.T) {
	m, _ := newTestModel(t)

	for _, text := range []string{"first", "second"} {
		updated, _ := m.Update(AlertMsg{Text: text})
		m = updated.(Model)
	}
	if !strings.Contains(m.View(), "first") || strings.Contains(m.View(), "second") {
		t.Fatal("Expected only the first alert to be shown")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.View(), "second") {
		t.Error("Expected the second alert after dismissing the first")
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.alerts) != 0 {
		t.Errorf("Expected no alerts left, got %q", m.alerts)
	}
}

func TestBridgeDeliversAlertsInOrder(t *testing.T) {
	b := NewBridge()
	defer b.Close()

	b.Alert("queued before attach")
	received := make(chan string, 32)
	b.start(func(msg tea.Msg) {
		if a, ok := msg.(AlertMsg); ok {
			received <- a.Text
		}
	})

	want := []string{"queued before attach"}
	for i := 0; i < 20; i++ {
		text := fmt.Sprintf("alert %d", i)
		want = append(want, text)
		b.Alert(text)
	}

	for i, w := range want {
		select {
		case got := <-received:
			if got != w {
				t.Fatalf("Alert %d: expected %q, got %q", i, w, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for alert %d", i)
		}
	}
}

func TestSubmitDisabledWhileBusy(t *testing.T) {
	m, _ := newTestModel(t)
	m.state.Start.Enabled = false

	if _, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("Expected no submission while busy")
	}
}

func TestBridgeChangedDoesNotBlock(t *testing.T) {
	b := NewBridge()
	defer b.Close()

	for i := 0; i < 10; i++ {
		b.Changed()
	}
	b.Alert("queued before attach")
}
