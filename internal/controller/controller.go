// Package controller holds the front-end state machine: mode selection,
// submissions, progress polling, the chat transcript and voice I/O. A view
// (the terminal UI) renders State and forwards user actions.
package controller

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"vidtutor/internal/client"
)

const (
	InvalidInputAlert     = "Please enter a valid input"
	VoiceUnavailableAlert = "Voice recognition is not available."

	BusyLabel     = "Processing..."
	IdleLabel     = "Process"
	CompleteLabel = "Processing complete"
)

var (
	ErrEmptyInput       = errors.New("input is empty")
	ErrBusy             = errors.New("a start request is already in progress")
	ErrVoiceUnavailable = errors.New("voice recognition is not available")
	ErrNoMessage        = errors.New("no such message")
	ErrNoPlayer         = errors.New("no audio player configured")
)

// Backend is the server API as seen by the controller.
type Backend interface {
	Start(ctx context.Context, req client.StartRequest) (client.StartResponse, error)
	Progress(ctx context.Context) (client.ProgressSnapshot, error)
	Cancel(ctx context.Context) (string, error)
	Chat(ctx context.Context, message string) (string, error)
	Speak(ctx context.Context, text string) ([]byte, error)
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
	History(ctx context.Context, limit int) ([]client.HistoryEntry, error)
}

// Recognizer records one utterance and returns the path of the recording.
type Recognizer interface {
	Available() error
	Record(ctx context.Context) (string, error)
}

type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// Notifier is how the controller reaches the view. Alert is blocking in
// spirit: the view shows it until dismissed. Changed asks for a redraw.
type Notifier interface {
	Alert(message string)
	Changed()
}

type Options struct {
	PollInterval time.Duration
	HideDelay    time.Duration
	Locale       string
}

func DefaultOptions() Options {
	return Options{
		PollInterval: time.Second,
		HideDelay:    3 * time.Second,
		Locale:       "en-US",
	}
}

type StartControl struct {
	Enabled bool
	Label   string
}

type ProgressView struct {
	Visible bool
	Percent int
	Label   string
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Message struct {
	Sender Sender
	Text   string
	HTML   string
	Error  bool
}

// State is a snapshot of everything the view renders.
type State struct {
	Mode           Mode
	Input          InputArea
	Text           string
	FilePath       string
	Start          StartControl
	Progress       ProgressView
	Messages       []Message
	Typing         bool
	ChatInput      string
	VoiceAvailable bool
	Listening      bool
}

type Controller struct {
	backend    Backend
	recognizer Recognizer
	player     Player
	notifier   Notifier
	opts       Options

	ctx    context.Context
	cancel context.CancelFunc

	mutex          sync.Mutex
	state          State
	pendingReplies int
	poller         *Poller
	generation     int
	hideTimer      *time.Timer
}

func New(backend Backend, recognizer Recognizer, player Player, notifier Notifier, opts Options) *Controller {
	defaults := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}
	if opts.HideDelay < 0 {
		opts.HideDelay = defaults.HideDelay
	}
	if opts.Locale == "" {
		opts.Locale = defaults.Locale
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		backend:    backend,
		recognizer: recognizer,
		player:     player,
		notifier:   notifier,
		opts:       opts,
		ctx:        ctx,
		cancel:     cancel,
	}
	c.state.Start = StartControl{Enabled: true, Label: IdleLabel}
	c.applyMode(ModeSingleURL)
	return c
}

// State returns a copy of the current view state.
func (c *Controller) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	s := c.state
	s.Messages = append([]Message(nil), c.state.Messages...)
	s.Typing = c.pendingReplies > 0
	return s
}

func (c *Controller) SetText(text string) {
	c.update(func(s *State) { s.Text = text })
}

func (c *Controller) SetFilePath(path string) {
	c.update(func(s *State) { s.FilePath = path })
}

func (c *Controller) SetChatInput(text string) {
	c.update(func(s *State) { s.ChatInput = text })
}

// LoadHistory appends the session's stored conversation to the transcript.
func (c *Controller) LoadHistory(ctx context.Context, limit int) error {
	entries, err := c.backend.History(ctx, limit)
	if err != nil {
		log.Printf("[UI] Failed to load history: %v", err)
		return err
	}
	c.update(func(s *State) {
		for _, e := range entries {
			if e.Sender == "User" {
				s.Messages = append(s.Messages, userMessage(e.Message))
			} else {
				s.Messages = append(s.Messages, botMessage(e.Message, false))
			}
		}
	})
	return nil
}

// Close stops background work.
func (c *Controller) Close() {
	c.StopPolling()
	c.mutex.Lock()
	if c.hideTimer != nil {
		c.hideTimer.Stop()
	}
	c.mutex.Unlock()
	c.cancel()
}

func (c *Controller) update(fn func(s *State)) {
	c.mutex.Lock()
	fn(&c.state)
	c.mutex.Unlock()
	c.changed()
}

func (c *Controller) changed() {
	if c.notifier != nil {
		c.notifier.Changed()
	}
}

func (c *Controller) alert(message string) {
	if c.notifier != nil {
		c.notifier.Alert(message)
	}
}
