package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

type changedMsg struct{}

// AlertMsg shows a modal message until dismissed.
type AlertMsg struct {
	Text string
}

// Bridge forwards controller notifications into a running program.
// Redraw requests are coalesced and never block the caller, so the
// controller may notify from inside Update. Alerts are queued and delivered
// in the order they were raised, including those raised before Attach.
type Bridge struct {
	mutex  sync.Mutex
	alerts []string
	redraw chan struct{}
	alert  chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewBridge() *Bridge {
	return &Bridge{
		redraw: make(chan struct{}, 1),
		alert:  make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Attach starts forwarding to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.start(p.Send)
}

func (b *Bridge) start(send func(tea.Msg)) {
	go b.pump(send)
	b.signal(b.alert)
}

func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bridge) Changed() {
	b.signal(b.redraw)
}

func (b *Bridge) Alert(message string) {
	b.mutex.Lock()
	b.alerts = append(b.alerts, message)
	b.mutex.Unlock()
	b.signal(b.alert)
}

func (b *Bridge) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (b *Bridge) takeAlerts() []string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	pending := b.alerts
	b.alerts = nil
	return pending
}

func (b *Bridge) pump(send func(tea.Msg)) {
	for {
		select {
		case <-b.done:
			return
		case <-b.redraw:
			send(changedMsg{})
		case <-b.alert:
			for _, text := range b.takeAlerts() {
				send(AlertMsg{Text: text})
			}
		}
	}
}
