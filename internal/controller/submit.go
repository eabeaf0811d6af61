package controller

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"vidtutor/internal/client"
)

type Outcome int

const (
	SubmitRejected Outcome = iota
	SubmitFailed
	SubmitStarted
)

func (o Outcome) String() string {
	switch o {
	case SubmitRejected:
		return "rejected"
	case SubmitFailed:
		return "failed"
	case SubmitStarted:
		return "started"
	}
	return "unknown"
}

type SubmitResult struct {
	Outcome Outcome
	Status  string
	Err     error
}

// Submit sends the active mode's input to the server and, on acceptance,
// starts polling for progress. It is rejected while the start control is
// disabled, so only one start request is ever in flight.
func (c *Controller) Submit(ctx context.Context) SubmitResult {
	c.mutex.Lock()
	if !c.state.Start.Enabled {
		c.mutex.Unlock()
		return SubmitResult{Outcome: SubmitRejected, Err: ErrBusy}
	}
	mode := c.state.Mode
	value := strings.TrimSpace(c.state.Text)
	if mode == ModeUpload {
		value = strings.TrimSpace(c.state.FilePath)
	}
	if value == "" {
		c.mutex.Unlock()
		c.alert(InvalidInputAlert)
		return SubmitResult{Outcome: SubmitRejected, Err: ErrEmptyInput}
	}

	previous := c.poller
	c.poller = nil
	c.generation++
	if c.hideTimer != nil {
		c.hideTimer.Stop()
	}
	c.state.Start = StartControl{Enabled: false, Label: BusyLabel}
	c.state.Progress = ProgressView{Visible: true, Label: BusyLabel}
	c.mutex.Unlock()

	if previous != nil {
		previous.Stop()
	}
	c.changed()

	req := client.StartRequest{Mode: string(mode)}
	if mode == ModeUpload {
		req.FilePath = value
	} else {
		req.Input = value
	}

	resp, err := c.backend.Start(ctx, req)
	if err != nil {
		log.Printf("[UI] Start request failed: %v", err)
		c.resetStart()
		return SubmitResult{Outcome: SubmitFailed, Err: err}
	}
	if resp.Failed() {
		c.alert(resp.Status)
		c.resetStart()
		return SubmitResult{Outcome: SubmitFailed, Status: resp.Status, Err: errors.New(resp.Status)}
	}

	c.startPolling()
	return SubmitResult{Outcome: SubmitStarted, Status: resp.Status}
}

// CancelProcessing asks the server to stop the session's job and resets
// the start control.
func (c *Controller) CancelProcessing(ctx context.Context) (string, error) {
	c.StopPolling()
	status, err := c.backend.Cancel(ctx)
	if err != nil {
		log.Printf("[UI] Cancel request failed: %v", err)
	}
	c.resetStart()
	return status, err
}

func (c *Controller) resetStart() {
	c.update(func(s *State) {
		s.Start = StartControl{Enabled: true, Label: IdleLabel}
		s.Progress.Visible = false
	})
}

func (c *Controller) startPolling() {
	c.mutex.Lock()
	gen := c.generation
	p := NewPoller(c.opts.PollInterval, c.backend.Progress,
		func(snap client.ProgressSnapshot) { c.applySnapshot(gen, snap) },
		func(snap client.ProgressSnapshot) { c.finish(gen, snap) },
	)
	c.poller = p
	c.mutex.Unlock()

	go p.Run(c.ctx)
}

// StopPolling stops the running poller, if any. Snapshots still in flight
// are discarded.
func (c *Controller) StopPolling() {
	c.mutex.Lock()
	p := c.poller
	c.poller = nil
	c.generation++
	c.mutex.Unlock()

	if p != nil {
		p.Stop()
	}
}

func (c *Controller) applySnapshot(gen int, snap client.ProgressSnapshot) {
	c.mutex.Lock()
	if gen != c.generation {
		c.mutex.Unlock()
		return
	}
	label := snap.CurrentFile
	if label == "" {
		label = BusyLabel
	}
	c.state.Progress = ProgressView{Visible: true, Percent: Percent(snap.Progress), Label: label}
	c.mutex.Unlock()
	c.changed()
}

func (c *Controller) finish(gen int, snap client.ProgressSnapshot) {
	c.mutex.Lock()
	if gen != c.generation {
		c.mutex.Unlock()
		return
	}
	label := CompleteLabel
	if snap.Status == StatusFailed && snap.Message != "" {
		label = snap.Message
	}
	c.state.Progress = ProgressView{Visible: true, Percent: 100, Label: label}
	c.state.Start = StartControl{Enabled: true, Label: IdleLabel}
	c.poller = nil
	c.hideTimer = time.AfterFunc(c.opts.HideDelay, func() { c.hide(gen) })
	c.mutex.Unlock()
	c.changed()
}

func (c *Controller) hide(gen int) {
	c.mutex.Lock()
	if gen != c.generation {
		c.mutex.Unlock()
		return
	}
	c.state.Progress.Visible = false
	c.mutex.Unlock()
	c.changed()
}
