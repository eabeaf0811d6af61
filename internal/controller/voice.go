package controller

import (
	"context"
	"log"
	"os"
	"strings"
)

// Init probes the voice recognizer and alerts once when it is missing.
func (c *Controller) Init() {
	available := c.recognizer != nil
	if available {
		if err := c.recognizer.Available(); err != nil {
			log.Printf("[UI] Voice recognition disabled: %v", err)
			available = false
		}
	}

	c.update(func(s *State) { s.VoiceAvailable = available })
	if !available {
		c.alert(VoiceUnavailableAlert)
	}
}

// Listen records one utterance and puts its transcript in the chat input.
// Failures are logged and returned, never shown in the transcript.
func (c *Controller) Listen(ctx context.Context) error {
	c.mutex.Lock()
	if !c.state.VoiceAvailable {
		c.mutex.Unlock()
		return ErrVoiceUnavailable
	}
	c.state.Listening = true
	c.mutex.Unlock()
	c.changed()

	defer c.update(func(s *State) { s.Listening = false })

	path, err := c.recognizer.Record(ctx)
	if err != nil {
		log.Printf("[UI] Voice recording failed: %v", err)
		return err
	}
	defer os.Remove(path)

	text, err := c.backend.Transcribe(ctx, path, c.opts.Locale)
	if err != nil {
		log.Printf("[UI] Voice transcription failed: %v", err)
		return err
	}

	text = strings.TrimSpace(text)
	if text != "" {
		c.update(func(s *State) { s.ChatInput = text })
	}
	return nil
}
