package controller

import (
	"context"
	"log"
	"strings"

	"vidtutor/internal/markup"
)

type ChatResult struct {
	Sent  bool
	Reply string
	Err   error
}

// SendChat appends the user's message, shows the typing placeholder while
// the server answers and appends the reply or an error bubble.
func (c *Controller) SendChat(ctx context.Context, text string) ChatResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatResult{}
	}

	c.mutex.Lock()
	c.state.Messages = append(c.state.Messages, userMessage(text))
	c.state.ChatInput = ""
	c.pendingReplies++
	c.mutex.Unlock()
	c.changed()

	reply, err := c.backend.Chat(ctx, text)

	c.mutex.Lock()
	c.pendingReplies--
	if err != nil {
		c.state.Messages = append(c.state.Messages, botMessage("Error: "+err.Error(), true))
	} else {
		c.state.Messages = append(c.state.Messages, botMessage(reply, false))
	}
	c.mutex.Unlock()
	c.changed()

	if err != nil {
		log.Printf("[UI] Chat request failed: %v", err)
	}
	return ChatResult{Sent: true, Reply: reply, Err: err}
}

// Speak reads the message at index aloud.
func (c *Controller) Speak(ctx context.Context, index int) error {
	c.mutex.Lock()
	if index < 0 || index >= len(c.state.Messages) {
		c.mutex.Unlock()
		return ErrNoMessage
	}
	text := markup.PlainText(c.state.Messages[index].HTML)
	c.mutex.Unlock()

	err := c.speak(ctx, text)
	if err != nil {
		log.Printf("[UI] Speak failed: %v", err)
		c.appendError(err)
	}
	return err
}

func (c *Controller) speak(ctx context.Context, text string) error {
	audio, err := c.backend.Speak(ctx, text)
	if err != nil {
		return err
	}
	if c.player == nil {
		return ErrNoPlayer
	}
	return c.player.Play(ctx, audio)
}

func (c *Controller) appendError(err error) {
	c.update(func(s *State) {
		s.Messages = append(s.Messages, botMessage("Error: "+err.Error(), true))
	})
}

func userMessage(text string) Message {
	return Message{Sender: SenderUser, Text: text, HTML: markup.RenderUser(text)}
}

func botMessage(text string, isError bool) Message {
	return Message{Sender: SenderBot, Text: text, HTML: markup.RenderBot(text), Error: isError}
}
