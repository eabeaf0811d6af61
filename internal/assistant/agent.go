// Package assistant answers chat messages about a session's processed videos
// with a tool-using agent over OpenAI function calling.
package assistant

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"vidtutor/internal/knowledge"
)

const (
	maxToolRounds     = 5
	maxMemoryMessages = 20
)

const systemPrompt = `You are a study assistant for videos the user has processed.
Use the learning tool to answer questions about the videos and never answer from your own knowledge.
If the user wants to be tested use the quiz tool, to see or check answers use quiz_answers,
for a summary use summarize and for a visual use mindmap_image.
Keep answers short and clear.`

var ErrEmptyMessage = errors.New("message is empty")

type ChatModel interface {
	Complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type History interface {
	Append(ctx context.Context, sessionID, sender, message string) error
	SaveQuiz(ctx context.Context, sessionID, quiz string) error
	Quiz(ctx context.Context, sessionID string) (string, bool, error)
}

type Agent struct {
	model           ChatModel
	embedder        knowledge.Embedder
	store           *knowledge.Store
	history         History
	images          ImageGenerator
	retrievalChunks int

	memory map[string][]openai.ChatCompletionMessage
	mutex  sync.Mutex
}

// NewAgent builds an agent. images may be nil when no Ideogram key is set.
func NewAgent(model ChatModel, embedder knowledge.Embedder, store *knowledge.Store, history History, images ImageGenerator, retrievalChunks int) *Agent {
	if retrievalChunks <= 0 {
		retrievalChunks = 2
	}
	return &Agent{
		model:           model,
		embedder:        embedder,
		store:           store,
		history:         history,
		images:          images,
		retrievalChunks: retrievalChunks,
		memory:          make(map[string][]openai.ChatCompletionMessage),
	}
}

// Chat runs one user turn and returns the assistant's reply. Both sides of
// the exchange are recorded in the session history.
func (a *Agent) Chat(ctx context.Context, sessionID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	if err := a.history.Append(ctx, sessionID, "User", message); err != nil {
		log.Printf("[ASSISTANT] %s: Failed to save user message: %v", sessionID, err)
	}

	messages := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: systemPrompt}}
	messages = append(messages, a.recall(sessionID)...)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	reply, err := a.run(ctx, sessionID, messages)
	if err != nil {
		return "", err
	}

	a.remember(sessionID,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
	)
	if err := a.history.Append(ctx, sessionID, "Bot", reply); err != nil {
		log.Printf("[ASSISTANT] %s: Failed to save reply: %v", sessionID, err)
	}
	return reply, nil
}

func (a *Agent) run(ctx context.Context, sessionID string, messages []openai.ChatCompletionMessage) (string, error) {
	tools := toolDefinitions()
	var last string

	for round := 0; round <= maxToolRounds; round++ {
		req := openai.ChatCompletionRequest{Messages: messages}
		if round < maxToolRounds {
			req.Tools = tools
		}

		resp, err := a.model.Complete(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("model returned no choices")
		}

		msg := resp.Choices[0].Message
		if msg.Content != "" {
			last = msg.Content
		}
		if len(msg.ToolCalls) == 0 {
			return strings.TrimSpace(msg.Content), nil
		}

		messages = append(messages, msg)
		var direct []string
		for _, call := range msg.ToolCalls {
			result := a.runTool(ctx, sessionID, call)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
			if directTools[call.Function.Name] {
				direct = append(direct, result)
			}
		}
		if len(direct) > 0 {
			return strings.Join(direct, "\n\n"), nil
		}
	}

	log.Printf("[ASSISTANT] %s: Tool round limit reached", sessionID)
	return strings.TrimSpace(last), nil
}

func (a *Agent) recall(sessionID string) []openai.ChatCompletionMessage {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return append([]openai.ChatCompletionMessage(nil), a.memory[sessionID]...)
}

func (a *Agent) remember(sessionID string, msgs ...openai.ChatCompletionMessage) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	mem := append(a.memory[sessionID], msgs...)
	if len(mem) > maxMemoryMessages {
		mem = mem[len(mem)-maxMemoryMessages:]
	}
	a.memory[sessionID] = mem
}
