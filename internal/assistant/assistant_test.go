package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"

	"vidtutor/internal/knowledge"
)

type scriptedModel struct {
	replies  []openai.ChatCompletionMessage
	requests []openai.ChatCompletionRequest
	mutex    sync.Mutex
}

func (m *scriptedModel) Complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.requests = append(m.requests, req)
	if len(m.replies) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("no scripted reply")
	}
	msg := m.replies[0]
	m.replies = m.replies[1:]
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: msg}}}, nil
}

func text(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}
}

func callTool(name, args string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{{
			ID:       "call_" + name,
			Type:     openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

type memoryHistory struct {
	entries []string
	quizzes map[string]string
}

func (h *memoryHistory) Append(ctx context.Context, sessionID, sender, message string) error {
	h.entries = append(h.entries, sender+": "+message)
	return nil
}

func (h *memoryHistory) SaveQuiz(ctx context.Context, sessionID, quiz string) error {
	if h.quizzes == nil {
		h.quizzes = map[string]string{}
	}
	h.quizzes[sessionID] = quiz
	return nil
}

func (h *memoryHistory) Quiz(ctx context.Context, sessionID string) (string, bool, error) {
	q, ok := h.quizzes[sessionID]
	return q, ok, nil
}

type unitEmbedder struct{}

func (unitEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(t, "cell") {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

type fakeImages struct {
	prompt string
	url    string
	err    error
}

func (f *fakeImages) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.url, f.err
}

func seededStore(t *testing.T, sessionID string) *knowledge.Store {
	t.Helper()
	store := knowledge.NewStore(t.TempDir())
	ix, err := store.Open(sessionID)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	err = ix.Replace(context.Background(), []knowledge.Document{
		{Content: "the cell is the unit of life", Source: "https://youtu.be/a", Vector: []float32{1, 0}},
		{Content: "rivers flow to the sea", Source: "https://youtu.be/b", Vector: []float32{0, 1}},
		{Content: "cell walls exist in plants", Source: "https://youtu.be/a", Vector: []float32{0.9, 0.1}},
	})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	return store
}

func TestChatPlainReply(t *testing.T) {
	model := &scriptedModel{replies: []openai.ChatCompletionMessage{text("Hello there")}}
	history := &memoryHistory{}
	agent := NewAgent(model, unitEmbedder{}, seededStore(t, "s"), history, nil, 2)

	reply, err := agent.Chat(context.Background(), "s", "  hi  ")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "Hello there" {
		t.Errorf("Unexpected reply: %q", reply)
	}
	if len(history.entries) != 2 || history.entries[0] != "User: hi" || history.entries[1] != "Bot: Hello there" {
		t.Errorf("Unexpected history: %v", history.entries)
	}
	if len(model.requests[0].Tools) != 5 {
		t.Errorf("Expected 5 tools offered, got %d", len(model.requests[0].Tools))
	}
}

func TestChatEmptyMessage(t *testing.T) {
	agent := NewAgent(&scriptedModel{}, unitEmbedder{}, seededStore(t, "s"), &memoryHistory{}, nil, 2)
	if _, err := agent.Chat(context.Background(), "s", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Expected ErrEmptyMessage, got %v", err)
	}
}

func TestChatLearningTool(t *testing.T) {
	model := &scriptedModel{replies: []openai.ChatCompletionMessage{
		callTool(toolLearning, `{"query":"What is a CELL?"}`),
		text("The cell is the unit of life."),
		text("A cell is the basic unit of life."),
	}}
	agent := NewAgent(model, unitEmbedder{}, seededStore(t, "s"), &memoryHistory{}, nil, 2)

	reply, err := agent.Chat(context.Background(), "s", "What is a cell?")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "A cell is the basic unit of life." {
		t.Errorf("Unexpected reply: %q", reply)
	}

	prompt := model.requests[1].Messages[0].Content
	if !strings.Contains(prompt, "the cell is the unit of life") || !strings.Contains(prompt, "cell walls exist in plants") {
		t.Errorf("Expected the two closest chunks in the prompt, got %q", prompt)
	}
	if strings.Contains(prompt, "rivers") {
		t.Error("Expected only k=2 chunks in the prompt")
	}

	final := model.requests[2].Messages
	toolMsg := final[len(final)-1]
	if toolMsg.Role != openai.ChatMessageRoleTool || toolMsg.ToolCallID != "call_learning" {
		t.Errorf("Expected tool result message, got %+v", toolMsg)
	}
}

func TestLearningWithEmptyIndex(t *testing.T) {
	agent := NewAgent(&scriptedModel{}, unitEmbedder{}, knowledge.NewStore(t.TempDir()), &memoryHistory{}, nil, 2)

	got, err := agent.learning(context.Background(), "empty", "anything")
	if err != nil {
		t.Fatalf("learning failed: %v", err)
	}
	if got != NotFoundReply {
		t.Errorf("Expected not-found reply, got %q", got)
	}
}

func TestQuizAndAnswers(t *testing.T) {
	full := "Q1: What is a cell?\na) unit\nb) river\nAnswer: a\n\nQ2: Do plants have walls?\na) True\nb) False\nAnswer: a"
	model := &scriptedModel{replies: []openai.ChatCompletionMessage{
		callTool(toolQuiz, "{}"),
		text(full),
		callTool(toolQuizAnswers, "{}"),
	}}
	history := &memoryHistory{}
	agent := NewAgent(model, unitEmbedder{}, seededStore(t, "s"), history, nil, 2)

	quiz, err := agent.Chat(context.Background(), "s", "test me")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if strings.Contains(quiz, "Answer:") {
		t.Errorf("Expected answers stripped, got %q", quiz)
	}
	if !strings.Contains(quiz, "Q2: Do plants have walls?") {
		t.Errorf("Expected questions kept, got %q", quiz)
	}
	if history.quizzes["s"] != full {
		t.Errorf("Expected full quiz stored, got %q", history.quizzes["s"])
	}

	answers, err := agent.Chat(context.Background(), "s", "show answers")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if answers != "✅ Here are the questions with answers:\n\n"+full {
		t.Errorf("Unexpected answers reply: %q", answers)
	}
}

func TestQuizAnswersWithoutQuiz(t *testing.T) {
	agent := NewAgent(&scriptedModel{}, unitEmbedder{}, seededStore(t, "s"), &memoryHistory{}, nil, 2)

	got, err := agent.quizAnswers(context.Background(), "s")
	if err != nil {
		t.Fatalf("quizAnswers failed: %v", err)
	}
	if got != NoQuizReply {
		t.Errorf("Unexpected reply: %q", got)
	}
}

func TestStripAnswers(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Q1: x\nAnswer: b\nQ2: y\nAnswer: d", "Q1: x\n\nQ2: y\n"},
		{"Answer: e\n", "Answer: e\n"},
		{"no answers", "no answers"},
	}
	for _, tt := range tests {
		if got := StripAnswers(tt.in); got != tt.want {
			t.Errorf("StripAnswers(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMindmapImage(t *testing.T) {
	model := &scriptedModel{replies: []openai.ChatCompletionMessage{
		callTool(toolMindmapImage, "{}"),
		text("- cells\n- rivers"),
		text("  Life and Water  "),
	}}
	images := &fakeImages{url: "https://img.example/map.png"}
	agent := NewAgent(model, unitEmbedder{}, seededStore(t, "s"), &memoryHistory{}, images, 2)

	reply, err := agent.Chat(context.Background(), "s", "draw a mind map")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "🖼️ Mindmap image generated! View here: https://img.example/map.png" {
		t.Errorf("Unexpected reply: %q", reply)
	}
	if !strings.Contains(images.prompt, "Life and Water") {
		t.Errorf("Expected title in image prompt, got %q", images.prompt)
	}
}

func TestMindmapImageError(t *testing.T) {
	model := &scriptedModel{replies: []openai.ChatCompletionMessage{text("summary"), text("Title")}}
	images := &fakeImages{err: errors.New("quota exceeded")}
	agent := NewAgent(model, unitEmbedder{}, seededStore(t, "s"), &memoryHistory{}, images, 2)

	got, err := agent.mindmapImage(context.Background(), "s")
	if err != nil {
		t.Fatalf("mindmapImage failed: %v", err)
	}
	if got != "❌ Error generating mindmap image: quota exceeded" {
		t.Errorf("Unexpected reply: %q", got)
	}
}

func TestToolRoundLimit(t *testing.T) {
	var replies []openai.ChatCompletionMessage
	for i := 0; i < maxToolRounds; i++ {
		msg := callTool(toolSummarize, "{}")
		msg.Content = fmt.Sprintf("thinking %d", i)
		replies = append(replies, msg, text("summary"))
	}
	replies = append(replies, text(""))
	model := &scriptedModel{replies: replies}
	agent := NewAgent(model, unitEmbedder{}, seededStore(t, "s"), &memoryHistory{}, nil, 2)

	reply, err := agent.Chat(context.Background(), "s", "summarize forever")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "" {
		t.Errorf("Expected empty final reply, got %q", reply)
	}

	last := model.requests[len(model.requests)-1]
	if len(last.Tools) != 0 {
		t.Error("Expected no tools offered after the round limit")
	}
}

func TestMemoryIsBounded(t *testing.T) {
	var replies []openai.ChatCompletionMessage
	for i := 0; i < 15; i++ {
		replies = append(replies, text(fmt.Sprintf("reply %d", i)))
	}
	model := &scriptedModel{replies: replies}
	agent := NewAgent(model, unitEmbedder{}, seededStore(t, "s"), &memoryHistory{}, nil, 2)

	for i := 0; i < 15; i++ {
		agent.Chat(context.Background(), "s", fmt.Sprintf("message %d", i))
	}
	if n := len(agent.recall("s")); n != maxMemoryMessages {
		t.Errorf("Expected memory capped at %d, got %d", maxMemoryMessages, n)
	}
	if len(agent.recall("other")) != 0 {
		t.Error("Expected sessions to have separate memory")
	}
}

func TestIdeogramGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Api-Key") != "secret" {
			http.Error(w, "bad key", http.StatusUnauthorized)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("aspect_ratio") != "16x9" || r.FormValue("rendering_speed") != "QUALITY" || r.FormValue("style_type") != "GENERAL" {
			http.Error(w, "bad fields", http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"data":[{"url":"https://img.example/%s.png"}]}`, r.FormValue("prompt"))
	}))
	defer server.Close()

	g := NewIdeogram("secret")
	g.Endpoint = server.URL

	url, err := g.Generate(context.Background(), "map")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if url != "https://img.example/map.png" {
		t.Errorf("Unexpected url: %s", url)
	}

	g.APIKey = "wrong"
	if _, err := g.Generate(context.Background(), "map"); err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Errorf("Expected error with response body, got %v", err)
	}
}
