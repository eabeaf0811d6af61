package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	toolLearning     = "learning"
	toolQuiz         = "quiz"
	toolQuizAnswers  = "quiz_answers"
	toolSummarize    = "summarize"
	toolMindmapImage = "mindmap_image"
)

const (
	NotFoundReply  = "I couldn’t find that information in the provided videos."
	NoQuizReply    = "❌ No quiz has been generated yet. Please generate a quiz first."
	NoContentReply = "❌ No processed videos yet. Process a video, playlist, topic or upload first."
)

var answerLine = regexp.MustCompile(`Answer: [a-d](\n|$)`)

// directTools produce the final reply verbatim instead of feeding another
// model round.
var directTools = map[string]bool{
	toolQuiz:         true,
	toolQuizAnswers:  true,
	toolMindmapImage: true,
}

func toolDefinitions() []openai.Tool {
	noArgs := map[string]any{"type": "object", "properties": map[string]any{}}
	define := func(name, description string, params map[string]any) openai.Tool {
		return openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        name,
				Description: description,
				Parameters:  params,
			},
		}
	}

	return []openai.Tool{
		define(toolLearning,
			"Answer a question using only the processed videos. Never answer from general knowledge. "+
				"If the documents do not contain the answer, say so.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "The user's question"},
				},
				"required": []string{"query"},
			}),
		define(toolQuiz,
			"Generate a quiz when the user asks to be tested, e.g. \"test me\" or \"give me a quiz\". "+
				"Questions come only from the processed videos.",
			noArgs),
		define(toolQuizAnswers,
			"Return the latest quiz with its answers. Use it to reveal answers or to grade the user's answers "+
				"and tell them how many they got right out of the total.",
			noArgs),
		define(toolSummarize,
			"Summarize the processed videos as a small, clean mind map style outline.",
			noArgs),
		define(toolMindmapImage,
			"Create an image of a mind map with the main points of the processed videos.",
			noArgs),
	}
}

func (a *Agent) runTool(ctx context.Context, sessionID string, call openai.ToolCall) string {
	log.Printf("[ASSISTANT] %s: Running tool %s", sessionID, call.Function.Name)

	var result string
	var err error
	switch call.Function.Name {
	case toolLearning:
		var args struct {
			Query string `json:"query"`
		}
		if call.Function.Arguments != "" {
			if jerr := json.Unmarshal([]byte(call.Function.Arguments), &args); jerr != nil {
				return fmt.Sprintf("invalid arguments: %v", jerr)
			}
		}
		result, err = a.learning(ctx, sessionID, args.Query)
	case toolQuiz:
		result, err = a.quiz(ctx, sessionID)
	case toolQuizAnswers:
		result, err = a.quizAnswers(ctx, sessionID)
	case toolSummarize:
		result, err = a.summarize(ctx, sessionID)
	case toolMindmapImage:
		result, err = a.mindmapImage(ctx, sessionID)
	default:
		return fmt.Sprintf("unknown tool %q", call.Function.Name)
	}

	if err != nil {
		log.Printf("[ASSISTANT] %s: Tool %s failed: %v", sessionID, call.Function.Name, err)
		return fmt.Sprintf("❌ %s failed: %v", call.Function.Name, err)
	}
	return result
}

func (a *Agent) learning(ctx context.Context, sessionID, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return NotFoundReply, nil
	}

	index, err := a.store.Open(sessionID)
	if err != nil {
		return "", err
	}
	if index.Len() == 0 {
		return NotFoundReply, nil
	}

	vectors, err := a.embedder.Embed(ctx, []string{strings.ToLower(query)})
	if err != nil {
		return "", err
	}
	if len(vectors) != 1 {
		return "", fmt.Errorf("expected 1 query vector, got %d", len(vectors))
	}

	docs, err := index.Search(ctx, vectors[0], a.retrievalChunks)
	if err != nil {
		return "", err
	}

	var excerpts strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&excerpts, "[%d] (%s)\n%s\n\n", i+1, doc.Source, doc.Content)
	}

	prompt := fmt.Sprintf(
		"Answer the question using only the documents below. Do not use your own knowledge or assumptions. "+
			"If the answer is not in the documents, reply exactly: %q\n\nDocuments:\n%s\nQuestion: %s",
		NotFoundReply, excerpts.String(), query)
	return a.ask(ctx, prompt, 0)
}

func (a *Agent) fullText(ctx context.Context, sessionID string) (string, error) {
	index, err := a.store.Open(sessionID)
	if err != nil {
		return "", err
	}
	docs, err := index.All(ctx)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, " "), nil
}

const quizPrompt = `You are a smart teacher. Based on the following content, create 10 multiple-choice and true/false questions.
For EACH question, provide:
1. The question
2. Four answer options (a, b, c, d)
3. The correct answer letter

Content: %s

Format your response exactly like this:
Q1: Question 1?
a) Option1
b) Option2
c) Option3
d) Option4
Answer: b

Q2: Question 2?
a) True
b) False
Answer: a

Continue with all 10 questions.`

// quiz generates a quiz, stores the full version and returns it with the
// answer lines removed.
func (a *Agent) quiz(ctx context.Context, sessionID string) (string, error) {
	text, err := a.fullText(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if text == "" {
		return NoContentReply, nil
	}

	full, err := a.ask(ctx, fmt.Sprintf(quizPrompt, text), 0)
	if err != nil {
		return "", err
	}
	if err := a.history.SaveQuiz(ctx, sessionID, full); err != nil {
		return "", err
	}
	return StripAnswers(full), nil
}

// StripAnswers removes "Answer: x" lines from a quiz.
func StripAnswers(quiz string) string {
	return answerLine.ReplaceAllString(quiz, "$1")
}

func (a *Agent) quizAnswers(ctx context.Context, sessionID string) (string, error) {
	quiz, ok, err := a.history.Quiz(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !ok {
		return NoQuizReply, nil
	}
	return "✅ Here are the questions with answers:\n\n" + quiz, nil
}

func (a *Agent) summarize(ctx context.Context, sessionID string) (string, error) {
	text, err := a.fullText(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if text == "" {
		return NoContentReply, nil
	}
	return a.ask(ctx, "Create a small, simple mind map of the main points of the following text.\n\n"+text, 0)
}

func (a *Agent) mindmapImage(ctx context.Context, sessionID string) (string, error) {
	if a.images == nil {
		return "❌ Error generating mindmap image: image generation is not configured", nil
	}

	summary, err := a.summarize(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if summary == NoContentReply {
		return summary, nil
	}

	resp, err := a.model.Complete(ctx, openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a helpful assistant that writes concise, relevant titles."},
			{Role: openai.ChatMessageRoleUser, Content: "Generate a short, catchy, and relevant title for the following summary:\n\n" + summary + "\n\nTitle:"},
		},
		MaxTokens:   20,
		Temperature: 0.5,
	})
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(firstContent(resp))

	url, err := a.images.Generate(ctx, fmt.Sprintf("Draw a very small mind map about:\n\n%s.", title))
	if err != nil {
		return fmt.Sprintf("❌ Error generating mindmap image: %v", err), nil
	}
	return "🖼️ Mindmap image generated! View here: " + url, nil
}

func (a *Agent) ask(ctx context.Context, prompt string, temperature float32) (string, error) {
	resp, err := a.model.Complete(ctx, openai.ChatCompletionRequest{
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(firstContent(resp)), nil
}

func firstContent(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}
