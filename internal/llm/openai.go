// Package llm adapts the OpenAI API to the small interfaces the rest of the
// server depends on: transcription, embeddings, chat completion and speech.
package llm

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/sashabaranov/go-openai"
)

type Models struct {
	Chat          string
	Embedding     string
	Transcription string
	Speech        string
	Voice         string
}

type Client struct {
	api    *openai.Client
	models Models
}

func NewClient(apiKey, baseURL string, models Models) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		models: models,
	}
}

// Transcribe sends an audio file to Whisper and returns plain text.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.models.Transcription,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatText,
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	return resp.Text, nil
}

// TranscribeReader is Transcribe for audio that is not on disk. name is only
// used to let the API infer the container format.
func (c *Client) TranscribeReader(ctx context.Context, r io.Reader, name, language string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.models.Transcription,
		Reader:   r,
		FilePath: name,
		Format:   openai.AudioResponseFormatText,
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	return resp.Text, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.models.Embedding),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Complete runs one chat completion. The chat model is filled in when the
// request leaves it empty.
func (c *Client) Complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if req.Model == "" {
		req.Model = c.models.Chat
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return resp, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return resp, fmt.Errorf("chat completion returned no choices")
	}
	log.Printf("[LLM] %s: %d prompt / %d completion tokens", req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}

// Synthesize returns mp3 audio for text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.models.Speech),
		Input:          text,
		Voice:          openai.SpeechVoice(c.models.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech audio: %w", err)
	}
	return audio, nil
}
