// Package speech turns assistant replies into audio and voice recordings
// into text.
package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

// maxInputRunes is the longest text the speech endpoint accepts.
const maxInputRunes = 4096

var ErrEmptyText = errors.New("no text to speak")

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type ReaderTranscriber interface {
	TranscribeReader(ctx context.Context, r io.Reader, name, language string) (string, error)
}

type Service struct {
	synth       Synthesizer
	transcriber ReaderTranscriber
}

func NewService(synth Synthesizer, transcriber ReaderTranscriber) *Service {
	return &Service{synth: synth, transcriber: transcriber}
}

// SpeakBase64 synthesizes text and returns the mp3 bytes base64 encoded.
func (s *Service) SpeakBase64(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if r := []rune(text); len(r) > maxInputRunes {
		log.Printf("[SPEECH] Truncating %d characters to %d", len(r), maxInputRunes)
		text = string(r[:maxInputRunes])
	}

	audio, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(audio), nil
}

// Transcribe converts a recording to text. language is a locale such as
// "en-US", an ISO-639-1 code, or empty for auto-detection.
func (s *Service) Transcribe(ctx context.Context, r io.Reader, filename, language string) (string, error) {
	if filename == "" {
		filename = "recording.wav"
	}
	text, err := s.transcriber.TranscribeReader(ctx, r, filename, LanguageFromLocale(language))
	if err != nil {
		return "", fmt.Errorf("failed to transcribe recording: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// LanguageFromLocale maps a locale such as "en-US" to "en".
func LanguageFromLocale(locale string) string {
	lang, _, _ := strings.Cut(locale, "-")
	lang, _, _ = strings.Cut(lang, "_")
	return strings.ToLower(strings.TrimSpace(lang))
}
