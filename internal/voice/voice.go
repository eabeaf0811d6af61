// Package voice records and plays audio through external commands such as
// arecord and ffplay.
package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"vidtutor/internal/config"
)

var ErrNoCommand = errors.New("no command configured")

// expand replaces placeholder in args with path, appending path when the
// placeholder is absent.
func expand(args []string, placeholder, path string) []string {
	out := make([]string, 0, len(args)+1)
	found := false
	for _, a := range args {
		if strings.Contains(a, placeholder) {
			a = strings.ReplaceAll(a, placeholder, path)
			found = true
		}
		out = append(out, a)
	}
	if !found {
		out = append(out, path)
	}
	return out
}

func lookup(command []string) error {
	if len(command) == 0 || command[0] == "" {
		return ErrNoCommand
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return fmt.Errorf("%s not found: %w", command[0], err)
	}
	return nil
}

func run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s failed: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("%s failed: %w", args[0], err)
	}
	return nil
}

// CommandRecognizer records one utterance to a temporary wav file.
type CommandRecognizer struct {
	Command []string
	TempDir string
}

func NewCommandRecognizer(command []string) *CommandRecognizer {
	return &CommandRecognizer{Command: command}
}

func (r *CommandRecognizer) Available() error {
	return lookup(r.Command)
}

// Record runs the command and returns the recording's path. The caller
// removes the file.
func (r *CommandRecognizer) Record(ctx context.Context) (string, error) {
	if err := r.Available(); err != nil {
		return "", err
	}

	file, err := os.CreateTemp(r.TempDir, "vidtutor-recording-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create recording file: %w", err)
	}
	path := file.Name()
	file.Close()

	log.Printf("[VOICE] Recording to %s", path)
	if err := run(ctx, expand(r.Command, config.OutputPlaceholder, path)); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// CommandPlayer plays mp3 audio from an ephemeral temp file.
type CommandPlayer struct {
	Command []string
	TempDir string
}

func NewCommandPlayer(command []string) *CommandPlayer {
	return &CommandPlayer{Command: command}
}

func (p *CommandPlayer) Play(ctx context.Context, audio []byte) error {
	if err := lookup(p.Command); err != nil {
		return err
	}

	file, err := os.CreateTemp(p.TempDir, "vidtutor-speech-*.mp3")
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	path := file.Name()
	defer os.Remove(path)

	if _, err := file.Write(audio); err != nil {
		file.Close()
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	return run(ctx, expand(p.Command, config.InputPlaceholder, path))
}
