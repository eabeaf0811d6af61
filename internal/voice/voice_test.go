package voice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestExpand(t *testing.T) {
	got := expand([]string{"rec", "-o", "{output}"}, "{output}", "/tmp/a.wav")
	if strings.Join(got, " ") != "rec -o /tmp/a.wav" {
		t.Errorf("Unexpected args: %v", got)
	}

	got = expand([]string{"play", "-q"}, "{input}", "/tmp/a.mp3")
	if strings.Join(got, " ") != "play -q /tmp/a.mp3" {
		t.Errorf("Expected path to be appended, got %v", got)
	}
}

func TestAvailable(t *testing.T) {
	if err := NewCommandRecognizer(nil).Available(); !errors.Is(err, ErrNoCommand) {
		t.Errorf("Expected ErrNoCommand, got %v", err)
	}
	if err := NewCommandRecognizer([]string{"vidtutor-no-such-recorder"}).Available(); err == nil {
		t.Error("Expected error for missing binary")
	}
}

func TestRecordAndPlay(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	dir := t.TempDir()

	rec := &CommandRecognizer{Command: []string{"sh", "-c", "printf wav > \"$0\"", "{output}"}, TempDir: dir}
	path, err := rec.Record(context.Background())
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "wav" {
		t.Errorf("Unexpected recording: %q, %v", data, err)
	}

	copyPath := filepath.Join(dir, "played.mp3")
	player := &CommandPlayer{Command: []string{"sh", "-c", "cp \"$0\" " + copyPath}, TempDir: dir}
	if err := player.Play(context.Background(), []byte("mp3")); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if data, _ := os.ReadFile(copyPath); string(data) != "mp3" {
		t.Errorf("Expected played audio, got %q", data)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "vidtutor-speech-*"))
	if len(matches) != 0 {
		t.Errorf("Temp audio should be removed, found %v", matches)
	}
}

func TestRecordCommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	dir := t.TempDir()
	rec := &CommandRecognizer{Command: []string{"sh", "-c", "echo no device >&2; exit 1"}, TempDir: dir}

	_, err := rec.Record(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no device") {
		t.Errorf("Expected stderr in error, got %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "vidtutor-recording-*"))
	if len(matches) != 0 {
		t.Errorf("Failed recording should be removed, found %v", matches)
	}
}
