package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewFetcher(t *testing.T) {
	fetcher := NewFetcher("/usr/bin/yt-dlp", "/usr/bin/ffmpeg", "cookies.txt")

	if fetcher.ytDlpPath != "/usr/bin/yt-dlp" {
		t.Errorf("Expected ytDlpPath to be /usr/bin/yt-dlp, got %s", fetcher.ytDlpPath)
	}
	if fetcher.ffmpegPath != "/usr/bin/ffmpeg" {
		t.Errorf("Expected ffmpegPath to be /usr/bin/ffmpeg, got %s", fetcher.ffmpegPath)
	}
	if fetcher.cookiesFile != "cookies.txt" {
		t.Errorf("Expected cookiesFile to be cookies.txt, got %s", fetcher.cookiesFile)
	}
}

func TestExtractLinks(t *testing.T) {
	text := "Found: https://www.youtube.com/watch?v=abc and http://youtu.be/xyz\nnot a link: ftp://x"
	links := ExtractLinks(text)

	expected := []string{"https://www.youtube.com/watch?v=abc", "http://youtu.be/xyz"}
	if len(links) != len(expected) {
		t.Fatalf("Expected %d links, got %d: %v", len(expected), len(links), links)
	}
	for i := range expected {
		if links[i] != expected[i] {
			t.Errorf("Link %d: expected %s, got %s", i, expected[i], links[i])
		}
	}
}

func TestIsPlaylistURL(t *testing.T) {
	testCases := []struct {
		url      string
		expected bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLxxx", true},
		{"https://www.youtube.com/playlist?list=PLxxx", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", false},
		{"https://example.com/video", false},
	}

	for _, tc := range testCases {
		if result := IsPlaylistURL(tc.url); result != tc.expected {
			t.Errorf("IsPlaylistURL(%s) = %v, expected %v", tc.url, result, tc.expected)
		}
	}
}

func TestIsRemote(t *testing.T) {
	if !IsRemote("https://youtu.be/x") {
		t.Error("Expected URL to be remote")
	}
	if IsRemote("/data/uploads/lecture.mp3") {
		t.Error("Expected local path not to be remote")
	}
}

func TestParsePlaylistLines(t *testing.T) {
	output := `{"id":"aaa","title":"First","url":"https://www.youtube.com/watch?v=aaa","duration":120}
not json
{"id":"bbb","title":"Second","duration":2400}

{"title":"No id or url"}`

	items := parsePlaylistLines(output)
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[1].URL != "https://www.youtube.com/watch?v=bbb" {
		t.Errorf("Expected URL built from ID, got %s", items[1].URL)
	}
	if items[1].Duration != 2400 {
		t.Errorf("Expected duration 2400, got %f", items[1].Duration)
	}
}

func TestCategorizeError(t *testing.T) {
	testCases := []struct {
		err      error
		expected string
	}{
		{errors.New("ERROR: Private video. Sign in"), "Video is private and cannot be downloaded"},
		{errors.New("exec: \"yt-dlp\": executable file not found in $PATH"), "yt-dlp or ffmpeg executable not found - please check installation"},
		{errors.New("HTTP Error 429: Too Many Requests"), "Too many requests - please wait and try again"},
		{errors.New("something odd"), "something odd"},
	}

	for _, tc := range testCases {
		if got := categorizeError(tc.err); got != tc.expected {
			t.Errorf("categorizeError(%q) = %q, expected %q", tc.err, got, tc.expected)
		}
	}
}

func TestIsValidDurationMissingBinary(t *testing.T) {
	fetcher := NewFetcher("/nonexistent/yt-dlp", "ffmpeg", "")

	if fetcher.IsValidDuration(context.Background(), "https://example.com/v", 30*time.Minute) {
		t.Error("Expected lookup failure to count as invalid duration")
	}
}

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"My Lecture (part 1).mp4", "My Lecture part 1.mp4"},
		{"../../etc/passwd", "etcpasswd"},
		{"CON.mp3", "CON file.mp3"},
		{"🎵.mp3", "upload.mp3"},
	}

	for _, tc := range testCases {
		if got := SanitizeFilename(tc.input); got != tc.expected {
			t.Errorf("SanitizeFilename(%q) = %q, expected %q", tc.input, got, tc.expected)
		}
	}
}
