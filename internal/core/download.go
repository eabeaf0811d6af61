package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// VideoInfo is the subset of yt-dlp metadata the processing pipeline needs.
type VideoInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
}

type PlaylistItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
}

// Fetcher wraps the yt-dlp and ffmpeg binaries.
type Fetcher struct {
	ytDlpPath   string
	ffmpegPath  string
	cookiesFile string
}

func NewFetcher(ytDlpPath, ffmpegPath, cookiesFile string) *Fetcher {
	return &Fetcher{
		ytDlpPath:   ytDlpPath,
		ffmpegPath:  ffmpegPath,
		cookiesFile: cookiesFile,
	}
}

var linkPattern = regexp.MustCompile(`https?://[^\s]+`)

// ExtractLinks returns every http(s) URL found in text, in order.
func ExtractLinks(text string) []string {
	return linkPattern.FindAllString(text, -1)
}

// IsRemote reports whether a source is a URL rather than a local file.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http")
}

// DownloadAudio fetches the best audio stream of url and converts it to mp3.
// outputBase is the path without extension; the mp3 path is returned.
func (f *Fetcher) DownloadAudio(ctx context.Context, url, outputBase, jobID string) (string, error) {
	args := []string{
		"-f", "bestaudio/best",
		"-x", "--audio-format", "mp3", "--audio-quality", "192K",
		"--ffmpeg-location", f.ffmpegPath,
		"-o", outputBase + ".%(ext)s",
		"--no-playlist", "--quiet", "--no-warnings",
	}
	if f.cookiesFile != "" {
		args = append(args, "--cookies", f.cookiesFile)
	}
	args = append(args, url)

	log.Printf("[FETCH] %s: yt-dlp command: %s %s", jobID, f.ytDlpPath, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, f.ytDlpPath, args...)
	setupProcessGroup(cmd, jobID)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := categorizeError(fmt.Errorf("%v: %s", err, stderr.String()))
		log.Printf("[FETCH] %s: yt-dlp failed: %s", jobID, msg)
		return "", fmt.Errorf("download failed: %s", msg)
	}

	output := outputBase + ".mp3"
	if _, err := os.Stat(output); err != nil {
		return "", fmt.Errorf("expected audio file %s not found: %w", output, err)
	}

	log.Printf("[FETCH] %s: Audio saved to %s", jobID, output)
	return output, nil
}

// ConvertToMP3 extracts the audio track of a local media file.
func (f *Fetcher) ConvertToMP3(ctx context.Context, input, output, jobID string) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath, "-y", "-i", input, "-vn", "-acodec", "libmp3lame", "-b:a", "192k", output)
	setupProcessGroup(cmd, jobID)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg conversion failed: %s", categorizeError(fmt.Errorf("%v: %s", err, lastLine(stderr.String()))))
	}
	return nil
}

// GetVideoInfo reads metadata for a single video without downloading it.
func (f *Fetcher) GetVideoInfo(ctx context.Context, url string) (*VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	args := []string{"--dump-json", "--no-playlist", "--skip-download", "--no-warnings"}
	if f.cookiesFile != "" {
		args = append(args, "--cookies", f.cookiesFile)
	}
	args = append(args, url)

	output, err := exec.CommandContext(ctx, f.ytDlpPath, args...).Output()
	if err != nil {
		log.Printf("[INFO] Failed to get video info for %s: %v", url, err)
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("timeout getting video info for URL: %s", url)
		}
		if strings.Contains(err.Error(), "exit status") {
			return nil, fmt.Errorf("invalid URL or unsupported site: %s", url)
		}
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}

	var info VideoInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("unexpected output format from yt-dlp: %w", err)
	}
	return &info, nil
}

// IsValidDuration reports whether the video at url is no longer than max.
// Any lookup failure counts as invalid.
func (f *Fetcher) IsValidDuration(ctx context.Context, url string, max time.Duration) bool {
	info, err := f.GetVideoInfo(ctx, url)
	if err != nil {
		log.Printf("[INFO] Error checking duration for %s: %v", url, err)
		return false
	}
	return time.Duration(info.Duration*float64(time.Second)) <= max
}

// IsPlaylistURL checks if a URL is a playlist
func IsPlaylistURL(url string) bool {
	return strings.Contains(url, "list=") || strings.Contains(url, "playlist?")
}

// GetPlaylistItems lists the entries of a playlist (or any yt-dlp search
// expression) without resolving each video.
func (f *Fetcher) GetPlaylistItems(ctx context.Context, url string) ([]PlaylistItem, error) {
	log.Printf("[PLAYLIST] Getting playlist items for URL: %s", url)

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, f.ytDlpPath, "--flat-playlist", "--dump-json", "--no-warnings", url).Output()
	if err != nil {
		log.Printf("[PLAYLIST] Failed to get playlist items for %s: %v", url, err)
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("timeout getting playlist items for URL: %s", url)
		}
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	items := parsePlaylistLines(string(output))
	log.Printf("[PLAYLIST] Found %d items in playlist", len(items))
	return items, nil
}

// Search runs a YouTube search and returns up to n results.
func (f *Fetcher) Search(ctx context.Context, topic string, n int) ([]PlaylistItem, error) {
	return f.GetPlaylistItems(ctx, fmt.Sprintf("ytsearch%d:%s", n, topic))
}

func parsePlaylistLines(output string) []PlaylistItem {
	var items []PlaylistItem
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		var entry PlaylistItem
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			log.Printf("[PLAYLIST] Failed to parse JSON line: %s, error: %v", line, err)
			continue
		}

		if entry.URL == "" && entry.ID != "" {
			entry.URL = fmt.Sprintf("https://www.youtube.com/watch?v=%s", entry.ID)
		}
		if entry.URL == "" {
			continue
		}
		items = append(items, entry)
	}
	return items
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

// categorizeError maps yt-dlp/ffmpeg failures to short user-facing messages.
func categorizeError(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "video unavailable"):
		return "Video is unavailable or has been removed"
	case strings.Contains(errStr, "private video"):
		return "Video is private and cannot be downloaded"
	case strings.Contains(errStr, "age-restricted") || strings.Contains(errStr, "sign in to confirm"):
		return "Video requires a signed-in session (configure cookies_file)"
	case strings.Contains(errStr, "not available in your country"):
		return "Video is not available in your region"
	case strings.Contains(errStr, "unsupported url"):
		return "This website or URL format is not supported"
	case strings.Contains(errStr, "too many requests") || strings.Contains(errStr, "http error 429"):
		return "Too many requests - please wait and try again"
	case strings.Contains(errStr, "executable file not found"):
		return "yt-dlp or ffmpeg executable not found - please check installation"
	case strings.Contains(errStr, "invalid data found"):
		return "Uploaded file is not a readable audio or video file"
	case strings.Contains(errStr, "ffmpeg") || strings.Contains(errStr, "postprocessing"):
		return "Audio extraction failed"
	case strings.Contains(errStr, "network") || strings.Contains(errStr, "connection"):
		return "Network connection issue - please check your internet connection"
	default:
		if len(errStr) > 200 {
			return errStr[:200] + "..."
		}
		return err.Error()
	}
}
