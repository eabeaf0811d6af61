package core

import (
	"os/exec"
	"regexp"
	"strings"
)

type VersionInfo struct {
	YtDlpVersion  string `json:"yt_dlp"`
	FfmpegVersion string `json:"ffmpeg"`
}

var ffmpegVersionPattern = regexp.MustCompile(`ffmpeg version ([^\s]+)`)

// GetVersionInfo probes the configured binaries, falling back to PATH.
func GetVersionInfo(ytdlpPath, ffmpegPath string) *VersionInfo {
	return &VersionInfo{
		YtDlpVersion:  firstVersion(probeYtDlp, ytdlpPath, "yt-dlp"),
		FfmpegVersion: firstVersion(probeFfmpeg, ffmpegPath, "ffmpeg"),
	}
}

func firstVersion(probe func(string) string, paths ...string) string {
	for _, p := range paths {
		if v := probe(p); v != "" {
			return v
		}
	}
	return ""
}

func probeYtDlp(path string) string {
	output, err := exec.Command(path, "--version").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

func probeFfmpeg(path string) string {
	output, err := exec.Command(path, "-version").Output()
	if err != nil {
		return ""
	}
	if matches := ffmpegVersionPattern.FindStringSubmatch(string(output)); len(matches) > 1 {
		return matches[1]
	}
	return ""
}

func CheckFfmpegAvailable(path string) bool {
	return firstVersion(probeFfmpeg, path, "ffmpeg") != ""
}

func CheckYtDlpAvailable(path string) bool {
	return firstVersion(probeYtDlp, path, "yt-dlp") != ""
}
