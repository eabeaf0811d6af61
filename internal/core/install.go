package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

const YtDlpReleaseURL = "https://api.github.com/repos/yt-dlp/yt-dlp/releases/latest"

type release struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// Installer fetches a yt-dlp release binary into BinDir when none is
// available.
type Installer struct {
	BinDir     string
	ReleaseURL string
	GOOS       string
	HTTPClient *http.Client
}

func NewInstaller(binDir string) *Installer {
	return &Installer{
		BinDir:     binDir,
		ReleaseURL: YtDlpReleaseURL,
		GOOS:       runtime.GOOS,
		HTTPClient: http.DefaultClient,
	}
}

// EnsureYtDlp returns a usable yt-dlp path: configured if it runs, then a
// copy in PATH, then a previously installed copy, and finally a fresh
// download.
func (in *Installer) EnsureYtDlp(ctx context.Context, configured string) (string, error) {
	if probeYtDlp(configured) != "" {
		return configured, nil
	}
	if path, err := exec.LookPath("yt-dlp"); err == nil {
		return path, nil
	}

	target := filepath.Join(in.BinDir, in.binaryName())
	if probeYtDlp(target) != "" {
		return target, nil
	}

	log.Printf("[FETCH] yt-dlp not found, downloading latest release to %s", target)
	version, err := in.Install(ctx, target)
	if err != nil {
		return "", err
	}
	log.Printf("[FETCH] Installed yt-dlp %s", version)
	return target, nil
}

// Install downloads the latest release for the current OS to target and
// returns its tag.
func (in *Installer) Install(ctx context.Context, target string) (string, error) {
	rel, err := in.latest(ctx)
	if err != nil {
		return "", err
	}

	name := in.assetName()
	var url string
	for _, asset := range rel.Assets {
		if asset.Name == name {
			url = asset.BrowserDownloadURL
			break
		}
	}
	if url == "" {
		return "", fmt.Errorf("no yt-dlp binary %q in release %s", name, rel.TagName)
	}

	if err := in.download(ctx, url, target); err != nil {
		return "", err
	}
	return rel.TagName, nil
}

func (in *Installer) latest(ctx context.Context) (*release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.ReleaseURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := in.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release API returned status %d", resp.StatusCode)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("failed to parse release info: %w", err)
	}
	return &rel, nil
}

func (in *Installer) download(ctx context.Context, url, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := in.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download yt-dlp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create bin directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".yt-dlp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write yt-dlp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0755); err != nil {
		return fmt.Errorf("failed to make yt-dlp executable: %w", err)
	}
	return os.Rename(tmp.Name(), target)
}

func (in *Installer) assetName() string {
	switch in.GOOS {
	case "windows":
		return "yt-dlp.exe"
	case "darwin":
		return "yt-dlp_macos"
	}
	return "yt-dlp"
}

func (in *Installer) binaryName() string {
	if in.GOOS == "windows" {
		return "yt-dlp.exe"
	}
	return "yt-dlp"
}
