package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newReleaseServer(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"tag_name": "2025.01.01",
			"assets": []map[string]string{
				{"name": "yt-dlp.exe", "browser_download_url": server.URL + "/bin/windows"},
				{"name": "yt-dlp_macos", "browser_download_url": server.URL + "/bin/macos"},
				{"name": "yt-dlp", "browser_download_url": server.URL + "/bin/linux"},
			},
		})
	})
	mux.HandleFunc("/bin/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("binary:" + filepath.Base(r.URL.Path)))
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestInstall(t *testing.T) {
	server := newReleaseServer(t)

	tests := []struct {
		goos string
		want string
	}{
		{"linux", "binary:linux"},
		{"darwin", "binary:macos"},
		{"windows", "binary:windows"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			in := NewInstaller(t.TempDir())
			in.ReleaseURL = server.URL + "/latest"
			in.GOOS = tt.goos

			target := filepath.Join(in.BinDir, in.binaryName())
			version, err := in.Install(context.Background(), target)
			if err != nil {
				t.Fatalf("Install failed: %v", err)
			}
			if version != "2025.01.01" {
				t.Errorf("Expected version 2025.01.01, got %s", version)
			}

			data, err := os.ReadFile(target)
			if err != nil || string(data) != tt.want {
				t.Errorf("Unexpected binary: %q, %v", data, err)
			}
		})
	}
}

func TestInstallReleaseError(t *testing.T) {
	server := newReleaseServer(t)
	in := NewInstaller(t.TempDir())
	in.ReleaseURL = server.URL + "/missing"
	if _, err := in.Install(context.Background(), filepath.Join(in.BinDir, "yt-dlp")); err == nil {
		t.Error("Expected error for failing release API")
	}
}
