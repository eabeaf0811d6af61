package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vidtutor/internal/assistant"
	"vidtutor/internal/config"
	"vidtutor/internal/core"
	"vidtutor/internal/history"
	"vidtutor/internal/manager"
	"vidtutor/internal/speech"
)

const (
	maxUploadBytes    = 512 << 20
	formMemoryBytes   = 32 << 20
	maxRecordingBytes = 25 << 20

	StatusStarted          = "✅ Processing started! You will see progress updates."
	StatusNoFile           = "❌ No file uploaded."
	StatusFileTooLarge     = "❌ File too large."
	StatusInvalidVideo     = "❌ Invalid video URL."
	statusVideoTooLong     = "❌ Video exceeds %d minutes."
	StatusInvalidPlaylist  = "❌ Invalid playlist URL."
	StatusNoLinks          = "❌ No suitable links found."
	StatusAlreadyRunning   = "❌ Processing already in progress."
	StatusInvalidMode      = "❌ Invalid mode."
	StatusTooManyRequests  = "❌ Too many requests"
	StatusNothingToCancel  = "❌ No processing in progress."
	StatusCancelled        = "✅ Processing cancelled."
	unknownProgressMessage = "No processing in progress"
)

type MediaResolver interface {
	IsValidDuration(ctx context.Context, url string, max time.Duration) bool
	GetPlaylistItems(ctx context.Context, url string) ([]core.PlaylistItem, error)
	Search(ctx context.Context, topic string, n int) ([]core.PlaylistItem, error)
}

type JobRunner interface {
	Start(sessionID, mode string, sources []string) (*manager.Job, error)
	Progress(sessionID string) (manager.Snapshot, bool)
	Cancel(sessionID string) error
}

type Chatter interface {
	Chat(ctx context.Context, sessionID, message string) (string, error)
}

type Speaker interface {
	SpeakBase64(ctx context.Context, text string) (string, error)
	Transcribe(ctx context.Context, r io.Reader, filename, language string) (string, error)
}

type HistoryLister interface {
	List(ctx context.Context, sessionID string, limit int) ([]history.Entry, error)
}

type Handler struct {
	config   *config.Config
	media    MediaResolver
	jobs     JobRunner
	chat     Chatter
	speech   Speaker
	history  HistoryLister
	limiters *sessionLimiters

	uploadLimit int64
}

func NewHandler(cfg *config.Config, media MediaResolver, jobs JobRunner, chat Chatter, speaker Speaker, hist HistoryLister) *Handler {
	return &Handler{
		config:   cfg,
		media:    media,
		jobs:     jobs,
		chat:     chat,
		speech:   speaker,
		history:  hist,
		limiters: newSessionLimiters(cfg.ChatRequestsPerMinute),

		uploadLimit: maxUploadBytes,
	}
}

type statusResponse struct {
	Status     string `json:"status"`
	TotalFiles int    `json:"totalFiles,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, status string) {
	writeJSON(w, http.StatusOK, statusResponse{Status: status})
}

func (h *Handler) maxDuration() time.Duration {
	return time.Duration(h.config.MaxVideoMinutes) * time.Minute
}

func (h *Handler) StartProcessing(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil || h.media == nil {
		http.Error(w, "Job manager not initialized", http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.uploadLimit)
	if err := r.ParseMultipartForm(formMemoryBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > h.uploadLimit {
			log.Printf("[API] StartProcessing: Upload exceeds %d bytes", h.uploadLimit)
			writeJSON(w, http.StatusRequestEntityTooLarge, statusResponse{Status: StatusFileTooLarge})
			return
		}
		log.Printf("[API] StartProcessing: Invalid form: %v", err)
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	session := SessionID(r)
	mode := r.FormValue("mode")
	input := strings.TrimSpace(r.FormValue("input"))
	log.Printf("[API] StartProcessing request: session=%s mode=%s input=%q", session, mode, input)

	var links []string
	switch mode {
	case "upload":
		path, err := h.saveUpload(r, session)
		if err != nil {
			log.Printf("[API] StartProcessing: Upload failed: %v", err)
			writeStatus(w, StatusNoFile)
			return
		}
		links = append(links, path)

	case "single_url":
		if !strings.HasPrefix(input, "http") {
			writeStatus(w, StatusInvalidVideo)
			return
		}
		if !h.media.IsValidDuration(r.Context(), input, h.maxDuration()) {
			writeStatus(w, fmt.Sprintf(statusVideoTooLong, h.config.MaxVideoMinutes))
			return
		}
		links = append(links, input)

	case "playlist":
		if !strings.HasPrefix(input, "http") {
			writeStatus(w, StatusInvalidPlaylist)
			return
		}
		items, err := h.media.GetPlaylistItems(r.Context(), input)
		if err != nil {
			log.Printf("[API] StartProcessing: Playlist extraction failed: %v", err)
			writeStatus(w, fmt.Sprintf("❌ Error extracting playlist: %v", err))
			return
		}
		links = h.filterItems(r.Context(), items, 0)

	case "topic":
		if input == "" {
			writeStatus(w, StatusNoLinks)
			return
		}
		items, err := h.media.Search(r.Context(), input, h.config.TopicSearchResults)
		if err != nil {
			log.Printf("[API] StartProcessing: Topic search failed: %v", err)
			writeStatus(w, StatusNoLinks)
			return
		}
		links = h.filterItems(r.Context(), items, h.config.TopicMaxVideos)

	default:
		writeStatus(w, StatusInvalidMode)
		return
	}

	if len(links) == 0 {
		writeStatus(w, StatusNoLinks)
		return
	}

	if _, err := h.jobs.Start(session, mode, links); err != nil {
		log.Printf("[API] StartProcessing: Failed to start job: %v", err)
		if errors.Is(err, manager.ErrAlreadyProcessing) {
			writeStatus(w, StatusAlreadyRunning)
			return
		}
		writeStatus(w, "❌ "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: StatusStarted, TotalFiles: len(links)})
}

// filterItems keeps items within the duration limit, up to limit items when
// limit is positive. Items with a known duration skip the metadata lookup.
func (h *Handler) filterItems(ctx context.Context, items []core.PlaylistItem, limit int) []string {
	var links []string
	maxDur := h.maxDuration()
	for _, item := range items {
		if limit > 0 && len(links) >= limit {
			break
		}
		if item.URL == "" {
			continue
		}
		var ok bool
		if item.Duration > 0 {
			ok = time.Duration(item.Duration*float64(time.Second)) <= maxDur
		} else {
			ok = h.media.IsValidDuration(ctx, item.URL, maxDur)
		}
		if ok {
			links = append(links, item.URL)
		}
	}
	return links
}

func (h *Handler) saveUpload(r *http.Request, session string) (string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := os.MkdirAll(h.config.UploadDir(), 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	prefix := session
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	path := filepath.Join(h.config.UploadDir(), prefix+"_"+core.SanitizeFilename(header.Filename))

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	log.Printf("[API] Saved upload %s (%d bytes)", path, header.Size)
	return path, nil
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		http.Error(w, "Job manager not initialized", http.StatusInternalServerError)
		return
	}

	snap, ok := h.jobs.Progress(SessionID(r))
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "unknown",
			"progress": 0,
			"message":  unknownProgressMessage,
		})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) CancelProcessing(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		http.Error(w, "Job manager not initialized", http.StatusInternalServerError)
		return
	}

	if err := h.jobs.Cancel(SessionID(r)); err != nil {
		writeStatus(w, StatusNothingToCancel)
		return
	}
	writeStatus(w, StatusCancelled)
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if h.chat == nil {
		http.Error(w, "Assistant not initialized", http.StatusInternalServerError)
		return
	}

	var request struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	session := SessionID(r)
	if !h.limiters.allow(session) {
		writeJSON(w, http.StatusTooManyRequests, statusResponse{Status: StatusTooManyRequests})
		return
	}

	reply, err := h.chat.Chat(r.Context(), session, request.Message)
	if err != nil {
		log.Printf("[API] Chat failed for session %s: %v", session, err)
		if errors.Is(err, assistant.ErrEmptyMessage) {
			writeStatus(w, "❌ Message is empty.")
			return
		}
		writeStatus(w, "❌ Error: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) Speak(w http.ResponseWriter, r *http.Request) {
	if h.speech == nil {
		http.Error(w, "Speech not initialized", http.StatusInternalServerError)
		return
	}

	var request struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if !h.limiters.allow(SessionID(r)) {
		writeJSON(w, http.StatusTooManyRequests, statusResponse{Status: StatusTooManyRequests})
		return
	}

	audio, err := h.speech.SpeakBase64(r.Context(), request.Text)
	if err != nil {
		log.Printf("[API] Speak failed: %v", err)
		code := http.StatusBadGateway
		if errors.Is(err, speech.ErrEmptyText) {
			code = http.StatusBadRequest
		}
		writeJSON(w, code, statusResponse{Status: "❌ " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"audio": audio})
}

func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if h.speech == nil {
		http.Error(w, "Speech not initialized", http.StatusInternalServerError)
		return
	}

	if !h.limiters.allow(SessionID(r)) {
		writeJSON(w, http.StatusTooManyRequests, statusResponse{Status: StatusTooManyRequests})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRecordingBytes)
	if err := r.ParseMultipartForm(maxRecordingBytes); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "❌ No audio uploaded."})
		return
	}
	defer file.Close()

	text, err := h.speech.Transcribe(r.Context(), file, header.Filename, r.FormValue("language"))
	if err != nil {
		log.Printf("[API] Transcribe failed: %v", err)
		writeJSON(w, http.StatusBadGateway, statusResponse{Status: "❌ " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "History not initialized", http.StatusInternalServerError)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.history.List(r.Context(), SessionID(r), limit)
	if err != nil {
		log.Printf("[API] GetHistory failed: %v", err)
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) GetVersions(w http.ResponseWriter, r *http.Request) {
	versions := core.GetVersionInfo(h.config.YtDlpPath, h.config.FfmpegPath)
	writeJSON(w, http.StatusOK, versions)
}
