// Package client is a typed HTTP client for the vidtutor server API.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FailureMarker prefixes every failure status the server returns.
const FailureMarker = "❌"

// StatusError is returned for non-2xx responses. Status carries the
// server's JSON status text when present, otherwise the response body.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("server returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("server returned HTTP %d: %s", e.Code, e.Status)
}

type StartRequest struct {
	Mode     string
	Input    string
	FilePath string
}

type StartResponse struct {
	Status     string `json:"status"`
	TotalFiles int    `json:"totalFiles,omitempty"`
}

// Failed reports whether the server rejected the submission.
func (r StartResponse) Failed() bool {
	return strings.Contains(r.Status, FailureMarker)
}

type ProgressSnapshot struct {
	Status              string  `json:"status"`
	Progress            float64 `json:"progress"`
	CurrentFile         string  `json:"currentFile"`
	CompletedFiles      int     `json:"completedFiles"`
	TotalFiles          int     `json:"totalFiles"`
	EstimatedCompletion string  `json:"estimatedCompletion,omitempty"`
	ElapsedTime         string  `json:"elapsedTime,omitempty"`
	TotalTime           string  `json:"totalTime,omitempty"`
	Message             string  `json:"message,omitempty"`
}

type HistoryEntry struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client bound to baseURL. A zero timeout means no request
// timeout. The session cookie is kept in a private jar.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

func (c *Client) Start(ctx context.Context, req StartRequest) (StartResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("mode", req.Mode); err != nil {
		return StartResponse{}, err
	}
	if req.FilePath != "" {
		if err := attachFile(writer, "file", req.FilePath); err != nil {
			return StartResponse{}, err
		}
	} else if err := writer.WriteField("input", req.Input); err != nil {
		return StartResponse{}, err
	}
	if err := writer.Close(); err != nil {
		return StartResponse{}, err
	}

	var resp StartResponse
	err := c.do(ctx, http.MethodPost, "/start", writer.FormDataContentType(), &body, &resp)
	return resp, err
}

func (c *Client) Progress(ctx context.Context) (ProgressSnapshot, error) {
	var snap ProgressSnapshot
	err := c.do(ctx, http.MethodGet, "/progress", "", nil, &snap)
	return snap, err
}

func (c *Client) Cancel(ctx context.Context) (string, error) {
	var resp StartResponse
	if err := c.do(ctx, http.MethodPost, "/cancel", "", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// Chat returns the assistant reply. A failure status without a reply is
// returned as an error.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var resp struct {
		Reply  *string `json:"reply"`
		Status string  `json:"status"`
	}
	if err := c.postJSON(ctx, "/chat", map[string]string{"message": message}, &resp); err != nil {
		return "", err
	}
	if resp.Reply == nil {
		if resp.Status != "" {
			return "", errors.New(resp.Status)
		}
		return "", errors.New("server returned no reply")
	}
	return *resp.Reply, nil
}

// Speak returns decoded mp3 audio for text.
func (c *Client) Speak(ctx context.Context, text string) ([]byte, error) {
	var resp struct {
		Audio string `json:"audio"`
	}
	if err := c.postJSON(ctx, "/speak", map[string]string{"text": text}, &resp); err != nil {
		return nil, err
	}
	if resp.Audio == "" {
		return nil, errors.New("server returned no audio")
	}
	audio, err := base64.StdEncoding.DecodeString(resp.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}
	return audio, nil
}

// Transcribe uploads a recording and returns the recognised text.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := attachFile(writer, "audio", audioPath); err != nil {
		return "", err
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	var resp struct {
		Text string `json:"text"`
	}
	if err := c.do(ctx, http.MethodPost, "/transcribe", writer.FormDataContentType(), &body, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *Client) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	path := "/api/history"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var entries []HistoryEntry
	err := c.do(ctx, http.MethodGet, path, "", nil, &entries)
	return entries, err
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(data), out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Status: statusText(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusText(raw []byte) string {
	var body struct {
		Status string `json:"status"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Status != "" {
		return body.Status
	}
	return strings.TrimSpace(string(raw))
}

func attachFile(writer *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}
