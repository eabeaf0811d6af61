package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const DefaultIdeogramEndpoint = "https://api.ideogram.ai/v1/ideogram-v3/generate"

// Ideogram generates images through the Ideogram v3 generate endpoint.
type Ideogram struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

func NewIdeogram(apiKey string) *Ideogram {
	return &Ideogram{
		Endpoint:   DefaultIdeogramEndpoint,
		APIKey:     apiKey,
		HTTPClient: http.DefaultClient,
	}
}

type ideogramResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Generate returns the URL of the first generated image. A non-200 response
// is returned as an error carrying the response body.
func (g *Ideogram) Generate(ctx context.Context, prompt string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := [][2]string{
		{"prompt", prompt},
		{"rendering_speed", "QUALITY"},
		{"aspect_ratio", "16x9"},
		{"style_type", "GENERAL"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Api-Key", g.APIKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s", strings.TrimSpace(string(data)))
	}

	var parsed ideogramResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		return "", fmt.Errorf("response contained no image")
	}
	return parsed.Data[0].URL, nil
}
