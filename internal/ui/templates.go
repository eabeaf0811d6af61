package ui

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"

	"vidtutor/internal/config"
)

//go:embed assets
var Assets embed.FS

var indexTemplate = template.Must(template.ParseFS(Assets, "assets/index.html"))

type pageData struct {
	Title          string
	PollIntervalMS int
	HideDelayMS    int
	MaxMinutes     int
}

type TemplateHandler struct {
	config *config.Config
}

func NewTemplateHandler(cfg *config.Config) *TemplateHandler {
	return &TemplateHandler{config: cfg}
}

func (th *TemplateHandler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	client := config.DefaultClientConfig()
	data := pageData{
		Title:          "vidtutor",
		PollIntervalMS: client.PollIntervalMS,
		HideDelayMS:    client.HideDelayMS,
		MaxMinutes:     th.config.MaxVideoMinutes,
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		log.Printf("[UI] Failed to render index: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
