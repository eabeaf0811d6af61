package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

type Config struct {
	DataPath              string `json:"data_path"`
	MaxConcurrentJobs     int    `json:"max_concurrent_jobs"`
	YtDlpPath             string `json:"yt_dlp_path"`
	FfmpegPath            string `json:"ffmpeg_path"`
	CookiesFile           string `json:"cookies_file,omitempty"`
	Port                  int    `json:"port"`
	VerboseLogging        bool   `json:"verbose_logging"`
	LogFile               string `json:"log_file,omitempty"`
	MaxVideoMinutes       int    `json:"max_video_minutes"`
	TopicSearchResults    int    `json:"topic_search_results"`
	TopicMaxVideos        int    `json:"topic_max_videos"`
	OpenAIAPIKey          string `json:"openai_api_key,omitempty"`
	OpenAIBaseURL         string `json:"openai_base_url,omitempty"`
	ChatModel             string `json:"chat_model"`
	EmbeddingModel        string `json:"embedding_model"`
	TranscriptionModel    string `json:"transcription_model"`
	SpeechModel           string `json:"speech_model"`
	SpeechVoice           string `json:"speech_voice"`
	IdeogramAPIKey        string `json:"ideogram_api_key,omitempty"`
	RetrievalChunks       int    `json:"retrieval_chunks"`
	ChatRequestsPerMinute int    `json:"chat_requests_per_minute"`
}

func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataPath := filepath.Join(homeDir, ".vidtutor")

	return &Config{
		DataPath:              dataPath,
		MaxConcurrentJobs:     2,
		YtDlpPath:             getDefaultBinary("yt-dlp"),
		FfmpegPath:            getDefaultBinary("ffmpeg"),
		Port:                  5000,
		VerboseLogging:        false,
		MaxVideoMinutes:       30,
		TopicSearchResults:    6,
		TopicMaxVideos:        3,
		ChatModel:             "gpt-4.1",
		EmbeddingModel:        "text-embedding-ada-002",
		TranscriptionModel:    "whisper-1",
		SpeechModel:           "gpt-4o-mini-tts",
		SpeechVoice:           "alloy",
		RetrievalChunks:       2,
		ChatRequestsPerMinute: 20,
	}
}

func getDefaultBinary(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// Load reads the config file, writing defaults first if it does not exist.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := saveJSON(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return config, nil
	}

	config := DefaultConfig()
	if err := loadJSON(configPath, config); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Save(configPath string) error {
	return saveJSON(configPath, c)
}

// ApplyEnv overrides file settings with VIDTUTOR_PORT, OPENAI_API_KEY,
// OPENAI_BASE_URL and IDEOGRAM_API_KEY when set.
func (c *Config) ApplyEnv() {
	if envPort := os.Getenv("VIDTUTOR_PORT"); envPort != "" {
		if parsedPort, err := strconv.Atoi(envPort); err == nil && parsedPort > 0 {
			c.Port = parsedPort
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.OpenAIAPIKey = key
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		c.OpenAIBaseURL = base
	}
	if key := os.Getenv("IDEOGRAM_API_KEY"); key != "" {
		c.IdeogramAPIKey = key
	}
}

func (c *Config) UploadDir() string {
	return filepath.Join(c.DataPath, "uploads")
}

func (c *Config) IndexDir() string {
	return filepath.Join(c.DataPath, "indexes")
}

func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataPath, "history.db")
}

func (c *Config) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("data_path cannot be empty")
	}

	if c.MaxConcurrentJobs <= 0 || c.MaxConcurrentJobs > 10 {
		return fmt.Errorf("max_concurrent_jobs must be between 1 and 10")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if c.MaxVideoMinutes <= 0 {
		return fmt.Errorf("max_video_minutes must be positive")
	}

	if c.TopicSearchResults <= 0 || c.TopicMaxVideos <= 0 {
		return fmt.Errorf("topic_search_results and topic_max_videos must be positive")
	}

	if c.RetrievalChunks <= 0 {
		return fmt.Errorf("retrieval_chunks must be positive")
	}

	if c.ChatRequestsPerMinute <= 0 {
		return fmt.Errorf("chat_requests_per_minute must be positive")
	}

	for _, dir := range []string{c.DataPath, c.UploadDir(), c.IndexDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func saveJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
