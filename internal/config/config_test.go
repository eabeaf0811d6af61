package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxConcurrentJobs != 2 {
		t.Errorf("Expected MaxConcurrentJobs to be 2, got %d", cfg.MaxConcurrentJobs)
	}

	if cfg.Port != 5000 {
		t.Errorf("Expected Port to be 5000, got %d", cfg.Port)
	}

	if cfg.MaxVideoMinutes != 30 {
		t.Errorf("Expected MaxVideoMinutes to be 30, got %d", cfg.MaxVideoMinutes)
	}

	if cfg.SpeechVoice != "alloy" {
		t.Errorf("Expected SpeechVoice to be 'alloy', got '%s'", cfg.SpeechVoice)
	}
}

func TestConfigValidation(t *testing.T) {
	valid := DefaultConfig()
	valid.DataPath = t.TempDir()

	noData := *valid
	noData.DataPath = ""

	noWorkers := *valid
	noWorkers.MaxConcurrentJobs = 0

	badPort := *valid
	badPort.Port = 0

	noRate := *valid
	noRate.ChatRequestsPerMinute = 0

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid config", config: *valid, wantErr: false},
		{name: "empty data path", config: noData, wantErr: true},
		{name: "invalid concurrent jobs", config: noWorkers, wantErr: true},
		{name: "invalid port", config: badPort, wantErr: true},
		{name: "invalid chat rate", config: noRate, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := os.Stat(valid.UploadDir()); err != nil {
		t.Errorf("Expected upload dir to be created: %v", err)
	}
}

func TestConfigSaveLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.json")

	originalConfig := DefaultConfig()
	originalConfig.Port = 9090
	originalConfig.MaxConcurrentJobs = 5

	if err := originalConfig.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loadedConfig, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedConfig.Port != 9090 {
		t.Errorf("Expected Port to be 9090, got %d", loadedConfig.Port)
	}

	if loadedConfig.MaxConcurrentJobs != 5 {
		t.Errorf("Expected MaxConcurrentJobs to be 5, got %d", loadedConfig.MaxConcurrentJobs)
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nonexistent.json")

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Expected Load to create default config, got error: %v", err)
	}

	if config.Port != 5000 {
		t.Errorf("Expected default port 5000, got %d", config.Port)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Expected config file to be created")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("VIDTUTOR_PORT", "7000")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("IDEOGRAM_API_KEY", "ideo")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Port != 7000 {
		t.Errorf("Expected port 7000, got %d", cfg.Port)
	}
	if cfg.OpenAIAPIKey != "sk-test" {
		t.Errorf("Expected OpenAI key from env, got %q", cfg.OpenAIAPIKey)
	}
	if cfg.IdeogramAPIKey != "ideo" {
		t.Errorf("Expected Ideogram key from env, got %q", cfg.IdeogramAPIKey)
	}
}

func TestClientConfigDefaults(t *testing.T) {
	cfg, err := LoadClient(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadClient failed: %v", err)
	}

	if cfg.PollInterval() != time.Second {
		t.Errorf("Expected 1s poll interval, got %v", cfg.PollInterval())
	}
	if cfg.HideDelay() != 3*time.Second {
		t.Errorf("Expected 3s hide delay, got %v", cfg.HideDelay())
	}
	if cfg.RequestTimeout() != 0 {
		t.Errorf("Expected no request timeout, got %v", cfg.RequestTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestClientConfigValidation(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.ServerURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected relative server URL to be rejected")
	}

	cfg = DefaultClientConfig()
	cfg.PollIntervalMS = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected zero poll interval to be rejected")
	}
}
