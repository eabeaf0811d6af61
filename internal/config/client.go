package config

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

// ClientConfig configures the terminal controller that talks to a server.
type ClientConfig struct {
	ServerURL             string   `json:"server_url"`
	PollIntervalMS        int      `json:"poll_interval_ms"`
	HideDelayMS           int      `json:"hide_delay_ms"`
	RequestTimeoutSeconds int      `json:"request_timeout_seconds"`
	Locale                string   `json:"locale"`
	RecordCommand         []string `json:"record_command,omitempty"`
	PlayerCommand         []string `json:"player_command,omitempty"`
	VerboseLogging        bool     `json:"verbose_logging"`
	LogFile               string   `json:"log_file,omitempty"`
}

// Placeholders substituted into RecordCommand and PlayerCommand.
const (
	OutputPlaceholder = "{output}"
	InputPlaceholder  = "{input}"
)

func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		ServerURL:      "http://localhost:5000",
		PollIntervalMS: 1000,
		HideDelayMS:    3000,
		Locale:         "en-US",
		RecordCommand:  []string{"arecord", "-q", "-d", "5", "-f", "cd", "-t", "wav", OutputPlaceholder},
		PlayerCommand:  []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", InputPlaceholder},
	}
}

// LoadClient reads a client config file. A missing file yields defaults
// without writing anything.
func LoadClient(configPath string) (*ClientConfig, error) {
	config := DefaultClientConfig()
	if configPath == "" {
		return config, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}
	if err := loadJSON(configPath, config); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *ClientConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c *ClientConfig) HideDelay() time.Duration {
	return time.Duration(c.HideDelayMS) * time.Millisecond
}

// RequestTimeout is zero (no timeout) unless configured.
func (c *ClientConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server_url must be an absolute URL")
	}

	if c.PollIntervalMS <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive")
	}

	if c.HideDelayMS < 0 {
		return fmt.Errorf("hide_delay_ms cannot be negative")
	}

	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request_timeout_seconds cannot be negative")
	}

	if c.Locale == "" {
		return fmt.Errorf("locale cannot be empty")
	}

	return nil
}
