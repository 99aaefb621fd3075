package gemini

import (
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/proforma-verifier/internal/common"
)

const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Config for the Gemini clients.
type Config struct {
	APIKey      string        // if empty, falls back to env GEMINI_API_KEY then API_KEY
	BaseURL     string        // REST transport only
	Model       string        // e.g., "gemini-2.5-flash"
	Temperature float32       // 0..2
	Timeout     time.Duration // per call
}

// ConfigFrom maps the application config section onto the client config.
func ConfigFrom(c common.GeminiConfig) Config {
	return Config{
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
	}
}

func (cfg Config) withDefaults() Config {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = common.DefaultGeminiTimeout
	}
	return cfg
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
