package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Gemini    GeminiConfig
	Verify    VerifyConfig
	Recipient RecipientConfig
	HTTP      HTTPConfig
	Queue     QueueConfig
	Log       LogConfig
}

// GeminiConfig holds extraction service configuration
type GeminiConfig struct {
	APIKey      string
	Model       string
	Transport   string // "sdk" | "rest"
	BaseURL     string // REST transport only
	Temperature float32
	Timeout     time.Duration
}

// VerifyConfig holds the pipeline retry and parsing behavior
type VerifyConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	Lenient     bool
}

// RecipientConfig holds the terms a valid recipient must contain
type RecipientConfig struct {
	NameTerms    []string
	AddressTerms []string
	TaxIDTerms   []string
}

// HTTPConfig holds server-related configuration
type HTTPConfig struct {
	Addr        string
	MaxUploadMB int
}

// QueueConfig holds the verification worker pool settings
type QueueConfig struct {
	Workers int
	Size    int
	Timeout time.Duration
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string // "text" | "json"
}

const (
	TransportSDK  = "sdk"
	TransportREST = "rest"
)

// DefaultGeminiTimeout bounds one extraction call when gemini.timeout is unset.
const DefaultGeminiTimeout = 60 * time.Second

func setDefaults(v *viper.Viper) {
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.transport", TransportSDK)
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.temperature", 0.0)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)

	v.SetDefault("verify.max_attempts", 3)
	v.SetDefault("verify.base_backoff", time.Second)
	v.SetDefault("verify.lenient", false)

	v.SetDefault("recipient.name_terms", []string{"GUANGZHOU", "BAIYUN"})
	v.SetDefault("recipient.address_terms", []string{"THOMSON", "HONG KONG"})
	v.SetDefault("recipient.tax_id_terms", []string{"76303593"})

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.max_upload_mb", 20)

	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.size", 64)
	v.SetDefault("queue.timeout", 5*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig layers defaults, the optional config file at path and the environment.
// Environment keys are the upper-cased config keys with "." replaced by "_"
// (gemini.api_key -> GEMINI_API_KEY). API_KEY is accepted as a fallback credential.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("gemini.api_key", "GEMINI_API_KEY", "API_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("read config file %q", path), err)
		}
	}

	temperature, err := cast.ToFloat32E(v.Get("gemini.temperature"))
	if err != nil {
		return nil, NewAppError(CodeConfig, "gemini.temperature must be a number", err)
	}

	return &Config{
		Gemini: GeminiConfig{
			APIKey:      strings.TrimSpace(v.GetString("gemini.api_key")),
			Model:       v.GetString("gemini.model"),
			Transport:   strings.ToLower(strings.TrimSpace(v.GetString("gemini.transport"))),
			BaseURL:     v.GetString("gemini.base_url"),
			Temperature: temperature,
			Timeout:     v.GetDuration("gemini.timeout"),
		},
		Verify: VerifyConfig{
			MaxAttempts: v.GetInt("verify.max_attempts"),
			BaseBackoff: v.GetDuration("verify.base_backoff"),
			Lenient:     v.GetBool("verify.lenient"),
		},
		Recipient: RecipientConfig{
			NameTerms:    stringList(v.Get("recipient.name_terms")),
			AddressTerms: stringList(v.Get("recipient.address_terms")),
			TaxIDTerms:   stringList(v.Get("recipient.tax_id_terms")),
		},
		HTTP: HTTPConfig{
			Addr:        v.GetString("http.addr"),
			MaxUploadMB: v.GetInt("http.max_upload_mb"),
		},
		Queue: QueueConfig{
			Workers: v.GetInt("queue.workers"),
			Size:    v.GetInt("queue.size"),
			Timeout: v.GetDuration("queue.timeout"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}, nil
}

// stringList accepts a YAML list or a comma separated env value.
func stringList(raw any) []string {
	var items []string
	if s, ok := raw.(string); ok {
		items = strings.Split(s, ",")
	} else {
		items = cast.ToStringSlice(raw)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

// RetryBudget is the longest one verification can run when every attempt hits
// the extraction timeout: attempts x timeout plus every backoff wait.
func (c *Config) RetryBudget() time.Duration {
	timeout := c.Gemini.Timeout
	if timeout <= 0 {
		timeout = DefaultGeminiTimeout
	}
	var budget time.Duration
	for n := 1; n <= c.Verify.MaxAttempts; n++ {
		budget += timeout
		if n < c.Verify.MaxAttempts && c.Verify.BaseBackoff > 0 {
			budget += c.Verify.BaseBackoff << (n - 1)
		}
	}
	return budget
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("gemini.api_key", c.Gemini.APIKey, Secret).
		Field("gemini.model", c.Gemini.Model, Required).
		Field("gemini.transport", c.Gemini.Transport, OneOf(TransportSDK, TransportREST)).
		Field("gemini.timeout", c.Gemini.Timeout, NonNegativeDuration).
		Field("verify.max_attempts", c.Verify.MaxAttempts, Min(1)).
		Field("verify.base_backoff", c.Verify.BaseBackoff, NonNegativeDuration).
		Field("recipient.name_terms", c.Recipient.NameTerms, Required).
		Field("recipient.address_terms", c.Recipient.AddressTerms, Required).
		Field("recipient.tax_id_terms", c.Recipient.TaxIDTerms, Required).
		Field("http.max_upload_mb", c.HTTP.MaxUploadMB, Min(1)).
		Field("queue.workers", c.Queue.Workers, Min(1)).
		Field("queue.size", c.Queue.Size, Min(1)).
		Field("queue.timeout", c.Queue.Timeout, AtLeast(c.RetryBudget())).
		Field("log.format", c.Log.Format, OneOf("text", "json"))
	if c.Gemini.Transport == TransportREST {
		v.Field("gemini.base_url", c.Gemini.BaseURL, Required)
	}
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
