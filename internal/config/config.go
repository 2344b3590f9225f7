package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Shared token clients present when connecting. Empty disables the
	// check (development only); production puts a real identity gate in
	// front of this service.
	AuthToken string `envconfig:"AUTH_TOKEN" default:""`

	// Deepgram STT configuration. DEEPGRAM_API_KEYS is the static
	// credential pool: a comma-separated list of API keys, each usable by
	// at most one session at a time. Pool size bounds concurrent sessions.
	DeepgramAPIKeys  []string `envconfig:"DEEPGRAM_API_KEYS" required:"true"`
	DeepgramModel    string   `envconfig:"DEEPGRAM_MODEL" default:"nova-2"` // nova-2, enhanced, base
	DeepgramLanguage string   `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`  // Language code (en, es, fr, etc.)

	// Inbound audio format forwarded to Deepgram (frames themselves are
	// opaque; no decoding happens here)
	AudioEncoding   string `envconfig:"AUDIO_ENCODING" default:"linear16"`
	AudioSampleRate int    `envconfig:"AUDIO_SAMPLE_RATE" default:"16000"`
	AudioChannels   int    `envconfig:"AUDIO_CHANNELS" default:"1"`

	// Translation provider configuration
	TranslateAPIKey string `envconfig:"TRANSLATE_API_KEY" required:"true"`
	TranslateAPIURL string `envconfig:"TRANSLATE_API_URL" default:"https://api-free.deepl.com/v2/translate"`
	SourceLanguage  string `envconfig:"SOURCE_LANGUAGE" default:"en"`
	TargetLanguage  string `envconfig:"TARGET_LANGUAGE" default:"es"`

	// Billing webhook endpoint. Empty disables billing hooks.
	BillingWebhookURL string `envconfig:"BILLING_WEBHOOK_URL" default:""`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables.
// It first attempts to load from .env file if it exists, then from environment.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.DeepgramAPIKeys) == 0 {
		return fmt.Errorf("DEEPGRAM_API_KEYS is required")
	}
	for i, key := range c.DeepgramAPIKeys {
		if key == "" {
			return fmt.Errorf("DEEPGRAM_API_KEYS entry %d is empty", i)
		}
	}
	if c.TranslateAPIKey == "" {
		return fmt.Errorf("TRANSLATE_API_KEY is required")
	}
	if c.SourceLanguage == c.TargetLanguage {
		return fmt.Errorf("SOURCE_LANGUAGE and TARGET_LANGUAGE must differ")
	}
	return nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
