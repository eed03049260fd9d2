package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Provider names.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// defaultModels is the model used when none is configured.
var defaultModels = map[string]string{
	ProviderAnthropic:  "claude-haiku",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderGemini:     "gemini-flash",
	ProviderOpenRouter: "google/gemini-2.0-flash-exp",
}

// standardKeyEnv lists the vendor API key variables in discovery order.
var standardKeyEnv = []struct {
	provider string
	env      string
}{
	{ProviderGemini, "GEMINI_API_KEY"},
	{ProviderOpenAI, "OPENAI_API_KEY"},
	{ProviderAnthropic, "ANTHROPIC_API_KEY"},
	{ProviderOpenRouter, "OPENROUTER_API_KEY"},
}

// Config selects and configures the single active provider.
type Config struct {
	// Provider is one of the Provider* names. Empty disables generation.
	Provider string
	APIKey   string
	Model    string
	BaseURL  string // optional endpoint override

	Retry RetryConfig

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig is three attempts with exponential backoff from 1s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Second,
		MaxWait:     10 * time.Second,
		Multiplier:  2.0,
	}
}

// DefaultConfig returns a disabled Config with standard retry and timeout.
func DefaultConfig() Config {
	return Config{
		Retry:   DefaultRetryConfig(),
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv builds a Config from MASTERYPATH_LLM_* variables. When no
// provider is named, the vendor key variables are probed in the order
// Gemini, OpenAI, Anthropic, OpenRouter.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.Provider = os.Getenv("MASTERYPATH_LLM_PROVIDER")
	cfg.APIKey = os.Getenv("MASTERYPATH_LLM_API_KEY")
	cfg.Model = os.Getenv("MASTERYPATH_LLM_MODEL")
	cfg.BaseURL = os.Getenv("MASTERYPATH_LLM_BASE_URL")

	if cfg.Provider == "" {
		for _, k := range standardKeyEnv {
			if v := os.Getenv(k.env); v != "" {
				cfg.Provider = k.provider
				if cfg.APIKey == "" {
					cfg.APIKey = v
				}
				break
			}
		}
	}
	if cfg.APIKey == "" {
		for _, k := range standardKeyEnv {
			if k.provider == cfg.Provider {
				cfg.APIKey = os.Getenv(k.env)
			}
		}
	}
	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Provider]
	}

	if d, err := time.ParseDuration(os.Getenv("MASTERYPATH_LLM_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	if n, err := strconv.Atoi(os.Getenv("MASTERYPATH_LLM_MAX_ATTEMPTS")); err == nil && n > 0 {
		cfg.Retry.MaxAttempts = n
	}

	return cfg
}

// Enabled reports whether a provider is selected.
func (c Config) Enabled() bool {
	return c.Provider != ""
}

// Validate checks that the selected provider has its API key.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOpenRouter:
		if c.APIKey == "" {
			return fmt.Errorf("MASTERYPATH_LLM_API_KEY is required for the %s provider", c.Provider)
		}
	case ProviderMock:
	case "":
		return fmt.Errorf("no LLM provider configured: set MASTERYPATH_LLM_PROVIDER")
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}
