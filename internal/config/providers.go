package config

import (
	"fmt"
	"os"
	"time"
)

// EmbeddingConfig configures the remote embedding model.
type EmbeddingConfig struct {
	Provider      string        `mapstructure:"provider"` // jina, openai-compatible
	Model         string        `mapstructure:"model"`
	APIKey        string        `mapstructure:"api_key"`
	APIKeyEnv     string        `mapstructure:"api_key_env"`
	BaseURL       string        `mapstructure:"base_url"`
	Dimensions    int           `mapstructure:"dimensions"`
	MaxInputChars int           `mapstructure:"max_input_chars"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ResolveEnvVars loads APIKey from APIKeyEnv when no key is set directly.
func (c *EmbeddingConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
}

// Validate checks the static fields. A missing API key is not an error here:
// the embedding service disables itself at load time instead.
func (c *EmbeddingConfig) Validate() error {
	switch c.Provider {
	case "jina", "openai-compatible":
	default:
		return fmt.Errorf("embedding: unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("embedding: model is required")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedding: dimensions must be positive")
	}
	if c.MaxInputChars <= 0 {
		return fmt.Errorf("embedding: max_input_chars must be positive")
	}
	return nil
}

// ClassifierConfig configures the remote LLM used for classification and definitions.
type ClassifierConfig struct {
	Provider              string        `mapstructure:"provider"` // anthropic, openai-compatible
	Model                 string        `mapstructure:"model"`
	APIKey                string        `mapstructure:"api_key"`
	APIKeyEnv             string        `mapstructure:"api_key_env"`
	BaseURL               string        `mapstructure:"base_url"`
	MaxTokens             int           `mapstructure:"max_tokens"`
	DefinitionMaxTokens   int           `mapstructure:"definition_max_tokens"`
	BatchMaxTokens        int           `mapstructure:"batch_max_tokens"`
	InputPricePerMillion  float64       `mapstructure:"input_price_per_million"`
	OutputPricePerMillion float64       `mapstructure:"output_price_per_million"`
	Timeout               time.Duration `mapstructure:"timeout"`
	ValidateOnStartup     bool          `mapstructure:"validate_on_startup"`
}

// ResolveEnvVars loads APIKey from APIKeyEnv when no key is set directly.
func (c *ClassifierConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
}

// Validate checks the static fields.
func (c *ClassifierConfig) Validate() error {
	switch c.Provider {
	case "anthropic", "openai-compatible":
	default:
		return fmt.Errorf("classifier: unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("classifier: model is required")
	}
	if c.MaxTokens <= 0 || c.DefinitionMaxTokens <= 0 || c.BatchMaxTokens <= 0 {
		return fmt.Errorf("classifier: token limits must be positive")
	}
	if c.InputPricePerMillion < 0 || c.OutputPricePerMillion < 0 {
		return fmt.Errorf("classifier: prices must not be negative")
	}
	return nil
}

// APIKeyConfigured reports whether a usable key is present.
func (c *ClassifierConfig) APIKeyConfigured() bool {
	return c.APIKey != "" && c.APIKey != "your-ai-api-key-here"
}
