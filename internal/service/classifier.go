package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/readlearn/backend/internal/config"
	"github.com/readlearn/backend/internal/prompts"
)

var (
	// ErrClassifierTransport means the remote model could not be reached or answered
	// with a non-success status.
	ErrClassifierTransport = errors.New("classifier transport error")
	// ErrClassifierParse means the model answered but the answer could not be read.
	ErrClassifierParse = errors.New("classifier response could not be parsed")
	// ErrClassifierUnavailable means no valid API key is configured.
	ErrClassifierUnavailable = errors.New("classifier is not configured")
	// ErrUnsupportedLanguage is returned for language codes outside the supported set.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

const defaultClassifierTimeout = 30 * time.Second

// ClassifierError carries the status of a failed remote call. StatusCode is 0 when
// no response was received.
type ClassifierError struct {
	StatusCode int
	Message    string
}

func (e *ClassifierError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("classifier request failed: %s", e.Message)
	}
	return fmt.Sprintf("classifier returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap makes every ClassifierError match ErrClassifierTransport.
func (e *ClassifierError) Unwrap() error {
	return ErrClassifierTransport
}

// Completion is the text answer of one remote call with its token usage.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// TotalTokens returns input plus output tokens.
func (c *Completion) TotalTokens() int {
	return c.InputTokens + c.OutputTokens
}

// Classifier sends a single-message prompt to a remote language model.
type Classifier interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (*Completion, error)
	Model() string
}

// NewClassifier builds the client for cfg.Provider.
func NewClassifier(cfg *config.ClassifierConfig) (Classifier, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClassifier(cfg), nil
	case "openai-compatible":
		return NewOpenAIClassifier(cfg), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}

// ProbeClassifier sends a one-token request to check that the key is accepted.
func ProbeClassifier(ctx context.Context, c Classifier) error {
	_, err := c.Complete(ctx, prompts.ProbeMessage, 1)
	return err
}

// AnthropicClassifier calls the Messages API.
type AnthropicClassifier struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewAnthropicClassifier creates a client without SDK retries; callers decide on retries.
func NewAnthropicClassifier(cfg *config.ClassifierConfig) *AnthropicClassifier {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultClassifierTimeout
	}

	return &AnthropicClassifier{
		client:  anthropic.NewClient(opts...),
		model:   cfg.Model,
		timeout: timeout,
	}
}

// Model returns the configured model ID.
func (c *AnthropicClassifier) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the concatenated text blocks.
func (c *AnthropicClassifier) Complete(ctx context.Context, prompt string, maxTokens int) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &ClassifierError{StatusCode: apiErr.StatusCode, Message: err.Error()}
		}
		return nil, &ClassifierError{Message: err.Error()}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Completion{
		Text:         text.String(),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}
