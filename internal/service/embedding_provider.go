package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/readlearn/backend/internal/config"
)

const (
	jinaEndpoint          = "https://api.jina.ai/v1/embeddings"
	defaultOpenAIBaseURL  = "https://api.openai.com/v1"
	embeddingProbeText    = "ping"
	defaultEmbeddingLimit = 15 * time.Second
)

// NewRemoteModelLoader returns a loader for the configured embedding provider. Loading
// fails when no API key is set, the probe request fails, or the probe's dimensionality
// differs from cfg.Dimensions.
func NewRemoteModelLoader(cfg *config.EmbeddingConfig) ModelLoader {
	return func(ctx context.Context) (EmbeddingModel, error) {
		if cfg.APIKey == "" {
			return nil, errors.New("embedding api key is not configured")
		}

		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultEmbeddingLimit
		}
		client := resty.New().
			SetTimeout(timeout).
			SetHeader("Authorization", "Bearer "+cfg.APIKey).
			SetHeader("Content-Type", "application/json")

		var model EmbeddingModel
		switch cfg.Provider {
		case "jina":
			endpoint := jinaEndpoint
			if cfg.BaseURL != "" {
				endpoint = strings.TrimRight(cfg.BaseURL, "/") + "/embeddings"
			}
			model = &jinaModel{client: client, endpoint: endpoint, model: cfg.Model, dimensions: cfg.Dimensions}
		case "openai-compatible":
			baseURL := cfg.BaseURL
			if baseURL == "" {
				baseURL = defaultOpenAIBaseURL
			}
			model = &openAIEmbeddingModel{
				client:     client,
				endpoint:   strings.TrimRight(baseURL, "/") + "/embeddings",
				model:      cfg.Model,
				dimensions: cfg.Dimensions,
			}
		default:
			return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
		}

		probe, err := model.Embed(ctx, []string{embeddingProbeText})
		if err != nil {
			return nil, fmt.Errorf("embedding probe failed: %w", err)
		}
		if len(probe) != 1 || len(probe[0]) != cfg.Dimensions {
			got := 0
			if len(probe) == 1 {
				got = len(probe[0])
			}
			return nil, fmt.Errorf("embedding probe returned %d dimensions, expected %d", got, cfg.Dimensions)
		}
		return model, nil
	}
}

type jinaModel struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
}

type jinaRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (m *jinaModel) Name() string {
	return "jina/" + m.model
}

func (m *jinaModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := jinaRequest{
		Model:         m.model,
		Task:          "text-matching", // symmetric: article vs article
		Dimensions:    m.dimensions,
		Input:         texts,
		EmbeddingType: "float",
	}
	return postEmbeddings(ctx, m.client, m.endpoint, req, len(texts))
}

type openAIEmbeddingModel struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
}

type openAIEmbeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

func (m *openAIEmbeddingModel) Name() string {
	return m.model
}

func (m *openAIEmbeddingModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := openAIEmbeddingRequest{
		Model:      m.model,
		Input:      texts,
		Dimensions: m.dimensions,
	}
	return postEmbeddings(ctx, m.client, m.endpoint, req, len(texts))
}

func postEmbeddings(ctx context.Context, client *resty.Client, endpoint string, body interface{}, want int) ([][]float32, error) {
	if want == 0 {
		return [][]float32{}, nil
	}

	var resp embeddingResponse
	httpResp, err := client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding API: %w", err)
	}

	if httpResp.StatusCode() != http.StatusOK {
		switch {
		case resp.Detail != "":
			return nil, fmt.Errorf("embedding API error: HTTP %d: %s", httpResp.StatusCode(), resp.Detail)
		case resp.Error != nil:
			return nil, fmt.Errorf("embedding API error: HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		default:
			return nil, fmt.Errorf("embedding API error: HTTP %d", httpResp.StatusCode())
		}
	}

	if len(resp.Data) != want {
		return nil, fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(resp.Data), want)
	}

	embeddings := make([][]float32, want)
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= want {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		embeddings[item.Index] = item.Embedding
	}
	return embeddings, nil
}
