// Package openai provides embedding providers backed by OpenAI-compatible
// APIs. Text and image embedders are independent capabilities; their
// vectors live in different spaces and are never compared to each other.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/lostfound-cloud/matcher/internal/domain"
	"github.com/lostfound-cloud/matcher/internal/metrics"
)

// TextEmbedder is a text embedding provider using an OpenAI-compatible API.
type TextEmbedder struct {
	client   *openai.Client
	model    openai.EmbeddingModel
	dims     int
	provider string
	logger   *zap.Logger
}

// Config holds embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Provider   string
	Logger     *zap.Logger
}

// NewTextEmbedder creates an OpenAI-compatible text embedding provider.
func NewTextEmbedder(cfg *Config) *TextEmbedder {
	return &TextEmbedder{
		client:   newClient(cfg),
		model:    openai.EmbeddingModel(cfg.Model),
		dims:     cfg.Dimensions,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// EmbedText implements domain.TextEmbedder with transport-level metrics.
func (e *TextEmbedder) EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dims > 0 {
		req.Dimensions = e.dims
	}
	return createEmbedding(ctx, e.client, req, e.provider, "text")
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *TextEmbedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// createEmbedding runs one embeddings call, recording metrics under the
// given modality label.
func createEmbedding(
	ctx context.Context,
	client *openai.Client,
	req openai.EmbeddingRequest,
	provider, modality string,
) (domain.EmbeddingResult, error) {
	model := string(req.Model)
	start := time.Now()

	resp, err := client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, model, modality, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, model, modality, "api_error").Inc()
		return domain.EmbeddingResult{}, parseAPIError(err)
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(provider, model, modality, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(provider, model, modality, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(provider, model, modality, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(provider, model, modality).Observe(duration.Seconds())

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrEmbeddingProviderError.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
