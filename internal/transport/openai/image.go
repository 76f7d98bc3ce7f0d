package openai

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/lostfound-cloud/matcher/internal/domain"
)

// ImageEmbedder embeds images through a CLIP-style model served behind an
// OpenAI-compatible embeddings endpoint. The image is passed as a base64
// data URI in the input list, the convention used by inference servers
// that host multimodal embedding models.
type ImageEmbedder struct {
	client   *openai.Client
	model    openai.EmbeddingModel
	provider string
	logger   *zap.Logger
}

// NewImageEmbedder creates an image embedding provider.
func NewImageEmbedder(cfg *Config) *ImageEmbedder {
	return &ImageEmbedder{
		client:   newClient(cfg),
		model:    openai.EmbeddingModel(cfg.Model),
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// EmbedImage implements domain.ImageEmbedder. data must be JPEG bytes
// (imagefetch.Normalize re-encodes everything to JPEG).
func (e *ImageEmbedder) EmbedImage(ctx context.Context, data []byte) (domain.EmbeddingResult, error) {
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)

	req := openai.EmbeddingRequest{
		Input:          []string{uri},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	return createEmbedding(ctx, e.client, req, e.provider, "image")
}

// HealthCheck verifies API availability via ListModels.
func (e *ImageEmbedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
