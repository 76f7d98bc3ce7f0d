package domain

import "context"

// EmbeddingResult carries an embedding vector and token usage through the
// decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// TextEmbedder vectorizes text into a text-space embedding.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) (EmbeddingResult, error)
}

// ImageEmbedder vectorizes image bytes into an image-space embedding.
// Text-space and image-space vectors are never compared to each other.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, data []byte) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
