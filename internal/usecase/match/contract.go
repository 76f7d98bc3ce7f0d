package match

import (
	"context"

	"github.com/lostfound-cloud/matcher/internal/domain"
)

// Repository streams all stored reports of one collection.
type Repository interface {
	List(ctx context.Context, collection string) ([]domain.Item, error)
}

// TextEmbedder vectorizes text.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ImageEmbedder vectorizes normalized image bytes.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, data []byte) (domain.EmbeddingResult, error)
}

// ImageFetcher downloads and normalizes a remote image.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
