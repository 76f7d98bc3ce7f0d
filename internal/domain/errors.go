package domain

import "errors"

var (
	// ErrInvalidQueryType signals a query type other than "lost" or "found".
	ErrInvalidQueryType = errors.New(`type must be "lost" or "found"`)
	// ErrTextRequired signals an empty query text.
	ErrTextRequired = errors.New("text description is required")
	// ErrMalformedBody signals a request body that could not be parsed.
	ErrMalformedBody = errors.New("request body could not be parsed")
	// ErrRepositoryUnavailable signals that the item store cannot be reached.
	ErrRepositoryUnavailable = errors.New("item repository unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrModelsNotReady signals that no embedding model has been configured.
	ErrModelsNotReady = errors.New("embedding models not ready")
	// ErrImageUndecodable signals image data that cannot be decoded.
	ErrImageUndecodable = errors.New("image cannot be decoded")
)
