// Package imagefetch retrieves candidate images over HTTP and normalizes
// them for embedding. Every failure path (network error, non-2xx status,
// oversized body, undecodable image) is an ordinary error; callers degrade
// the image modality to absent instead of failing the scan.
package imagefetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/lostfound-cloud/matcher/internal/domain"
	"github.com/lostfound-cloud/matcher/internal/metrics"
)

// maxDimension bounds normalized images; CLIP-style models downscale far
// below this anyway, and smaller payloads keep embedding requests cheap.
const maxDimension = 512

const jpegQuality = 85

// Fetcher downloads and normalizes images with a bounded per-fetch timeout.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
}

// New creates a Fetcher. timeout bounds each fetch independently of the
// request deadline; maxBytes bounds the response body.
func New(timeout time.Duration, maxBytes int64, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Fetch downloads the image at url and returns normalized JPEG bytes.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ImageFetchFailuresTotal.Inc()
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ImageFetchFailuresTotal.Inc()
		return nil, fmt.Errorf("fetch image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		metrics.ImageFetchFailuresTotal.Inc()
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		metrics.ImageFetchFailuresTotal.Inc()
		return nil, fmt.Errorf("image exceeds %d bytes", f.maxBytes)
	}

	normalized, err := Normalize(data)
	if err != nil {
		f.logger.Debug("Fetched image is not decodable", zap.String("url", url), zap.Error(err))
		return nil, err
	}
	return normalized, nil
}

// Normalize decodes raw image bytes (JPEG, PNG, GIF, TIFF, BMP), fixes
// orientation, downscales to at most maxDimension on the long side and
// re-encodes as JPEG, the single format the image embedder accepts.
func Normalize(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageUndecodable, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
