// Package chi is the HTTP surface: a thin layer over the match and health
// usecases. Request parsing and response shaping live here; all matching
// semantics live below.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lostfound-cloud/matcher/internal/domain"
	"github.com/lostfound-cloud/matcher/internal/imagefetch"
	healthuc "github.com/lostfound-cloud/matcher/internal/usecase/health"
	matchuc "github.com/lostfound-cloud/matcher/internal/usecase/match"
)

// matchService runs the similarity scan.
type matchService interface {
	Match(ctx context.Context, q domain.Query) (matchuc.Result, error)
}

// healthService probes system components.
type healthService interface {
	Check(ctx context.Context) healthuc.Report
}

// imageFetcher downloads and normalizes a query image given by URL.
type imageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// statusMapping pairs a domain sentinel with its HTTP status.
type statusMapping struct {
	sentinel error
	status   int
}

// Server handles the matcher HTTP API.
type Server struct {
	match     matchService
	health    healthService
	fetcher   imageFetcher
	logger    *zap.Logger
	maxUpload int64
	statuses  []statusMapping
}

// NewServer creates an HTTP API server. fetcher may be nil; JSON requests
// with an imageUrl then run text-only.
func NewServer(match matchService, health healthService, fetcher imageFetcher,
	maxUpload int64, logger *zap.Logger) *Server {
	return &Server{
		match:     match,
		health:    health,
		fetcher:   fetcher,
		logger:    logger,
		maxUpload: maxUpload,
		statuses: []statusMapping{
			{domain.ErrInvalidQueryType, http.StatusBadRequest},
			{domain.ErrTextRequired, http.StatusBadRequest},
			{domain.ErrMalformedBody, http.StatusBadRequest},
			{domain.ErrRepositoryUnavailable, http.StatusInternalServerError},
			{domain.ErrModelsNotReady, http.StatusInternalServerError},
			{domain.ErrEmbeddingProviderError, http.StatusBadGateway},
		},
	}
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Post("/match", s.handleMatch)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// handleHealth reports component availability. Always 200; degradation is
// visible in the body.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	writeJSON(w, http.StatusOK, healthToDTO(report))
}

// handleMatch runs one match scan. Accepts a JSON body or a multipart
// form with an optional image file.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseMatchRequest(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	result, err := s.match.Match(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, matchResultToDTO(result))
}

// parseMatchRequest extracts the query from either encoding. An image that
// fails to fetch or decode degrades to "no image"; the original behavior
// is to continue text-only rather than reject the request.
func (s *Server) parseMatchRequest(r *http.Request) (domain.Query, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		return s.parseMultipart(r)
	}
	return s.parseJSON(r)
}

func (s *Server) parseMultipart(r *http.Request) (domain.Query, error) {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		return domain.Query{}, domain.ErrMalformedBody
	}

	var image []byte
	file, _, err := r.FormFile("image")
	if err == nil {
		defer func() { _ = file.Close() }()

		raw, readErr := io.ReadAll(io.LimitReader(file, s.maxUpload))
		if readErr == nil {
			image, err = imagefetch.Normalize(raw)
			if err != nil {
				s.logger.Warn("Uploaded image is not decodable, continuing text-only", zap.Error(err))
				image = nil
			}
		}
	}

	return domain.NewQuery(r.FormValue("type"), r.FormValue("text"), image)
}

func (s *Server) parseJSON(r *http.Request) (domain.Query, error) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return domain.Query{}, domain.ErrMalformedBody
	}

	var image []byte
	if req.ImageURL != "" && s.fetcher != nil {
		data, err := s.fetcher.Fetch(r.Context(), req.ImageURL)
		if err != nil {
			s.logger.Warn("Query image fetch failed, continuing text-only",
				zap.String("url", req.ImageURL), zap.Error(err))
		} else {
			image = data
		}
	}

	return domain.NewQuery(req.Type, req.Text, image)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, m := range s.statuses {
		if errors.Is(err, m.sentinel) {
			if m.status >= http.StatusInternalServerError {
				s.logger.Error("match request failed", zap.Error(err))
			}
			writeError(w, m.status, m.sentinel.Error())
			return
		}
	}

	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
