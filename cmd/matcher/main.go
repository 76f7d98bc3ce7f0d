package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lostfound-cloud/matcher/internal/config"
	dbRedis "github.com/lostfound-cloud/matcher/internal/db/redis"
	"github.com/lostfound-cloud/matcher/internal/domain"
	"github.com/lostfound-cloud/matcher/internal/imagefetch"
	logpkg "github.com/lostfound-cloud/matcher/internal/logger"
	"github.com/lostfound-cloud/matcher/internal/metrics"
	"github.com/lostfound-cloud/matcher/internal/repository/embcache"
	itemsrepo "github.com/lostfound-cloud/matcher/internal/repository/items"
	chiTransport "github.com/lostfound-cloud/matcher/internal/transport/chi"
	openaiEmb "github.com/lostfound-cloud/matcher/internal/transport/openai"
	healthuc "github.com/lostfound-cloud/matcher/internal/usecase/health"
	matchuc "github.com/lostfound-cloud/matcher/internal/usecase/match"
	"github.com/lostfound-cloud/matcher/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting lost&found matcher API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create item store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Item store not ready", zap.Error(err))
	}
	logger.Info("Connected to item store")

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterMatchingMetrics()

	// Embedding models are process-wide: built once here, shared read-only
	// by every request.
	textEmbedder, imageEmbedder := buildEmbedders(cfg, store, logger)
	logger.Info("Embedders created",
		zap.String("text_model", cfg.Embedding.Text.Model),
		zap.String("image_model", cfg.Embedding.Image.Model),
		zap.Bool("image_enabled", cfg.Embedding.Image.Configured()),
		zap.Bool("cache_enabled", cfg.Embedding.Cache.Enabled),
	)

	fetcher := imagefetch.New(
		time.Duration(cfg.Matching.ImageFetchTimeoutSec)*time.Second,
		cfg.Matching.MaxImageBytes,
		logger,
	)

	itemRepo := itemsrepo.New(store, logger)

	matchSvc := matchuc.New(itemRepo, textEmbedder, imageEmbedder, fetcher, cfg.Matching.Weights()).
		WithLimits(cfg.Matching.MaxResults, cfg.Matching.Workers).
		WithFetchTimeout(time.Duration(cfg.Matching.ImageFetchTimeoutSec) * time.Second)

	healthSvc := healthuc.New(store, modelChecker(textEmbedder))

	server := chiTransport.NewServer(matchSvc, healthSvc, fetcher, cfg.Matching.MaxImageBytes, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedders assembles the provider chain for both modalities:
// OpenAI-compatible provider, optionally wrapped in the store-backed cache.
// A missing image vectorizer yields a nil image embedder; the matcher then
// runs text-only.
func buildEmbedders(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) (
	domain.TextEmbedder, domain.ImageEmbedder,
) {
	cacheTTL := time.Duration(cfg.Embedding.Cache.TTLHours) * time.Hour

	textProv := cfg.Embedding.Providers[cfg.Embedding.Text.Provider]
	var text domain.TextEmbedder = openaiEmb.NewTextEmbedder(&openaiEmb.Config{
		APIKey:     textProv.APIKey,
		BaseURL:    textProv.BaseURL,
		Model:      cfg.Embedding.Text.Model,
		Dimensions: cfg.Embedding.Text.Dimensions,
		Provider:   cfg.Embedding.Text.Provider,
		Logger:     logger,
	})
	if cfg.Embedding.Cache.Enabled {
		text = embcache.NewText(text, store, cfg.Embedding.Text.Model, cacheTTL, metrics.EmbeddingCacheTotal, logger)
	}

	if !cfg.Embedding.Image.Configured() {
		return text, nil
	}

	imageProv := cfg.Embedding.Providers[cfg.Embedding.Image.Provider]
	var image domain.ImageEmbedder = openaiEmb.NewImageEmbedder(&openaiEmb.Config{
		APIKey:   imageProv.APIKey,
		BaseURL:  imageProv.BaseURL,
		Model:    cfg.Embedding.Image.Model,
		Provider: cfg.Embedding.Image.Provider,
		Logger:   logger,
	})
	if cfg.Embedding.Cache.Enabled {
		image = embcache.NewImage(image, store, cfg.Embedding.Image.Model, cacheTTL, metrics.EmbeddingCacheTotal, logger)
	}

	return text, image
}

// modelChecker exposes the text embedder's health check to the health
// usecase when the provider supports one.
func modelChecker(e domain.TextEmbedder) healthuc.ModelChecker {
	if hc, ok := e.(domain.HealthChecker); ok {
		return hc
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
