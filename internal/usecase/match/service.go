// Package match implements the similarity scan: one validated query
// against every stored report of the opposite collection.
package match

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lostfound-cloud/matcher/internal/domain"
	"github.com/lostfound-cloud/matcher/internal/domain/similarity"
	"github.com/lostfound-cloud/matcher/internal/logger"
	"github.com/lostfound-cloud/matcher/internal/metrics"
)

const (
	defaultMaxResults   = 20
	defaultWorkers      = 8
	defaultFetchTimeout = 10 * time.Second
)

// Service drives the match scan. It holds no per-request state; the
// embedders and repository are process-wide, read-only collaborators.
type Service struct {
	repo         Repository
	text         TextEmbedder
	image        ImageEmbedder
	fetcher      ImageFetcher
	weights      similarity.Weights
	maxResults   int
	workers      int
	fetchTimeout time.Duration
}

// New creates a match service. image may be nil; the image modality is
// then absent for every candidate.
func New(repo Repository, text TextEmbedder, image ImageEmbedder, fetcher ImageFetcher,
	weights similarity.Weights) *Service {
	return &Service{
		repo:         repo,
		text:         text,
		image:        image,
		fetcher:      fetcher,
		weights:      weights,
		maxResults:   defaultMaxResults,
		workers:      defaultWorkers,
		fetchTimeout: defaultFetchTimeout,
	}
}

// WithLimits overrides the result cap and the scoring worker count.
func (s *Service) WithLimits(maxResults, workers int) *Service {
	if maxResults > 0 {
		s.maxResults = maxResults
	}
	if workers > 0 {
		s.workers = workers
	}
	return s
}

// WithFetchTimeout overrides the per-candidate image fetch timeout.
func (s *Service) WithFetchTimeout(d time.Duration) *Service {
	if d > 0 {
		s.fetchTimeout = d
	}
	return s
}

// Result is one completed match scan.
type Result struct {
	QueryType  domain.QueryType
	Collection string
	TotalItems int
	Matches    []domain.Match
}

// queryEmbeddings holds the query-side vectors, computed once per request
// and shared read-only across all candidate workers.
type queryEmbeddings struct {
	text     []float32
	hasText  bool
	image    []float32
	hasImage bool
}

// Match scans the opposite collection and returns candidates ranked by
// overall similarity, truncated to the result cap. Candidates tied on
// score keep repository order.
func (s *Service) Match(ctx context.Context, q domain.Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}
	if s.text == nil {
		return Result{}, domain.ErrModelsNotReady
	}

	collection := q.Type.TargetCollection()

	items, err := s.repo.List(ctx, collection)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrRepositoryUnavailable, err)
	}

	result := Result{
		QueryType:  q.Type,
		Collection: collection,
		TotalItems: len(items),
		Matches:    []domain.Match{},
	}
	if len(items) == 0 {
		return result, nil
	}

	start := time.Now()

	qe := s.embedQuery(ctx, q)

	matches := make([]domain.Match, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			matches[i] = s.scoreCandidate(gctx, qe, item)
			return nil
		})
	}
	// Workers only fail on cancellation; one candidate's bad image or
	// embedding never aborts the scan.
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("match scan aborted: %w", err)
	}

	metrics.MatchCandidatesTotal.WithLabelValues(collection).Add(float64(len(items)))
	metrics.MatchRequestDuration.WithLabelValues(string(q.Type)).Observe(time.Since(start).Seconds())

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].OverallScore > matches[j].OverallScore
	})

	if len(matches) > s.maxResults {
		matches = matches[:s.maxResults]
	}
	result.Matches = matches
	return result, nil
}

// embedQuery computes the query-side embeddings exactly once. Failures
// degrade the modality to absent for the whole request.
func (s *Service) embedQuery(ctx context.Context, q domain.Query) queryEmbeddings {
	log := logger.FromContext(ctx)

	var qe queryEmbeddings

	res, err := s.text.EmbedText(ctx, q.Text)
	if err != nil {
		log.Warn("Query text embedding failed, text modality absent", zap.Error(err))
	} else {
		qe.text = res.Embedding
		qe.hasText = true
	}

	if len(q.Image) > 0 && s.image != nil {
		res, err := s.image.EmbedImage(ctx, q.Image)
		if err != nil {
			log.Warn("Query image embedding failed, image modality absent", zap.Error(err))
		} else {
			qe.image = res.Embedding
			qe.hasImage = true
		}
	}

	return qe
}

// scoreCandidate evaluates both modalities for one candidate and combines
// them. Always returns a Match; unevaluated modalities stay absent.
func (s *Service) scoreCandidate(ctx context.Context, qe queryEmbeddings, item domain.Item) domain.Match {
	log := logger.FromContext(ctx)

	var textSim, imageSim float64
	var hasText, hasImage bool

	if qe.hasText && strings.TrimSpace(item.Description) != "" {
		res, err := s.text.EmbedText(ctx, item.Description)
		if err != nil {
			log.Debug("Candidate text embedding failed",
				zap.String("item_id", item.ID), zap.Error(err))
		} else {
			textSim = similarity.Cosine(qe.text, res.Embedding)
			hasText = true
		}
	}

	if qe.hasImage && item.HasImage() && s.fetcher != nil {
		if vec, ok := s.embedCandidateImage(ctx, item); ok {
			imageSim = similarity.Cosine(qe.image, vec)
			hasImage = true
		}
	}

	overall := similarity.Combine(textSim, imageSim, hasText, hasImage, s.weights)

	m := domain.Match{
		ItemID:       item.ID,
		OverallScore: similarity.Percent(overall),
		Description:  item.Description,
		ImageURL:     item.ImageURL,
		Metadata:     item.Metadata,
	}
	if hasText {
		m.Text = domain.ModalityScore{Value: similarity.Percent(textSim), Present: true}
	}
	if hasImage {
		m.Image = domain.ModalityScore{Value: similarity.Percent(imageSim), Present: true}
	}
	return m
}

// embedCandidateImage fetches and embeds one candidate's image under its
// own timeout, isolated from the other candidates.
func (s *Service) embedCandidateImage(ctx context.Context, item domain.Item) ([]float32, bool) {
	log := logger.FromContext(ctx)

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	data, err := s.fetcher.Fetch(fetchCtx, item.ImageURL)
	if err != nil {
		log.Debug("Candidate image fetch failed",
			zap.String("item_id", item.ID), zap.String("url", item.ImageURL), zap.Error(err))
		return nil, false
	}

	res, err := s.image.EmbedImage(ctx, data)
	if err != nil {
		log.Debug("Candidate image embedding failed",
			zap.String("item_id", item.ID), zap.Error(err))
		return nil, false
	}
	return res.Embedding, true
}
