package health

import "context"

// Repository connectivity states reported by /health.
const (
	RepoConnected    = "connected"
	RepoDisconnected = "disconnected"
)

// Report aggregates health check results. The endpoint always answers
// 200; degradation shows up in the fields, not the status code.
type Report struct {
	Status       string
	Message      string
	Repository   string
	ModelsLoaded bool
}

// Service coordinates health checks.
type Service struct {
	repo   RepoPinger
	models ModelChecker
}

// New creates a Service. models can be nil when no embedder is configured.
func New(repo RepoPinger, models ModelChecker) *Service {
	return &Service{repo: repo, models: models}
}

// Check probes the item store and the embedding models.
func (s *Service) Check(ctx context.Context) Report {
	report := Report{
		Status:     "healthy",
		Message:    "Lost and Found matcher is running",
		Repository: RepoConnected,
	}

	if s.repo == nil || s.repo.Ping(ctx) != nil {
		report.Repository = RepoDisconnected
		report.Status = "degraded"
	}

	if s.models != nil {
		report.ModelsLoaded = s.models.HealthCheck(ctx) == nil
	}
	if !report.ModelsLoaded {
		report.Status = "degraded"
	}

	return report
}
