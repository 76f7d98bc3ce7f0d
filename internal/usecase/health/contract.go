package health

import "context"

// RepoPinger checks item store availability.
type RepoPinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker checks embedding provider availability.
type ModelChecker interface {
	HealthCheck(ctx context.Context) error
}
