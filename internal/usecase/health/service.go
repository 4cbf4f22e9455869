package health

import "context"

// Status is the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates at least one component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates every component is failing.
	Unhealthy Status = "error"
)

// CheckResult is an individual component outcome.
type CheckResult string

const (
	// CheckOK indicates a passing check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing check.
	CheckError CheckResult = "error"
)

// Report aggregates component checks.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks over the store and the embedding provider.
type Service struct {
	store     StorePinger
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil (in-memory wiring has no provider check).
func New(store StorePinger, embedding EmbeddingChecker) *Service {
	return &Service{store: store, embedding: embedding}
}

// Check runs all component checks and aggregates.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["store"] = CheckOK
	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = CheckError
	}

	if s.embedding != nil {
		checks["embedding"] = CheckOK
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		}
	}

	failing := 0
	for _, v := range checks {
		if v == CheckError {
			failing++
		}
	}

	status := Healthy
	switch {
	case failing == len(checks) && failing > 0:
		status = Unhealthy
	case failing > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
