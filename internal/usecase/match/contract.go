package match

import (
	"context"

	"github.com/hireloop/matchdex/internal/domain"
	domrec "github.com/hireloop/matchdex/internal/domain/record"
)

// RecordReader loads embedding records for readiness checks.
type RecordReader interface {
	GetByDocument(ctx context.Context, documentID string, documentType domain.DocumentType) (*domrec.Record, error)
}

// VectorIndex is the query side of the vector index.
type VectorIndex interface {
	Vector(ctx context.Context, id string, docType domain.DocumentType) ([]float32, error)
	SearchJobsForCandidate(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error)
	SearchCandidatesForJob(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error)
}

// JobReader fetches job data for the ownership check and skill intersection.
type JobReader interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
}
