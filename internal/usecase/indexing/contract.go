package indexing

import (
	"context"

	"github.com/hireloop/matchdex/internal/domain"
	domrec "github.com/hireloop/matchdex/internal/domain/record"
)

// RecordStore defines the storage contract for embedding records.
type RecordStore interface {
	GetByDocument(ctx context.Context, documentID string, documentType domain.DocumentType) (*domrec.Record, error)
	Add(ctx context.Context, rec *domrec.Record) error
	Update(ctx context.Context, rec *domrec.Record) error
}

// DocumentSource fetches current document data from the owning services.
type DocumentSource interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	GetCandidate(ctx context.Context, userID string) (*domain.Candidate, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex is the write side of the vector index.
type VectorIndex interface {
	UpsertJob(ctx context.Context, doc *domain.JobDocument) error
	UpsertCandidate(ctx context.Context, doc *domain.CandidateDocument) error
	Delete(ctx context.Context, id string, docType domain.DocumentType) error
}
