package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/hireloop/matchdex/internal/db"
	"github.com/hireloop/matchdex/internal/domain"
)

// store is the consumer interface for the vector index (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo is the Redis-backed vector index: one FT index per document type,
// documents stored as hashes with a FLOAT32 vector field, nearest-neighbor
// search delegated to the engine's HNSW graph.
type Repo struct {
	store     store
	vectorDim int
	hnsw      HNSWConfig
}

// HNSWConfig tunes the HNSW graph parameters used at index creation.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// New creates a Redis-backed vector index repository.
func New(s store, vectorDim int) *Repo {
	if vectorDim <= 0 {
		vectorDim = domain.VectorDim
	}
	return &Repo{store: s, vectorDim: vectorDim}
}

// WithHNSW overrides the HNSW build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// UpsertJob inserts or replaces a job document by id. HSET on a fixed key is
// idempotent: re-upserting replaces, never duplicates.
func (r *Repo) UpsertJob(ctx context.Context, doc *domain.JobDocument) error {
	if len(doc.Vector) != r.vectorDim {
		return fmt.Errorf("job %s: vector dimension %d, want %d: %w",
			doc.ID, len(doc.Vector), r.vectorDim, domain.ErrValidation)
	}
	if err := r.store.HSet(ctx, jobKey(doc.ID), buildJobFields(doc)); err != nil {
		return fmt.Errorf("upsert job %s: %w", doc.ID, err)
	}
	return nil
}

// UpsertCandidate inserts or replaces a candidate document by user id.
func (r *Repo) UpsertCandidate(ctx context.Context, doc *domain.CandidateDocument) error {
	if len(doc.Vector) != r.vectorDim {
		return fmt.Errorf("candidate %s: vector dimension %d, want %d: %w",
			doc.UserID, len(doc.Vector), r.vectorDim, domain.ErrValidation)
	}
	if err := r.store.HSet(ctx, candidateKey(doc.UserID), buildCandidateFields(doc)); err != nil {
		return fmt.Errorf("upsert candidate %s: %w", doc.UserID, err)
	}
	return nil
}

// Delete removes a document from the index. No-op if absent.
func (r *Repo) Delete(ctx context.Context, id string, docType domain.DocumentType) error {
	if err := r.store.Del(ctx, docKey(id, docType)); err != nil {
		return fmt.Errorf("delete %s %s: %w", docType, id, err)
	}
	return nil
}

// Vector returns the stored embedding for a document, or ErrNotFound.
func (r *Repo) Vector(ctx context.Context, id string, docType domain.DocumentType) ([]float32, error) {
	fields, err := r.store.HGetAll(ctx, docKey(id, docType))
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", docType, id, err)
	}
	raw, ok := fields[fieldVector]
	if !ok || raw == "" {
		return nil, fmt.Errorf("%s %s: %w", docType, id, domain.ErrNotFound)
	}
	vec := bytesToVector(raw)
	if vec == nil {
		return nil, fmt.Errorf("%s %s: corrupt vector field", docType, id)
	}
	return vec, nil
}

// SearchJobsForCandidate returns the nearest active jobs for a candidate vector.
func (r *Repo) SearchJobsForCandidate(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    jobsIndexName,
		Filter:       "@is_active:{1}",
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{fieldVectorScore},
	})
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}
	return hitsFromEntries(sr.Entries, jobKeyPrefix, false), nil
}

// SearchCandidatesForJob returns the nearest candidates for a job vector,
// excluding candidates who declared themselves not available.
func (r *Repo) SearchCandidatesForJob(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    candidatesIndexName,
		Filter:       fmt.Sprintf("-@availability:{%s}", domain.AvailabilityNotAvailable),
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{fieldVectorScore, fieldSkills},
	})
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	return hitsFromEntries(sr.Entries, candidateKeyPrefix, true), nil
}

// EnsureIndexes creates the two FT indexes if they do not exist yet.
// Called once at startup; tolerates a concurrent creator.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	for _, def := range []*db.IndexDefinition{r.jobsIndex(), r.candidatesIndex()} {
		exists, err := r.store.IndexExists(ctx, def.Name)
		if err != nil {
			return fmt.Errorf("probe index %s: %w", def.Name, err)
		}
		if exists {
			continue
		}
		if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", def.Name, err)
		}
	}
	return nil
}

func (r *Repo) jobsIndex() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     jobsIndexName,
		Prefixes: []string{jobKeyPrefix},
		Fields: append([]db.IndexField{
			{Name: fieldIsActive, Type: db.IndexFieldTag},
			{Name: fieldSkills, Type: db.IndexFieldTag, TagSeparator: ","},
			{Name: fieldWorkMode, Type: db.IndexFieldTag},
			{Name: fieldExperience, Type: db.IndexFieldTag},
			{Name: fieldSalaryMin, Type: db.IndexFieldNumeric},
			{Name: fieldSalaryMax, Type: db.IndexFieldNumeric},
		}, r.vectorField()...),
	}
}

func (r *Repo) candidatesIndex() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     candidatesIndexName,
		Prefixes: []string{candidateKeyPrefix},
		Fields: append([]db.IndexField{
			{Name: fieldAvailability, Type: db.IndexFieldTag},
			{Name: fieldSkills, Type: db.IndexFieldTag, TagSeparator: ","},
			{Name: fieldExperience, Type: db.IndexFieldTag},
		}, r.vectorField()...),
	}
}

func (r *Repo) vectorField() []db.IndexField {
	return []db.IndexField{{
		Name:              fieldVector,
		Alias:             "vector",
		Type:              db.IndexFieldVector,
		VectorAlgo:        db.VectorHNSW,
		VectorDim:         r.vectorDim,
		VectorDistance:    db.DistanceCosine,
		VectorM:           r.hnsw.M,
		VectorEFConstruct: r.hnsw.EFConstruct,
	}}
}

func hitsFromEntries(entries []db.SearchEntry, keyPrefix string, withSkills bool) []domain.Hit {
	hits := make([]domain.Hit, 0, len(entries))
	for _, e := range entries {
		hit := domain.Hit{
			ID:    extractID(e.Key, keyPrefix),
			Score: e.Score,
		}
		if withSkills {
			hit.Skills = splitSkills(e.Fields[fieldSkills])
		}
		hits = append(hits, hit)
	}
	return hits
}
