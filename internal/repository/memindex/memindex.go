package memindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/hireloop/matchdex/internal/domain"
)

// Index is an in-memory vector index using an exact brute-force cosine scan.
// It mirrors the Redis-backed index for small-scale and offline use: upserts
// replace by id, deletes are no-ops when absent, and searches apply the same
// liveness/availability filters.
type Index struct {
	mu         sync.RWMutex
	jobs       map[string]*domain.JobDocument
	candidates map[string]*domain.CandidateDocument
	jobOrder   []string
	candOrder  []string
}

// New creates an empty in-memory index.
func New() *Index {
	return &Index{
		jobs:       make(map[string]*domain.JobDocument),
		candidates: make(map[string]*domain.CandidateDocument),
	}
}

// UpsertJob inserts or replaces a job document by id.
func (x *Index) UpsertJob(_ context.Context, doc *domain.JobDocument) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	d := *doc
	if _, ok := x.jobs[doc.ID]; !ok {
		x.jobOrder = append(x.jobOrder, doc.ID)
	}
	x.jobs[doc.ID] = &d
	return nil
}

// UpsertCandidate inserts or replaces a candidate document by user id.
func (x *Index) UpsertCandidate(_ context.Context, doc *domain.CandidateDocument) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	d := *doc
	if _, ok := x.candidates[doc.UserID]; !ok {
		x.candOrder = append(x.candOrder, doc.UserID)
	}
	x.candidates[doc.UserID] = &d
	return nil
}

// Delete removes a document. No-op if absent.
func (x *Index) Delete(_ context.Context, id string, docType domain.DocumentType) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if docType == domain.TypeJob {
		if _, ok := x.jobs[id]; ok {
			delete(x.jobs, id)
			x.jobOrder = removeID(x.jobOrder, id)
		}
		return nil
	}
	if _, ok := x.candidates[id]; ok {
		delete(x.candidates, id)
		x.candOrder = removeID(x.candOrder, id)
	}
	return nil
}

// Vector returns the stored embedding for a document, or domain.ErrNotFound.
func (x *Index) Vector(_ context.Context, id string, docType domain.DocumentType) ([]float32, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if docType == domain.TypeJob {
		if doc, ok := x.jobs[id]; ok {
			return doc.Vector, nil
		}
		return nil, domain.ErrNotFound
	}
	if doc, ok := x.candidates[id]; ok {
		return doc.Vector, nil
	}
	return nil, domain.ErrNotFound
}

// SearchJobsForCandidate scans active jobs and returns the topK by cosine similarity.
func (x *Index) SearchJobsForCandidate(_ context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]domain.Hit, 0, len(x.jobOrder))
	for _, id := range x.jobOrder {
		doc := x.jobs[id]
		if !doc.IsActive {
			continue
		}
		hits = append(hits, domain.Hit{ID: id, Score: CosineSimilarity(vector, doc.Vector)})
	}
	return rank(hits, vector, topK), nil
}

// SearchCandidatesForJob scans candidates, excluding the not-available ones,
// and returns the topK by cosine similarity with their skills attached.
func (x *Index) SearchCandidatesForJob(_ context.Context, vector []float32, topK int) ([]domain.Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]domain.Hit, 0, len(x.candOrder))
	for _, id := range x.candOrder {
		doc := x.candidates[id]
		if doc.Availability == domain.AvailabilityNotAvailable {
			continue
		}
		hits = append(hits, domain.Hit{
			ID:     id,
			Score:  CosineSimilarity(vector, doc.Vector),
			Skills: doc.Skills,
		})
	}
	return rank(hits, vector, topK), nil
}

// rank orders hits for the response. A zero-length query vector is the
// placeholder used by deterministic test doubles: instead of cosine scores
// (all zero in that case) the hits keep insertion order and receive the fixed
// descending sequence 0.9, 0.85, 0.80, ...
func rank(hits []domain.Hit, vector []float32, topK int) []domain.Hit {
	if len(vector) == 0 {
		for i := range hits {
			hits[i].Score = 0.9 - 0.05*float64(i)
		}
	} else {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	}
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// CosineSimilarity computes dot(a,b) / (|a|*|b|). A zero denominator
// (either vector zero or empty) yields 0, never NaN.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

func removeID(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
