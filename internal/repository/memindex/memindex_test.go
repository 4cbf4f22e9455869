package memindex

import (
	"context"
	"math"
	"testing"

	"github.com/hireloop/matchdex/internal/domain"
)

func job(id string, active bool, vec []float32) *domain.JobDocument {
	return &domain.JobDocument{ID: id, IsActive: active, Vector: vec}
}

func candidate(id, availability string, vec []float32, skills ...string) *domain.CandidateDocument {
	return &domain.CandidateDocument{UserID: id, Availability: availability, Vector: vec, Skills: skills}
}

func TestCosineSimilarity_SymmetryAndBounds(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2, 0.9}
	b := []float32{-0.1, 0.4, 0.8, 0.05}

	ab := CosineSimilarity(a, b)
	ba := CosineSimilarity(b, a)

	if ab != ba {
		t.Errorf("cosine not symmetric: %v vs %v", ab, ba)
	}
	if ab < -1.0001 || ab > 1.0001 {
		t.Errorf("cosine out of bounds: %v", ab)
	}
}

func TestCosineSimilarity_Identical(t *testing.T) {
	a := []float32{1, 2, 3}
	if got := CosineSimilarity(a, a); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("cosine(a, a) = %v, want 1", got)
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	got := CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
	if got != 0 {
		t.Errorf("cosine with zero vector = %v, want 0", got)
	}
	if math.IsNaN(got) {
		t.Error("cosine with zero vector must not be NaN")
	}
}

func TestUpsertJob_ReplacesNotDuplicates(t *testing.T) {
	x := New()
	ctx := context.Background()

	_ = x.UpsertJob(ctx, job("j1", true, []float32{1, 0}))
	_ = x.UpsertJob(ctx, job("j1", true, []float32{0, 1}))

	hits, err := x.SearchJobsForCandidate(ctx, []float32{0, 1}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if math.Abs(hits[0].Score-1.0) > 1e-9 {
		t.Errorf("score = %v, want 1 (latest vector wins)", hits[0].Score)
	}
}

func TestDelete_RemovesFromSearch(t *testing.T) {
	x := New()
	ctx := context.Background()

	_ = x.UpsertJob(ctx, job("j1", true, []float32{1, 0}))
	_ = x.UpsertJob(ctx, job("j2", true, []float32{0, 1}))
	if err := x.Delete(ctx, "j1", domain.TypeJob); err != nil {
		t.Fatalf("delete: %v", err)
	}

	hits, _ := x.SearchJobsForCandidate(ctx, []float32{1, 0}, 10)
	for _, h := range hits {
		if h.ID == "j1" {
			t.Error("deleted id j1 still returned by search")
		}
	}
}

func TestDelete_AbsentIsNoop(t *testing.T) {
	x := New()
	if err := x.Delete(context.Background(), "nope", domain.TypeJob); err != nil {
		t.Errorf("delete absent: %v", err)
	}
}

func TestSearchJobs_FiltersInactive(t *testing.T) {
	x := New()
	ctx := context.Background()

	_ = x.UpsertJob(ctx, job("active", true, []float32{1, 0}))
	_ = x.UpsertJob(ctx, job("closed", false, []float32{1, 0}))

	hits, _ := x.SearchJobsForCandidate(ctx, []float32{1, 0}, 10)
	if len(hits) != 1 || hits[0].ID != "active" {
		t.Errorf("hits = %v, want only the active job", hits)
	}
}

func TestSearchCandidates_FiltersNotAvailable(t *testing.T) {
	x := New()
	ctx := context.Background()

	_ = x.UpsertCandidate(ctx, candidate("open", domain.AvailabilityOpen, []float32{1, 0}, "ITSM"))
	_ = x.UpsertCandidate(ctx, candidate("gone", domain.AvailabilityNotAvailable, []float32{1, 0}))

	hits, _ := x.SearchCandidatesForJob(ctx, []float32{1, 0}, 10)
	if len(hits) != 1 || hits[0].ID != "open" {
		t.Fatalf("hits = %v, want only the available candidate", hits)
	}
	if len(hits[0].Skills) != 1 || hits[0].Skills[0] != "ITSM" {
		t.Errorf("skills = %v, want [ITSM]", hits[0].Skills)
	}
}

func TestSearch_RanksDescendingAndTruncates(t *testing.T) {
	x := New()
	ctx := context.Background()

	_ = x.UpsertJob(ctx, job("far", true, []float32{0, 1}))
	_ = x.UpsertJob(ctx, job("near", true, []float32{1, 0.1}))
	_ = x.UpsertJob(ctx, job("mid", true, []float32{1, 1}))

	hits, _ := x.SearchJobsForCandidate(ctx, []float32{1, 0}, 2)
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ID != "near" || hits[1].ID != "mid" {
		t.Errorf("order = [%s %s], want [near mid]", hits[0].ID, hits[1].ID)
	}
}

func TestSearch_ZeroLengthQueryVectorDeterministicScores(t *testing.T) {
	x := New()
	ctx := context.Background()

	_ = x.UpsertJob(ctx, job("first", true, []float32{1, 0}))
	_ = x.UpsertJob(ctx, job("second", true, []float32{0, 1}))
	_ = x.UpsertJob(ctx, job("third", true, []float32{1, 1}))

	hits, _ := x.SearchJobsForCandidate(ctx, nil, 10)
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}

	wantIDs := []string{"first", "second", "third"}
	wantScores := []float64{0.9, 0.85, 0.8}
	for i := range hits {
		if hits[i].ID != wantIDs[i] {
			t.Errorf("hit %d id = %s, want %s (insertion order)", i, hits[i].ID, wantIDs[i])
		}
		if math.Abs(hits[i].Score-wantScores[i]) > 1e-9 {
			t.Errorf("hit %d score = %v, want %v", i, hits[i].Score, wantScores[i])
		}
	}
}

func TestVector_RoundTripAndNotFound(t *testing.T) {
	x := New()
	ctx := context.Background()

	_ = x.UpsertCandidate(ctx, candidate("c1", domain.AvailabilityAvailable, []float32{0.5, 0.25}))

	vec, err := x.Vector(ctx, "c1", domain.TypeCandidateProfile)
	if err != nil {
		t.Fatalf("vector: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 {
		t.Errorf("vector = %v", vec)
	}

	if _, err := x.Vector(ctx, "missing", domain.TypeJob); err != domain.ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
