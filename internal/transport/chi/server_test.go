package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hireloop/matchdex/internal/domain"
	domrec "github.com/hireloop/matchdex/internal/domain/record"
	"github.com/hireloop/matchdex/internal/repository/memindex"
	"github.com/hireloop/matchdex/internal/repository/memrecord"
	healthuc "github.com/hireloop/matchdex/internal/usecase/health"
	indexinguc "github.com/hireloop/matchdex/internal/usecase/indexing"
	matchuc "github.com/hireloop/matchdex/internal/usecase/match"
)

// fixtureSource serves canned documents without a network.
type fixtureSource struct {
	jobs       map[string]*domain.Job
	candidates map[string]*domain.Candidate
}

func (f *fixtureSource) GetJob(_ context.Context, id string) (*domain.Job, error) {
	if j, ok := f.jobs[id]; ok {
		return j, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fixtureSource) GetCandidate(_ context.Context, id string) (*domain.Candidate, error) {
	if c, ok := f.candidates[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

// zeroEmbedder returns the zero-length placeholder vector, driving the
// deterministic scoring branch of the in-memory index.
type zeroEmbedder struct{}

func (zeroEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{}}, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type harness struct {
	router   http.Handler
	indexing *indexinguc.Service
	source   *fixtureSource
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	source := &fixtureSource{
		jobs: map[string]*domain.Job{
			"job-1": {
				ID:         "job-1",
				EmployerID: "emp-1",
				Title:      "ServiceNow Developer",
				Skills:     []string{"ITSM", "CMDB"},
				IsActive:   true,
			},
		},
		candidates: map[string]*domain.Candidate{
			"user-1": {
				UserID:       "user-1",
				Headline:     "Platform Engineer",
				Skills:       []string{"itsm", "Flow Designer"},
				Availability: domain.AvailabilityAvailable,
			},
		},
	}

	records := memrecord.New()
	index := memindex.New()
	logger := zap.NewNop()

	indexingSvc := indexinguc.New(records, source, zeroEmbedder{}, index, logger)
	matchSvc := matchuc.New(records, index, source, logger)
	healthSvc := healthuc.New(okPinger{}, nil)

	server := NewServer(indexingSvc, matchSvc, healthSvc, nil, logger)

	r := gochi.NewRouter()
	r.Use(BearerAuthMiddleware(StaticKeys(map[string]Principal{
		"cand-key": {UserID: "user-1", Role: RoleCandidate},
		"emp-key":  {UserID: "emp-1", Role: RoleEmployer},
		"emp2-key": {UserID: "emp-2", Role: RoleEmployer},
		"adm-key":  {UserID: "root", Role: RoleAdmin},
	})))
	server.Routes(r)

	return &harness{router: r, indexing: indexingSvc, source: source}
}

func (h *harness) do(t *testing.T, method, path, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// processSync runs the pipeline inline, standing in for the background pool.
func (h *harness) processSync(t *testing.T, id string, docType domain.DocumentType) {
	t.Helper()
	ok, err := h.indexing.ProcessIndexing(context.Background(), id, docType)
	if err != nil {
		t.Fatalf("ProcessIndexing(%s/%s): %v", docType, id, err)
	}
	if !ok {
		t.Fatalf("ProcessIndexing(%s/%s) = false", docType, id)
	}
}

func TestIndexProfile_Accepted(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/index/profile", "cand-key")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	body := decode[indexAcceptedResponse](t, rec)
	if body.DocumentID != "user-1" || body.DocumentType != "candidate_profile" || body.Status != "pending" {
		t.Errorf("body = %+v", body)
	}
}

func TestIndexProfile_EmployerForbidden(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/index/profile", "emp-key")

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestIndexJob_Accepted(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/index/jobs/job-1", "emp-key")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[indexAcceptedResponse](t, rec)
	if body.DocumentID != "job-1" || body.DocumentType != "job" {
		t.Errorf("body = %+v", body)
	}
}

func TestIndexJob_Unauthenticated(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/index/jobs/job-1", "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestIndexStatus_PollableLifecycle(t *testing.T) {
	h := newHarness(t)

	h.do(t, http.MethodPost, "/api/v1/index/jobs/job-1", "emp-key")

	rec := h.do(t, http.MethodGet, "/api/v1/index/job/job-1", "emp-key")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if body := decode[recordResponse](t, rec); body.Status != "pending" {
		t.Errorf("status before processing = %s", body.Status)
	}

	h.processSync(t, "job-1", domain.TypeJob)

	rec = h.do(t, http.MethodGet, "/api/v1/index/job/job-1", "emp-key")
	body := decode[recordResponse](t, rec)
	if body.Status != string(domrec.StatusIndexed) {
		t.Errorf("status after processing = %s, want indexed", body.Status)
	}
	if body.LastIndexedAt == nil {
		t.Error("lastIndexedAt missing after success")
	}
}

func TestIndexStatus_OtherUsersProfileForbidden(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/api/v1/index/profile", "cand-key")

	rec := h.do(t, http.MethodGet, "/api/v1/index/candidate_profile/user-1", "emp-key")

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestIndexStatus_UnknownRecord404(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/index/job/ghost", "adm-key")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestJobMatches_NotIndexedIsNotReady(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/matches/jobs", "cand-key")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (not ready is not an error)", rec.Code)
	}
	body := decode[matchResponse](t, rec)
	if body.EmbeddingReady {
		t.Error("embeddingReady = true, want false")
	}
	if len(body.Results) != 0 {
		t.Errorf("results = %v", body.Results)
	}
}

func TestJobMatches_BadPagination(t *testing.T) {
	h := newHarness(t)

	if rec := h.do(t, http.MethodGet, "/api/v1/matches/jobs?page=0", "cand-key"); rec.Code != http.StatusBadRequest {
		t.Errorf("page=0 status = %d, want 400", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/v1/matches/jobs?page=x", "cand-key"); rec.Code != http.StatusBadRequest {
		t.Errorf("page=x status = %d, want 400", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/v1/matches/jobs?pageSize=51", "cand-key"); rec.Code != http.StatusBadRequest {
		t.Errorf("pageSize=51 status = %d, want 400", rec.Code)
	}
}

func TestCandidateMatches_NonOwner403(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/matches/jobs/job-1/candidates", "emp2-key")

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCandidateMatches_UnknownJob404(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/v1/matches/jobs/ghost/candidates", "emp-key")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

// End-to-end: index a job, watch readiness flip for a candidate, and verify
// ranked results with normalized scores and skill intersection.
func TestScenario_IndexThenMatch(t *testing.T) {
	h := newHarness(t)

	// Index the job and process it.
	if rec := h.do(t, http.MethodPost, "/api/v1/index/jobs/job-1", "emp-key"); rec.Code != http.StatusAccepted {
		t.Fatalf("index job status = %d", rec.Code)
	}
	h.processSync(t, "job-1", domain.TypeJob)

	// Candidate asks before ever being indexed: not ready, no error.
	before := decode[matchResponse](t, h.do(t, http.MethodGet, "/api/v1/matches/jobs", "cand-key"))
	if before.EmbeddingReady {
		t.Fatal("embeddingReady = true before candidate was indexed")
	}

	// Index the candidate.
	if rec := h.do(t, http.MethodPost, "/api/v1/index/profile", "cand-key"); rec.Code != http.StatusAccepted {
		t.Fatalf("index profile status = %d", rec.Code)
	}
	h.processSync(t, "user-1", domain.TypeCandidateProfile)

	// Candidate side: job-1 must appear with a sane scorePercent.
	after := decode[matchResponse](t, h.do(t, http.MethodGet, "/api/v1/matches/jobs", "cand-key"))
	if !after.EmbeddingReady {
		t.Fatal("embeddingReady = false after indexing")
	}
	if len(after.Results) != 1 || after.Results[0].ID != "job-1" {
		t.Fatalf("results = %v", after.Results)
	}
	if p := after.Results[0].ScorePercent; p < 0 || p > 100 {
		t.Errorf("scorePercent = %d, want within [0, 100]", p)
	}

	// Employer side: candidate appears with the case-insensitive skill overlap.
	emp := decode[matchResponse](t, h.do(t, http.MethodGet, "/api/v1/matches/jobs/job-1/candidates", "emp-key"))
	if !emp.EmbeddingReady {
		t.Fatal("job embeddingReady = false")
	}
	if len(emp.Results) != 1 || emp.Results[0].ID != "user-1" {
		t.Fatalf("results = %v", emp.Results)
	}
	if len(emp.Results[0].MatchedSkills) != 1 || emp.Results[0].MatchedSkills[0] != "ITSM" {
		t.Errorf("matchedSkills = %v, want [ITSM]", emp.Results[0].MatchedSkills)
	}
}

// Inactive jobs leave the index and the record ends in the skipped state.
func TestScenario_InactiveJobRemoved(t *testing.T) {
	h := newHarness(t)

	h.do(t, http.MethodPost, "/api/v1/index/jobs/job-1", "emp-key")
	h.processSync(t, "job-1", domain.TypeJob)

	// The job closes; re-request and reprocess.
	h.source.jobs["job-1"].IsActive = false
	h.do(t, http.MethodPost, "/api/v1/index/jobs/job-1", "emp-key")
	h.processSync(t, "job-1", domain.TypeJob)

	status := decode[recordResponse](t, h.do(t, http.MethodGet, "/api/v1/index/job/job-1", "emp-key"))
	if status.Status != string(domrec.StatusSkipped) {
		t.Errorf("record status = %s, want skipped", status.Status)
	}

	// Candidate must no longer see the job.
	h.do(t, http.MethodPost, "/api/v1/index/profile", "cand-key")
	h.processSync(t, "user-1", domain.TypeCandidateProfile)

	matches := decode[matchResponse](t, h.do(t, http.MethodGet, "/api/v1/matches/jobs", "cand-key"))
	for _, r := range matches.Results {
		if r.ID == "job-1" {
			t.Error("inactive job still present in matches")
		}
	}
}
