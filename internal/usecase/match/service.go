package match

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hireloop/matchdex/internal/domain"
	dommatch "github.com/hireloop/matchdex/internal/domain/match"
	domrec "github.com/hireloop/matchdex/internal/domain/record"
	"github.com/hireloop/matchdex/internal/metrics"
)

// DefaultPageSize is applied when the caller omits pageSize.
const DefaultPageSize = 20

// MaxPageSize caps pageSize for both match directions.
const MaxPageSize = 50

// Response is the shared envelope for both match queries. EmbeddingReady is
// false while the subject's record is absent or not yet Indexed; that is a
// normal pollable state, never an error.
type Response struct {
	Total          int
	Page           int
	PageSize       int
	EmbeddingReady bool
	Results        []dommatch.Result
}

// Service answers the two symmetric match queries.
type Service struct {
	records         RecordReader
	index           VectorIndex
	jobs            JobReader
	logger          *zap.Logger
	defaultPageSize int
	maxPageSize     int
}

// New creates a match query service with the package default page bounds.
func New(records RecordReader, index VectorIndex, jobs JobReader, logger *zap.Logger) *Service {
	return &Service{
		records:         records,
		index:           index,
		jobs:            jobs,
		logger:          logger,
		defaultPageSize: DefaultPageSize,
		maxPageSize:     MaxPageSize,
	}
}

// WithPagination overrides the default and maximum page size. Non-positive
// values keep the package defaults.
func (s *Service) WithPagination(defaultSize, maxSize int) *Service {
	if defaultSize > 0 {
		s.defaultPageSize = defaultSize
	}
	if maxSize > 0 {
		s.maxPageSize = maxSize
	}
	return s
}

// JobMatchesForCandidate returns active jobs ranked by similarity to the
// candidate's own profile embedding.
func (s *Service) JobMatchesForCandidate(
	ctx context.Context, candidateUserID string, page, pageSize int,
) (*Response, error) {
	page, pageSize, err := s.validatePagination(page, pageSize)
	if err != nil {
		return nil, err
	}

	ready, err := s.isIndexed(ctx, candidateUserID, domain.TypeCandidateProfile)
	if err != nil {
		return nil, err
	}
	if !ready {
		metrics.MatchQueriesTotal.WithLabelValues("jobs_for_candidate", "false").Inc()
		return notReady(page, pageSize), nil
	}

	vector, err := s.index.Vector(ctx, candidateUserID, domain.TypeCandidateProfile)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Record says Indexed but the index entry is gone; report not ready.
			metrics.MatchQueriesTotal.WithLabelValues("jobs_for_candidate", "false").Inc()
			return notReady(page, pageSize), nil
		}
		return nil, fmt.Errorf("load candidate vector: %w", err)
	}

	hits, err := s.index.SearchJobsForCandidate(ctx, vector, topK(page, pageSize))
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}

	results := make([]dommatch.Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, dommatch.Result{
			ID:           h.ID,
			Score:        h.Score,
			ScorePercent: dommatch.ScorePercent(h.Score),
		})
	}

	metrics.MatchQueriesTotal.WithLabelValues("jobs_for_candidate", "true").Inc()
	return &Response{
		Total:          len(results),
		Page:           page,
		PageSize:       pageSize,
		EmbeddingReady: true,
		Results:        dommatch.Page(results, page, pageSize),
	}, nil
}

// CandidateMatchesForJob returns available candidates ranked by similarity to
// a job's embedding. Only the job's owning employer or an admin may ask.
func (s *Service) CandidateMatchesForJob(
	ctx context.Context, jobID string, requester domain.Requester, page, pageSize int,
) (*Response, error) {
	page, pageSize, err := s.validatePagination(page, pageSize)
	if err != nil {
		return nil, err
	}

	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if !requester.Admin && requester.UserID != job.EmployerID {
		return nil, fmt.Errorf("job %s owned by another employer: %w", jobID, domain.ErrAccessDenied)
	}

	ready, err := s.isIndexed(ctx, jobID, domain.TypeJob)
	if err != nil {
		return nil, err
	}
	if !ready {
		metrics.MatchQueriesTotal.WithLabelValues("candidates_for_job", "false").Inc()
		return notReady(page, pageSize), nil
	}

	vector, err := s.index.Vector(ctx, jobID, domain.TypeJob)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.MatchQueriesTotal.WithLabelValues("candidates_for_job", "false").Inc()
			return notReady(page, pageSize), nil
		}
		return nil, fmt.Errorf("load job vector: %w", err)
	}

	hits, err := s.index.SearchCandidatesForJob(ctx, vector, topK(page, pageSize))
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}

	results := make([]dommatch.Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, dommatch.Result{
			ID:            h.ID,
			Score:         h.Score,
			ScorePercent:  dommatch.ScorePercent(h.Score),
			MatchedSkills: dommatch.MatchedSkills(job.Skills, h.Skills),
		})
	}

	metrics.MatchQueriesTotal.WithLabelValues("candidates_for_job", "true").Inc()
	return &Response{
		Total:          len(results),
		Page:           page,
		PageSize:       pageSize,
		EmbeddingReady: true,
		Results:        dommatch.Page(results, page, pageSize),
	}, nil
}

// isIndexed reports whether the document's record exists and is Indexed.
func (s *Service) isIndexed(ctx context.Context, id string, docType domain.DocumentType) (bool, error) {
	rec, err := s.records.GetByDocument(ctx, id, docType)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get record: %w", err)
	}
	return rec.Status() == domrec.StatusIndexed, nil
}

func notReady(page, pageSize int) *Response {
	return &Response{
		Page:     page,
		PageSize: pageSize,
		Results:  []dommatch.Result{},
	}
}

// topK asks the index for enough neighbors to fill the requested page.
func topK(page, pageSize int) int {
	return page * pageSize
}

func (s *Service) validatePagination(page, pageSize int) (int, int, error) {
	if pageSize == 0 {
		pageSize = s.defaultPageSize
	}
	if page < 1 {
		return 0, 0, fmt.Errorf("page must be >= 1, got %d: %w", page, domain.ErrValidation)
	}
	if pageSize < 1 || pageSize > s.maxPageSize {
		return 0, 0, fmt.Errorf("pageSize must be in [1, %d], got %d: %w", s.maxPageSize, pageSize, domain.ErrValidation)
	}
	return page, pageSize, nil
}
