package indexing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/matchdex/internal/domain"
	domrec "github.com/hireloop/matchdex/internal/domain/record"
	"github.com/hireloop/matchdex/internal/metrics"
)

// Service drives the embedding record lifecycle: RequestIndexing records
// intent, ProcessIndexing does the fetch-embed-upsert chain out of band.
type Service struct {
	records RecordStore
	source  DocumentSource
	embed   Embedder
	index   VectorIndex
	clock   func() time.Time
	logger  *zap.Logger
}

// New creates an indexing service.
func New(records RecordStore, source DocumentSource, embed Embedder, index VectorIndex, logger *zap.Logger) *Service {
	return &Service{
		records: records,
		source:  source,
		embed:   embed,
		index:   index,
		clock:   time.Now,
		logger:  logger,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// RequestIndexing records intent to (re-)index a document. Idempotent: an
// existing record is reset to Pending, never duplicated. Makes no external
// calls; the actual work happens in ProcessIndexing.
func (s *Service) RequestIndexing(
	ctx context.Context, documentID string, documentType domain.DocumentType,
) (*domrec.Record, error) {
	rec, err := s.records.GetByDocument(ctx, documentID, documentType)
	switch {
	case err == nil:
		rec.ResetToPending()
		if err := s.records.Update(ctx, rec); err != nil {
			return nil, fmt.Errorf("reset record to pending: %w", err)
		}
		return rec, nil

	case errors.Is(err, domain.ErrNotFound):
		rec, err := domrec.New(documentID, documentType)
		if err != nil {
			return nil, fmt.Errorf("new record: %w", err)
		}
		if err := s.records.Add(ctx, rec); err != nil {
			if errors.Is(err, domain.ErrRecordExists) {
				// Lost a race with another request; the record is Pending either way.
				return s.records.GetByDocument(ctx, documentID, documentType)
			}
			return nil, fmt.Errorf("add record: %w", err)
		}
		return rec, nil

	default:
		return nil, fmt.Errorf("get record: %w", err)
	}
}

// ProcessIndexing performs the actual indexing work for one document.
// Returns (true, nil) when the document ended up Indexed, and (false, nil)
// both when the record is absent and when the attempt failed: transient
// failures are captured on the record, never rethrown. A non-nil error is
// returned only for cancellation or a record-store write that could not be
// applied, in which case the record is left Processing for an external
// reaper to reclaim.
func (s *Service) ProcessIndexing(
	ctx context.Context, documentID string, documentType domain.DocumentType,
) (bool, error) {
	start := s.clock()

	rec, err := s.records.GetByDocument(ctx, documentID, documentType)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get record: %w", err)
	}

	if err := rec.SetProcessing(); err != nil {
		s.logger.Warn("Skipping document not in pending state",
			zap.String("document_id", documentID),
			zap.String("document_type", string(documentType)),
			zap.String("status", string(rec.Status())))
		return false, nil
	}
	if err := s.records.Update(ctx, rec); err != nil {
		return false, fmt.Errorf("persist processing state: %w", err)
	}

	outcome, procErr := s.process(ctx, rec)
	if procErr != nil {
		if ctx.Err() != nil {
			// Cancelled mid-flight: leave the record Processing rather than
			// recording a spurious failure.
			return false, fmt.Errorf("process %s/%s: %w", documentType, documentID, procErr)
		}
		rec.SetFailed(procErr.Error())
		if err := s.records.Update(ctx, rec); err != nil {
			return false, fmt.Errorf("persist failed state: %w", err)
		}
		metrics.IndexingProcessedTotal.WithLabelValues(string(documentType), "failed").Inc()
		s.logger.Warn("Indexing failed",
			zap.String("document_id", documentID),
			zap.String("document_type", string(documentType)),
			zap.Int("retry_count", rec.RetryCount()),
			zap.Error(procErr))
		return false, nil
	}

	switch outcome {
	case outcomeSkipped:
		rec.SetSkipped()
	case outcomeIndexed:
		rec.SetIndexed(s.clock())
	}
	if err := s.records.Update(ctx, rec); err != nil {
		return false, fmt.Errorf("persist %s state: %w", rec.Status(), err)
	}

	metrics.IndexingProcessedTotal.WithLabelValues(string(documentType), string(outcome)).Inc()
	metrics.IndexingDuration.WithLabelValues(string(documentType)).Observe(s.clock().Sub(start).Seconds())

	s.logger.Info("Document processed",
		zap.String("document_id", documentID),
		zap.String("document_type", string(documentType)),
		zap.String("status", string(rec.Status())))
	return true, nil
}

type processOutcome string

const (
	outcomeIndexed processOutcome = "indexed"
	outcomeSkipped processOutcome = "skipped"
)

func (s *Service) process(ctx context.Context, rec *domrec.Record) (processOutcome, error) {
	switch rec.DocumentType() {
	case domain.TypeJob:
		return s.processJob(ctx, rec.DocumentID())
	case domain.TypeCandidateProfile:
		return s.processCandidate(ctx, rec.DocumentID())
	}
	return "", fmt.Errorf("unknown document type %q: %w", rec.DocumentType(), domain.ErrValidation)
}

func (s *Service) processJob(ctx context.Context, jobID string) (processOutcome, error) {
	job, err := s.source.GetJob(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("fetch job: %w", err)
	}

	if !job.IsActive {
		// Closed or paused jobs leave the index entirely; no embedding call.
		if err := s.index.Delete(ctx, jobID, domain.TypeJob); err != nil {
			return "", fmt.Errorf("delete inactive job from index: %w", err)
		}
		return outcomeSkipped, nil
	}

	result, err := s.embed.Embed(ctx, JobText(job))
	if err != nil {
		return "", fmt.Errorf("embed job: %w", err)
	}

	doc := &domain.JobDocument{
		ID:                 job.ID,
		EmployerID:         job.EmployerID,
		Title:              job.Title,
		Skills:             job.Skills,
		ServiceNowVersions: job.ServiceNowVersions,
		WorkMode:           job.WorkMode,
		ExperienceLevel:    job.ExperienceLevel,
		JobType:            job.JobType,
		SalaryMin:          job.SalaryMin,
		SalaryMax:          job.SalaryMax,
		IsActive:           job.IsActive,
		UpdatedAt:          job.UpdatedAt,
		Vector:             result.Embedding,
	}
	if err := s.index.UpsertJob(ctx, doc); err != nil {
		return "", fmt.Errorf("upsert job document: %w", err)
	}
	return outcomeIndexed, nil
}

func (s *Service) processCandidate(ctx context.Context, userID string) (processOutcome, error) {
	cand, err := s.source.GetCandidate(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("fetch candidate: %w", err)
	}

	result, err := s.embed.Embed(ctx, CandidateText(cand))
	if err != nil {
		return "", fmt.Errorf("embed candidate: %w", err)
	}

	doc := &domain.CandidateDocument{
		UserID:          cand.UserID,
		Headline:        cand.Headline,
		Skills:          cand.Skills,
		Certifications:  cand.Certifications,
		ExperienceLevel: cand.ExperienceLevel,
		Availability:    cand.Availability,
		UpdatedAt:       cand.UpdatedAt,
		Vector:          result.Embedding,
	}
	if err := s.index.UpsertCandidate(ctx, doc); err != nil {
		return "", fmt.Errorf("upsert candidate document: %w", err)
	}
	return outcomeIndexed, nil
}

// JobText builds the single text blob submitted to the embedding provider
// for a job posting.
func JobText(job *domain.Job) string {
	var b strings.Builder
	writeField(&b, "Title", job.Title)
	writeField(&b, "Description", job.Description)
	writeField(&b, "Requirements", job.Requirements)
	writeField(&b, "Skills", strings.Join(job.Skills, ", "))
	writeField(&b, "ServiceNow versions", strings.Join(job.ServiceNowVersions, ", "))
	writeField(&b, "Work mode", job.WorkMode)
	writeField(&b, "Experience level", job.ExperienceLevel)
	writeField(&b, "Job type", job.JobType)
	return strings.TrimRight(b.String(), "\n")
}

// CandidateText builds the text blob for a candidate profile.
func CandidateText(cand *domain.Candidate) string {
	var b strings.Builder
	writeField(&b, "Headline", cand.Headline)
	writeField(&b, "Bio", cand.Bio)
	writeField(&b, "Skills", strings.Join(cand.Skills, ", "))
	writeField(&b, "Certifications", strings.Join(cand.Certifications, ", "))
	writeField(&b, "Experience level", cand.ExperienceLevel)
	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

// Record returns the embedding record for a document, for status polling.
func (s *Service) Record(
	ctx context.Context, documentID string, documentType domain.DocumentType,
) (*domrec.Record, error) {
	rec, err := s.records.GetByDocument(ctx, documentID, documentType)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}
