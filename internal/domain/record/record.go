package record

import (
	"fmt"
	"time"

	"github.com/hireloop/matchdex/internal/domain"
)

// Status is the indexing status of one document.
type Status string

const (
	// StatusPending marks a record waiting for processing.
	StatusPending Status = "pending"
	// StatusProcessing marks a record being fetched, embedded, and written.
	StatusProcessing Status = "processing"
	// StatusIndexed marks a record whose document is present in the vector index.
	StatusIndexed Status = "indexed"
	// StatusFailed marks a record whose last processing attempt failed.
	StatusFailed Status = "failed"
	// StatusSkipped marks a terminal success for an inactive document: the
	// pipeline removed it from the vector index instead of embedding it.
	StatusSkipped Status = "skipped"
)

// ParseStatus validates a status string read back from storage.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusIndexed, StatusFailed, StatusSkipped:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown record status %q", s)
}

// MaxRetries is the failure count after which automatic retries must stop.
const MaxRetries = 3

// Record tracks the indexing status of one (DocumentID, DocumentType) pair.
// Exactly one record exists per pair; it is mutated only through the
// transition methods below and never physically deleted by this subsystem.
type Record struct {
	documentID    string
	documentType  domain.DocumentType
	status        Status
	retryCount    int
	lastIndexedAt *time.Time
	errorMessage  string
}

// New creates a Pending record for a document key.
func New(documentID string, documentType domain.DocumentType) (*Record, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document ID is required: %w", domain.ErrValidation)
	}
	if _, err := domain.ParseDocumentType(string(documentType)); err != nil {
		return nil, err
	}
	return &Record{
		documentID:   documentID,
		documentType: documentType,
		status:       StatusPending,
	}, nil
}

// Reconstruct rebuilds a record from storage without transition checks.
func Reconstruct(
	documentID string, documentType domain.DocumentType, status Status,
	retryCount int, lastIndexedAt *time.Time, errorMessage string,
) *Record {
	return &Record{
		documentID:    documentID,
		documentType:  documentType,
		status:        status,
		retryCount:    retryCount,
		lastIndexedAt: lastIndexedAt,
		errorMessage:  errorMessage,
	}
}

// DocumentID returns the document identifier.
func (r *Record) DocumentID() string { return r.documentID }

// DocumentType returns the document type.
func (r *Record) DocumentType() domain.DocumentType { return r.documentType }

// Status returns the current indexing status.
func (r *Record) Status() Status { return r.status }

// RetryCount returns the number of consecutive failures.
func (r *Record) RetryCount() int { return r.retryCount }

// LastIndexedAt returns the time of the last successful indexing, nil until
// the first success.
func (r *Record) LastIndexedAt() *time.Time { return r.lastIndexedAt }

// ErrorMessage returns the last failure reason, empty after a success.
func (r *Record) ErrorMessage() string { return r.errorMessage }

// CanRetry reports whether the failure cap has not been reached yet.
func (r *Record) CanRetry() bool { return r.retryCount < MaxRetries }

// SetProcessing moves Pending → Processing.
func (r *Record) SetProcessing() error {
	if r.status != StatusPending {
		return fmt.Errorf("cannot start processing from %s: %w", r.status, domain.ErrInvalidTransition)
	}
	r.status = StatusProcessing
	return nil
}

// SetIndexed marks a successful indexing: clears the error, resets the retry
// counter, and stamps LastIndexedAt.
func (r *Record) SetIndexed(now time.Time) {
	r.status = StatusIndexed
	r.lastIndexedAt = &now
	r.retryCount = 0
	r.errorMessage = ""
}

// SetSkipped marks the inactive-document outcome: the document was removed
// from the vector index on purpose, no retry needed.
func (r *Record) SetSkipped() {
	r.status = StatusSkipped
	r.errorMessage = ""
}

// SetFailed records a failure reason and increments the retry counter.
func (r *Record) SetFailed(message string) {
	r.status = StatusFailed
	r.errorMessage = message
	r.retryCount++
}

// ResetToPending re-queues the record for processing. RetryCount is kept:
// a reset is a user-initiated action, not a successful attempt.
func (r *Record) ResetToPending() {
	r.status = StatusPending
}
