package domain

import "errors"

var (
	// ErrNotFound signals a missing job, candidate, or embedding record.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied signals a requester without ownership or admin rights.
	ErrAccessDenied = errors.New("access denied")
	// ErrValidation signals malformed pagination or identifiers.
	ErrValidation = errors.New("validation failed")
	// ErrRecordExists signals a duplicate embedding record for a document key.
	ErrRecordExists = errors.New("embedding record already exists")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrDocumentSourceUnavailable signals a failed fetch from a collaborating service.
	ErrDocumentSourceUnavailable = errors.New("document source unavailable")
	// ErrInvalidTransition signals a status transition the record lifecycle does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")
)
