package memrecord

import (
	"context"
	"fmt"
	"sync"

	"github.com/hireloop/matchdex/internal/domain"
	domrec "github.com/hireloop/matchdex/internal/domain/record"
)

// Repo is an in-memory embedding record store for the memory driver and tests.
type Repo struct {
	mu      sync.RWMutex
	records map[string]domrec.Record
}

// New creates an empty in-memory record store.
func New() *Repo {
	return &Repo{records: make(map[string]domrec.Record)}
}

func key(documentID string, documentType domain.DocumentType) string {
	return string(documentType) + ":" + documentID
}

// GetByDocument returns the record for a document key, or domain.ErrNotFound.
func (r *Repo) GetByDocument(
	_ context.Context, documentID string, documentType domain.DocumentType,
) (*domrec.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[key(documentID, documentType)]
	if !ok {
		return nil, fmt.Errorf("record %s/%s: %w", documentType, documentID, domain.ErrNotFound)
	}
	return &rec, nil
}

// Add persists a new record, failing with domain.ErrRecordExists on a duplicate key.
func (r *Repo) Add(_ context.Context, rec *domrec.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(rec.DocumentID(), rec.DocumentType())
	if _, ok := r.records[k]; ok {
		return fmt.Errorf("record %s: %w", k, domain.ErrRecordExists)
	}
	r.records[k] = *rec
	return nil
}

// Update overwrites the stored record.
func (r *Repo) Update(_ context.Context, rec *domrec.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[key(rec.DocumentID(), rec.DocumentType())] = *rec
	return nil
}
