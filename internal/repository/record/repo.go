package record

import (
	"context"
	"fmt"

	"github.com/hireloop/matchdex/internal/domain"
	domrec "github.com/hireloop/matchdex/internal/domain/record"
)

// store is the consumer interface for embedding records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo persists embedding records as hashes, one per (document id, type) key.
type Repo struct {
	store store
}

// New creates an embedding record repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// GetByDocument returns the record for a document key, or domain.ErrNotFound.
func (r *Repo) GetByDocument(
	ctx context.Context, documentID string, documentType domain.DocumentType,
) (*domrec.Record, error) {
	key := recordKey(documentID, documentType)
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("record %s/%s: %w", documentType, documentID, domain.ErrNotFound)
	}
	rec, err := parseRecordFields(documentID, documentType, fields)
	if err != nil {
		return nil, fmt.Errorf("parse record %s: %w", key, err)
	}
	return rec, nil
}

// Add persists a new record, failing with domain.ErrRecordExists if one is
// already stored for the key. Check-then-act: the ownership model guarantees
// a single writer per document, so no stronger atomicity is needed.
func (r *Repo) Add(ctx context.Context, rec *domrec.Record) error {
	key := recordKey(rec.DocumentID(), rec.DocumentType())
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if exists {
		return fmt.Errorf("record %s: %w", key, domain.ErrRecordExists)
	}
	if err := r.store.HSet(ctx, key, buildRecordFields(rec)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Update persists the mutated status fields of an existing record.
// All fields are overwritten independently, so a lost race degrades to
// last-writer-wins without corruption.
func (r *Repo) Update(ctx context.Context, rec *domrec.Record) error {
	key := recordKey(rec.DocumentID(), rec.DocumentType())
	if err := r.store.HSet(ctx, key, buildRecordFields(rec)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}
