package record

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hireloop/matchdex/internal/domain"
	domrec "github.com/hireloop/matchdex/internal/domain/record"
)

const recordKeyPrefix = domain.KeyPrefix + "record:"

const (
	fieldStatus        = "status"
	fieldRetryCount    = "retry_count"
	fieldLastIndexedAt = "last_indexed_at"
	fieldErrorMessage  = "error_message"
)

func recordKey(documentID string, documentType domain.DocumentType) string {
	return recordKeyPrefix + string(documentType) + ":" + documentID
}

// buildRecordFields flattens a record into hash fields. Every field is always
// written so that updates fully overwrite the previous state.
func buildRecordFields(rec *domrec.Record) map[string]string {
	lastIndexed := ""
	if t := rec.LastIndexedAt(); t != nil {
		lastIndexed = strconv.FormatInt(t.UnixMilli(), 10)
	}
	return map[string]string{
		fieldStatus:        string(rec.Status()),
		fieldRetryCount:    strconv.Itoa(rec.RetryCount()),
		fieldLastIndexedAt: lastIndexed,
		fieldErrorMessage:  rec.ErrorMessage(),
	}
}

// parseRecordFields rebuilds a record from its hash representation.
func parseRecordFields(
	documentID string, documentType domain.DocumentType, m map[string]string,
) (*domrec.Record, error) {
	status, err := domrec.ParseStatus(m[fieldStatus])
	if err != nil {
		return nil, err
	}

	retries := 0
	if raw := m[fieldRetryCount]; raw != "" {
		retries, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse retry_count %q: %w", raw, err)
		}
	}

	var lastIndexedAt *time.Time
	if raw := m[fieldLastIndexedAt]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse last_indexed_at %q: %w", raw, err)
		}
		t := time.UnixMilli(ms).UTC()
		lastIndexedAt = &t
	}

	return domrec.Reconstruct(
		documentID, documentType, status, retries, lastIndexedAt, m[fieldErrorMessage],
	), nil
}
