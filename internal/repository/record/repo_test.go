package record

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hireloop/matchdex/internal/domain"
	domrec "github.com/hireloop/matchdex/internal/domain/record"
)

func testRecord(t *testing.T) *domrec.Record {
	t.Helper()
	rec, err := domrec.New("job-1", domain.TypeJob)
	if err != nil {
		t.Fatalf("domrec.New: %v", err)
	}
	return rec
}

func TestAdd_WritesAllFields(t *testing.T) {
	ms := &mockStore{}
	var gotKey string
	var gotFields map[string]string
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		gotKey = key
		gotFields = fields
		return nil
	}

	repo := New(ms)
	if err := repo.Add(context.Background(), testRecord(t)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if gotKey != "matchdex:record:job:job-1" {
		t.Errorf("key = %s", gotKey)
	}
	if gotFields["status"] != "pending" {
		t.Errorf("status field = %q, want pending", gotFields["status"])
	}
	if gotFields["retry_count"] != "0" {
		t.Errorf("retry_count field = %q, want 0", gotFields["retry_count"])
	}
	if gotFields["last_indexed_at"] != "" {
		t.Errorf("last_indexed_at = %q, want empty before first success", gotFields["last_indexed_at"])
	}
}

func TestAdd_ExistingKeyRejected(t *testing.T) {
	ms := &mockStore{}
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }

	repo := New(ms)
	err := repo.Add(context.Background(), testRecord(t))
	if !errors.Is(err, domain.ErrRecordExists) {
		t.Errorf("err = %v, want ErrRecordExists", err)
	}
}

func TestGetByDocument_EmptyHashIsNotFound(t *testing.T) {
	repo := New(&mockStore{})

	_, err := repo.GetByDocument(context.Background(), "ghost", domain.TypeJob)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetByDocument_ParsesStoredFields(t *testing.T) {
	ms := &mockStore{}
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{
			"status":          "failed",
			"retry_count":     "2",
			"last_indexed_at": "1767225600000",
			"error_message":   "embed timeout",
		}, nil
	}

	repo := New(ms)
	rec, err := repo.GetByDocument(context.Background(), "job-1", domain.TypeJob)
	if err != nil {
		t.Fatalf("GetByDocument: %v", err)
	}

	if rec.Status() != domrec.StatusFailed {
		t.Errorf("status = %s", rec.Status())
	}
	if rec.RetryCount() != 2 {
		t.Errorf("retryCount = %d", rec.RetryCount())
	}
	if rec.ErrorMessage() != "embed timeout" {
		t.Errorf("errorMessage = %q", rec.ErrorMessage())
	}
	want := time.UnixMilli(1767225600000).UTC()
	if rec.LastIndexedAt() == nil || !rec.LastIndexedAt().Equal(want) {
		t.Errorf("lastIndexedAt = %v, want %v", rec.LastIndexedAt(), want)
	}
}

func TestGetByDocument_CorruptStatus(t *testing.T) {
	ms := &mockStore{}
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{"status": "archived"}, nil
	}

	repo := New(ms)
	if _, err := repo.GetByDocument(context.Background(), "job-1", domain.TypeJob); err == nil {
		t.Error("expected error for unknown stored status")
	}
}

func TestUpdate_OverwritesEveryField(t *testing.T) {
	ms := &mockStore{}
	var gotFields map[string]string
	ms.hsetFn = func(_ context.Context, _ string, fields map[string]string) error {
		gotFields = fields
		return nil
	}

	rec := testRecord(t)
	rec.SetFailed("boom")
	rec.ResetToPending()

	repo := New(ms)
	if err := repo.Update(context.Background(), rec); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// error_message must be written even when the state no longer carries one,
	// so stale values cannot survive an overwrite.
	if _, ok := gotFields["error_message"]; !ok {
		t.Error("error_message field not written")
	}
	if gotFields["status"] != "pending" {
		t.Errorf("status = %q", gotFields["status"])
	}
	if gotFields["retry_count"] != "1" {
		t.Errorf("retry_count = %q, want 1", gotFields["retry_count"])
	}
}

func TestRecordFields_RoundTrip(t *testing.T) {
	rec := testRecord(t)
	now := time.Date(2026, 5, 10, 8, 30, 0, 0, time.UTC)
	rec.SetIndexed(now)

	parsed, err := parseRecordFields("job-1", domain.TypeJob, buildRecordFields(rec))
	if err != nil {
		t.Fatalf("parseRecordFields: %v", err)
	}

	if parsed.Status() != domrec.StatusIndexed {
		t.Errorf("status = %s", parsed.Status())
	}
	if parsed.LastIndexedAt() == nil || !parsed.LastIndexedAt().Equal(now) {
		t.Errorf("lastIndexedAt = %v, want %v", parsed.LastIndexedAt(), now)
	}
}
