package embcache

import (
	"context"

	"github.com/hireloop/matchdex/internal/db"
	"github.com/hireloop/matchdex/internal/domain"
)

// mockKV is a map-backed key-value store for tests.
type mockKV struct {
	data   map[string][]byte
	getErr error
	setErr error
}

func newMockKV() *mockKV {
	return &mockKV{data: make(map[string][]byte)}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKV) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

// countingEmbedder records how often the real provider would be hit.
type countingEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (c *countingEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	c.calls++
	if c.err != nil {
		return domain.EmbeddingResult{}, c.err
	}
	return c.result, nil
}
