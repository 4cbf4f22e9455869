package health

import (
	"context"
	"errors"
	"testing"
)

type mockPinger struct{ err error }

func (m *mockPinger) Ping(context.Context) error { return m.err }

type mockChecker struct{ err error }

func (m *mockChecker) HealthCheck(context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{})

	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Errorf("status = %s, want %s", report.Status, Healthy)
	}
	if report.Checks["store"] != CheckOK || report.Checks["embedding"] != CheckOK {
		t.Errorf("checks = %v", report.Checks)
	}
}

func TestCheck_StoreDownIsDegraded(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("refused")}, &mockChecker{})

	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Errorf("status = %s, want %s", report.Status, Degraded)
	}
	if report.Checks["store"] != CheckError {
		t.Errorf("store check = %s", report.Checks["store"])
	}
}

func TestCheck_EverythingDownIsUnhealthy(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("refused")}, &mockChecker{err: errors.New("401")})

	report := svc.Check(context.Background())

	if report.Status != Unhealthy {
		t.Errorf("status = %s, want %s", report.Status, Unhealthy)
	}
}

func TestCheck_NilEmbeddingCheckerSkipped(t *testing.T) {
	svc := New(&mockPinger{}, nil)

	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Errorf("status = %s", report.Status)
	}
	if _, ok := report.Checks["embedding"]; ok {
		t.Error("embedding check should be absent when no provider is wired")
	}
}
