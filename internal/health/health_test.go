package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/customer-management/internal/domain"
)

func okCheck(context.Context) error { return nil }

type stubOutboxStats struct {
	stats domain.OutboxStats
	err   error
}

func (s stubOutboxStats) PullPending(context.Context, int) ([]domain.OutboxMessage, error) {
	return nil, nil
}
func (s stubOutboxStats) Stats(context.Context) (domain.OutboxStats, error) { return s.stats, s.err }
func (s stubOutboxStats) MarkSent(context.Context, string) error { return nil }
func (s stubOutboxStats) MarkFailed(context.Context, string) error { return nil }

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(t *testing.T, h http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthHandler(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("storage", NewSimpleChecker("storage", okCheck))

	w := serve(t, handler.ServeHTTP, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var response Response
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != StatusHealthy {
		t.Fatalf("expected status healthy, got %s", response.Status)
	}
	if response.Version != "v1.0.0" {
		t.Fatalf("expected version v1.0.0, got %s", response.Version)
	}
	if len(response.Checks) != 1 {
		t.Fatalf("expected 1 check, got %d", len(response.Checks))
	}
}

func TestHealthHandler_Statuses(t *testing.T) {
	staleStats := domain.OutboxStats{PendingCount: 3, OldestPendingAt: time.Now().Add(-time.Hour)}

	tests := []struct {
		name     string
		checkers map[string]Checker
		code     int
		status   Status
	}{
		{
			name: "unhealthy storage",
			checkers: map[string]Checker{
				"storage": NewStorageChecker("storage", pingerFunc(func(context.Context) error {
					return errors.New("connection refused")
				})),
			},
			code:   http.StatusServiceUnavailable,
			status: StatusUnhealthy,
		},
		{
			name: "stale outbox degrades",
			checkers: map[string]Checker{
				"storage": NewSimpleChecker("storage", okCheck),
				"outbox":  NewOutboxChecker(stubOutboxStats{stats: staleStats}, time.Minute),
			},
			code:   http.StatusOK,
			status: StatusDegraded,
		},
		{
			name: "unhealthy wins over degraded",
			checkers: map[string]Checker{
				"outbox":  NewOutboxChecker(stubOutboxStats{stats: staleStats}, time.Minute),
				"storage": NewOutboxChecker(stubOutboxStats{err: errors.New("boom")}, time.Minute),
			},
			code:   http.StatusServiceUnavailable,
			status: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler("test")
			for name, c := range tt.checkers {
				handler.RegisterChecker(name, c)
			}

			w := serve(t, handler.ServeHTTP, "/healthz")
			if w.Code != tt.code {
				t.Fatalf("expected status %d, got %d", tt.code, w.Code)
			}
			var response Response
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Status != tt.status {
				t.Fatalf("expected %s, got %s", tt.status, response.Status)
			}
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	w := serve(t, LivenessHandler, "/livez")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("unexpected liveness response: %d %q", w.Code, w.Body.String())
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name    string
		checker Checker
		code    int
		body    string
	}{
		{"ready", NewSimpleChecker("storage", okCheck), http.StatusOK, "ready"},
		{
			"not ready",
			NewSimpleChecker("storage", func(context.Context) error { return errors.New("down") }),
			http.StatusServiceUnavailable,
			"not ready",
		},
		{
			"degraded is still ready",
			NewOutboxChecker(stubOutboxStats{stats: domain.OutboxStats{
				PendingCount:    1,
				OldestPendingAt: time.Now().Add(-time.Hour),
			}}, time.Minute),
			http.StatusOK,
			"ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler("test")
			handler.RegisterChecker("c", tt.checker)

			w := serve(t, handler.ReadinessHandler, "/readyz")
			if w.Code != tt.code {
				t.Fatalf("expected status %d, got %d", tt.code, w.Code)
			}
			if w.Body.String() != tt.body {
				t.Fatalf("expected body %q, got %q", tt.body, w.Body.String())
			}
		})
	}
}

func TestSimpleChecker_PassesDeadline(t *testing.T) {
	handler := NewHandler("test")
	handler.RegisterChecker("storage", NewSimpleChecker("storage", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		return nil
	}))

	checks, overall := handler.runChecks(context.Background())
	if overall != StatusHealthy {
		t.Fatalf("expected healthy, got %s: %s", overall, checks["storage"].Message)
	}
}

func TestOutboxChecker_FreshBacklogIsHealthy(t *testing.T) {
	checker := NewOutboxChecker(stubOutboxStats{stats: domain.OutboxStats{
		PendingCount:    5,
		OldestPendingAt: time.Now(),
	}}, time.Minute)

	if check := checker.Check(context.Background()); check.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %s (%s)", check.Status, check.Message)
	}
}
