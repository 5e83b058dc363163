package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/auth"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

type stubLimiter struct {
	counts map[string]int64
	err    error
}

func (s *stubLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if s.err != nil {
		return false, 0, s.err
	}
	if s.counts == nil {
		s.counts = map[string]int64{}
	}
	s.counts[scope]++
	return s.counts[scope] <= limit, s.counts[scope], nil
}

func TestRateLimitBlocksAfterLimitPerCaller(t *testing.T) {
	limiter := &stubLimiter{}
	policy := RateLimitPolicy{Name: "checkout", Window: time.Minute, Limit: 2}
	handler := RateLimit(policy, limiter, nil)(okHandler())

	first := withPrincipal(auth.Principal{UserID: uuid.New(), Role: enums.RoleCustomer})
	second := withPrincipal(auth.Principal{UserID: uuid.New(), Role: enums.RoleCustomer})

	var codes []int
	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, first(httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)))
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, second(httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)))
	if resp.Code != http.StatusOK {
		t.Fatalf("other caller should have its own budget, got %d", resp.Code)
	}
}

func TestRateLimitSetsRetryAfter(t *testing.T) {
	limiter := &stubLimiter{}
	handler := RateLimit(RateLimitPolicy{Name: "checkout", Window: 30 * time.Second, Limit: 1}, limiter, nil)(okHandler())
	caller := withPrincipal(auth.Principal{UserID: uuid.New(), Role: enums.RoleCustomer})

	handler.ServeHTTP(httptest.NewRecorder(), caller(httptest.NewRequest(http.MethodPost, "/", nil)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, caller(httptest.NewRequest(http.MethodPost, "/", nil)))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") != "30" {
		t.Fatalf("expected Retry-After 30, got %q", resp.Header().Get("Retry-After"))
	}
}

func TestRateLimitSurfacesLimiterFailure(t *testing.T) {
	handler := RateLimit(RateLimitPolicy{Name: "checkout", Window: time.Minute, Limit: 1}, &stubLimiter{err: errors.New("redis down")}, nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	handler := RateLimit(RateLimitPolicy{Name: "checkout"}, &stubLimiter{err: errors.New("unused")}, nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRequestIDPropagatesOrGenerates(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(requestIDHeader)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "req-123" {
		t.Fatalf("expected propagated id, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "" || len(seen) > maxRequestIDLength {
		t.Fatalf("expected generated id, got %q", seen)
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"success":false`) {
		t.Fatalf("expected error envelope, got %s", resp.Body.String())
	}
}
