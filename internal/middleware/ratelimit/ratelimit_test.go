package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finanzas/internal/log"
)

func TestLimiterWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2}, log.Discard())
	defer rl.Stop()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if !rl.allowAt("1.2.3.4", now) || !rl.allowAt("1.2.3.4", now.Add(time.Second)) {
		t.Fatal("first two requests must pass")
	}
	if rl.allowAt("1.2.3.4", now.Add(2*time.Second)) {
		t.Fatal("third request in the window must be limited")
	}
	if !rl.allowAt("5.6.7.8", now.Add(2*time.Second)) {
		t.Fatal("other clients are unaffected")
	}
	// Steady traffic must not extend the window forever.
	if !rl.allowAt("1.2.3.4", now.Add(61*time.Second)) {
		t.Fatal("a new window must reset the counter")
	}
	if got := rl.GetMetrics().TotalHits; got != 1 {
		t.Errorf("TotalHits = %d, want 1", got)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl := NewLimiter(DefaultConfig(), log.Discard())
	defer rl.Stop()

	now := time.Now()
	rl.allowAt("old", now.Add(-20*time.Minute))
	rl.allowAt("new", now)
	if n := rl.cleanupStaleEntries(now); n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients = %d, want 1", rl.ActiveClients())
	}
}

func TestMiddlewareOnlyLimitsListedMethods(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1}, log.Discard())
	defer rl.Stop()

	ip := func(*http.Request) string { return "9.9.9.9" }
	h := rl.Middleware(ip, nil, http.MethodPost)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := []int{}
	for _, method := range []string{http.MethodGet, http.MethodGet, http.MethodPost, http.MethodPost} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/records", nil))
		codes = append(codes, rr.Code)
	}
	want := []int{204, 204, 204, 429}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(Config{}, nil)
	rl.Stop()
	rl.Stop()
}
