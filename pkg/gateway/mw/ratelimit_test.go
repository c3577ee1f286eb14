package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/answerline/answerline/pkg/gateway/ratelimit"
)

func TestRateLimit_DeniesWith429(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{RPS: 100, Burst: 1})
	h := RateLimit(limiter, okHandler())

	r := httptest.NewRequest("POST", "/voice/process", nil)
	r.RemoteAddr = "203.0.113.9:1000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
}

func TestRateLimit_HealthExempt(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{RPS: 100, Burst: 1})
	h := RateLimit(limiter, okHandler())

	for i := 0; i < 5; i++ {
		r := httptest.NewRequest("GET", "/healthz", nil)
		r.RemoteAddr = "203.0.113.9:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != http.StatusOK {
			t.Fatalf("healthz request %d status = %d", i, rec.Code)
		}
	}
}

func TestRateLimit_NilLimiterPassthrough(t *testing.T) {
	h := RateLimit(nil, okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/voice/answer", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
