package server

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthFailureLimiterBlocksAndRecovers(t *testing.T) {
	limiter := newAuthFailureLimiter(3, time.Minute, 5*time.Minute)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	key := "192.0.2.1|alice"

	for i := 0; i < 3; i++ {
		if !limiter.Allow(key, now) {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		limiter.Fail(key, now)
	}
	if limiter.Allow(key, now.Add(time.Minute)) {
		t.Fatal("expected key to be blocked after three failures")
	}
	if !limiter.Allow("192.0.2.1|bob", now) {
		t.Fatal("other keys must not be blocked")
	}
	if !limiter.Allow(key, now.Add(5*time.Minute)) {
		t.Fatal("expected block to expire")
	}
}

func TestAuthFailureLimiterWindowAndReset(t *testing.T) {
	limiter := newAuthFailureLimiter(2, time.Minute, time.Hour)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	key := "192.0.2.1|alice"

	limiter.Fail(key, now)
	limiter.Fail(key, now.Add(2*time.Minute))
	if !limiter.Allow(key, now.Add(2*time.Minute)) {
		t.Fatal("failures outside the window must not accumulate")
	}

	limiter.Fail(key, now.Add(3*time.Minute))
	limiter.Reset(key)
	limiter.Fail(key, now.Add(3*time.Minute))
	if !limiter.Allow(key, now.Add(3*time.Minute)) {
		t.Fatal("reset should clear earlier failures")
	}
}

func TestNilAuthFailureLimiterAllows(t *testing.T) {
	var limiter *authFailureLimiter
	limiter.Fail("k", time.Now())
	if !limiter.Allow("k", time.Now()) {
		t.Fatal("nil limiter should allow")
	}
	if newAuthFailureLimiter(0, time.Minute, time.Minute) != nil {
		t.Fatal("expected zero limit to disable the limiter")
	}
}

func TestAuthAttemptKey(t *testing.T) {
	req := httptest.NewRequest("GET", "/v1/elements", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	if got := authAttemptKey(" Alice ", req); got != "198.51.100.7|alice" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := authAttemptKey("", req); got != "198.51.100.7|<empty>" {
		t.Fatalf("unexpected empty-user key %q", got)
	}
}
