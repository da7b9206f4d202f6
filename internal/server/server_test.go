package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kudos/internal/api"
)

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:7333")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:7333" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		_, err := ListenAddr("http://0.0.0.0:7333")
		if err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:7333")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:7333" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})
}

func TestWithAuth(t *testing.T) {
	echoUser := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-User", requesterID(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("denies missing auth", func(t *testing.T) {
		srv := &Server{apiToken: "token"}
		nextCalled := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nextCalled = true
			w.WriteHeader(http.StatusNoContent)
		})
		handler := srv.withAuth(next)

		req := httptest.NewRequest(http.MethodGet, "/v1/elements", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
			t.Fatalf("decode error response: %v", err)
		}
		if errResp.ErrorCode != ErrCodeUnauthorized {
			t.Fatalf("expected error_code %d, got %d", ErrCodeUnauthorized, errResp.ErrorCode)
		}
		if nextCalled {
			t.Fatal("next handler should not be called")
		}
	})

	t.Run("bearer acts for named user", func(t *testing.T) {
		srv := &Server{apiToken: "token"}
		handler := srv.withAuth(echoUser)

		req := httptest.NewRequest(http.MethodGet, "/v1/elements", nil)
		req.Header.Set("Authorization", "Bearer token")
		req.Header.Set(api.UserHeader, "Alice")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		if got := w.Header().Get("X-Seen-User"); got != "alice" {
			t.Fatalf("expected requester alice, got %q", got)
		}

		req = httptest.NewRequest(http.MethodGet, "/v1/elements", nil)
		req.Header.Set("Authorization", "Bearer token")
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if got := w.Header().Get("X-Seen-User"); got != serviceUserID {
			t.Fatalf("expected requester %s, got %q", serviceUserID, got)
		}
	})

	t.Run("rejects wrong token and unknown scheme", func(t *testing.T) {
		srv := &Server{apiToken: "token"}
		handler := srv.withAuth(echoUser)

		for _, header := range []string{"Bearer nope", "Token token"} {
			req := httptest.NewRequest(http.MethodGet, "/v1/elements", nil)
			req.Header.Set("Authorization", header)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("%s: expected 401, got %d", header, w.Code)
			}
		}
	})

	t.Run("open mode trusts user header", func(t *testing.T) {
		srv := &Server{}
		handler := srv.withAuth(echoUser)

		req := httptest.NewRequest(http.MethodGet, "/v1/elements", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if got := w.Header().Get("X-Seen-User"); got != anonymousUserID {
			t.Fatalf("expected requester %s, got %q", anonymousUserID, got)
		}

		req = httptest.NewRequest(http.MethodGet, "/v1/elements", nil)
		req.Header.Set(api.UserHeader, "bob")
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if got := w.Header().Get("X-Seen-User"); got != "bob" {
			t.Fatalf("expected requester bob, got %q", got)
		}
	})

	t.Run("health is exempt", func(t *testing.T) {
		srv := &Server{apiToken: "token"}
		handler := srv.withAuth(echoUser)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
	})

	t.Run("admin routes require admin token when configured", func(t *testing.T) {
		srv := &Server{apiToken: "token", adminToken: "admintoken"}
		handler := srv.withAuth(echoUser)

		req := httptest.NewRequest(http.MethodPost, "/v1/admin/gc/likes", nil)
		req.Header.Set("Authorization", "Bearer token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
			t.Fatalf("decode error response: %v", err)
		}
		if errResp.ErrorCode != ErrCodeForbidden {
			t.Fatalf("expected error_code %d, got %d", ErrCodeForbidden, errResp.ErrorCode)
		}

		req = httptest.NewRequest(http.MethodPost, "/v1/admin/gc/likes", nil)
		req.Header.Set("Authorization", "Bearer token")
		req.Header.Set(api.AdminTokenHeader, "admintoken")
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
	})

	t.Run("admin token works without api token", func(t *testing.T) {
		srv := &Server{adminToken: "admintoken"}
		handler := srv.withAuth(echoUser)

		req := httptest.NewRequest(http.MethodPost, "/v1/admin/gc/likes", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}

		req = httptest.NewRequest(http.MethodPost, "/v1/admin/gc/likes", nil)
		req.Header.Set(api.AdminTokenHeader, "admintoken")
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
	})

	t.Run("bearer without admin token cannot reach admin routes", func(t *testing.T) {
		srv := &Server{apiToken: "token"}
		handler := srv.withAuth(echoUser)

		req := httptest.NewRequest(http.MethodGet, "/v1/admin/users", nil)
		req.Header.Set("Authorization", "Bearer token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})
}

func TestWithAuthBlocksRepeatedBasicFailures(t *testing.T) {
	fake := &fakeAuthStore{enabledUsersCount: 1}
	srv := &Server{
		authService: NewAuthService(fake),
		authLimiter: newAuthFailureLimiter(2, time.Minute, time.Minute),
	}
	handler := srv.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	statuses := []int{}
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/v1/elements", nil)
		req.RemoteAddr = "192.0.2.10:4100"
		req.SetBasicAuth("alice", "wrong-password")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}
	want := []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("expected statuses %v, got %v", want, statuses)
		}
	}
}

func TestRequestLoggingEchoesRequestID(t *testing.T) {
	srv := &Server{}
	handler := srv.withRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/info", nil))
	if got := w.Header().Get(requestIDHeader); len(got) != 36 {
		t.Fatalf("expected generated uuid request id, got %q", got)
	}
}
