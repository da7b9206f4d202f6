package server

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"kudos/internal/api"
	"kudos/internal/store"
)

// newOpenTestServer builds a server with no users and no tokens, so it
// starts in open mode.
func newOpenTestServer(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv(apiTokenEnvKey, "")
	t.Setenv(adminTokenEnvKey, "")
	st, err := store.Open(filepath.Join(t.TempDir(), "kudos.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	srv := New("127.0.0.1:0", st, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})
	return srv.routes()
}

func TestAdminUserHandlersLifecycle(t *testing.T) {
	h := newOpenTestServer(t)

	send := func(method, path, body string, basic bool) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = bytes.NewReader([]byte(body))
		}
		req := httptest.NewRequest(method, path, reader)
		if basic {
			req.SetBasicAuth("admin", "password-123")
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	createW := send(http.MethodPost, "/v1/admin/users", `{"username":"Admin","password":"password-123","role":"admin"}`, false)
	if createW.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", createW.Code, createW.Body.String())
	}
	created := decodeBody[api.AdminUser](t, createW)
	if created.Username != "admin" || created.Role != "admin" || created.Disabled {
		t.Fatalf("unexpected created user: %+v", created)
	}

	// An enabled user now exists, so anonymous admin calls are refused.
	anonW := send(http.MethodGet, "/v1/admin/users", "", false)
	expectErrorCode(t, anonW, http.StatusUnauthorized, ErrCodeUnauthorized)

	dupW := send(http.MethodPost, "/v1/admin/users", `{"username":"admin","password":"password-456"}`, true)
	expectErrorCode(t, dupW, http.StatusConflict, ErrCodeConflict)

	badRoleW := send(http.MethodPost, "/v1/admin/users", `{"username":"carol","password":"password-456","role":"owner"}`, true)
	expectErrorCode(t, badRoleW, http.StatusBadRequest, ErrCodeInvalidArgument)

	carolW := send(http.MethodPost, "/v1/admin/users", `{"username":"carol","password":"password-456","zones":["Finance","finance"]}`, true)
	if carolW.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", carolW.Code, carolW.Body.String())
	}
	carol := decodeBody[api.AdminUser](t, carolW)
	if carol.Role != "member" || len(carol.Zones) != 1 || carol.Zones[0] != "finance" {
		t.Fatalf("unexpected carol: %+v", carol)
	}

	listW := send(http.MethodGet, "/v1/admin/users", "", true)
	if listW.Code != http.StatusOK {
		t.Fatalf("expected list 200, got %d (%s)", listW.Code, listW.Body.String())
	}
	if users := decodeBody[[]api.AdminUser](t, listW); len(users) != 2 {
		t.Fatalf("expected two users, got %+v", users)
	}

	zonesW := send(http.MethodPut, "/v1/admin/users/carol/zones", `{"zones":["sales","finance"]}`, true)
	if zonesW.Code != http.StatusOK {
		t.Fatalf("expected zones 200, got %d (%s)", zonesW.Code, zonesW.Body.String())
	}
	if updated := decodeBody[api.AdminUser](t, zonesW); len(updated.Zones) != 2 || updated.Zones[0] != "finance" {
		t.Fatalf("expected sorted zones, got %v", updated.Zones)
	}

	disableW := send(http.MethodPatch, "/v1/admin/users/carol", `{"disabled":true}`, true)
	if disableW.Code != http.StatusOK {
		t.Fatalf("expected disable 200, got %d (%s)", disableW.Code, disableW.Body.String())
	}
	if !decodeBody[api.AdminUser](t, disableW).Disabled {
		t.Fatal("expected carol to be disabled")
	}

	missingW := send(http.MethodPatch, "/v1/admin/users/dave", `{"disabled":true}`, true)
	expectErrorCode(t, missingW, http.StatusNotFound, ErrCodeUserNotFound)

	deleteW := send(http.MethodDelete, "/v1/admin/users/carol", "", true)
	if deleteW.Code != http.StatusOK {
		t.Fatalf("expected delete 200, got %d (%s)", deleteW.Code, deleteW.Body.String())
	}
	if deleted := decodeBody[api.AdminUserDeleteResponse](t, deleteW); !deleted.Deleted || deleted.Username != "carol" {
		t.Fatalf("unexpected delete response: %+v", deleted)
	}

	deleteMissingW := send(http.MethodDelete, "/v1/admin/users/carol", "", true)
	expectErrorCode(t, deleteMissingW, http.StatusNotFound, ErrCodeUserNotFound)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	h := newOpenTestServer(t)

	send := func(method, path, body, user, password string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = bytes.NewReader([]byte(body))
		}
		req := httptest.NewRequest(method, path, reader)
		if user != "" {
			req.SetBasicAuth(user, password)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	if w := send(http.MethodPost, "/v1/admin/users", `{"username":"admin","password":"password-123","role":"admin"}`, "", ""); w.Code != http.StatusCreated {
		t.Fatalf("expected bootstrap admin 201, got %d (%s)", w.Code, w.Body.String())
	}
	if w := send(http.MethodPost, "/v1/admin/users", `{"username":"mia","password":"password-456"}`, "admin", "password-123"); w.Code != http.StatusCreated {
		t.Fatalf("expected member 201, got %d (%s)", w.Code, w.Body.String())
	}

	w := send(http.MethodGet, "/v1/admin/users", "", "mia", "password-456")
	expectErrorCode(t, w, http.StatusForbidden, ErrCodeForbidden)

	w = send(http.MethodGet, "/v1/admin/users", "", "mia", "wrong-password")
	expectErrorCode(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
}
