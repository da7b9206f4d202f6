package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"kudos/internal/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// fakeAPI answers /health and records every other request, replying with
// the canned JSON body registered for "METHOD /path".
type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	replies  map[string]string
}

func newFakeAPI(t *testing.T, replies map[string]string) (*fakeAPI, *config.Config) {
	t.Helper()
	t.Setenv("KUDOS_API_TOKEN", "")
	t.Setenv("KUDOS_USERNAME", "")
	t.Setenv("KUDOS_USER", "")

	f := &fakeAPI{replies: replies}
	ts := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.APIURL = ts.URL
	cfg.DBPath = "/definitely/not/used.db"
	return f, &cfg
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" {
		w.WriteHeader(http.StatusOK)
		return
	}

	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	reply, ok := f.replies[r.Method+" "+r.URL.Path]
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found","code":"not_found"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(reply))
}

func (f *fakeAPI) only(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) != 1 {
		t.Fatalf("expected one api request, got %+v", f.requests)
	}
	return f.requests[0]
}
