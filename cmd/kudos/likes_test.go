package main

import (
	"context"
	"net/url"
	"testing"
)

const testElementGUID = "3f1c2b8e-8a7d-4c52-9b8e-2f0c6f5d9a10"

func TestLikeSaveSendsVisibilityAndSource(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantPublic bool
	}{
		{"public by default", []string{testElementGUID}, true},
		{"private", []string{testElementGUID, "--private", "--external-source-name", "crm"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, cfg := newFakeAPI(t, map[string]string{
				"POST /v1/elements/" + testElementGUID + "/likes": `{"guid":"like-1","declined":false}`,
			})

			jsonOutput := false
			cmd := newLikeSaveCmd(cfg, &jsonOutput)
			cmd.SetArgs(tt.args)
			if err := cmd.ExecuteContext(context.Background()); err != nil {
				t.Fatalf("execute like save: %v", err)
			}

			req := api.only(t)
			if req.Body["is_public"] != tt.wantPublic {
				t.Fatalf("expected is_public=%v, got %+v", tt.wantPublic, req.Body)
			}
			if !tt.wantPublic && req.Body["external_source_name"] != "crm" {
				t.Fatalf("expected external source, got %+v", req.Body)
			}
		})
	}
}

func TestLikeSaveRejectsBadEffectiveTime(t *testing.T) {
	api, cfg := newFakeAPI(t, nil)
	jsonOutput := false
	cmd := newLikeSaveCmd(cfg, &jsonOutput)
	cmd.SetArgs([]string{testElementGUID, "--effective-time", "yesterday"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected invalid effective time to fail")
	}
	if len(api.requests) != 0 {
		t.Fatalf("expected no api requests, got %+v", api.requests)
	}
}

func TestLikeListForwardsPagingAndFilters(t *testing.T) {
	api, cfg := newFakeAPI(t, map[string]string{
		"GET /v1/elements/" + testElementGUID + "/likes": `[{"guid":"like-1","is_public":true,"created_by":"alice","created_at":"2026-01-01T12:00:00Z"}]`,
	})

	jsonOutput := false
	cmd := newLikeListCmd(cfg, &jsonOutput)
	cmd.SetArgs([]string{testElementGUID, "--start", "2", "--page-size", "5", "--for-lineage", "--effective-time", "2026-01-01"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute like list: %v", err)
	}

	query, err := url.ParseQuery(api.only(t).Query)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	want := map[string]string{"start": "2", "page_size": "5", "for_lineage": "true", "effective_time": "2026-01-01"}
	for key, value := range want {
		if query.Get(key) != value {
			t.Fatalf("expected %s=%s, got %v", key, value, query)
		}
	}
	if query.Has("for_duplicate_processing") {
		t.Fatalf("unexpected duplicate flag in %v", query)
	}
}

func TestLikeRemoveUsesDelete(t *testing.T) {
	api, cfg := newFakeAPI(t, map[string]string{
		"DELETE /v1/elements/" + testElementGUID + "/likes": `{"element_guid":"` + testElementGUID + `","removed":false}`,
	})

	jsonOutput := false
	cmd := newLikeRemoveCmd(cfg, &jsonOutput)
	cmd.SetArgs([]string{testElementGUID, "--external-source-guid", "src-1"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute like remove: %v", err)
	}
	req := api.only(t)
	if req.Method != "DELETE" || req.Query != "external_source_guid=src-1" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestLikeCommandsRequireElementGUID(t *testing.T) {
	_, cfg := newFakeAPI(t, nil)
	jsonOutput := false
	cmd := newLikeRemoveCmd(cfg, &jsonOutput)
	cmd.SetArgs([]string{})
	if err := cmd.ExecuteContext(context.Background()); err == nil || err.Error() != "element guid is required" {
		t.Fatalf("expected missing guid error, got %v", err)
	}
}
