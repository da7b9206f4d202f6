package main

import (
	"context"
	"net/url"
	"reflect"
	"testing"

	"github.com/fatih/color"

	"kudos/internal/api"
	"kudos/internal/models"
)

func TestElementCreateUsesDefaultZones(t *testing.T) {
	fake, cfg := newFakeAPI(t, map[string]string{"POST /v1/elements": `{"guid":"` + testElementGUID + `","type_name":"Asset"}`})
	cfg.Zones.Default = []string{"finance"}

	jsonOutput := false
	cmd := newElementCreateCmd(cfg, &jsonOutput)
	cmd.SetArgs([]string{"finance.ledger", "--type", "Asset", "--property", "rows=42", "--property", "owner=treasury"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute element create: %v", err)
	}

	body := fake.only(t).Body
	if body["qualified_name"] != "finance.ledger" || body["type_name"] != "Asset" {
		t.Fatalf("unexpected body %+v", body)
	}
	if !reflect.DeepEqual(body["zones"], []any{"finance"}) {
		t.Fatalf("expected default zones, got %#v", body["zones"])
	}
	props, _ := body["properties"].(map[string]any)
	if props["rows"] != float64(42) || props["owner"] != "treasury" {
		t.Fatalf("unexpected properties %#v", body["properties"])
	}
}

func TestElementCreateExplicitZonesWin(t *testing.T) {
	fake, cfg := newFakeAPI(t, map[string]string{"POST /v1/elements": `{"guid":""}`})
	cfg.Zones.Default = []string{"finance"}

	jsonOutput := false
	cmd := newElementCreateCmd(cfg, &jsonOutput)
	cmd.SetArgs([]string{"sales.pipeline", "--zone", "sales", "--effective-from", "2026-01-01", "--effective-to", "2026-12-31"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute element create: %v", err)
	}
	body := fake.only(t).Body
	if !reflect.DeepEqual(body["zones"], []any{"sales"}) {
		t.Fatalf("expected explicit zones, got %#v", body["zones"])
	}
	if body["effective_from"] != "2026-01-01T00:00:00Z" || body["effective_to"] != "2026-12-31T00:00:00Z" {
		t.Fatalf("unexpected effectivity %+v", body)
	}
}

func TestElementShowAsksForLikeCount(t *testing.T) {
	fake, cfg := newFakeAPI(t, map[string]string{
		"GET /v1/elements/" + testElementGUID: `{"guid":"` + testElementGUID + `","type_name":"Asset","status":"active","like_count":2}`,
	})

	jsonOutput := false
	cmd := newElementShowCmd(cfg, &jsonOutput)
	cmd.SetArgs([]string{testElementGUID, "--for-duplicate-processing"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute element show: %v", err)
	}
	query, _ := url.ParseQuery(fake.only(t).Query)
	if query.Get("like_count") != "true" || query.Get("for_duplicate_processing") != "true" {
		t.Fatalf("unexpected query %v", query)
	}
}

func TestElementDeleteCascadeFlag(t *testing.T) {
	fake, cfg := newFakeAPI(t, map[string]string{
		"DELETE /v1/elements/" + testElementGUID: `{"guid":"` + testElementGUID + `","deleted":true}`,
	})

	jsonOutput := true
	cmd := newElementDeleteCmd(cfg, &jsonOutput)
	cmd.SetArgs([]string{testElementGUID, "--cascade"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute element delete: %v", err)
	}
	if req := fake.only(t); req.Query != "cascade=true" {
		t.Fatalf("expected cascade query, got %+v", req)
	}
}

func TestParsePropertyFlags(t *testing.T) {
	props, err := parsePropertyFlags([]string{"pii=false", "ratio=0.5", "owner=a=b"}, `{"owner":"x","tier":1}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := models.Properties{"pii": false, "ratio": 0.5, "owner": "a=b", "tier": float64(1)}
	if !reflect.DeepEqual(props, want) {
		t.Fatalf("expected %#v, got %#v", want, props)
	}

	if props, err := parsePropertyFlags(nil, ""); err != nil || props != nil {
		t.Fatalf("expected nil properties, got %#v err=%v", props, err)
	}
	if _, err := parsePropertyFlags([]string{"=x"}, ""); err == nil {
		t.Fatal("expected malformed pair to fail")
	}
	if _, err := parsePropertyFlags(nil, "[1]"); err == nil {
		t.Fatal("expected non-object json to fail")
	}
}

func TestFormatElementLine(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	tests := []struct {
		element models.Entity
		want    string
	}{
		{models.Entity{GUID: "g1", TypeName: "Asset", QualifiedName: "finance.ledger", Status: models.StatusActive}, "● g1 [Asset] - finance.ledger"},
		{models.Entity{GUID: "g2", TypeName: "Asset", Status: models.StatusMemento}, "✗ g2 [Asset] - g2"},
		{models.Entity{GUID: "g3", TypeName: "Asset", QualifiedName: "dup", DuplicateOf: "g1", Status: models.StatusActive}, "≡ g3 [Asset] - dup"},
	}
	for _, tt := range tests {
		if got := formatElementLine(api.ElementResponse{Entity: tt.element}); got != tt.want {
			t.Fatalf("expected %q, got %q", tt.want, got)
		}
	}
}
