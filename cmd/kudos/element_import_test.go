package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"kudos/internal/api"
)

const sampleManifest = `
defaults:
  zones: [finance]
elements:
  - ref: ledger
    type_name: Asset
    qualified_name: finance.ledger
    properties:
      owner: treasury
      rows: 42
  - type_name: Schema
    qualified_name: finance.ledger.schema
    anchor_ref: ledger
    zones: [finance, audit]
  - qualified_name: finance.scratch
    effective_to: 2027-01-01T00:00:00Z
`

func TestParseElementManifest(t *testing.T) {
	manifest, err := parseElementManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if len(manifest.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(manifest.Elements))
	}

	ledger := manifest.Elements[0]
	if ledger.Ref != "ledger" || ledger.TypeName != "Asset" || ledger.QualifiedName != "finance.ledger" {
		t.Fatalf("unexpected first element %+v", ledger)
	}
	if ledger.Properties["owner"] != "treasury" || ledger.Properties["rows"] != 42 {
		t.Fatalf("unexpected properties %#v", ledger.Properties)
	}
	if manifest.Elements[1].AnchorRef != "ledger" {
		t.Fatalf("expected anchor_ref on second element, got %+v", manifest.Elements[1])
	}
	if scratch := manifest.Elements[2]; scratch.EffectiveTo == nil || scratch.EffectiveTo.Year() != 2027 {
		t.Fatalf("expected effective_to on third element, got %+v", scratch)
	}
}

func TestParseElementManifestErrors(t *testing.T) {
	cases := map[string]string{
		"empty":           "elements: []\n",
		"missing name":    "elements:\n  - type_name: Asset\n",
		"forward anchor":  "elements:\n  - qualified_name: a\n    anchor_ref: b\n  - qualified_name: b\n    ref: b\n",
		"duplicate ref":   "elements:\n  - qualified_name: a\n    ref: x\n  - qualified_name: b\n    ref: x\n",
		"anchor conflict": "elements:\n  - qualified_name: a\n    ref: a\n  - qualified_name: b\n    anchor_ref: a\n    anchor_guid: 3f1c2b8e-8a7d-4c52-9b8e-2f0c6f5d9a10\n",
		"bad yaml":        "elements: [\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseElementManifest([]byte(input)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

type fakeCreator struct {
	requests []api.ElementCreateRequest
	decline  map[string]bool
	fail     string
}

func (f *fakeCreator) CreateElement(_ context.Context, req api.ElementCreateRequest) (api.ElementResponse, error) {
	f.requests = append(f.requests, req)
	if req.QualifiedName == f.fail {
		return api.ElementResponse{}, errors.New("boom")
	}
	var resp api.ElementResponse
	if !f.decline[req.QualifiedName] {
		resp.GUID = "guid-" + req.QualifiedName
	}
	return resp, nil
}

func TestImportElementsResolvesAnchorsAndZones(t *testing.T) {
	manifest, err := parseElementManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	creator := &fakeCreator{decline: map[string]bool{"finance.scratch": true}}

	result, err := importElements(context.Background(), creator, manifest, []string{"sales"})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Created != 2 || result.Declined != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.GUIDs["ledger"] != "guid-finance.ledger" {
		t.Fatalf("expected ledger ref to be recorded, got %v", result.GUIDs)
	}

	schema := creator.requests[1]
	if schema.AnchorGUID != "guid-finance.ledger" {
		t.Fatalf("expected anchor resolved from ref, got %q", schema.AnchorGUID)
	}
	if !reflect.DeepEqual(schema.Zones, []string{"finance", "audit"}) {
		t.Fatalf("expected explicit zones kept, got %v", schema.Zones)
	}
	if !reflect.DeepEqual(creator.requests[0].Zones, []string{"finance"}) {
		t.Fatalf("expected manifest default zones, got %v", creator.requests[0].Zones)
	}
}

func TestImportElementsFallsBackToConfiguredZones(t *testing.T) {
	manifest, err := parseElementManifest([]byte("elements:\n  - qualified_name: a\n"))
	if err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	creator := &fakeCreator{}
	if _, err := importElements(context.Background(), creator, manifest, []string{"sales"}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !reflect.DeepEqual(creator.requests[0].Zones, []string{"sales"}) {
		t.Fatalf("expected configured default zones, got %v", creator.requests[0].Zones)
	}
}

func TestImportElementsStopsOnDeclinedAnchor(t *testing.T) {
	manifest, err := parseElementManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	creator := &fakeCreator{decline: map[string]bool{"finance.ledger": true}}

	_, err = importElements(context.Background(), creator, manifest, nil)
	if err == nil || !strings.Contains(err.Error(), "declined") {
		t.Fatalf("expected declined anchor error, got %v", err)
	}
	if len(creator.requests) != 1 {
		t.Fatalf("expected import to stop after the declined anchor, got %d requests", len(creator.requests))
	}
}

func TestImportElementsWrapsCreateErrors(t *testing.T) {
	manifest, err := parseElementManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	creator := &fakeCreator{fail: "finance.ledger.schema"}
	_, err = importElements(context.Background(), creator, manifest, nil)
	if err == nil || !strings.Contains(err.Error(), "element 2 (finance.ledger.schema)") {
		t.Fatalf("expected wrapped create error, got %v", err)
	}
}

func TestExpandManifestPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yaml", "nested/c.yaml", "notes.txt"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("elements: []\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	paths, err := expandManifestPaths([]string{
		filepath.Join(dir, "**", "*.yaml"),
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "missing.yaml"),
	})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested", "c.yaml"),
		filepath.Join(dir, "missing.yaml"),
	}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
}

func TestImportResultAdd(t *testing.T) {
	total := importResult{GUIDs: map[string]string{}}
	total.add(importResult{Created: 2, GUIDs: map[string]string{"ledger": "g1"}})
	total.add(importResult{Created: 1, Declined: 1, GUIDs: map[string]string{"ledger": "g2"}})
	if total.Created != 3 || total.Declined != 1 || total.GUIDs["ledger"] != "g2" {
		t.Fatalf("unexpected total %+v", total)
	}
}
