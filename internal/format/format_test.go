package format

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type sample struct {
	GUID      string    `json:"guid"`
	IsPublic  bool      `json:"is_public"`
	Zones     []string  `json:"zones,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{}).Write(&buf, sample{GUID: "g-1", IsPublic: true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := buf.String()
	if !strings.HasPrefix(got, `{"guid":"g-1","is_public":true`) || !strings.HasSuffix(got, "\n") {
		t.Fatalf("unexpected json output %q", got)
	}
}

func TestYAMLFormatterUsesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	payload := []sample{{
		GUID:      "g-1",
		IsPublic:  false,
		Zones:     []string{"finance"},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}
	if err := (YAMLFormatter{}).Write(&buf, payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := buf.String()
	if !strings.HasPrefix(got, "- created_at: ") {
		t.Fatalf("expected a sequence with sorted keys, got:\n%s", got)
	}
	for _, line := range []string{"  guid: g-1\n", "  is_public: false\n", "- finance\n"} {
		if !strings.Contains(got, line) {
			t.Fatalf("expected %q in yaml output:\n%s", line, got)
		}
	}
	if strings.Contains(got, "GUID") || strings.Contains(got, "createdat") {
		t.Fatalf("expected json field names, got:\n%s", got)
	}
}

func TestForName(t *testing.T) {
	for _, name := range []string{"", "json", "JSON"} {
		f, err := ForName(name)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if _, ok := f.(JSONFormatter); !ok {
			t.Fatalf("%q: expected json formatter, got %T", name, f)
		}
	}
	for _, name := range []string{"yaml", "yml"} {
		f, err := ForName(name)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if _, ok := f.(YAMLFormatter); !ok {
			t.Fatalf("%q: expected yaml formatter, got %T", name, f)
		}
	}
	if _, err := ForName("xml"); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
