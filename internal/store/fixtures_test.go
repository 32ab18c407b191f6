package store

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const yamlFixtures = `
collections:
  properties:
    - id: P1
      name: Oak Court
      units: 12
  enrollments:
    - id: E1
      property_id: P1
      status: Premium Paying
      enrolled_on: 2024-02-01T00:00:00Z
`

func TestParseFixtures(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		f, err := ParseFixtures([]byte(yamlFixtures), FormatYAML)
		if err != nil {
			t.Fatal(err)
		}
		if got := f.Names(); !slices.Equal(got, []string{"enrollments", "properties"}) {
			t.Fatalf("Names() = %v", got)
		}
		p := f.Collections["properties"][0]
		if p.GetNumber("units") != 12 {
			t.Errorf("units = %#v", p["units"])
		}
		e := f.Collections["enrollments"][0]
		if e.GetString("enrolled_on") == "" {
			t.Errorf("enrolled_on = %#v", e["enrolled_on"])
		}
	})

	t.Run("json", func(t *testing.T) {
		data := `{"collections":{"properties":[{"id":"P1","units":12,"tags":["a"]}]}}`
		f, err := ParseFixtures([]byte(data), FormatJSON)
		if err != nil {
			t.Fatal(err)
		}
		p := f.Collections["properties"][0]
		if v, ok := p["units"].(float64); !ok || v != 12 {
			t.Errorf("units = %#v", p["units"])
		}
		if got, ok := p["tags"].([]any); !ok || len(got) != 1 || got[0] != "a" {
			t.Errorf("tags = %v", got)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := ParseFixtures([]byte("{"), FormatJSON); err == nil {
			t.Error("expected error")
		}
		if _, err := ParseFixtures([]byte("x"), Format("toml")); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestLoadFixtures(t *testing.T) {
	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.yaml")
		if err := os.WriteFile(path, []byte(yamlFixtures), 0o600); err != nil {
			t.Fatal(err)
		}
		f, err := LoadFixtures(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(f.Collections["properties"]) != 1 {
			t.Errorf("properties = %v", f.Collections["properties"])
		}
	})

	t.Run("jsonl directory", func(t *testing.T) {
		dir := t.TempDir()
		content := "{\"id\":\"P1\"}\n\n{\"id\":\"P2\"}\n"
		if err := os.WriteFile(filepath.Join(dir, "properties.jsonl"), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o600); err != nil {
			t.Fatal(err)
		}
		f, err := LoadFixtures(dir)
		if err != nil {
			t.Fatal(err)
		}
		if got := f.Names(); !slices.Equal(got, []string{"properties"}) {
			t.Fatalf("Names() = %v", got)
		}
		if len(f.Collections["properties"]) != 2 {
			t.Errorf("rows = %v", f.Collections["properties"])
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.txt")
		if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFixtures(path); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := LoadFixtures(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
			t.Error("expected error")
		}
	})
}

func TestJSONLRoundTrip(t *testing.T) {
	rows := []Record{{"id": "a", "n": 1.0}, {"id": "b"}}
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, rows); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Fatalf("expected 2 lines, got %d", n)
	}
	got, err := ReadJSONL(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !EqualValues(map[string]any(got[0]), map[string]any(rows[0])) {
		t.Errorf("ReadJSONL = %v", got)
	}
}

func TestReadJSONLError(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader("{\"id\":1}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line 2 error, got %v", err)
	}
}

func TestFixturesSchema(t *testing.T) {
	data, err := json.Marshal(FixturesSchema())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "collections") {
		t.Errorf("schema missing collections: %s", data)
	}
}
