package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maruel/portalemu/internal/config"
)

// run executes the root command with isolated config and .env paths.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cmd := newRootCommand(nil)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "none.yaml"), "--env", filepath.Join(dir, "none.env")}, args...))
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := run(t, append([]string{"--format", "json"}, args...)...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Count *int `json:"count"`
}

func TestCollectionsCommand(t *testing.T) {
	var counts map[string]int
	runJSON(t, &counts, "collections")
	if counts["enrollments"] != 8 || counts["properties"] != 3 {
		t.Errorf("counts = %v", counts)
	}
	out, err := run(t, "collections")
	if err != nil || !strings.Contains(out, "documents") {
		t.Errorf("out = %q, err = %v", out, err)
	}
}

func TestQueryCommand(t *testing.T) {
	t.Run("filters and count", func(t *testing.T) {
		var env envelope
		runJSON(t, &env, "query", "enrollments", "--eq", "property_id=P1", "--eq", "status=Premium Paying", "--count", "--select", "id")
		var rows []map[string]any
		if err := json.Unmarshal(env.Data, &rows); err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 || env.Count == nil || *env.Count != 2 || rows[0]["id"] != "e-001" {
			t.Errorf("rows = %v, count = %v", rows, env.Count)
		}
	})

	t.Run("numeric value and order", func(t *testing.T) {
		var env envelope
		runJSON(t, &env, "query", "enrollments", "--gte", "monthly_premium=42.5", "--order", "monthly_premium", "--desc", "--limit", "1", "--select", "id,monthly_premium")
		var rows []map[string]any
		if err := json.Unmarshal(env.Data, &rows); err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 || rows[0]["monthly_premium"] != 310.0 {
			t.Errorf("rows = %v", rows)
		}
	})

	t.Run("single with embed", func(t *testing.T) {
		var env envelope
		runJSON(t, &env, "query", "enrollments", "--eq", "id=e-008", "--single", "--select", "id, property:properties(name)")
		var row map[string]any
		if err := json.Unmarshal(env.Data, &row); err != nil {
			t.Fatal(err)
		}
		if prop, _ := row["property"].(map[string]any); prop["name"] != "Harbor View" {
			t.Errorf("row = %v", row)
		}
	})

	t.Run("insert", func(t *testing.T) {
		var env envelope
		runJSON(t, &env, "query", "notes", "--insert", `{"body":"hello"}`)
		var rows []map[string]any
		if err := json.Unmarshal(env.Data, &rows); err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 || rows[0]["id"] == "" || rows[0]["body"] != "hello" {
			t.Errorf("rows = %v", rows)
		}
	})

	t.Run("text table", func(t *testing.T) {
		out, err := run(t, "query", "properties", "--select", "id,name", "--range", "0:0", "--count")
		if err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 3 || !strings.HasPrefix(lines[0], "id") || lines[2] != "count: 3" {
			t.Errorf("out = %q", out)
		}
	})

	t.Run("errors", func(t *testing.T) {
		for _, args := range [][]string{
			{"query", "enrollments", "--eq", "nofield"},
			{"query", "enrollments", "--range", "1"},
			{"query", "enrollments", "--insert", "{", "--delete"},
			{"query", "enrollments", "--update", `{"a":1}`, "--delete"},
			{"query"},
			{"collections", "--format", "xml"},
		} {
			if _, err := run(t, args...); err == nil {
				t.Errorf("%v: expected error", args)
			}
		}
	})
}

func TestRPCCommand(t *testing.T) {
	var env envelope
	runJSON(t, &env, "rpc", "count_enrollments_by_coverage", "--params", `{"coverage_name":"Dental"}`)
	if string(env.Data) != "3" || env.Error != nil {
		t.Errorf("data = %s", env.Data)
	}

	out, err := run(t, "rpc", "no_such_procedure")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(strings.Fields(out), ""); got != `{"data":null,"error":null}` {
		t.Errorf("out = %q", out)
	}

	out, err = run(t, "rpc")
	if err != nil || !strings.Contains(out, "get_property_stats") {
		t.Errorf("out = %q, err = %v", out, err)
	}
}

func TestAuthCommand(t *testing.T) {
	var got struct {
		Session struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
		Claims map[string]any `json:"claims"`
	}
	runJSON(t, &got, "auth", "--email", "x@example.com", "--password", "nope")
	if got.Session.AccessToken == "" || got.Claims["email"] != "demo@example.com" {
		t.Errorf("got = %+v", got)
	}
}

func TestSchemaCommand(t *testing.T) {
	out, err := run(t, "schema")
	if err != nil || !strings.Contains(out, `"collections"`) {
		t.Errorf("out = %q, err = %v", out, err)
	}
}

func TestFixturesFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fx.yaml")
	data := "collections:\n  widgets:\n    - id: w1\n    - id: w2\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	var counts map[string]int
	runJSON(t, &counts, "--fixtures", path, "collections")
	if len(counts) != 1 || counts["widgets"] != 2 {
		t.Errorf("counts = %v", counts)
	}
	if _, err := run(t, "watch"); err == nil {
		t.Error("watch without fixtures should fail")
	}
}

func TestRunWatchExportsReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fx.yaml")
	if err := os.WriteFile(path, []byte("collections:\n  a:\n    - id: one\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Fixtures = path
	cfg.JWTSecret = strings.Repeat("k", 32)
	opts := &rootOptions{cfg: &cfg}
	e, err := opts.newEnv()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, path, "", e) }()

	const want = `portalemu_collection_rows{collection="b"} 2`
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := os.WriteFile(path, []byte("collections:\n  b:\n    - id: two\n    - id: three\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		rec := httptest.NewRecorder()
		e.metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		if strings.Contains(rec.Body.String(), want) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics never reported the reload:\n%s", rec.Body.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("runWatch: %v", err)
	}
}

func TestDropZero(t *testing.T) {
	tests := []struct {
		a    slog.Attr
		drop bool
	}{
		{slog.String("s", ""), true},
		{slog.String("s", "x"), false},
		{slog.Bool("b", false), true},
		{slog.Int("n", 0), true},
		{slog.Int("n", 3), false},
		{slog.Duration("d", 0), true},
		{slog.Time("t", time.Time{}), true},
		{slog.Any("nil", nil), true},
	}
	for _, tt := range tests {
		got := dropZero(nil, tt.a)
		if got.Equal(slog.Attr{}) != tt.drop {
			t.Errorf("%v: dropped = %v", tt.a, !tt.drop)
		}
	}
}
