package query

import (
	"testing"
)

func TestParseProjection(t *testing.T) {
	t.Run("empty and star", func(t *testing.T) {
		for _, s := range []string{"", "*", " * "} {
			p := parseProjection(s)
			if !p.all || len(p.columns) != 0 || len(p.embeds) != 0 {
				t.Errorf("parseProjection(%q) = %+v", s, p)
			}
		}
	})

	t.Run("columns", func(t *testing.T) {
		p := parseProjection("id, name ,display:title")
		if p.all {
			t.Error("all should be false")
		}
		want := []column{{"id", "id"}, {"name", "name"}, {"display", "title"}}
		if len(p.columns) != len(want) {
			t.Fatalf("columns = %+v", p.columns)
		}
		for i := range want {
			if p.columns[i] != want[i] {
				t.Errorf("column %d = %+v, want %+v", i, p.columns[i], want[i])
			}
		}
	})

	t.Run("embed with alias", func(t *testing.T) {
		p := parseProjection("*, property:properties(name, address)")
		if !p.all || len(p.embeds) != 1 {
			t.Fatalf("got %+v", p)
		}
		e := p.embeds[0]
		if e.alias != "property" || e.table != "properties" || e.foreignKey != "property_id" {
			t.Errorf("embed = %+v", e)
		}
		if len(e.sub.columns) != 2 || e.sub.columns[1].field != "address" {
			t.Errorf("sub = %+v", e.sub)
		}
	})

	t.Run("embed without alias", func(t *testing.T) {
		p := parseProjection("id,properties(*)")
		e := p.embeds[0]
		if e.alias != "properties" || e.table != "properties" || !e.sub.all {
			t.Errorf("embed = %+v", e)
		}
	})

	t.Run("embed with explicit foreign key", func(t *testing.T) {
		p := parseProjection("owner:profiles!owner_id(full_name)")
		e := p.embeds[0]
		if e.alias != "owner" || e.table != "profiles" || e.foreignKey != "owner_id" {
			t.Errorf("embed = %+v", e)
		}
	})

	t.Run("nested embed", func(t *testing.T) {
		p := parseProjection("id, enrollment:enrollments(status, property:properties(name))")
		if len(p.embeds) != 1 || len(p.embeds[0].sub.embeds) != 1 {
			t.Fatalf("got %+v", p)
		}
		if got := p.embeds[0].sub.embeds[0].foreignKey; got != "property_id" {
			t.Errorf("nested foreign key = %q", got)
		}
	})
}

func TestSingular(t *testing.T) {
	tests := map[string]string{
		"properties":  "property",
		"enrollments": "enrollment",
		"addresses":   "address",
		"class":       "class",
		"staff":       "staff",
	}
	for in, want := range tests {
		if got := singular(in); got != want {
			t.Errorf("singular(%q) = %q, want %q", in, got, want)
		}
	}
}
