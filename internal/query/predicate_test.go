// Tests for predicate construction and matching.

package query

import (
	"testing"

	"github.com/maruel/portalemu/internal/store"
)

func TestPredicates(t *testing.T) {
	r := store.Record{
		"id":       "E1",
		"name":     "Alice Martin",
		"email":    "alice.martin@example.com",
		"age":      float64(30),
		"active":   true,
		"deleted":  nil,
		"status":   "Premium Paying",
		"starts":   "2024-03-01",
		"coverage": "Dental",
	}
	tests := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"eq string", Eq("name", "Alice Martin"), true},
		{"eq int normalized", Eq("age", 30), true},
		{"eq type mismatch", Eq("age", "30"), false},
		{"eq missing is nil", Eq("missing", nil), true},
		{"neq", Neq("name", "Bob"), true},
		{"neq same", Neq("name", "Alice Martin"), false},
		{"in strings", In("coverage", []string{"Vision", "Dental"}), true},
		{"in none", In("coverage", []any{"Vision"}), false},
		{"in ints", In("age", []int{29, 30}), true},
		{"in scalar", In("coverage", "Dental"), true},
		{"in nil set on missing", In("missing", nil), false},
		{"in nil set on nil", In("deleted", nil), false},
		{"in empty set", In("coverage", []string{}), false},
		{"is nil", Is("deleted", nil), true},
		{"is nil missing", Is("missing", nil), true},
		{"is nil set", Is("name", nil), false},
		{"is bool", Is("active", true), true},
		{"not is nil", Not("name", "is", nil), true},
		{"not is nil on nil", Not("deleted", "is", nil), false},
		{"ilike contains", Ilike("name", "%martin%"), true},
		{"ilike unanchored", Ilike("name", "lice"), true},
		{"ilike literal dot", Ilike("email", "alice.martin%"), true},
		{"ilike regexp meta is literal", Ilike("email", "alice.+"), false},
		{"ilike no match", Ilike("name", "%bob%"), false},
		{"ilike on number", Ilike("age", "3%"), true},
		{"ilike on nil", Ilike("deleted", "%"), false},
		{"like is case sensitive", Like("name", "%martin%"), false},
		{"gte number", Gte("age", 30), true},
		{"gte number above", Gte("age", 31), false},
		{"lte number", Lte("age", 30.5), true},
		{"gte date string", Gte("starts", "2024-01-01"), true},
		{"lte date string", Lte("starts", "2024-01-01"), false},
		{"gt", Gt("age", 29), true},
		{"lt", Lt("age", 30), false},
		{"gte mismatched kinds", Gte("age", "10"), false},
		{"gte nil field", Gte("deleted", 0), false},
		{"or second clause", Or("status.eq.Enrolled,status.eq.premium paying"), true},
		{"or no clause", Or("status.eq.Enrolled,status.eq.Waived"), false},
		{"or value with dots", Or("email.eq.ALICE.MARTIN@example.com"), true},
		{"or quoted value", Or(`status.eq."Premium Paying"`), true},
		{"or number", Or("age.eq.30"), true},
		{"or ignores other ops", Or("status.neq.X,name.eq.Alice Martin"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.p == nil {
				t.Fatal("predicate is nil")
			}
			if got := tt.p(r); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredicatesIgnored(t *testing.T) {
	t.Run("not with unsupported operator", func(t *testing.T) {
		if p := Not("status", "eq", "X"); p != nil {
			t.Error("expected nil predicate")
		}
	})
	t.Run("or with only unsupported clauses", func(t *testing.T) {
		for _, expr := range []string{"", "status.neq.X", "garbage", "status", ".eq.x"} {
			if p := Or(expr); p != nil {
				t.Errorf("Or(%q) returned a predicate", expr)
			}
		}
	})
}

func TestAnd(t *testing.T) {
	r := store.Record{"a": 1.0, "b": 2.0}
	if !And()(r) {
		t.Error("empty And should match")
	}
	if !And(Eq("a", 1), nil, Eq("b", 2))(r) {
		t.Error("expected match")
	}
	if And(Eq("a", 1), Eq("b", 3))(r) {
		t.Error("expected no match")
	}
}
