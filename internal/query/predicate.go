// Provides the row-matching functions accumulated by builder filter calls.

package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/maruel/portalemu/internal/store"
	"golang.org/x/text/cases"
)

// Predicate reports whether a record matches. Predicates are pure.
type Predicate func(store.Record) bool

// And combines predicates; nil entries are skipped. An empty list matches all.
func And(preds ...Predicate) Predicate {
	return func(r store.Record) bool {
		for _, p := range preds {
			if p != nil && !p(r) {
				return false
			}
		}
		return true
	}
}

// Eq matches records whose field strictly equals value. A missing field
// equals nil.
func Eq(field string, value any) Predicate {
	v := store.Normalize(value)
	return func(r store.Record) bool {
		return store.EqualValues(r[field], v)
	}
}

// Neq matches records whose field is not strictly equal to value.
func Neq(field string, value any) Predicate {
	eq := Eq(field, value)
	return func(r store.Record) bool {
		return !eq(r)
	}
}

// In matches records whose field equals one of values.
//
// values may be any slice; a non-slice value is treated as a one-element set.
// A nil set matches nothing.
func In(field string, values any) Predicate {
	var set []any
	switch v := store.Normalize(values).(type) {
	case nil:
	case []any:
		set = v
	default:
		set = []any{v}
	}
	return func(r store.Record) bool {
		got := r[field]
		for _, want := range set {
			if store.EqualValues(got, want) {
				return true
			}
		}
		return false
	}
}

// Is is an identity check, chiefly for nil. It behaves like [Eq].
func Is(field string, value any) Predicate {
	return Eq(field, value)
}

// Not negates an operator. Only the "is" operator is supported; any other
// operator returns nil, which builders skip.
func Not(field, op string, value any) Predicate {
	switch op {
	case "is":
		return Neq(field, value)
	default:
		return nil
	}
}

// Gte matches records whose field orders at or after value.
func Gte(field string, value any) Predicate {
	return ordered(field, value, func(c int) bool { return c >= 0 })
}

// Lte matches records whose field orders at or before value.
func Lte(field string, value any) Predicate {
	return ordered(field, value, func(c int) bool { return c <= 0 })
}

// Gt matches records whose field orders strictly after value.
func Gt(field string, value any) Predicate {
	return ordered(field, value, func(c int) bool { return c > 0 })
}

// Lt matches records whose field orders strictly before value.
func Lt(field string, value any) Predicate {
	return ordered(field, value, func(c int) bool { return c < 0 })
}

func ordered(field string, value any, accept func(int) bool) Predicate {
	v := store.Normalize(value)
	return func(r store.Record) bool {
		c, ok := store.CompareValues(r[field], v)
		return ok && accept(c)
	}
}

// Ilike matches records whose field contains pattern, ignoring case.
//
// '%' matches any run of characters; every other character is literal. The
// match is not anchored.
func Ilike(field, pattern string) Predicate {
	return like(field, pattern, true)
}

// Like is the case-sensitive form of [Ilike].
func Like(field, pattern string) Predicate {
	return like(field, pattern, false)
}

func like(field, pattern string, fold bool) Predicate {
	parts := strings.Split(pattern, "%")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	expr := strings.Join(parts, ".*")
	if fold {
		expr = "(?i)" + expr
	}
	re := regexp.MustCompile(expr)
	return func(r store.Record) bool {
		s, ok := stringify(r[field])
		return ok && re.MatchString(s)
	}
}

// Or parses a comma-separated list of "field.eq.value" clauses into a
// predicate matching when any clause does, comparing strings without regard
// to case.
//
// Malformed clauses and operators other than eq are ignored. Returns nil if
// no usable clause remains.
func Or(expr string) Predicate {
	type clause struct {
		field, value string
	}
	var clauses []clause
	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		field, rest, ok := strings.Cut(part, ".")
		if !ok || field == "" {
			continue
		}
		op, value, ok := strings.Cut(rest, ".")
		if !ok || op != "eq" {
			continue
		}
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}
		clauses = append(clauses, clause{field: field, value: foldString(value)})
	}
	if len(clauses) == 0 {
		return nil
	}
	return func(r store.Record) bool {
		for _, c := range clauses {
			if s, ok := stringify(r[c.field]); ok && foldString(s) == c.value {
				return true
			}
		}
		return false
	}
}

// foldString returns the case-folded form of s.
func foldString(s string) string {
	return cases.Fold().String(s)
}

// stringify renders scalar values as text. nil, arrays and maps are not
// representable.
func stringify(v any) (string, bool) {
	switch t := store.Normalize(v).(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
