// Provides equality and ordering over normalized record values.

package store

import (
	"cmp"
)

// EqualValues reports whether two values are strictly equal.
//
// Both sides are normalized first, so int(1) equals float64(1), but "1" never
// equals 1. Arrays and maps compare element-wise.
func EqualValues(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	switch va := a.(type) {
	case nil:
		return b == nil
	case string:
		vb, ok := b.(string)
		return ok && va == vb
	case float64:
		vb, ok := b.(float64)
		return ok && va == vb
	case bool:
		vb, ok := b.(bool)
		return ok && va == vb
	case []any:
		vb, ok := b.([]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !EqualValues(va[i], vb[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		vb, ok := b.(map[string]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for k, e := range va {
			f, ok := vb[k]
			if !ok || !EqualValues(e, f) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CompareValues orders two values of the same kind, returning -1, 0, or 1.
//
// ok is false when either value is nil or the kinds differ; such pairs have
// no native ordering.
func CompareValues(a, b any) (c int, ok bool) {
	a, b = Normalize(a), Normalize(b)
	switch va := a.(type) {
	case string:
		if vb, ok := b.(string); ok {
			return cmp.Compare(va, vb), true
		}
	case float64:
		if vb, ok := b.(float64); ok {
			return cmp.Compare(va, vb), true
		}
	case bool:
		if vb, ok := b.(bool); ok {
			switch {
			case va == vb:
				return 0, true
			case !va && vb:
				return -1, true
			default:
				return 1, true
			}
		}
	}
	return 0, false
}

// SortKey orders any two values for sorting.
//
// Comparable pairs use [CompareValues]. nil sorts after every other value, so
// ascending orders put missing fields last. Mismatched kinds order by kind.
func SortKey(a, b any) int {
	if c, ok := CompareValues(a, b); ok {
		return c
	}
	a, b = Normalize(a), Normalize(b)
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	return cmp.Compare(kindRank(a), kindRank(b))
}

func kindRank(v any) int {
	switch v.(type) {
	case bool:
		return 0
	case float64:
		return 1
	case string:
		return 2
	case []any:
		return 3
	case map[string]any:
		return 4
	default:
		return 5
	}
}
