// Provides the schema-less record type and typed access to its values.

package store

import (
	"encoding/json"
	"maps"
	"strconv"
	"time"
)

// Field names maintained by the store on every mutated record.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// TimeLayout is the timestamp format written into created_at/updated_at.
//
// It matches the millisecond ISO 8601 form the remote backend returns.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is a single schema-less row.
//
// Values are limited to nil, bool, float64, string, []any and map[string]any
// once normalized by [Normalize].
type Record map[string]any

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		c := make(map[string]any, len(t))
		for k, e := range t {
			c[k] = cloneValue(e)
		}
		return c
	case Record:
		return t.Clone()
	case []any:
		c := make([]any, len(t))
		for i, e := range t {
			c[i] = cloneValue(e)
		}
		return c
	default:
		return v
	}
}

// ID returns the record identifier as a string, or "" if absent.
func (r Record) ID() string {
	return r.GetString(FieldID)
}

// IDKey renders an identifier value so that string and numeric ids never
// collide. It reports false for values that cannot identify a row.
func IDKey(v any) (string, bool) {
	switch t := Normalize(v).(type) {
	case string:
		return "s:" + t, true
	case float64:
		return "n:" + strconv.FormatFloat(t, 'g', -1, 64), true
	default:
		return "", false
	}
}

// GetString returns the string value for a field, or empty string if not found/wrong type.
func (r Record) GetString(name string) string {
	if v, ok := r[name].(string); ok {
		return v
	}
	return ""
}

// GetNumber returns the numeric value for a field, or 0 if not found/wrong type.
func (r Record) GetNumber(name string) float64 {
	if v, ok := r[name].(float64); ok {
		return v
	}
	return 0
}

// Set sets a normalized value on the record.
func (r Record) Set(name string, value any) {
	r[name] = Normalize(value)
}

// Merge returns a copy of r with every field of patch written over it.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	if out == nil {
		out = make(Record, len(patch))
	}
	maps.Copy(out, patch.Clone())
	return out
}

// Normalize converts a Go value into one of the value kinds a Record holds.
//
// Integers and float32 become float64, time.Time becomes a TimeLayout string,
// nested maps and slices are normalized recursively. Unknown types are
// round-tripped through JSON.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, float64, string:
		return t
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case time.Time:
		return t.UTC().Format(TimeLayout)
	case Record:
		return map[string]any(NormalizeRecord(t))
	case map[string]any:
		return map[string]any(NormalizeRecord(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil
		}
		return out
	}
}

// NormalizeRecord returns a normalized deep copy of m.
func NormalizeRecord(m map[string]any) Record {
	if m == nil {
		return nil
	}
	out := make(Record, len(m))
	for k, v := range m {
		out[k] = Normalize(v)
	}
	return out
}
