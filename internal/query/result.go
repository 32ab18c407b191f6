// Defines the result envelope returned by every terminal operation.

package query

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/maruel/portalemu/internal/store"
)

// ErrBuilderConsumed is returned when a builder is executed a second time.
var ErrBuilderConsumed = errors.New("query: builder already executed")

// Result is the {data, error, count} envelope.
//
// Data is a store.Record for single-row requests, a []store.Record otherwise,
// or nil (delete, head, or no row for a single-row request).
type Result struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
	Count *int   `json:"count,omitempty"`
}

// Error mirrors the error object of the remote backend.
//
// No current operation produces one; the field exists so callers written
// against the remote client can keep their error checks.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// CodeRaised is the code of an error raised by a remote procedure.
const CodeRaised = "P0001"

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Rows returns Data as a slice: nil for no data, one element for a single row.
func (r *Result) Rows() []store.Record {
	switch d := r.Data.(type) {
	case []store.Record:
		return d
	case store.Record:
		return []store.Record{d}
	default:
		return nil
	}
}

// Row returns the first row of Data, or nil.
func (r *Result) Row() store.Record {
	if rows := r.Rows(); len(rows) > 0 {
		return rows[0]
	}
	return nil
}

// Total returns Count, or -1 if count mode was not requested.
func (r *Result) Total() int {
	if r.Count == nil {
		return -1
	}
	return *r.Count
}

// Decode copies Data into v, a pointer to a struct or a slice of structs,
// using json tags for field names.
func (r *Result) Decode(v any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           v,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return err
	}
	var src any
	switch data := r.Data.(type) {
	case store.Record:
		src = map[string]any(data)
	case []store.Record:
		rows := make([]map[string]any, len(data))
		for i, row := range data {
			rows[i] = row
		}
		src = rows
	default:
		src = data
	}
	if err := d.Decode(src); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}
