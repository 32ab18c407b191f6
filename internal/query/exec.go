// Applies an accumulated pipeline to a collection snapshot.

package query

import (
	"slices"

	"github.com/maruel/portalemu/internal/store"
)

// plan is the immutable description of one execution.
type plan struct {
	collection string
	filter     Predicate
	projection *projection
	selected   bool
	count      CountMode
	head       bool
	single     bool
	order      *orderSpec
	rng        *rangeSpec
	// limit is -1 when unset.
	limit int
}

type orderSpec struct {
	field     string
	ascending bool
}

type rangeSpec struct {
	from, to int
}

// runRead executes a read pipeline over rows, which it does not modify.
func runRead(rows []store.Record, p *plan, lookup lookupFunc) (*Result, Execution) {
	matched := filterRows(rows, p.filter)
	total := len(matched)
	if p.order != nil {
		sortRows(matched, p.order)
	}
	if p.rng != nil {
		matched = applyRange(matched, p.rng)
	}
	if p.limit >= 0 && len(matched) > p.limit {
		matched = matched[:p.limit]
	}
	res := shapeResult(matched, total, p, lookup)
	return res, Execution{Collection: p.collection, Op: OpSelect, Matched: total, Returned: len(res.Rows())}
}

// runInsert appends payload rows with fresh ids and timestamps.
func runInsert(src Source, p *plan, payload []store.Record) (*Result, Execution, error) {
	var inserted []store.Record
	err := src.Modify(p.collection, func(rows []store.Record) ([]store.Record, error) {
		taken := make(map[string]bool, len(rows)+len(payload))
		for _, r := range rows {
			if k, ok := store.IDKey(r[store.FieldID]); ok {
				taken[k] = true
			}
		}
		now := src.Now()
		inserted = make([]store.Record, 0, len(payload))
		for _, in := range payload {
			rec := store.NormalizeRecord(in)
			if rec == nil {
				rec = store.Record{}
			}
			id := src.NewID(func(id string) bool { return taken["s:"+id] })
			taken["s:"+id] = true
			rec[store.FieldID] = id
			rec[store.FieldCreatedAt] = now
			rec[store.FieldUpdatedAt] = now
			rows = append(rows, rec)
			inserted = append(inserted, rec.Clone())
		}
		return rows, nil
	})
	if err != nil {
		return nil, Execution{}, err
	}
	return mutationResult(inserted, p, src.Get), Execution{Collection: p.collection, Op: OpInsert, Matched: len(inserted), Returned: len(inserted)}, nil
}

// runUpdate merges patch into every matching row, keeping ids.
func runUpdate(src Source, p *plan, patch store.Record) (*Result, Execution, error) {
	var updated []store.Record
	err := src.Modify(p.collection, func(rows []store.Record) ([]store.Record, error) {
		now := src.Now()
		for i, r := range rows {
			if !p.filter(r) {
				continue
			}
			merged := r.Merge(store.NormalizeRecord(patch))
			if id, ok := r[store.FieldID]; ok {
				merged[store.FieldID] = id
			} else {
				delete(merged, store.FieldID)
			}
			merged[store.FieldUpdatedAt] = now
			rows[i] = merged
			updated = append(updated, merged.Clone())
		}
		return rows, nil
	})
	if err != nil {
		return nil, Execution{}, err
	}
	return mutationResult(updated, p, src.Get), Execution{Collection: p.collection, Op: OpUpdate, Matched: len(updated), Returned: len(updated)}, nil
}

// runDelete removes every matching row.
func runDelete(src Source, p *plan) (*Result, Execution, error) {
	removed := 0
	err := src.Modify(p.collection, func(rows []store.Record) ([]store.Record, error) {
		kept := rows[:0]
		for _, r := range rows {
			if p.filter(r) {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		return kept, nil
	})
	if err != nil {
		return nil, Execution{}, err
	}
	res := &Result{}
	if p.count == CountExact || p.head {
		res.Count = &removed
	}
	return res, Execution{Collection: p.collection, Op: OpDelete, Matched: removed}, nil
}

// mutationResult shapes rows written by insert or update.
func mutationResult(rows []store.Record, p *plan, lookup lookupFunc) *Result {
	if !p.selected {
		p = &plan{projection: parseProjection("*"), single: p.single, count: p.count, head: p.head}
	}
	if rows == nil {
		rows = []store.Record{}
	}
	return shapeResult(rows, len(rows), p, lookup)
}

// shapeResult applies head, single and projection to the final rows.
func shapeResult(rows []store.Record, total int, p *plan, lookup lookupFunc) *Result {
	res := &Result{}
	if p.count == CountExact || p.head {
		res.Count = &total
	}
	if p.head {
		return res
	}
	rv := newResolver(lookup)
	if p.single {
		if len(rows) > 0 {
			res.Data = rv.shape(rows[0], p.projection)
		}
		return res
	}
	res.Data = rv.shapeAll(rows, p.projection)
	return res
}

func filterRows(rows []store.Record, p Predicate) []store.Record {
	out := make([]store.Record, 0, len(rows))
	for _, r := range rows {
		if p == nil || p(r) {
			out = append(out, r)
		}
	}
	return out
}

// sortRows sorts in place, keeping insertion order for ties.
func sortRows(rows []store.Record, o *orderSpec) {
	slices.SortStableFunc(rows, func(a, b store.Record) int {
		c := store.SortKey(a[o.field], b[o.field])
		if !o.ascending {
			// Missing values stay last in both directions.
			if a[o.field] == nil || b[o.field] == nil {
				return c
			}
			return -c
		}
		return c
	})
}

// applyRange keeps the inclusive [from, to] window, clamped to rows.
func applyRange(rows []store.Record, r *rangeSpec) []store.Record {
	from := max(r.from, 0)
	to := min(r.to, len(rows)-1)
	if from > to {
		return rows[:0]
	}
	return rows[from : to+1]
}
